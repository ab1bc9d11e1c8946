// Package exchange — service.go: сам обмен. Списание баллов, запись
// обмена и выдача доступа к материалам фиксируются одним коммитом —
// либо всё, либо ничего.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
	"github.com/xujiafei/mingrixueba-server/internal/db/postgres"
	"github.com/xujiafei/mingrixueba-server/internal/features/access"
	"github.com/xujiafei/mingrixueba-server/internal/features/catalog"
	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
	"github.com/xujiafei/mingrixueba-server/internal/features/points"
)

// Service проводит обмены семестров на баллы.
type Service struct {
	repo            *Repository
	points          *points.Service
	catalog         *catalog.Service
	memberships     *membership.Service
	accessRepo      *access.Repository
	accessDays      int // Срок доступа после обмена для тарифов кроме points
	conflictRetries int
}

func NewService(repo *Repository, pts *points.Service, cat *catalog.Service, ms *membership.Service, ar *access.Repository, accessDays, conflictRetries int) *Service {
	if conflictRetries < 1 {
		conflictRetries = 1
	}
	return &Service{
		repo:            repo,
		points:          pts,
		catalog:         cat,
		memberships:     ms,
		accessRepo:      ar,
		accessDays:      accessDays,
		conflictRetries: conflictRetries,
	}
}

// txSteps — шаги транзакции обмена. Вынесены за интерфейс, чтобы
// порядок и обрыв цепочки проверялись отдельно от БД.
type txSteps interface {
	deduct(ctx context.Context, tx pgx.Tx, userID, amount int64, remark string) (debitID, balance int64, err error)
	insertExchange(ctx context.Context, tx pgx.Tx, ex *Exchange) (int64, error)
	grantAccess(ctx context.Context, tx pgx.Tx, userID, exchangeID int64, materialIDs []int64, expiry *time.Time) error
}

// runExchangeTx проводит обмен внутри открытой транзакции строго
// в порядке: списание → запись обмена → выдача доступа. Любая ошибка
// обрывает цепочку, коммит не происходит.
func runExchangeTx(ctx context.Context, tx pgx.Tx, steps txSteps, ex *Exchange, materialIDs []int64, expiry *time.Time, remark string) (int64, error) {
	debitID, balance, err := steps.deduct(ctx, tx, ex.UserID, ex.PointsSpent, remark)
	if err != nil {
		return 0, err
	}
	ex.DebitID = debitID

	id, err := steps.insertExchange(ctx, tx, ex)
	if err != nil {
		return 0, err
	}
	ex.ID = id

	if err := steps.grantAccess(ctx, tx, ex.UserID, id, materialIDs, expiry); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *Service) deduct(ctx context.Context, tx pgx.Tx, userID, amount int64, remark string) (int64, int64, error) {
	debit, balance, err := s.points.DeductPointsTx(ctx, tx, userID, amount, points.ReasonExchange, remark)
	if err != nil {
		return 0, 0, err
	}
	return debit.ID, balance, nil
}

func (s *Service) insertExchange(ctx context.Context, tx pgx.Tx, ex *Exchange) (int64, error) {
	return s.repo.Insert(ctx, tx, ex)
}

func (s *Service) grantAccess(ctx context.Context, tx pgx.Tx, userID, exchangeID int64, materialIDs []int64, expiry *time.Time) error {
	return s.accessRepo.UpsertBatch(ctx, tx, access.ExchangeRecords(userID, exchangeID, materialIDs, expiry))
}

func (s *Service) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.conflictRetries; attempt++ {
		err = postgres.MapConflict(postgres.WithTx(ctx, s.repo.db, fn))
		if !errors.Is(err, common.ErrTransactionConflict) {
			return err
		}
		log.WithFields(log.Fields{"attempt": attempt}).Warn("Конфликт транзакции обмена, повтор")
	}
	return err
}

// ExchangeSemester обменивает семестр на баллы: списывает стоимость
// по FIFO, записывает обмен и открывает доступ ко всем опубликованным
// материалам семестра. Тариф points получает бессрочный доступ,
// остальные — на accessDays дней.
func (s *Service) ExchangeSemester(ctx context.Context, userID, semesterID int64) (*Result, error) {
	tree, err := s.catalog.LoadTree(ctx)
	if err != nil {
		return nil, err
	}

	cost, err := s.catalog.ExchangeCost(ctx, tree, semesterID)
	if err != nil {
		return nil, err
	}
	materials, err := s.catalog.SemesterMaterials(ctx, tree, semesterID)
	if err != nil {
		return nil, err
	}

	// Быстрая проверка до транзакции; гонку закрывает частичный
	// уникальный индекс при вставке
	if existing, err := s.repo.GetActive(ctx, userID, semesterID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("semester_id=%d: %w", semesterID, common.ErrAlreadyExchanged)
	}

	standing, err := s.memberships.CurrentStanding(ctx, userID)
	if err != nil {
		return nil, err
	}
	var expiry *time.Time
	if standing.Tier != membership.TierPoints {
		t := time.Now().AddDate(0, 0, s.accessDays)
		expiry = &t
	}

	semName := tree.Get(semesterID).Name
	ex := &Exchange{UserID: userID, SemesterID: semesterID, PointsSpent: cost}
	remark := fmt.Sprintf("Обмен семестра «%s»", semName)

	ids := make([]int64, 0, len(materials))
	for _, m := range materials {
		ids = append(ids, m.ID)
	}

	var newBalance int64
	err = s.withRetry(ctx, func(tx pgx.Tx) error {
		balance, err := runExchangeTx(ctx, tx, s, ex, ids, expiry, remark)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":     userID,
		"semester_id": semesterID,
		"points":      cost,
		"materials":   len(materials),
	}).Info("Семестр обменян на баллы")

	return &Result{Exchange: ex, MaterialCount: len(materials), NewBalance: newBalance}, nil
}

// CancelExchange отменяет обмен (админ-операция): гасит запись,
// отзывает выданный доступ и возвращает потраченные баллы бессрочным
// начислением exchange_refund. Всё одним коммитом.
func (s *Service) CancelExchange(ctx context.Context, exchangeID int64) error {
	ex, err := s.repo.GetByID(ctx, exchangeID)
	if err != nil {
		return err
	}
	if !ex.Active {
		return fmt.Errorf("id=%d: обмен уже отменён: %w", exchangeID, common.ErrSemesterNotFound)
	}

	err = s.withRetry(ctx, func(tx pgx.Tx) error {
		if err := s.repo.Deactivate(ctx, tx, exchangeID); err != nil {
			return err
		}
		if err := s.accessRepo.RevokeByExchange(ctx, tx, exchangeID); err != nil {
			return err
		}
		_, err := s.points.AddPointsTx(ctx, tx, ex.UserID, ex.PointsSpent,
			points.SourceExchangeRefund, &ex.ID, nil)
		return err
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"exchange_id": exchangeID,
		"user_id":     ex.UserID,
		"refund":      ex.PointsSpent,
	}).Info("Обмен отменён, баллы возвращены")
	return nil
}

// ActiveSemesterIDs реализует access.ExchangeReader.
func (s *Service) ActiveSemesterIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	return s.repo.ActiveSemesterIDs(ctx, userID)
}

// CheckExchanged сообщает, обменян ли семестр пользователем.
func (s *Service) CheckExchanged(ctx context.Context, userID, semesterID int64) (bool, error) {
	ex, err := s.repo.GetActive(ctx, userID, semesterID)
	if err != nil {
		return false, err
	}
	return ex != nil, nil
}

// ExchangedSemesters возвращает обмены пользователя с названиями
// семестров для показа в боте.
func (s *Service) ExchangedSemesters(ctx context.Context, userID int64) ([]*Exchange, map[int64]string, error) {
	exchanges, err := s.repo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, nil, err
	}
	tree, err := s.catalog.LoadTree(ctx)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[int64]string, len(exchanges))
	for _, ex := range exchanges {
		if sem := tree.Get(ex.SemesterID); sem != nil {
			names[ex.SemesterID] = sem.Name
		}
	}
	return exchanges, names, nil
}
