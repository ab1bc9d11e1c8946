// Package access — service.go собирает входы для резолвера: материал,
// запись доступа, тариф и обменянные семестры, — и применяет цепочку
// правил. Проверки — снапшотные чтения из пула, без блокировок.
package access

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/features/catalog"
	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
)

// ExchangeReader отдаёт активно обменянные семестры пользователя.
// Реализуется сервисом обмена; интерфейс разрывает цикл пакетов
// (обмен пишет записи доступа через этот пакет).
type ExchangeReader interface {
	ActiveSemesterIDs(ctx context.Context, userID int64) (map[int64]bool, error)
}

// Service — проверки доступа и журнал скачиваний.
type Service struct {
	repo        *Repository
	catalog     *catalog.Service
	memberships *membership.Service
	exchanges   ExchangeReader
}

func NewService(repo *Repository, cat *catalog.Service, ms *membership.Service, ex ExchangeReader) *Service {
	return &Service{repo: repo, catalog: cat, memberships: ms, exchanges: ex}
}

// CanAccess решает, доступен ли материал пользователю.
func (s *Service) CanAccess(ctx context.Context, userID, materialID int64) (Decision, error) {
	m, err := s.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		return Decision{}, err
	}
	decisions, err := s.CanAccessBatch(ctx, userID, []*catalog.Material{m})
	if err != nil {
		return Decision{}, err
	}
	return decisions[materialID], nil
}

// CanAccessBatch решает доступ к набору материалов тремя запросами:
// записи доступа, последняя подписка и обменянные семестры читаются
// по одному разу на весь набор.
func (s *Service) CanAccessBatch(ctx context.Context, userID int64, materials []*catalog.Material) (map[int64]Decision, error) {
	out := make(map[int64]Decision, len(materials))
	if len(materials) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(materials))
	for _, m := range materials {
		ids = append(ids, m.ID)
	}

	records, err := s.repo.ForMaterials(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	standing, err := s.memberships.CurrentStanding(ctx, userID)
	if err != nil {
		return nil, err
	}
	exchanged, err := s.exchanges.ActiveSemesterIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	tree, err := s.catalog.LoadTree(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, m := range materials {
		var semesterID int64
		if sem := tree.SemesterOf(m.CategoryID); sem != nil {
			semesterID = sem.ID
		}
		out[m.ID] = decide(resolveInput{
			Free:       m.IsFree,
			Grade:      m.Grade,
			SemesterID: semesterID,
			Record:     records[m.ID],
			Tier:       standing.Tier,
			Exchanged:  exchanged,
			Now:        now,
		})
	}
	return out, nil
}

// RecordDirectAccess выдаёт пользователю прямой доступ к материалу
// (оплаченный заказ). expiry == nil — бессрочно.
func (s *Service) RecordDirectAccess(ctx context.Context, userID, materialID int64, orderID *int64, expiry *time.Time) error {
	rec := &Record{
		UserID:     userID,
		MaterialID: materialID,
		AccessType: TypeDirect,
		ExpiryAt:   expiry,
		OrderID:    orderID,
	}
	if err := s.repo.Upsert(ctx, s.repo.db, rec); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id":     userID,
		"material_id": materialID,
	}).Info("Выдан прямой доступ к материалу")
	return nil
}

// RecordDownload фиксирует скачивание: проверяет доступ и при
// положительном решении увеличивает счётчик материала.
func (s *Service) RecordDownload(ctx context.Context, userID, materialID int64) (Decision, error) {
	d, err := s.CanAccess(ctx, userID, materialID)
	if err != nil {
		return Decision{}, err
	}
	if !d.Allowed {
		return d, nil
	}
	if err := s.catalog.RegisterDownload(ctx, materialID); err != nil {
		// Скачивание важнее счётчика
		log.WithError(err).WithField("material_id", materialID).Warn("Не удалось обновить счётчик скачиваний")
	}
	return d, nil
}

// History возвращает записи доступа пользователя.
func (s *Service) History(ctx context.Context, userID int64) ([]*Record, error) {
	return s.repo.ListByUser(ctx, userID, 20)
}
