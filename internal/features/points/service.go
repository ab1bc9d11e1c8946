// Package points — service.go собирает операции над журналом баллов:
// начисление, списание FIFO, сгорание, сброс и выдача баланса/истории.
// Каждая мутация выполняется в одной транзакции с блокировкой строки
// пользователя; конфликты сериализации повторяются ограниченное число раз.
package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
	"github.com/xujiafei/mingrixueba-server/internal/db/postgres"
)

// TierPromoter повышает уровень подписки пользователя при первом
// появлении баллов (none → points). Реализуется сервисом подписок;
// интерфейс разрывает циклическую зависимость пакетов.
type TierPromoter interface {
	PromoteToPoints(ctx context.Context, userID int64) error
}

// Service — движок журнала баллов.
type Service struct {
	repo            *Repository
	promoter        TierPromoter
	defaultExpiry   time.Duration // Срок жизни начислений без явного expires_at
	expiringSoon    time.Duration // Порог «скоро сгорит» для сводки баланса
	conflictRetries int
}

// NewService создаёт движок баллов.
// expiryDays <= 0 означает бессрочные начисления по умолчанию.
func NewService(repo *Repository, promoter TierPromoter, expiryDays, expiringSoonDays, conflictRetries int) *Service {
	s := &Service{
		repo:            repo,
		promoter:        promoter,
		expiringSoon:    time.Duration(expiringSoonDays) * 24 * time.Hour,
		conflictRetries: conflictRetries,
	}
	if expiryDays > 0 {
		s.defaultExpiry = time.Duration(expiryDays) * 24 * time.Hour
	}
	if s.conflictRetries < 1 {
		s.conflictRetries = 1
	}
	return s
}

// withRetry выполняет fn в транзакции, повторяя её при конфликтах
// сериализации (40001/40P01). Прочие ошибки возвращаются сразу.
func (s *Service) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.conflictRetries; attempt++ {
		err = postgres.MapConflict(postgres.WithTx(ctx, s.repo.db, fn))
		if !errors.Is(err, common.ErrTransactionConflict) {
			return err
		}
		log.WithFields(log.Fields{"attempt": attempt}).Warn("Конфликт транзакции, повтор операции")
	}
	return err
}

// AddPoints начисляет пользователю amount баллов из источника source.
// expiryDays == nil — срок по умолчанию из конфигурации;
// *expiryDays <= 0 — бессрочное начисление; иначе — заданное число дней.
// После первой успешной записи баллов пользователь none повышается до points.
func (s *Service) AddPoints(ctx context.Context, userID, amount int64, source string, sourceID *int64, expiryDays *int) (*Grant, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	now := time.Now()
	expiresAt := grantExpiry(now, expiryDays, s.defaultExpiry)

	grant := &Grant{
		UserID:     userID,
		Amount:     amount,
		Source:     source,
		SourceID:   sourceID,
		AcquiredAt: now,
		ExpiresAt:  expiresAt,
		Status:     StatusActive,
	}

	var balance int64
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = s.insertGrantTx(ctx, tx, grant, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"source":  source,
		"balance": balance,
	}).Info("Баллы начислены")

	if s.promoter != nil {
		if err := s.promoter.PromoteToPoints(ctx, userID); err != nil {
			// Начисление уже зафиксировано; повышение уровня догонит
			// следующая операция
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось повысить уровень подписки")
		}
	}
	return grant, nil
}

func (s *Service) insertGrantTx(ctx context.Context, tx pgx.Tx, grant *Grant, now time.Time) (int64, error) {
	if err := s.repo.LockUser(ctx, tx, grant.UserID); err != nil {
		return 0, err
	}
	id, err := s.repo.InsertGrant(ctx, tx, grant)
	if err != nil {
		return 0, err
	}
	grant.ID = id
	return s.repo.RecomputeBalance(ctx, tx, grant.UserID, now)
}

// AddPointsTx начисляет баллы внутри уже открытой транзакции —
// для операций, где возврат баллов фиксируется одним коммитом
// с остальными шагами (отмена обмена).
func (s *Service) AddPointsTx(ctx context.Context, tx pgx.Tx, userID, amount int64, source string, sourceID *int64, expiresAt *time.Time) (*Grant, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	now := time.Now()
	grant := &Grant{
		UserID:     userID,
		Amount:     amount,
		Source:     source,
		SourceID:   sourceID,
		AcquiredAt: now,
		ExpiresAt:  expiresAt,
		Status:     StatusActive,
	}
	if _, err := s.insertGrantTx(ctx, tx, grant, now); err != nil {
		return nil, err
	}
	return grant, nil
}

// DeductPoints списывает amount баллов по правилу FIFO в отдельной транзакции.
// Возвращает запись о списании и новый баланс.
func (s *Service) DeductPoints(ctx context.Context, userID, amount int64, reason, remark string) (*Debit, int64, error) {
	var (
		debit   *Debit
		balance int64
	)
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		var err error
		debit, balance, err = s.DeductPointsTx(ctx, tx, userID, amount, reason, remark)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"reason":  reason,
		"balance": balance,
	}).Info("Баллы списаны")
	return debit, balance, nil
}

// DeductPointsTx списывает баллы внутри уже открытой транзакции.
// Используется обменом семестра: списание и запись обмена фиксируются
// одним коммитом. План строится по свежему чтению начислений под
// блокировкой — никакие кэшированные балансы не участвуют в решении.
func (s *Service) DeductPointsTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason, remark string) (*Debit, int64, error) {
	now := time.Now()
	if err := s.repo.LockUser(ctx, tx, userID); err != nil {
		return nil, 0, err
	}

	grants, err := s.repo.ActiveGrantsForUpdate(ctx, tx, userID, now)
	if err != nil {
		return nil, 0, err
	}

	plan, err := planConsumption(grants, amount, now)
	if err != nil {
		return nil, 0, err
	}

	usedIDs := make([]int64, 0, len(plan))
	for _, use := range plan {
		usedIDs = append(usedIDs, use.Grant.ID)
		if use.Remainder > 0 {
			// Расщепление: остаток наследует происхождение и сроки
			rest := &Grant{
				UserID:     userID,
				Amount:     use.Remainder,
				Source:     use.Grant.Source,
				SourceID:   use.Grant.SourceID,
				AcquiredAt: use.Grant.AcquiredAt,
				ExpiresAt:  use.Grant.ExpiresAt,
				Status:     StatusActive,
			}
			if _, err := s.repo.InsertGrant(ctx, tx, rest); err != nil {
				return nil, 0, err
			}
		}
	}
	if err := s.repo.MarkGrantsUsed(ctx, tx, usedIDs); err != nil {
		return nil, 0, err
	}

	debit := &Debit{UserID: userID, Amount: amount, Reason: reason, Remark: remark}
	id, err := s.repo.InsertDebit(ctx, tx, debit)
	if err != nil {
		return nil, 0, err
	}
	debit.ID = id

	balance, err := s.repo.RecomputeBalance(ctx, tx, userID, now)
	if err != nil {
		return nil, 0, err
	}
	return debit, balance, nil
}

// ExpireSweep помечает сгоревшие начисления пользователя и пишет
// одно суммарное списание с причиной expire. Повторный вызов без новых
// сгоревших начислений ничего не меняет.
func (s *Service) ExpireSweep(ctx context.Context, userID int64) (int64, error) {
	now := time.Now()
	var swept int64
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		swept = 0
		if err := s.repo.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		grants, err := s.repo.ExpiredActiveGrantsForUpdate(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		expired, total := planSweep(grants, now)
		if len(expired) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(expired))
		for _, g := range expired {
			ids = append(ids, g.ID)
		}
		if err := s.repo.MarkGrantsExpired(ctx, tx, ids); err != nil {
			return err
		}
		debit := &Debit{
			UserID: userID,
			Amount: total,
			Reason: ReasonExpire,
			Remark: fmt.Sprintf("Сгорело %s", common.FormatPoints(total)),
		}
		if _, err := s.repo.InsertDebit(ctx, tx, debit); err != nil {
			return err
		}
		if _, err := s.repo.RecomputeBalance(ctx, tx, userID, now); err != nil {
			return err
		}
		swept = total
		return nil
	})
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		log.WithFields(log.Fields{"user_id": userID, "amount": swept}).Info("Баллы сгорели по сроку")
	}
	return swept, nil
}

// SweepAll прогоняет уборку по всем пользователям со сгоревшими
// начислениями. Возвращает число обработанных пользователей и сумму.
func (s *Service) SweepAll(ctx context.Context) (int, int64, error) {
	userIDs, err := s.repo.UsersWithExpirableGrants(ctx, time.Now())
	if err != nil {
		return 0, 0, err
	}

	var users int
	var total int64
	for _, id := range userIDs {
		swept, err := s.ExpireSweep(ctx, id)
		if err != nil {
			log.WithError(err).WithField("user_id", id).Error("Ошибка уборки сгоревших баллов")
			continue
		}
		if swept > 0 {
			users++
			total += swept
		}
	}
	return users, total, nil
}

// ResetPoints обнуляет баланс пользователя: все активные несгоревшие
// баллы списываются одной операцией с причиной reset. При нулевом
// балансе ничего не записывается.
func (s *Service) ResetPoints(ctx context.Context, userID int64, remark string) (int64, error) {
	now := time.Now()
	var reset int64
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		reset = 0
		if err := s.repo.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		grants, err := s.repo.ActiveGrantsForUpdate(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		available := availablePoints(grants, now)
		if available == 0 {
			return nil
		}
		plan, err := planConsumption(grants, available, now)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(plan))
		for _, use := range plan {
			ids = append(ids, use.Grant.ID)
		}
		if err := s.repo.MarkGrantsUsed(ctx, tx, ids); err != nil {
			return err
		}
		debit := &Debit{UserID: userID, Amount: available, Reason: ReasonReset, Remark: remark}
		if _, err := s.repo.InsertDebit(ctx, tx, debit); err != nil {
			return err
		}
		if _, err := s.repo.RecomputeBalance(ctx, tx, userID, now); err != nil {
			return err
		}
		reset = available
		return nil
	})
	if err != nil {
		return 0, err
	}
	if reset > 0 {
		log.WithFields(log.Fields{"user_id": userID, "amount": reset}).Info("Баланс сброшен")
	}
	return reset, nil
}

// SetPoints выставляет баланс пользователя в target (админ-операция).
// Реализуется через журнал: недостающие баллы начисляются бессрочной
// записью admin_grant, лишние — списываются по FIFO с причиной
// admin_deduction. Равный баланс — операция пустая. Чтение текущего
// баланса и правка выполняются под одной блокировкой строки
// пользователя — параллельное списание не сдвинет дельту.
func (s *Service) SetPoints(ctx context.Context, userID, target int64, remark string) (int64, error) {
	if target < 0 {
		return 0, common.ErrInvalidAmount
	}

	now := time.Now()
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		if err := s.repo.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		current, err := s.repo.LiveBalance(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		grantAmount, deductAmount := setPointsDelta(current, target)
		switch {
		case grantAmount > 0:
			// Административные баллы не сгорают
			grant := &Grant{
				UserID:     userID,
				Amount:     grantAmount,
				Source:     SourceAdminGrant,
				AcquiredAt: now,
				Status:     StatusActive,
			}
			_, err = s.insertGrantTx(ctx, tx, grant, now)
			return err
		case deductAmount > 0:
			_, _, err = s.DeductPointsTx(ctx, tx, userID, deductAmount, ReasonAdminDeduction, remark)
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{"user_id": userID, "target": target}).Info("Баланс установлен")
	return target, nil
}

// ActiveBalance возвращает живой доступный баланс пользователя
// (сумма активных несгоревших начислений, кэш не участвует).
func (s *Service) ActiveBalance(ctx context.Context, userID int64) (int64, error) {
	return s.repo.LiveBalance(ctx, s.repo.db, userID, time.Now())
}

// BalanceSummary собирает сводку для показа пользователю: общий баланс,
// сколько сгорит в ближайшее время и список начислений с отсчётом дней.
func (s *Service) BalanceSummary(ctx context.Context, userID int64) (*BalanceSummary, error) {
	now := time.Now()
	grants, err := s.repo.ActiveGrants(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	summary := &BalanceSummary{}
	soonCutoff := now.Add(s.expiringSoon)
	for _, g := range grants {
		item := &GrantWithCountdown{Grant: g}
		if g.ExpiresAt != nil {
			item.DaysRemaining = common.DaysUntil(*g.ExpiresAt, now)
			item.ExpiringSoon = !g.ExpiresAt.After(soonCutoff)
		}
		if item.ExpiringSoon {
			summary.ExpiringSoon += g.Amount
		}
		summary.Total += g.Amount
		summary.Grants = append(summary.Grants, item)
	}
	return summary, nil
}

// ExpiringSoonNotices возвращает пользователей, у которых баллы сгорят
// в пределах порога «скоро», с суммой и ближайшим сроком.
func (s *Service) ExpiringSoonNotices(ctx context.Context) ([]*ExpiringTotal, error) {
	if s.expiringSoon <= 0 {
		return nil, nil
	}
	now := time.Now()
	return s.repo.ExpiringSoonTotals(ctx, now, now.Add(s.expiringSoon))
}

// History возвращает страницу объединённой истории операций.
func (s *Service) History(ctx context.Context, userID int64, page, pageSize int) ([]*HistoryEntry, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 10
	}
	return s.repo.History(ctx, userID, pageSize, (page-1)*pageSize)
}

// VerifyBalance сверяет кэш users.points с живой суммой журнала
// и чинит расхождение пересчётом. Возвращает живой баланс и признак
// того, что кэш пришлось поправить.
func (s *Service) VerifyBalance(ctx context.Context, userID int64) (int64, bool, error) {
	cached, err := s.repo.CachedBalance(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	live, err := s.ActiveBalance(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if cached == live {
		return live, false, nil
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"cached":  cached,
		"live":    live,
	}).Warn("Расхождение кэша баланса, выполняется пересчёт")

	err = s.withRetry(ctx, func(tx pgx.Tx) error {
		if err := s.repo.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		_, err := s.repo.RecomputeBalance(ctx, tx, userID, time.Now())
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return live, true, nil
}
