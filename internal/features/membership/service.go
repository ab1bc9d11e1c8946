// Package membership — service.go: выдача и продление подписок,
// определение текущего тарифа, витрина пакетов.
package membership

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

// Service управляет подписками и тарифными пакетами.
type Service struct {
	repo        *Repository
	defaultDays int
}

func NewService(repo *Repository, defaultDays int) *Service {
	return &Service{repo: repo, defaultDays: defaultDays}
}

// resolveStanding сводит последнюю запись истории к текущему положению.
// Отсутствие истории — тариф none. Истёкшая запись сохраняет тариф:
// проверки полного тарифа и обменов смотрят на тариф независимо от срока.
func resolveStanding(latest *Membership, now time.Time) Standing {
	if latest == nil {
		return Standing{Tier: TierNone}
	}
	return Standing{
		Tier:     latest.Tier,
		Active:   latest.Active(now),
		ExpiryAt: latest.ExpiryAt,
	}
}

// extensionBase выбирает точку отсчёта продления: действующая подписка
// того же тарифа продлевается от своего срока, всё остальное — от now.
func extensionBase(latest *Membership, tier string, now time.Time) time.Time {
	if latest == nil || latest.Tier != tier || !latest.Active(now) {
		return now
	}
	if latest.ExpiryAt == nil {
		return now
	}
	return *latest.ExpiryAt
}

// CurrentStanding возвращает текущий тариф пользователя и признак
// действия подписки (последняя запись истории).
func (s *Service) CurrentStanding(ctx context.Context, userID int64) (Standing, error) {
	latest, err := s.repo.LatestMembership(ctx, userID)
	if err != nil {
		return Standing{}, err
	}
	return resolveStanding(latest, time.Now()), nil
}

// GrantMembership выдаёт пользователю подписку тарифа tier на durationDays
// дней (<= 0 — бессрочно). Действующая подписка того же тарифа
// продлевается от своего срока, иначе новая запись стартует сейчас.
// Возвращает созданную запись истории.
func (s *Service) GrantMembership(ctx context.Context, userID int64, tier string, packageID *int64, durationDays int) (*Membership, error) {
	if !ValidTier(tier) || tier == TierNone {
		return nil, fmt.Errorf("tier=%q: %w", tier, common.ErrInvalidTier)
	}

	now := time.Now()
	latest, err := s.repo.LatestMembership(ctx, userID)
	if err != nil {
		return nil, err
	}

	m := &Membership{
		UserID:    userID,
		PackageID: packageID,
		Tier:      tier,
		StartAt:   now,
	}
	if durationDays > 0 {
		expiry := extensionBase(latest, tier, now).AddDate(0, 0, durationDays)
		m.ExpiryAt = &expiry
	}

	id, err := s.repo.InsertMembership(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = id

	log.WithFields(log.Fields{
		"user_id": userID,
		"tier":    tier,
		"days":    durationDays,
	}).Info("Подписка выдана")
	return m, nil
}

// GrantByPackage выдаёт подписку по купленному пакету.
// Срок берётся из пакета; бессрочный пакет даёт бессрочную подписку.
func (s *Service) GrantByPackage(ctx context.Context, userID, packageID int64) (*Membership, error) {
	pkg, err := s.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	days := 0
	if pkg.DurationDays != nil {
		days = *pkg.DurationDays
	} else if pkg.Tier == TierSingle || pkg.Tier == TierDouble {
		// У срочных тарифов без явного срока действует срок по умолчанию
		days = s.defaultDays
	}
	return s.GrantMembership(ctx, userID, pkg.Tier, &pkg.ID, days)
}

// PromoteToPoints повышает пользователя без подписки до тарифа points
// (бессрочно). Вызывается движком баллов после первого начисления.
// Для пользователя с любым другим тарифом — пустая операция.
func (s *Service) PromoteToPoints(ctx context.Context, userID int64) error {
	latest, err := s.repo.LatestMembership(ctx, userID)
	if err != nil {
		return err
	}
	if latest != nil {
		return nil
	}
	m := &Membership{UserID: userID, Tier: TierPoints, StartAt: time.Now()}
	if _, err := s.repo.InsertMembership(ctx, m); err != nil {
		return err
	}
	log.WithField("user_id", userID).Info("Пользователь повышен до тарифа points")
	return nil
}

// History возвращает историю подписок пользователя.
func (s *Service) History(ctx context.Context, userID int64) ([]*Membership, error) {
	return s.repo.History(ctx, userID, 20)
}

// --- Витрина пакетов (админ-операции + показ) ---

// CreatePackage добавляет пакет в витрину.
func (s *Service) CreatePackage(ctx context.Context, p *Package) (int64, error) {
	if !ValidTier(p.Tier) || p.Tier == TierNone {
		return 0, fmt.Errorf("tier=%q: %w", p.Tier, common.ErrInvalidTier)
	}
	return s.repo.CreatePackage(ctx, p)
}

// UpdatePackage обновляет пакет.
func (s *Service) UpdatePackage(ctx context.Context, p *Package) error {
	if !ValidTier(p.Tier) || p.Tier == TierNone {
		return fmt.Errorf("tier=%q: %w", p.Tier, common.ErrInvalidTier)
	}
	return s.repo.UpdatePackage(ctx, p)
}

// SetPackageStatus включает или выключает пакет.
func (s *Service) SetPackageStatus(ctx context.Context, id int64, isActive bool) error {
	return s.repo.SetPackageStatus(ctx, id, isActive)
}

// DeletePackage удаляет пакет. Пакет, на который ссылаются подписки
// или заказы, удалить нельзя — вернётся ErrPackageInUse.
func (s *Service) DeletePackage(ctx context.Context, id int64) error {
	referenced, err := s.repo.PackageReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("id=%d: %w", id, common.ErrPackageInUse)
	}
	return s.repo.DeletePackage(ctx, id)
}

// GetPackage возвращает пакет по ID.
func (s *Service) GetPackage(ctx context.Context, id int64) (*Package, error) {
	return s.repo.GetPackage(ctx, id)
}

// ListPackages возвращает пакеты витрины.
func (s *Service) ListPackages(ctx context.Context, onlyActive bool) ([]*Package, error) {
	return s.repo.ListPackages(ctx, onlyActive)
}
