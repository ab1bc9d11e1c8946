// Package orders — service.go: создание заказов и выдача оплаченного.
// HandlePaymentSuccess идемпотентен: повторный колбэк по обработанному
// заказу не выдаёт товар второй раз.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/xujiafei/mingrixueba-server/internal/common"
	"github.com/xujiafei/mingrixueba-server/internal/features/access"
	"github.com/xujiafei/mingrixueba-server/internal/features/catalog"
	"github.com/xujiafei/mingrixueba-server/internal/features/membership"
	"github.com/xujiafei/mingrixueba-server/internal/features/points"
)

// Service — создание и выдача заказов.
type Service struct {
	repo        *Repository
	points      *points.Service
	memberships *membership.Service
	catalog     *catalog.Service
	access      *access.Service
}

func NewService(repo *Repository, pts *points.Service, ms *membership.Service, cat *catalog.Service, acc *access.Service) *Service {
	return &Service{repo: repo, points: pts, memberships: ms, catalog: cat, access: acc}
}

func newOrderNo() string {
	// Номер заказа: дата + uuid без дефисов, удобно искать в логах платёжки
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102"), uuid.NewString())
}

// CreateMaterialOrder создаёт заказ на покупку материала.
func (s *Service) CreateMaterialOrder(ctx context.Context, userID, materialID int64) (*Order, error) {
	m, err := s.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	o := &Order{
		OrderNo:    newOrderNo(),
		UserID:     userID,
		OrderType:  TypeMaterial,
		Amount:     m.Price,
		Status:     StatusPending,
		MaterialID: &m.ID,
	}
	return s.insert(ctx, o)
}

// CreateMembershipOrder создаёт заказ на пакет подписки.
func (s *Service) CreateMembershipOrder(ctx context.Context, userID, packageID int64) (*Order, error) {
	pkg, err := s.memberships.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	o := &Order{
		OrderNo:   newOrderNo(),
		UserID:    userID,
		OrderType: TypeMembership,
		Amount:    pkg.Price,
		Status:    StatusPending,
		PackageID: &pkg.ID,
	}
	return s.insert(ctx, o)
}

// CreatePointsOrder создаёт заказ на покупку pointsAmount баллов.
// expiryDays == 0 — срок жизни баллов по умолчанию.
func (s *Service) CreatePointsOrder(ctx context.Context, userID, amount, pointsAmount int64, expiryDays int) (*Order, error) {
	if pointsAmount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	o := &Order{
		OrderNo:          newOrderNo(),
		UserID:           userID,
		OrderType:        TypePoints,
		Amount:           amount,
		Status:           StatusPending,
		PointsAmount:     pointsAmount,
		PointsExpiryDays: expiryDays,
	}
	return s.insert(ctx, o)
}

func (s *Service) insert(ctx context.Context, o *Order) (*Order, error) {
	id, err := s.repo.Insert(ctx, o)
	if err != nil {
		return nil, err
	}
	o.ID = id
	log.WithFields(log.Fields{
		"order_no":   o.OrderNo,
		"user_id":    o.UserID,
		"order_type": o.OrderType,
		"amount":     o.Amount,
	}).Info("Заказ создан")
	return o, nil
}

// HandlePaymentSuccess обрабатывает успешную оплату: переводит заказ
// в paid и выдаёт товар. Повторный вызов по тому же заказу возвращает
// ErrOrderNotPending и ничего не выдаёт.
func (s *Service) HandlePaymentSuccess(ctx context.Context, orderNo, paymentMethod string) (*Order, error) {
	o, err := s.repo.MarkPaid(ctx, orderNo, paymentMethod, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.fulfill(ctx, o); err != nil {
		// Заказ оплачен, но выдача не прошла — оставляем paid,
		// выдачу повторит поддержка по логу
		log.WithError(err).WithField("order_no", orderNo).Error("Ошибка выдачи оплаченного заказа")
		return o, err
	}

	log.WithFields(log.Fields{
		"order_no":   orderNo,
		"order_type": o.OrderType,
	}).Info("Заказ оплачен и выдан")
	return o, nil
}

func (s *Service) fulfill(ctx context.Context, o *Order) error {
	switch o.OrderType {
	case TypeMaterial:
		if o.MaterialID == nil {
			return fmt.Errorf("order_no=%s: заказ материала без material_id", o.OrderNo)
		}
		// Прямая покупка даёт бессрочный доступ
		return s.access.RecordDirectAccess(ctx, o.UserID, *o.MaterialID, &o.ID, nil)

	case TypeMembership:
		if o.PackageID == nil {
			return fmt.Errorf("order_no=%s: заказ подписки без package_id", o.OrderNo)
		}
		m, err := s.memberships.GrantByPackage(ctx, o.UserID, *o.PackageID)
		if err != nil {
			return err
		}
		return s.repo.LinkMembership(ctx, o.ID, m.ID)

	case TypePoints:
		// Нулевой срок в заказе — срок по умолчанию из движка баллов
		var expiryDays *int
		if o.PointsExpiryDays > 0 {
			d := o.PointsExpiryDays
			expiryDays = &d
		}
		_, err := s.points.AddPoints(ctx, o.UserID, o.PointsAmount, points.SourcePurchase, &o.ID, expiryDays)
		return err
	}
	return fmt.Errorf("order_no=%s: неизвестный тип заказа %q", o.OrderNo, o.OrderType)
}

// Cancel отменяет неоплаченный заказ.
func (s *Service) Cancel(ctx context.Context, orderNo string) error {
	o, err := s.repo.GetByNo(ctx, orderNo)
	if err != nil {
		return err
	}
	if o.Status != StatusPending {
		return fmt.Errorf("order_no=%s: %w", orderNo, common.ErrOrderNotPending)
	}
	return s.repo.SetStatus(ctx, orderNo, StatusCancelled)
}

// GetByNo возвращает заказ по номеру.
func (s *Service) GetByNo(ctx context.Context, orderNo string) (*Order, error) {
	return s.repo.GetByNo(ctx, orderNo)
}

// ListByUser возвращает заказы пользователя.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID, 20)
}
