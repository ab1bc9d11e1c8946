// Package users — service.go содержит бизнес-логику работы с пользователями:
// регистрация через бота, профиль, административные операции.
package users

import (
	"context"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Service управляет пользователями магазина.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис пользователей.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// EnsureUser регистрирует пользователя при первом обращении к боту
// или обновляет его имя/username при повторном.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64, username, nickname string) (*User, error) {
	u := &User{
		TelegramID: telegramID,
		Username:   username,
		Nickname:   nickname,
		Role:       RoleUser,
		IsActive:   true,
	}
	if u.Nickname == "" {
		u.Nickname = u.Username
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	created, err := s.repo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if created.CreatedAt.Equal(created.UpdatedAt) {
		log.WithFields(log.Fields{
			"user_id":     created.ID,
			"telegram_id": telegramID,
		}).Info("Новый пользователь зарегистрирован")
	}
	return created, nil
}

// GetByTelegramID возвращает пользователя по Telegram ID.
func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	return s.repo.GetByTelegramID(ctx, telegramID)
}

// Resolve находит пользователя по @username или внутреннему ID в текстовом виде.
// Используется админ-командами вида "начислить @vasya 100": у пользователя
// без username админ указывает числовой ID из карточки.
func (s *Service) Resolve(ctx context.Context, ref string) (*User, error) {
	id, username, byID := parseUserRef(ref)
	if byID {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetByUsername(ctx, username)
}

// parseUserRef разбирает ссылку на пользователя: "@name" и голый
// username ищутся по имени, чисто числовая ссылка — по внутреннему ID.
func parseUserRef(ref string) (id int64, username string, byID bool) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "@") {
		return 0, strings.TrimPrefix(ref, "@"), false
	}
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil && n > 0 {
		return n, "", true
	}
	return 0, ref, false
}

// SetActive включает или блокирует пользователя (админ-операция).
func (s *Service) SetActive(ctx context.Context, id int64, isActive bool) error {
	if err := s.repo.UpdateStatus(ctx, id, isActive); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": id, "is_active": isActive}).Info("Статус пользователя изменён")
	return nil
}

// List возвращает страницу пользователей для админки.
func (s *Service) List(ctx context.Context, keyword string, page, pageSize int) ([]*User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.List(ctx, keyword, pageSize, (page-1)*pageSize)
}
