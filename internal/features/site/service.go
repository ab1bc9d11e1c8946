// Package site — service.go: выдача объявлений.
package site

import "context"

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ActiveNotices возвращает объявления для показа в боте.
func (s *Service) ActiveNotices(ctx context.Context) ([]*Notice, error) {
	return s.repo.ActiveNotices(ctx, 5)
}

// Publish добавляет активное объявление.
func (s *Service) Publish(ctx context.Context, title, content string) (int64, error) {
	return s.repo.Create(ctx, &Notice{Title: title, Content: content, IsActive: true})
}

// Hide скрывает объявление.
func (s *Service) Hide(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}
