// Package catalog — service.go: витрина каталога и оракул для ядра —
// принадлежность материала семестру и стоимость обмена семестра.
package catalog

import (
	"context"
	"fmt"

	"github.com/xujiafei/mingrixueba-server/internal/common"
)

// Service — операции каталога.
type Service struct {
	repo       *Repository
	costSingle int64
	costDouble int64
}

// NewService создаёт сервис каталога. costSingle — стоимость семестра
// с одной предметной группой, costDouble — с несколькими.
func NewService(repo *Repository, costSingle, costDouble int64) *Service {
	return &Service{repo: repo, costSingle: costSingle, costDouble: costDouble}
}

// LoadTree загружает снимок дерева категорий. Снимок живёт в рамках
// одного запроса — обходы и потомки в нём мемоизированы.
func (s *Service) LoadTree(ctx context.Context) (*Tree, error) {
	categories, err := s.repo.AllCategories(ctx)
	if err != nil {
		return nil, err
	}
	return NewTree(categories), nil
}

// GetMaterial возвращает материал по ID.
func (s *Service) GetMaterial(ctx context.Context, id int64) (*Material, error) {
	return s.repo.GetMaterial(ctx, id)
}

// SemesterIDFor определяет семестр, которому принадлежит материал:
// подъём от листовой категории материала к предку уровня 2.
func (s *Service) SemesterIDFor(tree *Tree, m *Material) (int64, error) {
	sem := tree.SemesterOf(m.CategoryID)
	if sem == nil {
		return 0, fmt.Errorf("material_id=%d: %w", m.ID, common.ErrSemesterNotFound)
	}
	return sem.ID, nil
}

// ExchangeCost считает стоимость обмена семестра в баллах:
// одна предметная группа среди опубликованных материалов — costSingle,
// несколько — costDouble. Семестр без материалов стоит costSingle.
func (s *Service) ExchangeCost(ctx context.Context, tree *Tree, semesterID int64) (int64, error) {
	sem := tree.Get(semesterID)
	if sem == nil || sem.Level != LevelSemester {
		return 0, fmt.Errorf("id=%d: %w", semesterID, common.ErrSemesterNotFound)
	}
	groups, err := s.repo.SubjectGroupCount(ctx, tree.DescendantIDs(semesterID))
	if err != nil {
		return 0, err
	}
	if groups > 1 {
		return s.costDouble, nil
	}
	return s.costSingle, nil
}

// SemesterMaterials возвращает опубликованные материалы семестра.
func (s *Service) SemesterMaterials(ctx context.Context, tree *Tree, semesterID int64) ([]*Material, error) {
	sem := tree.Get(semesterID)
	if sem == nil || sem.Level != LevelSemester {
		return nil, fmt.Errorf("id=%d: %w", semesterID, common.ErrSemesterNotFound)
	}
	return s.repo.MaterialsInCategories(ctx, tree.DescendantIDs(semesterID))
}

// ListSemesters возвращает витрину обмена: семестры (опционально одного
// класса) со стоимостью и количеством материалов.
func (s *Service) ListSemesters(ctx context.Context, grade int) ([]*SemesterInfo, error) {
	tree, err := s.LoadTree(ctx)
	if err != nil {
		return nil, err
	}

	var out []*SemesterInfo
	for _, sem := range tree.Semesters(grade) {
		ids := tree.DescendantIDs(sem.ID)
		count, err := s.repo.PublishedCount(ctx, ids)
		if err != nil {
			return nil, err
		}
		cost, err := s.ExchangeCost(ctx, tree, sem.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &SemesterInfo{Category: sem, Cost: cost, MaterialCount: count})
	}
	return out, nil
}

// SearchMaterials ищет опубликованные материалы по названию.
func (s *Service) SearchMaterials(ctx context.Context, keyword string, limit int) ([]*Material, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.repo.SearchMaterials(ctx, keyword, limit)
}

// RegisterDownload увеличивает счётчик скачиваний.
func (s *Service) RegisterDownload(ctx context.Context, materialID int64) error {
	return s.repo.BumpDownloadCount(ctx, materialID)
}

// RegisterView увеличивает счётчик просмотров.
func (s *Service) RegisterView(ctx context.Context, materialID int64) error {
	return s.repo.BumpViewCount(ctx, materialID)
}
