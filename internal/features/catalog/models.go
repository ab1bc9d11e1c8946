// Package catalog — каталог: дерево категорий и учебные материалы.
// Категории образуют дерево до четырёх уровней; уровень 2 — семестр,
// единица обмена на баллы. Листовые категории содержат материалы.
package catalog

import "time"

// Уровни дерева категорий.
const (
	LevelGrade    = 1 // Класс
	LevelSemester = 2 // Семестр — единица обмена
	LevelSubject  = 3 // Предмет
	LevelSection  = 4 // Раздел
)

// Статусы материала.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
	StatusArchived  = "archived"
)

// Category — узел дерева категорий.
// Grade 0 — дошкольные материалы, 1..6 — начальная школа, 7..9 — средняя.
type Category struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Level     int    `db:"level"`
	Grade     int    `db:"grade"`
	Subject   string `db:"subject"`
	ParentID  *int64 `db:"parent_id"` // nil у корневых узлов
	SortOrder int    `db:"sort_order"`
}

// Material — учебный материал.
type Material struct {
	ID            int64     `db:"id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	FileURL       string    `db:"file_url"`
	Price         int64     `db:"price"` // В копейках, для прямой покупки
	Grade         int       `db:"grade"`
	Subject       string    `db:"subject"`
	SubjectID     *int64    `db:"subject_id"` // Предметная группа (для расчёта стоимости обмена)
	CategoryID    int64     `db:"category_id"`
	IsFree        bool      `db:"is_free"`
	Status        string    `db:"status"`
	DownloadCount int64     `db:"download_count"`
	ViewCount     int64     `db:"view_count"`
	PageCount     int       `db:"page_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// SemesterInfo — семестр для витрины обмена: узел дерева, стоимость
// в баллах и количество опубликованных материалов.
type SemesterInfo struct {
	Category      *Category
	Cost          int64
	MaterialCount int
}
