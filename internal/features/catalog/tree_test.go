package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

// Дерево для тестов:
//
//	1 класс (id=1)
//	├── 1 семестр (id=10)
//	│   ├── Математика (id=100)
//	│   │   └── Раздел А (id=1000)
//	│   └── Русский язык (id=101)
//	└── 2 семестр (id=11)
//	7 класс (id=2)
//	└── 1 семестр (id=20)
func testTree() *Tree {
	return NewTree([]*Category{
		{ID: 1, Name: "1 класс", Level: LevelGrade, Grade: 1},
		{ID: 10, Name: "1 семестр", Level: LevelSemester, Grade: 1, ParentID: ptr(1), SortOrder: 1},
		{ID: 11, Name: "2 семестр", Level: LevelSemester, Grade: 1, ParentID: ptr(1), SortOrder: 2},
		{ID: 100, Name: "Математика", Level: LevelSubject, Grade: 1, ParentID: ptr(10)},
		{ID: 101, Name: "Русский язык", Level: LevelSubject, Grade: 1, ParentID: ptr(10)},
		{ID: 1000, Name: "Раздел А", Level: LevelSection, Grade: 1, ParentID: ptr(100)},
		{ID: 2, Name: "7 класс", Level: LevelGrade, Grade: 7},
		{ID: 20, Name: "1 семестр", Level: LevelSemester, Grade: 7, ParentID: ptr(2)},
	})
}

func TestTreeDescendantIDs(t *testing.T) {
	tree := testTree()

	t.Run("потомки семестра включают сам узел", func(t *testing.T) {
		ids := tree.DescendantIDs(10)
		assert.ElementsMatch(t, []int64{10, 100, 101, 1000}, ids)
	})

	t.Run("лист возвращает только себя", func(t *testing.T) {
		assert.Equal(t, []int64{1000}, tree.DescendantIDs(1000))
	})

	t.Run("неизвестный узел", func(t *testing.T) {
		assert.Nil(t, tree.DescendantIDs(999))
	})

	t.Run("повторный вызов отдаёт мемоизированный результат", func(t *testing.T) {
		first := tree.DescendantIDs(1)
		second := tree.DescendantIDs(1)
		assert.Equal(t, first, second)
		assert.ElementsMatch(t, []int64{1, 10, 11, 100, 101, 1000}, second)
	})
}

func TestTreeSemesterOf(t *testing.T) {
	tree := testTree()

	t.Run("подъём от раздела к семестру", func(t *testing.T) {
		sem := tree.SemesterOf(1000)
		require.NotNil(t, sem)
		assert.Equal(t, int64(10), sem.ID)
	})

	t.Run("сам семестр", func(t *testing.T) {
		sem := tree.SemesterOf(11)
		require.NotNil(t, sem)
		assert.Equal(t, int64(11), sem.ID)
	})

	t.Run("класс не принадлежит семестру", func(t *testing.T) {
		assert.Nil(t, tree.SemesterOf(1))
	})

	t.Run("неизвестный узел", func(t *testing.T) {
		assert.Nil(t, tree.SemesterOf(999))
	})
}

func TestTreeSemesters(t *testing.T) {
	tree := testTree()

	t.Run("все семестры", func(t *testing.T) {
		sems := tree.Semesters(-1)
		ids := make([]int64, 0, len(sems))
		for _, s := range sems {
			ids = append(ids, s.ID)
		}
		assert.ElementsMatch(t, []int64{10, 11, 20}, ids)
	})

	t.Run("фильтр по классу", func(t *testing.T) {
		sems := tree.Semesters(7)
		require.Len(t, sems, 1)
		assert.Equal(t, int64(20), sems[0].ID)
	})

	t.Run("порядок по sort_order", func(t *testing.T) {
		sems := tree.Semesters(1)
		require.Len(t, sems, 2)
		assert.Equal(t, int64(10), sems[0].ID)
		assert.Equal(t, int64(11), sems[1].ID)
	})
}

func TestTreeChildrenAndRoots(t *testing.T) {
	tree := testTree()

	roots := tree.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, int64(1), roots[0].ID)

	children := tree.Children(10)
	require.Len(t, children, 2)
	assert.Equal(t, "Математика", children[0].Name)

	assert.Empty(t, tree.Children(1000))
}
