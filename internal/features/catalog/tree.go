// Package catalog — tree.go: работа с деревом категорий в памяти.
// Дерево загружается целиком одним запросом (категорий немного),
// обходы выполняются явной очередью без рекурсии и без рекурсивного SQL.
package catalog

import "sort"

// Tree — снимок дерева категорий на момент загрузки.
type Tree struct {
	nodes    map[int64]*Category
	children map[int64][]int64
	roots    []int64

	// Мемоизация потомков в рамках одного снимка
	descendants map[int64][]int64
}

// NewTree строит дерево из плоского списка категорий.
// Узлы с неизвестным parent_id считаются корневыми.
func NewTree(categories []*Category) *Tree {
	t := &Tree{
		nodes:       make(map[int64]*Category, len(categories)),
		children:    make(map[int64][]int64),
		descendants: make(map[int64][]int64),
	}
	for _, c := range categories {
		t.nodes[c.ID] = c
	}
	for _, c := range categories {
		if c.ParentID != nil {
			if _, ok := t.nodes[*c.ParentID]; ok {
				t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
				continue
			}
		}
		t.roots = append(t.roots, c.ID)
	}
	for id := range t.children {
		t.sortSiblings(t.children[id])
	}
	t.sortSiblings(t.roots)
	return t
}

func (t *Tree) sortSiblings(ids []int64) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})
}

// Get возвращает узел по ID, nil если узла нет.
func (t *Tree) Get(id int64) *Category {
	return t.nodes[id]
}

// Children возвращает прямых потомков узла в порядке sort_order.
func (t *Tree) Children(id int64) []*Category {
	ids := t.children[id]
	out := make([]*Category, 0, len(ids))
	for _, cid := range ids {
		out = append(out, t.nodes[cid])
	}
	return out
}

// Roots возвращает корневые узлы дерева.
func (t *Tree) Roots() []*Category {
	out := make([]*Category, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.nodes[id])
	}
	return out
}

// DescendantIDs возвращает ID всех потомков узла, включая сам узел.
// Обход — явная очередь; результат мемоизируется на время жизни снимка.
func (t *Tree) DescendantIDs(id int64) []int64 {
	if cached, ok := t.descendants[id]; ok {
		return cached
	}
	if _, ok := t.nodes[id]; !ok {
		return nil
	}

	var out []int64
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, t.children[cur]...)
	}
	t.descendants[id] = out
	return out
}

// SemesterOf поднимается от узла к предку уровня «семестр».
// Возвращает nil, если узел не принадлежит ни одному семестру
// (например, сам является классом).
func (t *Tree) SemesterOf(id int64) *Category {
	cur := t.nodes[id]
	for cur != nil {
		if cur.Level == LevelSemester {
			return cur
		}
		if cur.ParentID == nil {
			return nil
		}
		cur = t.nodes[*cur.ParentID]
	}
	return nil
}

// Semesters возвращает все узлы уровня «семестр», опционально
// отфильтрованные по классу (grade < 0 — без фильтра).
func (t *Tree) Semesters(grade int) []*Category {
	var out []*Category
	for _, id := range t.roots {
		out = t.appendSemesters(out, id, grade)
	}
	return out
}

func (t *Tree) appendSemesters(out []*Category, rootID int64, grade int) []*Category {
	queue := []int64{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		node := t.nodes[cur]
		if node.Level == LevelSemester {
			if grade < 0 || node.Grade == grade {
				out = append(out, node)
			}
			continue // Глубже семестра спускаться незачем
		}
		queue = append(queue, t.children[cur]...)
	}
	return out
}
