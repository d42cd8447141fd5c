package engine

import (
	"fmt"

	"github.com/shaiso/Questionary/internal/domain"
)

// Node — узел графа зависимостей (один подключённый вопрос).
type Node struct {
	// Relation — вопрос, подключённый к шаблону.
	Relation *domain.QuestionTemplateRelation

	// ID — ID вопроса.
	ID string

	// InDegree — количество входящих рёбер (0 или 1: у поля не больше одной зависимости).
	InDegree int

	// DependsOn — управляющие узлы.
	DependsOn []*Node

	// Dependents — узлы, видимость которых зависит от этого узла.
	Dependents []*Node
}

// Graph — направленный ациклический граф зависимостей полей шаблона.
//
// Ребро from → to означает: видимость to определяется ответом на from.
type Graph struct {
	// Nodes — все узлы графа (questionID → Node).
	Nodes map[string]*Node

	// RootNodes — поля без зависимостей, в порядке relations.
	RootNodes []*Node

	// Order — топологически отсортированный список узлов.
	Order []*Node

	// ids — ID в порядке добавления; делает обход детерминированным.
	ids []string
}

// BuildGraph строит граф из relations шаблона.
//
// Возвращает ValidationError с ErrMissingDependency, если зависимость
// ссылается на вопрос вне шаблона, и ErrCyclicDependency при цикле.
func BuildGraph(relations []domain.QuestionTemplateRelation) (*Graph, error) {
	g := &Graph{
		Nodes:     make(map[string]*Node, len(relations)),
		RootNodes: make([]*Node, 0),
	}

	// Первый проход: создаём все узлы
	for i := range relations {
		rel := &relations[i]
		if _, exists := g.Nodes[rel.Question.ID]; exists {
			return nil, NewValidationError(rel.Question.ID, "question_id",
				"question attached twice", ErrDuplicateQuestion)
		}
		g.Nodes[rel.Question.ID] = &Node{
			Relation:   rel,
			ID:         rel.Question.ID,
			DependsOn:  make([]*Node, 0),
			Dependents: make([]*Node, 0),
		}
		g.ids = append(g.ids, rel.Question.ID)
	}

	// Второй проход: связываем узлы по зависимостям
	for _, id := range g.ids {
		if err := g.linkDependency(g.Nodes[id]); err != nil {
			return nil, err
		}
	}

	g.findRootNodes()

	order, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}
	g.Order = order

	return g, nil
}

// linkDependency связывает узел с управляющим вопросом.
func (g *Graph) linkDependency(node *Node) error {
	dep := node.Relation.Dependency
	if dep == nil || dep.DependencyID == "" {
		return nil
	}

	depNode, exists := g.Nodes[dep.DependencyID]
	if !exists {
		return NewValidationError(node.ID, "dependency_id",
			fmt.Sprintf("depends on unknown question: %s", dep.DependencyID), ErrMissingDependency)
	}

	g.addEdge(depNode, node)
	return nil
}

// addEdge добавляет ребро между узлами.
// Дополнительно проверяет на дубликаты, чтобы избежать двойного учета InDegree.
func (g *Graph) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// findRootNodes находит узлы без входящих рёбер.
func (g *Graph) findRootNodes() {
	g.RootNodes = make([]*Node, 0)
	for _, id := range g.ids {
		if node := g.Nodes[id]; node.InDegree == 0 {
			g.RootNodes = append(g.RootNodes, node)
		}
	}
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// Возвращает ошибку, если обнаружен цикл.
func (g *Graph) topologicalSort() ([]*Node, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		inDegree[id] = node.InDegree
	}

	queue := make([]*Node, len(g.RootNodes))
	copy(queue, g.RootNodes)

	order := make([]*Node, 0, len(g.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл
	if len(order) != len(g.Nodes) {
		return nil, NewValidationError(g.firstCyclic(inDegree), "dependency_id",
			"dependency cycle", ErrCyclicDependency)
	}

	return order, nil
}

// firstCyclic возвращает первый (в порядке relations) узел, оставшийся в цикле.
func (g *Graph) firstCyclic(inDegree map[string]int) string {
	for _, id := range g.ids {
		if inDegree[id] > 0 {
			return id
		}
	}
	return ""
}

// DependentsOf возвращает ID вопросов, напрямую зависящих от questionID.
func (g *Graph) DependentsOf(questionID string) []string {
	node, ok := g.Nodes[questionID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(node.Dependents))
	for _, d := range node.Dependents {
		ids = append(ids, d.ID)
	}
	return ids
}
