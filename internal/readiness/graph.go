package readiness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/exosphere/internal/domain"
)

// Node — job в графе зависимостей.
type Node struct {
	Job *domain.JobDefinition

	// InDegree — количество jobs, от которых зависит этот.
	InDegree int

	// DependsOn — jobs, от которых зависит этот.
	DependsOn []*Node

	// Dependents — jobs, которые зависят от этого.
	Dependents []*Node
}

// Name возвращает имя job.
func (n *Node) Name() string {
	return n.Job.Name
}

// Graph — граф зависимостей между jobs каталога.
//
// Ядру граф не нужен: цикл просто оставляет зависимые jobs
// неготовыми. Граф используется для диагностики (CLI, лог при
// старте лидерства).
type Graph struct {
	Nodes map[string]*Node

	// Order — топологический порядок (зависимости раньше зависимых).
	Order []*Node

	// Cyclic — jobs, которые входят в цикл или зависят от него.
	Cyclic []string

	// Missing — ссылки на неизвестные jobs: job → имя зависимости.
	Missing map[string][]string
}

// BuildGraph строит граф зависимостей.
//
// Возвращает граф всегда; ошибка — ErrMissingDependency и/или
// ErrCyclicDependency с перечислением jobs.
func BuildGraph(jobs []domain.JobDefinition) (*Graph, error) {
	g := &Graph{
		Nodes:   make(map[string]*Node, len(jobs)),
		Missing: make(map[string][]string),
	}

	// Первый проход: узлы
	for i := range jobs {
		job := &jobs[i]
		g.Nodes[job.Name] = &Node{Job: job}
	}

	// Второй проход: рёбра
	for i := range jobs {
		job := &jobs[i]
		node := g.Nodes[job.Name]

		for _, dep := range job.Dependencies.Jobs {
			depNode, ok := g.Nodes[dep.JobName]
			if !ok {
				g.Missing[job.Name] = append(g.Missing[job.Name], dep.JobName)
				continue
			}
			g.addEdge(depNode, node)
		}
	}

	g.Order, g.Cyclic = g.topologicalSort()

	var errs []error
	if len(g.Missing) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDependency, formatMissing(g.Missing)))
	}
	if len(g.Cyclic) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(g.Cyclic, ", ")))
	}

	switch len(errs) {
	case 0:
		return g, nil
	case 1:
		return g, errs[0]
	default:
		return g, fmt.Errorf("%w; %w", errs[0], errs[1])
	}
}

// addEdge добавляет ребро from → to без дубликатов.
func (g *Graph) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep == from {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// topologicalSort — алгоритм Кана. Узлы, которые не попали
// в порядок, лежат на цикле или за ним.
func (g *Graph) topologicalSort() ([]*Node, []string) {
	inDegree := make(map[string]int, len(g.Nodes))
	queue := make([]*Node, 0)

	for _, name := range g.names() {
		node := g.Nodes[name]
		inDegree[name] = node.InDegree
		if node.InDegree == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]*Node, 0, len(g.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.Name()]--
			if inDegree[dependent.Name()] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	var cyclic []string
	for _, name := range g.names() {
		if inDegree[name] > 0 {
			cyclic = append(cyclic, name)
		}
	}

	return order, cyclic
}

// names возвращает имена узлов по алфавиту.
func (g *Graph) names() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatMissing(missing map[string][]string) string {
	jobs := make([]string, 0, len(missing))
	for job := range missing {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)

	parts := make([]string, 0, len(jobs))
	for _, job := range jobs {
		parts = append(parts, fmt.Sprintf("%s -> %s", job, strings.Join(missing[job], ",")))
	}
	return strings.Join(parts, "; ")
}
