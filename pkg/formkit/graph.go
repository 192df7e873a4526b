package formkit

// Graph is the dependency graph between fields: an edge runs from every
// declared parent to the derived field that reads it.
type Graph struct {
	order    []string            // field ids in schema order
	position map[string]int      // id -> index in order
	parents  map[string][]string // derived id -> declared parents
	children map[string][]string // parent id -> derived ids, schema order
}

// Plan is the recompute order for one change.
type Plan struct {
	Order   []string // derived ids, every parent before its children
	Skipped []string // derived ids caught in (or behind) a cycle; left untouched
}

// NewGraph builds the graph for a field list.
// Parents that do not exist are kept as edges so they resolve to "" at
// evaluation time. A duplicate id is ignored entirely: only the first
// definition with that id takes part, derived or not.
func NewGraph(fields []FieldDefinition) *Graph {
	g := &Graph{
		order:    make([]string, 0, len(fields)),
		position: make(map[string]int, len(fields)),
		parents:  make(map[string][]string),
		children: make(map[string][]string),
	}

	for _, f := range fields {
		if _, dup := g.position[f.ID]; dup {
			continue
		}
		g.position[f.ID] = len(g.order)
		g.order = append(g.order, f.ID)
	}

	first := make(map[string]bool, len(fields))
	for _, f := range fields {
		if first[f.ID] {
			continue
		}
		first[f.ID] = true
		if f.Derived == nil {
			continue
		}
		g.parents[f.ID] = append([]string{}, f.Derived.Parents...)
		linked := make(map[string]bool, len(f.Derived.Parents))
		for _, p := range f.Derived.Parents {
			if linked[p] {
				continue
			}
			linked[p] = true
			g.children[p] = append(g.children[p], f.ID)
		}
	}

	return g
}

// IsDerived reports whether id names a derived field.
func (g *Graph) IsDerived(id string) bool {
	_, ok := g.parents[id]
	return ok
}

// Parents returns the declared parents of a derived field.
func (g *Graph) Parents(id string) []string {
	return append([]string(nil), g.parents[id]...)
}

// Children returns the derived fields that read id directly.
func (g *Graph) Children(id string) []string {
	return append([]string(nil), g.children[id]...)
}

// Plan returns the derived fields reachable from the changed ids, ordered so
// that every field comes after all of its parents.
func (g *Graph) Plan(changed ...string) Plan {
	reached := make(map[string]bool)
	queue := append([]string{}, changed...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range g.children[id] {
			if reached[child] {
				continue
			}
			reached[child] = true
			queue = append(queue, child)
		}
	}
	return g.topoSort(reached)
}

// PlanAll orders every derived field, including ones without parents.
func (g *Graph) PlanAll() Plan {
	all := make(map[string]bool, len(g.parents))
	for id := range g.parents {
		all[id] = true
	}
	return g.topoSort(all)
}

// topoSort topologically sorts the subset with Kahn's algorithm. Only edges
// inside the subset count. Ties resolve in schema order, so the result is
// deterministic. Nodes that never reach in-degree zero are skipped.
func (g *Graph) topoSort(subset map[string]bool) Plan {
	var plan Plan
	if len(subset) == 0 {
		return plan
	}

	indegree := make(map[string]int, len(subset))
	for id := range subset {
		seen := make(map[string]bool)
		for _, p := range g.parents[id] {
			if subset[p] && !seen[p] {
				seen[p] = true
				indegree[id]++
			}
		}
	}

	ready := make([]string, 0, len(subset))
	for _, id := range g.sorted(subset) {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	done := make(map[string]bool, len(subset))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		done[id] = true
		plan.Order = append(plan.Order, id)

		var freed []string
		for _, child := range g.children[id] {
			if !subset[child] || done[child] {
				continue
			}
			indegree[child]--
			if indegree[child] == 0 {
				freed = append(freed, child)
			}
		}
		ready = g.merge(ready, freed)
	}

	for _, id := range g.sorted(subset) {
		if !done[id] {
			plan.Skipped = append(plan.Skipped, id)
		}
	}
	return plan
}

// Cycles returns the groups of derived fields that depend on each other,
// including single fields that list themselves as a parent.
func (g *Graph) Cycles() [][]string {
	// Tarjan's strongly connected components, iterative to avoid deep recursion.
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var cycles [][]string

	type frame struct {
		id   string
		next int
	}

	nodes := make([]string, 0, len(g.parents))
	for _, id := range g.order {
		if _, ok := g.parents[id]; ok {
			nodes = append(nodes, id)
		}
	}

	for _, root := range nodes {
		if _, visited := indices[root]; visited {
			continue
		}
		work := []frame{{id: root}}
		indices[root], lowlink[root] = index, index
		index++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			children := g.children[top.id]
			if top.next < len(children) {
				child := children[top.next]
				top.next++
				if _, visited := indices[child]; !visited {
					indices[child], lowlink[child] = index, index
					index++
					stack = append(stack, child)
					onStack[child] = true
					work = append(work, frame{id: child})
				} else if onStack[child] && indices[child] < lowlink[top.id] {
					lowlink[top.id] = indices[child]
				}
				continue
			}

			id := top.id
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].id
				if lowlink[id] < lowlink[parent] {
					lowlink[parent] = lowlink[id]
				}
			}
			if lowlink[id] != indices[id] {
				continue
			}

			var component []string
			for {
				n := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[n] = false
				component = append(component, n)
				if n == id {
					break
				}
			}
			if len(component) > 1 || g.selfLoop(id) {
				cycles = append(cycles, g.sorted(toSet(component)))
			}
		}
	}
	return cycles
}

func (g *Graph) selfLoop(id string) bool {
	for _, p := range g.parents[id] {
		if p == id {
			return true
		}
	}
	return false
}

// sorted returns the ids of a set in schema order.
func (g *Graph) sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for _, id := range g.order {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}

// merge inserts newly freed ids into the ready queue keeping schema order.
func (g *Graph) merge(ready, freed []string) []string {
	if len(freed) == 0 {
		return ready
	}
	set := toSet(ready)
	for _, id := range freed {
		set[id] = true
	}
	return g.sorted(set)
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
