package asg

import "fmt"

// adjacency returns the node-level successor map of the job's edges.
func (j *Job) adjacency() map[string][]string {
	adj := make(map[string][]string, len(j.Nodes))

	for _, e := range j.Edges {
		adj[e.FromNode] = append(adj[e.FromNode], e.ToNode)
	}

	return adj
}

// TopologicalOrder returns node IDs in topological order using Kahn's
// algorithm. An error is returned when the graph contains a cycle.
func (j *Job) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(j.Nodes))
	for _, n := range j.Nodes {
		inDegree[n.ID] = 0
	}

	for _, e := range j.Edges {
		inDegree[e.ToNode]++
	}

	var queue []string

	// Seed in declaration order for deterministic output.
	for _, n := range j.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	adj := j.adjacency()

	var order []string

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(j.Nodes) {
		return nil, fmt.Errorf("graph contains cycles: ordered %d of %d nodes", len(order), len(j.Nodes))
	}

	return order, nil
}

// DetectCycles returns all cycles found by DFS, each as a node ID path
// closing on its first element.
func (j *Job) DetectCycles() [][]string {
	adj := j.adjacency()
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var cycles [][]string

	var path []string

	var dfs func(id string)
	dfs = func(id string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, next := range adj[id] {
			if !visited[next] {
				dfs(next)
			} else if onStack[next] {
				start := 0
				for i, p := range path {
					if p == next {
						start = i
						break
					}
				}

				cycle := append(append([]string{}, path[start:]...), next)
				cycles = append(cycles, cycle)
			}
		}

		onStack[id] = false
		path = path[:len(path)-1]
	}

	for _, n := range j.Nodes {
		if !visited[n.ID] {
			dfs(n.ID)
		}
	}

	return cycles
}

// Roots returns nodes with no incoming edges.
func (j *Job) Roots() []string {
	hasIncoming := make(map[string]bool)
	for _, e := range j.Edges {
		hasIncoming[e.ToNode] = true
	}

	var out []string

	for _, n := range j.Nodes {
		if !hasIncoming[n.ID] {
			out = append(out, n.ID)
		}
	}

	return out
}

// Leaves returns nodes with no outgoing edges.
func (j *Job) Leaves() []string {
	hasOutgoing := make(map[string]bool)
	for _, e := range j.Edges {
		hasOutgoing[e.FromNode] = true
	}

	var out []string

	for _, n := range j.Nodes {
		if !hasOutgoing[n.ID] {
			out = append(out, n.ID)
		}
	}

	return out
}

// Levels assigns each node its BFS depth from the root set. Nodes
// unreachable from any root (cycles, disconnected fragments) land on level 0.
func (j *Job) Levels() map[string]int {
	levels := make(map[string]int, len(j.Nodes))
	for _, n := range j.Nodes {
		levels[n.ID] = -1
	}

	queue := j.Roots()
	for _, id := range queue {
		levels[id] = 0
	}

	adj := j.adjacency()

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, next := range adj[id] {
			if levels[next] == -1 || levels[next] > levels[id]+1 {
				levels[next] = levels[id] + 1
				queue = append(queue, next)
			}
		}
	}

	for id, lvl := range levels {
		if lvl == -1 {
			levels[id] = 0
		}
	}

	return levels
}
