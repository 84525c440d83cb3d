package ir

import "fmt"

// Validate checks the referential invariants of a lowered document: every
// link endpoint exists and every schema reference resolves. All violations
// are collected before reporting.
//
// Cycles are deliberately not fatal here. Over-zealous partner linking in
// DSX exports produces bidirectional pairs (A→B and B→A); the Talend
// builder's link policing resolves those deterministically, so a cycle at
// this stage is a soft finding reported via FindCycle, not a reason to
// abort before the builder ever runs.
func Validate(doc *Document) error {
	var violations []string

	nodeIDs := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if nodeIDs[n.ID] {
			violations = append(violations, fmt.Sprintf("duplicate node id %q", n.ID))
		}

		nodeIDs[n.ID] = true
	}

	for _, link := range doc.Links {
		if !nodeIDs[link.From.NodeID] {
			violations = append(violations, fmt.Sprintf("link %s references unknown source node %q", link.ID, link.From.NodeID))
		}

		if !nodeIDs[link.To.NodeID] {
			violations = append(violations, fmt.Sprintf("link %s references unknown target node %q", link.ID, link.To.NodeID))
		}

		if link.SchemaRef != "" {
			if _, ok := doc.Schemas[link.SchemaRef]; !ok {
				violations = append(violations, fmt.Sprintf("link %s references unknown schema %q", link.ID, link.SchemaRef))
			}
		}
	}

	for _, n := range doc.Nodes {
		if n.SchemaRef == "" {
			continue
		}

		if _, ok := doc.Schemas[n.SchemaRef]; !ok {
			violations = append(violations, fmt.Sprintf("node %s references unknown schema %q", n.ID, n.SchemaRef))
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	return nil
}

// FindCycle runs Kahn's algorithm over the link graph and returns the node
// IDs left unordered when a cycle exists, nil for a DAG. Callers surface
// the result as a warning; the final Talend connection set is kept acyclic
// by the builder's link policing.
func FindCycle(doc *Document) []string {
	inDegree := make(map[string]int, len(doc.Nodes))
	adj := make(map[string][]string)

	for _, n := range doc.Nodes {
		inDegree[n.ID] = 0
	}

	for _, link := range doc.Links {
		if _, ok := inDegree[link.From.NodeID]; !ok {
			continue
		}

		if _, ok := inDegree[link.To.NodeID]; !ok {
			continue
		}

		adj[link.From.NodeID] = append(adj[link.From.NodeID], link.To.NodeID)
		inDegree[link.To.NodeID]++
	}

	var queue []string

	for _, n := range doc.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	ordered := 0

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered++

		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if ordered == len(doc.Nodes) {
		return nil
	}

	var cycle []string

	for _, n := range doc.Nodes {
		if inDegree[n.ID] > 0 {
			cycle = append(cycle, n.ID)
		}
	}

	return cycle
}
