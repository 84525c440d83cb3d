package talend

// layoutConfig is the grid layout chosen for a node count.
type layoutConfig struct {
	maxPerRow  int
	rowSpacing int
	colSpacing int
}

// selectLayout picks the layout density from the node count: small jobs get
// a single row, large ones wrap earlier.
func selectLayout(numNodes int) layoutConfig {
	switch {
	case numNodes <= 3:
		perRow := numNodes
		if perRow < 1 {
			perRow = 1
		}

		return layoutConfig{maxPerRow: perRow, rowSpacing: 150, colSpacing: 200}
	case numNodes <= 6:
		return layoutConfig{maxPerRow: 3, rowSpacing: 180, colSpacing: 220}
	case numNodes <= 12:
		return layoutConfig{maxPerRow: 4, rowSpacing: 200, colSpacing: 250}
	default:
		return layoutConfig{maxPerRow: 5, rowSpacing: 180, colSpacing: 200}
	}
}

const (
	layoutBaseX = 100
	layoutBaseY = 100
)

// position computes the grid slot for the node at the given index. Columns
// after the first are nudged down slightly so connection labels don't
// overlap.
func (c layoutConfig) position(index int) (int, int) {
	row := index / c.maxPerRow
	col := index % c.maxPerRow

	x := layoutBaseX + col*c.colSpacing
	y := layoutBaseY + row*c.rowSpacing

	if col > 0 {
		y += col * 20
	}

	return x, y
}

// minNodeSeparation is the smallest horizontal gap enforced between
// neighboring nodes in a row.
const minNodeSeparation = 150

// enforceFlowLayout post-processes node positions: X must grow
// monotonically within a row with a minimum separation, so the rendered
// flow reads left to right. Nodes are assumed to be in placement order.
func enforceFlowLayout(nodes []*Node, cfg layoutConfig) {
	byRow := make(map[int][]*Node)

	for i, n := range nodes {
		row := i / cfg.maxPerRow
		byRow[row] = append(byRow[row], n)
	}

	for _, row := range byRow {
		for i := 1; i < len(row); i++ {
			if row[i].PosX <= row[i-1].PosX {
				row[i].PosX = row[i-1].PosX + minNodeSeparation
			}
		}
	}
}
