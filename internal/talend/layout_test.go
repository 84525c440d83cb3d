package talend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectLayout(t *testing.T) {
	tests := []struct {
		nodes     int
		maxPerRow int
	}{
		{1, 1},
		{3, 3},
		{4, 3},
		{6, 3},
		{7, 4},
		{12, 4},
		{13, 5},
		{40, 5},
	}

	for _, tt := range tests {
		cfg := selectLayout(tt.nodes)
		assert.Equal(t, tt.maxPerRow, cfg.maxPerRow, "nodes=%d", tt.nodes)
	}
}

func TestPosition(t *testing.T) {
	cfg := layoutConfig{maxPerRow: 3, rowSpacing: 200, colSpacing: 250}

	x, y := cfg.position(0)
	assert.Equal(t, 100, x)
	assert.Equal(t, 100, y)

	// Second column nudges down by 20.
	x, y = cfg.position(1)
	assert.Equal(t, 350, x)
	assert.Equal(t, 120, y)

	// First column of the second row.
	x, y = cfg.position(3)
	assert.Equal(t, 100, x)
	assert.Equal(t, 300, y)
}

func TestEnforceFlowLayout(t *testing.T) {
	cfg := layoutConfig{maxPerRow: 3, rowSpacing: 200, colSpacing: 250}

	nodes := []*Node{
		{UniqueName: "a", PosX: 100, PosY: 100},
		{UniqueName: "b", PosX: 90, PosY: 120},
		{UniqueName: "c", PosX: 95, PosY: 140},
	}

	enforceFlowLayout(nodes, cfg)

	assert.Equal(t, 100, nodes[0].PosX)
	assert.Equal(t, 250, nodes[1].PosX)
	assert.Equal(t, 400, nodes[2].PosX)
}
