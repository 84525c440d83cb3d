package talend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertExpression(t *testing.T) {
	tests := []struct {
		name string
		expr string
		col  string
		want string
	}{
		{"upper bare", "UPPER(USERNAME)", "USERNAME", "StringHandling.UPPER(rowIn.USERNAME)"},
		{"uppercase alias", "UpperCase(USERNAME)", "USERNAME", "StringHandling.UPPER(rowIn.USERNAME)"},
		{"upcase with link", "upcase(UserLink.USERNAME)", "USERNAME", "StringHandling.UPPER(rowIn.USERNAME)"},
		{"lower", "LOWER(EMAIL)", "EMAIL", "StringHandling.DOWNCASE(rowIn.EMAIL)"},
		{"trim", "TRIM(NAME)", "NAME", "StringHandling.TRIM(rowIn.NAME)"},
		{"link reference", "UserLink.USERNAME", "USERNAME", "rowIn.USERNAME"},
		{"bare column", "USERNAME", "USERNAME", "rowIn.USERNAME"},
		{"bare column case-insensitive", "username", "USERNAME", "rowIn.USERNAME"},
		{"empty passthrough", "", "EMAIL", "rowIn.EMAIL"},
		{"fallback rewrites links", "UserLink.A + UserLink.B", "SUM", "rowIn.A + rowIn.B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertExpression(tt.expr, "rowIn", tt.col))
		})
	}
}

func TestBuildMapperDataDefaults(t *testing.T) {
	cols := []SchemaColumn{
		{Name: "A", Type: "string", Nullable: true},
		{Name: "B", Type: "integer", Nullable: false},
	}

	metadata, data := buildMapperData(cols, nil, 0)

	// Without connections, one output table and one input table fall back
	// to defaults.
	assert.Len(t, metadata, 1)
	assert.Equal(t, "out1", metadata[0].Name)

	assert.Len(t, data.OutputTables, 1)
	assert.Equal(t, "row1.A", data.OutputTables[0].Entries[0].Expression)
	assert.Equal(t, "id_String", data.OutputTables[0].Entries[0].Type)
	assert.Equal(t, "id_Integer", data.OutputTables[0].Entries[1].Type)

	assert.Len(t, data.InputTables, 1)
	assert.Equal(t, "row1", data.InputTables[0].Name)
	assert.Len(t, data.VarTables, 1)
}

func TestBuildMapperDataMultipleOutputs(t *testing.T) {
	cols := []SchemaColumn{{Name: "A", Type: "string"}}

	metadata, _ := buildMapperData(cols, []mapperInput{{rowName: "rowSrc", columns: cols}}, 2)

	assert.Len(t, metadata, 2)
	assert.Equal(t, "out1", metadata[0].Name)
	assert.Equal(t, "out2", metadata[1].Name)
}

func TestTalendTypeMapping(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"string", "id_String"},
		{"integer", "id_Integer"},
		{"decimal", "id_BigDecimal"},
		{"float", "id_Float"},
		{"double", "id_Double"},
		{"long", "id_Long"},
		{"date", "id_Date"},
		{"timestamp", "id_Date"},
		{"boolean", "id_Boolean"},
		{"STRING", "id_String"},
		{"mystery", "id_String"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TalendType(tt.in), "input %q", tt.in)
	}
}
