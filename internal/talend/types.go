package talend

import (
	"strconv"
	"strings"

	"github.com/hupe1980/dsx2talend/internal/ir"
)

// talendTypes maps IR type hints to Talend's id_* type identifiers.
var talendTypes = map[string]string{
	"string":    "id_String",
	"integer":   "id_Integer",
	"int":       "id_Integer",
	"number":    "id_Double",
	"decimal":   "id_BigDecimal",
	"float":     "id_Float",
	"double":    "id_Double",
	"long":      "id_Long",
	"date":      "id_Date",
	"time":      "id_Date",
	"timestamp": "id_Date",
	"boolean":   "id_Boolean",
	"bool":      "id_Boolean",
}

// TalendType resolves an IR type hint to the Talend type identifier.
func TalendType(irType string) string {
	if t, ok := talendTypes[strings.ToLower(irType)]; ok {
		return t
	}

	return "id_String"
}

// schemaColumns converts IR columns into the builder's working shape.
func schemaColumns(cols []ir.Column) []SchemaColumn {
	out := make([]SchemaColumn, 0, len(cols))

	for _, col := range cols {
		out = append(out, SchemaColumn{
			Name:              col.Name,
			Type:              col.Type,
			Nullable:          col.Nullable,
			Length:            col.Length,
			Precision:         col.Precision,
			HasTransformation: col.HasTransformation,
			Expression:        col.Expression,
		})
	}

	return out
}

// metadataColumn renders one schema column as a metadata column entry.
// originalLength and usefulColumn are always emitted, even when unknown.
func metadataColumn(col SchemaColumn) MetadataColumn {
	return MetadataColumn{
		Comment:        "",
		Key:            "false",
		Length:         lengthString(col.Length),
		Name:           col.Name,
		Nullable:       boolString(col.Nullable),
		Pattern:        "",
		Precision:      lengthString(col.Precision),
		SourceType:     "",
		Type:           TalendType(col.Type),
		OriginalLength: "-1",
		UsefulColumn:   "true",
	}
}

func metadataColumns(cols []SchemaColumn) []MetadataColumn {
	out := make([]MetadataColumn, 0, len(cols))
	for _, col := range cols {
		out = append(out, metadataColumn(col))
	}

	return out
}

func boolString(b bool) string {
	if b {
		return "true"
	}

	return "false"
}

// lengthString renders a length or precision, -1 when unset.
func lengthString(n int) string {
	if n <= 0 {
		return "-1"
	}

	return strconv.Itoa(n)
}
