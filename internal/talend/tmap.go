package talend

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	upperCallRe = regexp.MustCompile(`(?i)\b(?:upper|upcase|uppercase)\s*\(([^)]+)\)`)
	lowerCallRe = regexp.MustCompile(`(?i)\b(?:lower|downcase|lowercase)\s*\(([^)]+)\)`)
	trimCallRe  = regexp.MustCompile(`(?i)\btrim\s*\(([^)]+)\)`)
	linkRefRe   = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\.([A-Za-z_][A-Za-z0-9_]*)\b`)
)

// ConvertExpression translates an IR derivation into Talend's tMap
// expression language, rewriting column references onto the incoming row:
//
//	UPPER(USERNAME)       → StringHandling.UPPER(rowInput_File.USERNAME)
//	UserLink.USERNAME     → rowInput_File.USERNAME
//	USERNAME              → rowInput_File.USERNAME
//
// Expressions no rule matches keep their shape with link prefixes rewritten.
func ConvertExpression(irExpr, incomingRow, colName string) string {
	expr := strings.TrimSpace(irExpr)
	if expr == "" {
		return fmt.Sprintf("%s.%s", incomingRow, colName)
	}

	if m := upperCallRe.FindStringSubmatch(expr); m != nil {
		return fmt.Sprintf("StringHandling.UPPER(%s.%s)", incomingRow, bareColumn(m[1]))
	}

	if m := lowerCallRe.FindStringSubmatch(expr); m != nil {
		return fmt.Sprintf("StringHandling.DOWNCASE(%s.%s)", incomingRow, bareColumn(m[1]))
	}

	if m := trimCallRe.FindStringSubmatch(expr); m != nil {
		return fmt.Sprintf("StringHandling.TRIM(%s.%s)", incomingRow, bareColumn(m[1]))
	}

	// LINK.COL reference.
	if linkRefRe.MatchString(expr) && !strings.ContainsAny(expr, "()+-*/'\"") {
		return fmt.Sprintf("%s.%s", incomingRow, bareColumn(expr))
	}

	// Bare column name.
	if strings.EqualFold(expr, colName) {
		return fmt.Sprintf("%s.%s", incomingRow, colName)
	}

	// Fallback: rewrite link prefixes onto the incoming row, keep the rest.
	return linkRefRe.ReplaceAllString(expr, incomingRow+".$1")
}

// bareColumn reduces "Link.COL" to "COL".
func bareColumn(ref string) string {
	ref = strings.TrimSpace(ref)
	if idx := strings.LastIndex(ref, "."); idx >= 0 {
		return ref[idx+1:]
	}

	return ref
}

// mapperInput describes one incoming connection of a tMap node.
type mapperInput struct {
	rowName string
	columns []SchemaColumn
}

// buildMapperData assembles the tMap metadata blocks and MapperData
// subtree: one output table per outgoing connection carrying translated
// expressions, one input table per incoming connection.
func buildMapperData(cols []SchemaColumn, inputs []mapperInput, outputCount int) ([]Metadata, *MapperData) {
	if outputCount < 1 {
		outputCount = 1
	}

	talendCols := metadataColumns(cols)

	var metadata []Metadata

	for i := 0; i < outputCount; i++ {
		metadata = append(metadata, Metadata{
			Connector: "FLOW",
			Name:      fmt.Sprintf("out%d", i+1),
			Columns:   talendCols,
		})
	}

	primaryRow := "row1"
	if len(inputs) > 0 {
		primaryRow = inputs[0].rowName
	}

	var outputEntries []MapperTableEntry

	for _, col := range cols {
		expression := fmt.Sprintf("%s.%s", primaryRow, col.Name)
		if col.HasTransformation && col.Expression != "" {
			expression = ConvertExpression(col.Expression, primaryRow, col.Name)
		}

		outputEntries = append(outputEntries, MapperTableEntry{
			Name:       col.Name,
			Expression: expression,
			Type:       TalendType(col.Type),
			Nullable:   "true",
		})
	}

	data := &MapperData{
		VarTables: []VarTable{
			{SizeState: "INTERMEDIATE", Name: "Var", Minimized: true},
		},
	}

	for i := 0; i < outputCount; i++ {
		data.OutputTables = append(data.OutputTables, MapperTable{
			SizeState: "INTERMEDIATE",
			Name:      fmt.Sprintf("out%d", i+1),
			Entries:   outputEntries,
		})
	}

	for _, input := range inputs {
		table := MapperTable{
			SizeState:    "INTERMEDIATE",
			Name:         input.rowName,
			MatchingMode: "UNIQUE_MATCH",
			LookupMode:   "LOAD_ONCE",
		}

		inputCols := input.columns
		if len(inputCols) == 0 {
			inputCols = cols
		}

		for _, col := range inputCols {
			// Input table entries carry no expression.
			table.Entries = append(table.Entries, MapperTableEntry{
				Name:     col.Name,
				Type:     TalendType(col.Type),
				Nullable: "true",
			})
		}

		data.InputTables = append(data.InputTables, table)
	}

	if len(data.InputTables) == 0 {
		table := MapperTable{
			SizeState:    "INTERMEDIATE",
			Name:         primaryRow,
			MatchingMode: "UNIQUE_MATCH",
			LookupMode:   "LOAD_ONCE",
		}

		for _, col := range cols {
			table.Entries = append(table.Entries, MapperTableEntry{
				Name:     col.Name,
				Type:     TalendType(col.Type),
				Nullable: "true",
			})
		}

		data.InputTables = append(data.InputTables, table)
	}

	return metadata, data
}
