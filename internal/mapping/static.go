package mapping

import "context"

// defaultTable is the built-in component mapping. File-backed repositories
// override it entry by entry; the SQL-backed repository answers from its
// own table only.
var defaultTable = map[Key]string{
	{Type: "Source", Subtype: "File"}:           "tFileInputDelimited",
	{Type: "Sink", Subtype: "File"}:             "tFileOutputDelimited",
	{Type: "Source", Subtype: "Database"}:       "tDBInput",
	{Type: "Sink", Subtype: "Database"}:         "tDBOutput",
	{Type: "Source", Subtype: "DB2"}:            "tDBInput",
	{Type: "Sink", Subtype: "DB2"}:              "tDBOutput",
	{Type: "Source", Subtype: "ODBC"}:           "tDBInput",
	{Type: "Sink", Subtype: "ODBC"}:             "tDBOutput",
	{Type: "Source", Subtype: "Oracle"}:         "tDBInput",
	{Type: "Sink", Subtype: "Oracle"}:           "tDBOutput",
	{Type: "Transform", Subtype: "Map"}:         "tMap",
	{Type: "Transform", Subtype: "Lookup"}:      "tMap",
	{Type: "Transform", Subtype: "Join"}:        "tMap",
	{Type: "Transform", Subtype: "Merge"}:       "tUnite",
	{Type: "Transform", Subtype: "Deduplicate"}: "tUniqRow",
	{Type: "Transform", Subtype: "Aggregate"}:   "tAggregateRow",
	{Type: "Transform", Subtype: "Filter"}:      "tFilterRow",
}

// Static is an in-memory repository.
type Static struct {
	table map[Key]string
}

// NewStatic creates a repository over the built-in table.
func NewStatic() *Static {
	return NewStaticWithTable(nil)
}

// NewStaticWithTable creates a repository over the built-in table with the
// given entries layered on top.
func NewStaticWithTable(overrides map[Key]string) *Static {
	table := make(map[Key]string, len(defaultTable)+len(overrides))

	for k, v := range defaultTable {
		table[k] = v
	}

	for k, v := range overrides {
		table[k] = v
	}

	return &Static{table: table}
}

// Lookup resolves a pair against the table.
func (s *Static) Lookup(_ context.Context, irType, irSubtype string) (string, error) {
	key := Key{Type: irType, Subtype: irSubtype}
	if component, ok := s.table[key]; ok {
		return component, nil
	}

	return "", &NotFoundError{Key: key}
}

// Close is a no-op for the static repository.
func (s *Static) Close() error { return nil }
