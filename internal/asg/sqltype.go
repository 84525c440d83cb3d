package asg

// sqlTypeNames maps DataStage SQL type codes to readable type names.
// The table is fixed; unknown codes resolve to "UNKNOWN".
var sqlTypeNames = map[int]string{
	1:  "CHAR",
	3:  "DECIMAL",
	4:  "INTEGER",
	5:  "SMALLINT",
	6:  "FLOAT",
	7:  "REAL",
	8:  "DOUBLE",
	9:  "DATE",
	10: "TIME",
	11: "TIMESTAMP",
	12: "VARCHAR",
	-1: "LONGVARCHAR",
	-5: "BIGINT",
	-6: "TINYINT",
	-7: "BIT",
	-8: "NCHAR",
	-9: "NVARCHAR",
}

// talendTypeHints maps SQL type codes to the vendor-neutral type hints the
// IR carries and the Talend builder consumes.
var talendTypeHints = map[int]string{
	1:  "string",
	3:  "decimal",
	4:  "integer",
	5:  "integer",
	6:  "float",
	7:  "float",
	8:  "double",
	9:  "date",
	10: "time",
	11: "timestamp",
	12: "string",
	-1: "string",
	-5: "long",
	-6: "integer",
	-7: "boolean",
	-8: "string",
	-9: "string",
}

// SQLTypeName resolves a SQL type code to its readable name.
func SQLTypeName(code int) string {
	if name, ok := sqlTypeNames[code]; ok {
		return name
	}

	return "UNKNOWN"
}

// TalendTypeHint resolves a SQL type code to the IR type hint.
func TalendTypeHint(code int) string {
	if hint, ok := talendTypeHints[code]; ok {
		return hint
	}

	return "string"
}
