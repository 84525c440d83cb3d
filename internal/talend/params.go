package talend

import (
	"fmt"
	"strings"

	"github.com/hupe1980/dsx2talend/internal/asg"
)

// NormalizePath prepares a decoded file path for a Talend FILE parameter:
// the "0file" export sentinel, drive letter, and backslashes are removed and
// the path is wrapped in quotes.
func NormalizePath(path string) string {
	if path == "" {
		return `""`
	}

	p := strings.ReplaceAll(path, "0file/", "")
	p = strings.ReplaceAll(p, `0file\`, "")
	p = strings.ReplaceAll(p, `\`, "/")
	p = asg.StripDriveLetter(p)

	if !strings.HasPrefix(p, `"`) {
		p = `"` + p + `"`
	}

	return p
}

// quoted wraps a value in quotes unless it already is.
func quoted(v string) string {
	if strings.HasPrefix(v, `"`) {
		return v
	}

	return `"` + v + `"`
}

// propString reads a string prop with a default.
func propString(props map[string]interface{}, key, def string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	return def
}

// propBool renders a boolean prop as the "true"/"false" strings .item files
// carry.
func propBool(props map[string]interface{}, key string, def bool) string {
	if v, ok := props[key]; ok {
		switch b := v.(type) {
		case bool:
			return boolString(b)
		case string:
			if strings.EqualFold(b, "true") {
				return "true"
			}

			return "false"
		}
	}

	return boolString(def)
}

// uniqueNameParam is shared by every component.
func uniqueNameParam(name string) ElementParameter {
	return ElementParameter{Field: FieldText, Name: "UNIQUE_NAME", Value: name, Show: hidden()}
}

// fileInputParameters synthesizes the tFileInputDelimited parameter block.
func fileInputParameters(props map[string]interface{}, uniqueName string, cols []SchemaColumn) []ElementParameter {
	header := "0"
	if propBool(props, "firstLineColumnNames", false) == "true" {
		header = "1"
	} else if hl := propString(props, "header_lines", ""); hl != "" {
		header = hl
	}

	params := []ElementParameter{
		uniqueNameParam(uniqueName),
		{Field: FieldFile, Name: "FILENAME", Value: NormalizePath(propString(props, "path", ""))},
		{Field: FieldText, Name: "FIELDSEPARATOR", Value: quoted(propString(props, "delimiter", ","))},
		{Field: FieldText, Name: "ROWSEPARATOR", Value: propString(props, "row_separator", `"\n"`)},
		{Field: FieldText, Name: "HEADER", Value: header},
		{Field: FieldText, Name: "FOOTER", Value: propString(props, "footer_lines", "0")},
		{Field: FieldText, Name: "LIMIT", Value: propString(props, "row_limit", "")},
		{Field: FieldEncodingType, Name: "ENCODING", Value: quoted(propString(props, "encoding", "ISO-8859-15"))},
		{Field: FieldTechnical, Name: "ENCODING:ENCODING_TYPE", Value: propString(props, "encoding_type", "ISO-8859-15")},
		{Field: FieldCheck, Name: "CSV_OPTION", Value: propBool(props, "csv_option", false)},
		{Field: FieldCheck, Name: "REMOVE_EMPTY_ROW", Value: propBool(props, "remove_empty_row", true)},
		{Field: FieldCheck, Name: "UNCOMPRESS", Value: propBool(props, "uncompress", false)},
		{Field: FieldCheck, Name: "DIE_ON_ERROR", Value: propBool(props, "die_on_error", false)},
		{Field: FieldCheck, Name: "TRIMALL", Value: propBool(props, "trim_all", false)},
		{Field: FieldCheck, Name: "ADVANCED_SEPARATOR", Value: propBool(props, "advanced_separator", false)},
		{Field: FieldCheck, Name: "CHECK_FIELDS_NUM", Value: propBool(props, "check_fields_num", false)},
		{Field: FieldCheck, Name: "CHECK_DATE", Value: propBool(props, "check_date", false)},
		{Field: FieldCheck, Name: "SPLITRECORD", Value: propBool(props, "split_record", false)},
		{Field: FieldCheck, Name: "ENABLE_DECODE", Value: propBool(props, "enable_decode", false)},
		{Field: FieldCheck, Name: "USE_HEADER_AS_IS", Value: propBool(props, "use_header_as_is", false)},
		{Field: FieldCheck, Name: "USE_EXISTING_DYNAMIC", Value: "false"},
		{Field: FieldCheck, Name: "RANDOM", Value: "false"},
		{Field: FieldText, Name: "ESCAPE_CHAR", Value: `"\\"`, Show: hidden()},
		{Field: FieldText, Name: "TEXT_ENCLOSURE", Value: `"\""`, Show: hidden()},
		{Field: FieldText, Name: "THOUSANDS_SEPARATOR", Value: `","`, Show: hidden()},
		{Field: FieldText, Name: "DECIMAL_SEPARATOR", Value: `"."`, Show: hidden()},
		{Field: FieldText, Name: "NB_RANDOM", Value: "10", Show: hidden()},
		{Field: FieldText, Name: "SCHEMA_OPT_NUM", Value: "100", Show: hidden()},
		{Field: FieldText, Name: "CONNECTION_FORMAT", Value: "row"},
		{Field: FieldDirectory, Name: "TEMP_DIR", Value: propString(props, "temp_directory", ""), Show: hidden()},
		{Field: FieldOpenedList, Name: "CSVROWSEPARATOR", Value: propString(props, "csv_row_separator", "CRLF"), Show: hidden()},
		{Field: FieldComponentList, Name: "DYNAMIC", Value: "", Show: hidden()},
		{Field: FieldText, Name: "DESTINATION", Value: "", Show: hidden()},
		{Field: FieldLabel, Name: "FILENAMETEXT", Value: `"When the input source is a stream or a zip file,footer and random shouldn't be bigger than 0."`},
	}

	params = append(params, columnTable("TRIMSELECT", "TRIM", cols, nil))

	decode := columnTable("DECODE_COLS", "DECODE", cols, hidden())
	params = append(params, decode)

	return params
}

// columnTable builds a TABLE parameter with one (SCHEMA_COLUMN, flag) row
// pair per schema column.
func columnTable(name, flagRef string, cols []SchemaColumn, show *bool) ElementParameter {
	param := ElementParameter{Field: FieldTable, Name: name, Show: show}

	for _, col := range cols {
		param.TableRows = append(param.TableRows,
			TableRow{ElementRef: "SCHEMA_COLUMN", Value: col.Name},
			TableRow{ElementRef: flagRef, Value: "false"},
		)
	}

	return param
}

// fileOutputParameters synthesizes the tFileOutputDelimited parameter block.
func fileOutputParameters(props map[string]interface{}, uniqueName string) []ElementParameter {
	return []ElementParameter{
		uniqueNameParam(uniqueName),
		{Field: FieldFile, Name: "FILENAME", Value: NormalizePath(propString(props, "path", ""))},
		{Field: FieldText, Name: "FIELDSEPARATOR", Value: quoted(propString(props, "delimiter", ","))},
		{Field: FieldText, Name: "ROWSEPARATOR", Value: propString(props, "row_separator", `"\n"`)},
		{Field: FieldCheck, Name: "APPEND", Value: propBool(props, "append", false)},
		{Field: FieldCheck, Name: "INCLUDEHEADER", Value: propBool(props, "include_header", false)},
		{Field: FieldCheck, Name: "COMPRESS", Value: propBool(props, "compress", false)},
		{Field: FieldCheck, Name: "ADVANCED_SEPARATOR", Value: propBool(props, "advanced_separator", false)},
		{Field: FieldCheck, Name: "CSV_OPTION", Value: propBool(props, "csv_option", false)},
		{Field: FieldCheck, Name: "CREATE", Value: propBool(props, "create_dir", true)},
		{Field: FieldCheck, Name: "SPLIT", Value: propBool(props, "split", false)},
		{Field: FieldCheck, Name: "FLUSHONROW", Value: propBool(props, "flush_on_row", false)},
		{Field: FieldCheck, Name: "ROW_MODE", Value: propBool(props, "row_mode", false)},
		{Field: FieldCheck, Name: "DELETE_EMPTYFILE", Value: propBool(props, "delete_empty_file", false)},
		{Field: FieldCheck, Name: "FILE_EXIST_EXCEPTION", Value: propBool(props, "file_exist_exception", false)},
		{Field: FieldText, Name: "ESCAPE_CHAR", Value: `"\\"`, Show: hidden()},
		{Field: FieldText, Name: "TEXT_ENCLOSURE", Value: `"\""`, Show: hidden()},
		{Field: FieldText, Name: "THOUSANDS_SEPARATOR", Value: `","`, Show: hidden()},
		{Field: FieldText, Name: "DECIMAL_SEPARATOR", Value: `"."`, Show: hidden()},
		{Field: FieldEncodingType, Name: "ENCODING", Value: quoted(propString(props, "encoding", "ISO-8859-15"))},
		{Field: FieldTechnical, Name: "ENCODING:ENCODING_TYPE", Value: propString(props, "encoding_type", "ISO-8859-15")},
		{Field: FieldText, Name: "CONNECTION_FORMAT", Value: "row"},
	}
}

// tMapParameters synthesizes the tMap parameter block. Talend's validation
// rejects tMap nodes missing MAP, LINK_STYLE, or the buffer settings.
func tMapParameters(uniqueName string) []ElementParameter {
	return []ElementParameter{
		uniqueNameParam(uniqueName),
		{Field: FieldExternal, Name: "MAP", Value: ""},
		{Field: FieldClosedList, Name: "LINK_STYLE", Value: "AUTO"},
		{Field: FieldDirectory, Name: "TEMPORARY_DATA_DIRECTORY", Value: ""},
		{Field: FieldImage, Name: "PREVIEW", Value: ""},
		{Field: FieldCheck, Name: "DIE_ON_ERROR", Value: "true", Show: hidden()},
		{Field: FieldCheck, Name: "LKUP_PARALLELIZE", Value: "false", Show: hidden()},
		{Field: FieldText, Name: "LEVENSHTEIN", Value: "0", Show: hidden()},
		{Field: FieldText, Name: "JACCARD", Value: "0", Show: hidden()},
		{Field: FieldCheck, Name: "ENABLE_AUTO_CONVERT_TYPE", Value: "false", Show: hidden()},
		{Field: FieldText, Name: "ROWS_BUFFER_SIZE", Value: "2000000"},
		{Field: FieldCheck, Name: "CHANGE_HASH_AND_EQUALS_FOR_BIGDECIMAL", Value: "true"},
		{Field: FieldText, Name: "CONNECTION_FORMAT", Value: "row"},
	}
}

// dbParameters synthesizes tDBInput/tDBOutput parameters from connector
// props.
func dbParameters(props map[string]interface{}, uniqueName string) []ElementParameter {
	params := []ElementParameter{uniqueNameParam(uniqueName)}

	if host := propString(props, "host", propString(props, "instance", "")); host != "" {
		params = append(params, ElementParameter{Field: FieldText, Name: "HOST", Value: host, Show: visible()})
	}

	if db := propString(props, "database_name", propString(props, "database", "")); db != "" {
		params = append(params, ElementParameter{Field: FieldText, Name: "DBNAME", Value: db, Show: visible()})
	}

	if table := propString(props, "table_name", propString(props, "table", "")); table != "" {
		params = append(params, ElementParameter{Field: FieldDBTable, Name: "TABLE", Value: table, Show: visible()})
	}

	if schema := propString(props, "schema", ""); schema != "" {
		params = append(params, ElementParameter{Field: FieldText, Name: "SCHEMA_DB", Value: schema, Show: visible()})
	}

	params = append(params, ElementParameter{Field: FieldText, Name: "COMMIT_EVERY", Value: propString(props, "commit", "1000"), Show: hidden()})

	return params
}

// genericParameters covers components without a dedicated synthesis table.
func genericParameters(uniqueName string) []ElementParameter {
	return []ElementParameter{uniqueNameParam(uniqueName)}
}

// connectionParameters returns the standard FLOW connection parameters.
func connectionParameters(label string) []ElementParameter {
	return []ElementParameter{
		// MONITOR_CONNECTION carries no show attribute.
		{Field: FieldCheck, Name: "MONITOR_CONNECTION", Value: "false"},
		{Field: FieldText, Name: "UNIQUE_NAME", Value: label, Show: hidden()},
	}
}

// rejectMetadata builds the REJECT connector block for tFileInputDelimited:
// all schema columns plus errorCode and errorMessage.
func rejectMetadata(cols []SchemaColumn) Metadata {
	md := Metadata{Connector: "REJECT", Name: "REJECT"}

	for _, col := range cols {
		md.Columns = append(md.Columns, MetadataColumn{
			Comment:        "",
			Key:            "false",
			Length:         "-1",
			Name:           col.Name,
			Nullable:       boolString(col.Nullable),
			Pattern:        "",
			Precision:      "-1",
			SourceType:     "",
			Type:           TalendType(col.Type),
			OriginalLength: "-1",
			UsefulColumn:   "true",
		})
	}

	for _, name := range []string{"errorCode", "errorMessage"} {
		md.Columns = append(md.Columns, MetadataColumn{
			HasDefault:     true,
			DefaultValue:   "",
			Key:            "false",
			Length:         "255",
			Name:           name,
			Nullable:       "true",
			Precision:      "0",
			SourceType:     "",
			Type:           "id_String",
			OriginalLength: "-1",
			UsefulColumn:   "true",
		})
	}

	return md
}

// rowLabel derives a connection label from the source node name.
func rowLabel(sourceName string) string {
	return fmt.Sprintf("row%s", sourceName)
}
