// Package talend builds the Talend Studio job graph from an IR document and
// serializes it to the XMI-flavored .item process XML Talend imports.
package talend

import "fmt"

// Component versions emitted in .item files. Whether these match the target
// Talend Studio version is the caller's responsibility.
const (
	DefaultComponentVersion = "0.102"
	TMapComponentVersion    = "2.1"
)

// Well-known component names.
const (
	ComponentFileInput  = "tFileInputDelimited"
	ComponentFileOutput = "tFileOutputDelimited"
	ComponentDBInput    = "tDBInput"
	ComponentDBOutput   = "tDBOutput"
	ComponentMap        = "tMap"
	ComponentUnknown    = "tUnknown"
)

// Job is the in-memory Talend job graph.
type Job struct {
	Name          string
	Nodes         []*Node
	Connections   []*Connection
	ContextParams []ContextParam
}

// ContextParam is one Default-context parameter of the job, carried over
// from the source job's parameters.
type ContextParam struct {
	Name   string
	Prompt string
	Value  string
}

// Node is one Talend component instance.
type Node struct {
	ComponentName    string
	ComponentVersion string
	UniqueName       string
	PosX             int
	PosY             int
	Parameters       []ElementParameter
	Metadata         []Metadata
	NodeData         *MapperData
	GenericNodeData  map[string]interface{}

	// SchemaColumns carries the resolved IR schema for template-based
	// emission.
	SchemaColumns []SchemaColumn
	// Props carries the IR node props for template-based emission.
	Props map[string]interface{}
}

// SchemaColumn is an IR column resolved for a Talend node.
type SchemaColumn struct {
	Name              string
	Type              string
	Nullable          bool
	Length            int
	Precision         int
	HasTransformation bool
	Expression        string
}

// Connection links two nodes in the job graph.
type Connection struct {
	Source        string
	Target        string
	ConnectorName string
	Label         string
	LineStyle     string
	Metaname      string
	OffsetLabelX  string
	OffsetLabelY  string
	Parameters    []ElementParameter
}

// Parameter field kinds used in .item files.
const (
	FieldText          = "TEXT"
	FieldFile          = "FILE"
	FieldCheck         = "CHECK"
	FieldClosedList    = "CLOSED_LIST"
	FieldExternal      = "EXTERNAL"
	FieldDBTable       = "DBTABLE"
	FieldDirectory     = "DIRECTORY"
	FieldImage         = "IMAGE"
	FieldEncodingType  = "ENCODING_TYPE"
	FieldTechnical     = "TECHNICAL"
	FieldLabel         = "LABEL"
	FieldComponentList = "COMPONENT_LIST"
	FieldOpenedList    = "OPENED_LIST"
	FieldTable         = "TABLE"
)

// ElementParameter is one elementParameter entry of a node or connection.
// Show is tri-state: nil elides the attribute (Talend's visible default).
type ElementParameter struct {
	Field string
	Name  string
	Value string
	Show  *bool

	// TableRows holds elementValue pairs for TABLE fields (TRIMSELECT,
	// DECODE_COLS).
	TableRows []TableRow
}

// TableRow is one elementValue pair of a TABLE parameter.
type TableRow struct {
	ElementRef string
	Value      string
}

// Metadata is one metadata connector block with its columns.
type Metadata struct {
	Connector string
	Name      string
	Columns   []MetadataColumn
}

// MetadataColumn is one column entry of a metadata block. All values are
// strings, matching the .item attribute surface.
type MetadataColumn struct {
	Comment        string
	Key            string
	Length         string
	Name           string
	Nullable       string
	Pattern        string
	Precision      string
	SourceType     string
	Type           string
	OriginalLength string
	UsefulColumn   string

	// HasDefault switches the emitted attributes to the error-column
	// shape: defaultValue instead of comment/pattern.
	HasDefault   bool
	DefaultValue string
}

// MapperData is the tMap-specific nodeData subtree.
type MapperData struct {
	VarTables    []VarTable
	OutputTables []MapperTable
	InputTables  []MapperTable
}

// VarTable is a tMap variable table.
type VarTable struct {
	SizeState string
	Name      string
	Minimized bool
}

// MapperTable is a tMap input or output table.
type MapperTable struct {
	SizeState    string
	Name         string
	MatchingMode string
	LookupMode   string
	Entries      []MapperTableEntry
}

// MapperTableEntry is one row of a mapper table. Expression is empty for
// input tables.
type MapperTableEntry struct {
	Name       string
	Expression string
	Type       string
	Nullable   string
}

// CodeGenError reports a generation failure: unresolvable components in
// strict mode, template render failures, or emitted XML that does not
// re-parse.
type CodeGenError struct {
	Phase string
	Msg   string
}

func (e *CodeGenError) Error() string {
	return fmt.Sprintf("code generation failed (%s): %s", e.Phase, e.Msg)
}

// show helpers for ElementParameter construction.
var (
	showFalse = false
	showTrue  = true
)

// hidden returns a pointer to false for Show fields.
func hidden() *bool { return &showFalse }

// visible returns a pointer to true for Show fields.
func visible() *bool { return &showTrue }
