package ir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/dsx2talend/internal/asg"
	"github.com/hupe1980/dsx2talend/internal/mapping"
)

// propertyKeys maps DataStage configuration property names to IR prop keys.
var propertyKeys = map[string]string{
	"FilePath":                "path",
	"file":                    "path",
	"FieldDelimiter":          "delimiter",
	"RowSeparator":            "row_separator",
	"FirstLineColumnNames":    "firstLineColumnNames",
	"first_line_column_names": "firstLineColumnNames",
	"HeaderLines":             "header_lines",
	"FooterLines":             "footer_lines",
	"RowLimit":                "row_limit",
	"RemoveEmptyRow":          "remove_empty_row",
	"DieOnError":              "die_on_error",
	"IncludeHeader":           "include_header",
	"Append":                  "append",
	"Compress":                "compress",
	"AdvancedSeparator":       "advanced_separator",
	"Instance":                "instance",
	"Database":                "database_name",
	"Username":                "username",
	"Password":                "password",
	"TableName":               "table_name",
	"ConnectionString":        "connection_string",
	"VariantName":             "variant_name",
	"VariantLibrary":          "variant_library",
	"VariantVersion":          "variant_version",
}

var jobNameSanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// LowerOptions configures the ASG→IR lowering.
type LowerOptions struct {
	// Location is the source file reference recorded in node provenance,
	// e.g. "simple_user_job.dsx".
	Location string

	// Repository is consulted for ambiguous type classifications before
	// the built-in table applies. Nil skips consultation.
	Repository mapping.Repository

	// Now supplies the document timestamp; nil selects time.Now. Tests
	// inject a fixed clock for byte-stable output.
	Now func() time.Time

	// Logger receives diagnostics. Nil selects slog.Default().
	Logger *slog.Logger
}

// Lowerer normalizes an ASG job into the vendor-neutral IR.
type Lowerer struct {
	opts    LowerOptions
	now     func() time.Time
	logger  *slog.Logger
	nodeMap map[string]string
}

// NewLowerer creates a lowerer with the given options.
func NewLowerer(opts LowerOptions) *Lowerer {
	l := &Lowerer{opts: opts, now: opts.Now, logger: opts.Logger}
	if l.now == nil {
		l.now = time.Now
	}

	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l
}

// Mapping returns the asg-node-id → ir-node-id map of the last Lower call.
func (l *Lowerer) Mapping() map[string]string { return l.nodeMap }

// Lower converts job into an IR document. Node IDs are assigned by a
// monotonic counter in ASG traversal order, so two runs over the same input
// produce identical documents apart from the timestamp.
func (l *Lowerer) Lower(ctx context.Context, job *asg.Job) (*Document, error) {
	now := l.now().UTC()
	name := sanitizeJobName(job.Name)

	doc := &Document{
		IRVersion:   Version,
		GeneratedAt: now.Format(time.RFC3339),
		Job: JobInfo{
			ID:         fmt.Sprintf("job-%s-%s", name, now.Format("200601021504")),
			Name:       job.Name,
			Parameters: lowerParameters(job.Parameters),
			Contexts:   lowerContexts(job.Parameters),
		},
		Schemas: make(map[string][]Column),
	}

	l.nodeMap = make(map[string]string, len(job.Nodes))

	stats := connectivity(job)

	// Pass 1: nodes in traversal order.
	for i, node := range job.Nodes {
		irID := fmt.Sprintf("n%d", i)
		l.nodeMap[node.ID] = irID

		irNode, err := l.lowerNode(ctx, node, irID, stats[node.ID])
		if err != nil {
			return nil, err
		}

		schemaRef := "s_" + node.ID
		doc.Schemas[schemaRef] = lowerSchema(primaryPin(node))
		irNode.SchemaRef = schemaRef

		doc.Nodes = append(doc.Nodes, irNode)
	}

	// Pass 2: links in edge traversal order.
	for i, edge := range job.Edges {
		from, okFrom := l.nodeMap[edge.FromNode]
		to, okTo := l.nodeMap[edge.ToNode]

		if !okFrom || !okTo {
			l.logger.Warn("skipping link with unmapped endpoint",
				slog.String("from", edge.FromNode), slog.String("to", edge.ToNode))

			continue
		}

		doc.Links = append(doc.Links, Link{
			ID:        fmt.Sprintf("l%d", i+1),
			From:      Endpoint{NodeID: from, Port: "out"},
			To:        Endpoint{NodeID: to, Port: "in"},
			SchemaRef: "s_" + edge.FromNode,
		})
	}

	doc.Tracking = track(doc.Nodes, doc.Schemas)

	return doc, nil
}

// inOut counts a node's edge endpoints, the fallback signal for direction
// when a stage record carries no pins.
type inOut struct {
	in  int
	out int
}

func connectivity(job *asg.Job) map[string]inOut {
	stats := make(map[string]inOut, len(job.Nodes))

	for _, e := range job.Edges {
		s := stats[e.FromNode]
		s.out++
		stats[e.FromNode] = s

		t := stats[e.ToNode]
		t.in++
		stats[e.ToNode] = t
	}

	return stats
}

func lowerParameters(params []asg.Parameter) []Parameter {
	var out []Parameter

	for _, p := range params {
		out = append(out, Parameter{Name: p.Name, Prompt: p.Prompt, Default: p.Default})
	}

	return out
}

func lowerContexts(params []asg.Parameter) map[string]string {
	if len(params) == 0 {
		return nil
	}

	contexts := make(map[string]string, len(params))
	for _, p := range params {
		contexts[p.Name] = p.Default
	}

	return contexts
}

// lowerNode converts a single ASG node.
func (l *Lowerer) lowerNode(ctx context.Context, node *asg.Node, irID string, stats inOut) (*Node, error) {
	irType, irSubtype := l.determineType(ctx, node, stats)

	irNode := &Node{
		ID:           irID,
		Type:         irType,
		Subtype:      irSubtype,
		Name:         node.Name,
		Props:        lowerProps(node),
		TrxGenCode:   node.Properties.APT["TrxGenCode"],
		TrxClassName: node.Properties.APT["TrxClassName"],
		Provenance:   provenance(node, l.opts.Location),
	}

	cols := primaryPin(node)
	irNode.Details = details(cols)

	return irNode, nil
}

// determineType maps the enhanced type to the IR taxonomy. Direction-
// sensitive stages (files, connectors, custom stages) resolve from pins,
// falling back to edge connectivity when pins are absent.
func (l *Lowerer) determineType(ctx context.Context, node *asg.Node, stats inOut) (string, string) {
	enhanced := node.EnhancedType

	switch enhanced {
	case asg.TypeCTransformer, asg.TypeTransformer:
		return TypeTransform, SubtypeMap
	case asg.TypeLookup:
		return TypeTransform, SubtypeLookup
	case asg.TypeJoin:
		return TypeTransform, SubtypeJoin
	case asg.TypeFunnel:
		return TypeTransform, SubtypeMerge
	case asg.TypeRemoveDup:
		return TypeTransform, SubtypeDedupe
	case asg.TypeChangeCapture:
		return TypeTransform, SubtypeMap
	}

	if asg.IsConnectorType(enhanced) {
		subtype := databaseSubtype(enhanced)
		if isSink(node, stats) {
			return TypeSink, subtype
		}

		return TypeSource, subtype
	}

	if asg.IsFileType(enhanced) {
		switch {
		case isSink(node, stats):
			return TypeSink, SubtypeFile
		case isSource(node, stats):
			return TypeSource, SubtypeFile
		default:
			return TypeTransform, SubtypeGeneric
		}
	}

	if enhanced == asg.TypeCustomStage {
		return l.customStageType(ctx, node, stats)
	}

	if strings.Contains(enhanced, "Transformer") || strings.Contains(node.StageType, "Transformer") {
		return TypeTransform, SubtypeMap
	}

	switch {
	case isSink(node, stats):
		return TypeSink, SubtypeGeneric
	case isSource(node, stats):
		return TypeSource, SubtypeGeneric
	default:
		return TypeTransform, SubtypeGeneric
	}
}

// customStageType resolves the ambiguous CCustomStage classification: file
// evidence first, then the mapping repository's knowledge of candidate
// pairs, then the defensive Transform/Custom fallback.
func (l *Lowerer) customStageType(ctx context.Context, node *asg.Node, stats inOut) (string, string) {
	_, hasFile := node.Properties.Configuration["path"]
	if !hasFile {
		_, hasFile = node.Properties.Configuration["file"]
	}

	if !hasFile {
		_, hasFile = node.Properties.Configuration["FilePath"]
	}

	if hasFile {
		if isSink(node, stats) {
			return TypeSink, SubtypeFile
		}

		return TypeSource, SubtypeFile
	}

	var candidates [][2]string

	switch {
	case isSink(node, stats):
		candidates = [][2]string{{TypeSink, SubtypeFile}, {TypeSink, SubtypeDatabase}, {TypeSink, SubtypeCustom}}
	case isSource(node, stats):
		candidates = [][2]string{{TypeSource, SubtypeFile}, {TypeSource, SubtypeDatabase}, {TypeSource, SubtypeCustom}}
	default:
		candidates = [][2]string{{TypeTransform, SubtypeCustom}}
	}

	if l.opts.Repository != nil {
		for _, c := range candidates {
			if _, err := l.opts.Repository.Lookup(ctx, c[0], c[1]); err == nil {
				return c[0], c[1]
			} else if !errors.Is(err, mapping.ErrNotFound) {
				l.logger.Warn("mapping repository lookup failed",
					slog.String("type", c[0]), slog.String("subtype", c[1]), slog.String("error", err.Error()))
			}
		}
	}

	return TypeTransform, SubtypeCustom
}

func databaseSubtype(enhanced string) string {
	switch {
	case strings.Contains(enhanced, "DB2"):
		return "DB2"
	case strings.Contains(enhanced, "ODBC"):
		return "ODBC"
	case strings.Contains(enhanced, "Oracle"):
		return "Oracle"
	case strings.Contains(enhanced, "SQL"):
		return "SQLServer"
	default:
		return SubtypeDatabase
	}
}

func isSource(node *asg.Node, stats inOut) bool {
	if len(node.Pins) > 0 {
		return len(node.OutputPins()) > 0 && len(node.InputPins()) == 0
	}

	return stats.out > 0 && stats.in == 0
}

func isSink(node *asg.Node, stats inOut) bool {
	if len(node.Pins) > 0 {
		return len(node.InputPins()) > 0 && len(node.OutputPins()) == 0
	}

	return stats.in > 0 && stats.out == 0
}

// lowerProps converts the node's configuration bucket, merging values
// recovered from XML connector descriptors and coercing stringly booleans.
func lowerProps(node *asg.Node) map[string]interface{} {
	props := make(map[string]interface{})

	config := node.Properties.Configuration

	for _, key := range []string{"XMLProperties", "XMLConnectorDescriptor"} {
		if raw, ok := config[key]; ok {
			for k, v := range parseXMLProperties(raw) {
				switch k {
				case "Instance":
					props["instance"] = v
				case "Database":
					props["database_name"] = v
				case "Username":
					props["username"] = v
				case "Password":
					props["password"] = v
				case "TableName":
					props["table_name"] = v
				}
			}
		}
	}

	for key, value := range config {
		if key == "XMLProperties" || key == "XMLConnectorDescriptor" {
			continue
		}

		propKey, ok := propertyKeys[key]
		if !ok {
			propKey = key
		}

		switch strings.ToLower(value) {
		case "true":
			props[propKey] = true
		case "false":
			props[propKey] = false
		default:
			props[propKey] = value
		}
	}

	if node.EnhancedType == asg.TypeCustomStage {
		props["customType"] = node.EnhancedType
	}

	return props
}

// primaryPin selects the schema-bearing pin: the first output, or the first
// input for sinks.
func primaryPin(node *asg.Node) []asg.Column {
	if outs := node.OutputPins(); len(outs) > 0 {
		return outs[0].Schema
	}

	if ins := node.InputPins(); len(ins) > 0 {
		return ins[0].Schema
	}

	return nil
}

// lowerSchema converts ASG columns into the flat IR schema shape. Empty
// schemas stay present so sinks can adopt upstream schemas downstream.
func lowerSchema(cols []asg.Column) []Column {
	out := make([]Column, 0, len(cols))

	for _, col := range cols {
		irCol := Column{
			Name:      col.Name,
			Type:      col.TalendType,
			Nullable:  col.Nullable,
			Length:    col.Length,
			Precision: col.Precision,
			Scale:     col.Scale,
		}

		if col.HasTransformation() {
			irCol.HasTransformation = true
			irCol.Expression = col.Derivation

			if col.Logic != nil {
				irCol.Logic = &TransformationLogic{
					Classification: string(col.Logic.Classification),
					SourceColumns:  col.Logic.SourceColumns,
					Functions:      col.Logic.Functions,
					Expression:     col.Logic.Expression,
				}
				irCol.Classification = string(col.Logic.Classification)
				irCol.SourceColumns = col.Logic.SourceColumns
				irCol.Functions = col.Logic.Functions
			}
		}

		out = append(out, irCol)
	}

	return out
}

// details summarizes the transformations on a node's primary schema.
func details(cols []asg.Column) Details {
	d := Details{}

	for _, col := range cols {
		if !col.HasTransformation() {
			continue
		}

		d.HasTransformations = true
		d.TransformationCount++
		d.ComplexityScore += complexityWeight(col.Logic)
	}

	return d
}

// complexityWeight scores one classified derivation.
func complexityWeight(logic *asg.TransformationLogic) float64 {
	if logic == nil {
		return 0.5
	}

	switch logic.Classification {
	case asg.ClassSimpleColumn, asg.ClassConstant:
		return 0.5
	case asg.ClassStringOperation, asg.ClassDateOperation, asg.ClassArithmetic:
		return 1
	case asg.ClassConditional, asg.ClassAggregation:
		return 2
	default: // window functions and complex shapes
		return 3
	}
}

func provenance(node *asg.Node, location string) Provenance {
	p := Provenance{
		Source:    "dsx",
		Location:  location,
		LineStart: "--",
		LineEnd:   "--",
	}

	if node.LineStart > 0 {
		p.LineStart = strconv.Itoa(node.LineStart)
	}

	if node.LineEnd > 0 {
		p.LineEnd = strconv.Itoa(node.LineEnd)
	}

	return p
}

// track aggregates transformation statistics across the document.
func track(nodes []*Node, schemas map[string][]Column) Tracking {
	t := Tracking{
		TransformationTypes:    make(map[string]int),
		ComplexityDistribution: make(map[string]int),
	}

	for _, node := range nodes {
		t.TotalTransformations += node.Details.TransformationCount

		switch {
		case node.Details.TransformationCount == 0:
		case node.Details.ComplexityScore < 2:
			t.ComplexityDistribution["low"]++
		case node.Details.ComplexityScore < 5:
			t.ComplexityDistribution["medium"]++
		default:
			t.ComplexityDistribution["high"]++
		}

		for _, col := range schemas[node.SchemaRef] {
			if col.Classification != "" {
				t.TransformationTypes[col.Classification]++
			}
		}
	}

	return t
}

func sanitizeJobName(name string) string {
	s := strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(name)
	s = jobNameSanitizeRe.ReplaceAllString(s, "")

	if s == "" {
		return "UnknownJob"
	}

	return s
}
