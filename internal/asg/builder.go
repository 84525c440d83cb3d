package asg

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hupe1980/dsx2talend/internal/dsx"
)

// Identifier shapes of the records making up a job.
var (
	rootIdentRe      = regexp.MustCompile(`^ROOT$`)
	containerIdentRe = regexp.MustCompile(`^V\d+$`)
	stageIdentRe     = regexp.MustCompile(`^V\d+S\d+$`)
	pinIdentRe       = regexp.MustCompile(`^(V\d+S\d+)P\d+$`)
)

// metadataFields are preserved internal subrecord names that land in the
// metadata bucket instead of configuration.
var metadataFields = map[string]bool{
	"StageRecordID": true,
	"ViewData":      true,
	"NextRecordID":  true,
}

// BuilderOptions configures the ASG builder.
type BuilderOptions struct {
	// Strict promotes warnings (dangling partners, malformed columns,
	// duplicate stage names) to errors.
	Strict bool

	// Logger receives warnings. Nil selects slog.Default().
	Logger *slog.Logger
}

// Builder constructs a Job graph from a parsed record forest.
type Builder struct {
	opts   BuilderOptions
	logger *slog.Logger
}

// NewBuilder creates a builder with the given options.
func NewBuilder(opts BuilderOptions) *Builder {
	b := &Builder{opts: opts, logger: opts.Logger}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Build resolves the pin/partner graph of the forest's DSJOB block into a
// fully linked Job.
func (b *Builder) Build(forest *dsx.Forest) (*Job, error) {
	jobRec := forest.Job()
	if jobRec == nil {
		return nil, &BuildError{Msg: "no DSJOB block found"}
	}

	job := &Job{Name: jobRec.Identifier()}
	job.Warnings = append(job.Warnings, forest.Warnings...)

	warn := func(format string, args ...any) error {
		msg := fmt.Sprintf(format, args...)
		if b.opts.Strict {
			return &BuildError{Msg: msg}
		}

		job.Warnings = append(job.Warnings, msg)
		b.logger.Warn("asg builder", slog.String("detail", msg))

		return nil
	}

	// 1. Partition records by identifier shape.
	var (
		rootRec      *dsx.Record
		containerRec *dsx.Record
		stageRecs    []*dsx.Record
		pinRecs      []*dsx.Record
	)

	for _, rec := range jobRec.Subrecords {
		if rec.BlockType != dsx.BlockRecord {
			continue
		}

		ident := rec.Identifier()

		switch {
		case rootIdentRe.MatchString(ident):
			rootRec = rec
		case containerIdentRe.MatchString(ident):
			containerRec = rec
		case stageIdentRe.MatchString(ident):
			stageRecs = append(stageRecs, rec)
		case pinIdentRe.MatchString(ident):
			pinRecs = append(pinRecs, rec)
		default:
			if err := warn("record %q does not match any known identifier shape", ident); err != nil {
				return nil, err
			}
		}
	}

	if len(stageRecs) == 0 {
		return nil, &BuildError{Msg: "no stage records found"}
	}

	// 2. Job metadata and parameters from ROOT.
	if rootRec != nil {
		if name := rootRec.Field("Name"); name != "" {
			job.Name = name
		}

		job.Parameters = extractParameters(rootRec)
	}

	// 3. Container parallel arrays.
	if containerRec != nil {
		job.Container = extractContainer(containerRec)
	}

	// 4. Stages.
	for _, rec := range stageRecs {
		node := b.buildNode(rec, job.Container)
		job.Nodes = append(job.Nodes, node)

		if et := node.EnhancedType; !knownStageTypes[et] && et != TypeCustomStage && !strings.Contains(et, "Connector") {
			if err := warn("stage %q: unknown stage type %q", node.ID, node.StageType); err != nil {
				return nil, err
			}
		}
	}

	if err := b.checkDuplicateNames(job, warn); err != nil {
		return nil, err
	}

	// 5. Pins with schemas.
	if err := b.attachPins(job, pinRecs, warn); err != nil {
		return nil, err
	}

	// 6. Edges from partner references and container link arrays.
	if err := b.buildEdges(job, warn); err != nil {
		return nil, err
	}

	// 7. Join types from target-stage operators.
	inferJoinTypes(job)

	return job, nil
}

// extractParameters reads job parameters from the ROOT record's subrecords.
func extractParameters(root *dsx.Record) []Parameter {
	var params []Parameter

	for _, sub := range root.Subrecords {
		name := sub.Field("Name")
		if name == "" {
			continue
		}

		if !sub.Has("Prompt") && !sub.Has("Default") && !sub.Has("ParamType") {
			continue
		}

		def := sub.Field("Default")
		if def == "" {
			def = sub.Field("DefaultValue")
		}

		params = append(params, Parameter{
			Name:    name,
			Prompt:  sub.Field("Prompt"),
			Default: def,
		})
	}

	return params
}

// extractContainer reads the container record's parallel arrays.
func extractContainer(rec *dsx.Record) ContainerInfo {
	return ContainerInfo{
		ID:               rec.Identifier(),
		StageList:        splitList(rec.Field("StageList")),
		StageNames:       splitList(rec.Field("StageNames")),
		StageTypes:       splitList(rec.Field("StageTypes")),
		LinkSourcePinIDs: splitList(rec.Field("LinkSourcePinIDs")),
		TargetStageIDs:   splitList(rec.Field("TargetStageIDs")),
	}
}

// splitList splits a pipe-separated DSX list field.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	var out []string

	for _, item := range strings.Split(raw, "|") {
		if item != "" {
			out = append(out, item)
		}
	}

	return out
}

// buildNode creates a Node from a stage record, falling back to the
// container's parallel arrays for names and types.
func (b *Builder) buildNode(rec *dsx.Record, container ContainerInfo) *Node {
	id := rec.Identifier()

	node := &Node{
		ID:        id,
		Name:      rec.Field("Name"),
		StageType: rec.Field("StageType"),
		OLEType:   rec.Field("OLEType"),
		LineStart: rec.LineStart,
		LineEnd:   rec.LineEnd,
	}

	if idx := indexOf(container.StageList, id); idx >= 0 {
		if node.Name == "" && idx < len(container.StageNames) {
			node.Name = container.StageNames[idx]
		}

		if node.StageType == "" && idx < len(container.StageTypes) {
			node.StageType = container.StageTypes[idx]
		}
	}

	if node.Name == "" {
		node.Name = id
	}

	node.InputPinIDs = splitList(rec.Field("InputPins"))
	node.OutputPinIDs = splitList(rec.Field("OutputPins"))

	node.Properties = extractProperties(rec)
	node.EnhancedType = classifyEnhancedType(node.StageType, node.OLEType, node.Properties)

	return node
}

// extractProperties walks a stage record's subrecords, categorizing each
// into the configuration, APT, or metadata bucket.
func extractProperties(rec *dsx.Record) Properties {
	props := Properties{
		Configuration: make(map[string]string),
		APT:           make(map[string]string),
		Metadata:      make(map[string]string),
	}

	for _, sub := range rec.Subrecords {
		name := sub.Field("Name")
		if name == "" {
			continue
		}

		value := sub.Field("Value")

		switch {
		case sub.Field("Owner") == "APT":
			// Engine properties that survived the parser's preserve
			// filter are kept verbatim.
			props.APT[name] = value
		case metadataFields[name]:
			props.Metadata[name] = value
		default:
			props.Configuration[name] = DecodeValue(value)
		}
	}

	return props
}

// attachPins associates pin records to their stages, resolving direction and
// extracting column schemas.
func (b *Builder) attachPins(job *Job, pinRecs []*dsx.Record, warn func(string, ...any) error) error {
	for _, rec := range pinRecs {
		pinID := rec.Identifier()

		m := pinIdentRe.FindStringSubmatch(pinID)
		node := job.Node(m[1])

		if node == nil {
			// Prefix match failed; fall back to the stages' pin lists.
			node = findNodeByPinList(job, pinID)
		}

		if node == nil {
			if err := warn("pin %q has no owning stage", pinID); err != nil {
				return err
			}

			continue
		}

		pin := &Pin{
			ID:         pinID,
			Name:       rec.Field("Name"),
			Direction:  pinDirection(rec, node, pinID),
			Partner:    rec.Field("Partner"),
			Properties: make(map[string]string),
		}

		if pin.Direction == DirUnknown {
			if err := warn("pin %q has no resolvable direction", pinID); err != nil {
				return err
			}
		}

		for key, val := range rec.Fields {
			switch key {
			case "Identifier", "Name", "Partner", "OLEType":
				continue
			}

			pin.Properties[key] = val.AsString()
		}

		cols, err := b.extractColumns(rec, pinID, warn)
		if err != nil {
			return err
		}

		pin.Schema = cols
		node.Pins = append(node.Pins, pin)
	}

	return nil
}

// pinDirection resolves a pin's direction: the OLE type first, then
// membership in the stage's declared pin lists.
func pinDirection(rec *dsx.Record, node *Node, pinID string) Direction {
	switch rec.Field("OLEType") {
	case "CTrxInput":
		return DirInput
	case "CTrxOutput":
		return DirOutput
	}

	if indexOf(node.InputPinIDs, pinID) >= 0 {
		return DirInput
	}

	if indexOf(node.OutputPinIDs, pinID) >= 0 {
		return DirOutput
	}

	return DirUnknown
}

func findNodeByPinList(job *Job, pinID string) *Node {
	for _, node := range job.Nodes {
		if indexOf(node.InputPinIDs, pinID) >= 0 || indexOf(node.OutputPinIDs, pinID) >= 0 {
			return node
		}
	}

	return nil
}

// extractColumns reads schema columns from a pin record's subrecords. A
// subrecord is a column when it carries a SqlType field.
func (b *Builder) extractColumns(rec *dsx.Record, pinID string, warn func(string, ...any) error) ([]Column, error) {
	var cols []Column

	for _, sub := range rec.Subrecords {
		if !sub.Has("SqlType") {
			continue
		}

		name := sub.Field("Name")
		if name == "" {
			if b.opts.Strict {
				return nil, &SchemaError{Pin: pinID, Msg: "column without a name"}
			}

			if err := warn("pin %q: skipping column without a name", pinID); err != nil {
				return nil, err
			}

			continue
		}

		sqlType := fieldInt(sub, "SqlType")
		precision := fieldInt(sub, "Precision")

		length := fieldInt(sub, "Length")
		if length == 0 {
			// DataStage exports carry display length in Precision.
			length = precision
		}

		col := Column{
			Name:       name,
			SQLType:    sqlType,
			TypeName:   SQLTypeName(sqlType),
			TalendType: TalendTypeHint(sqlType),
			Length:     length,
			Precision:  precision,
			Scale:      fieldInt(sub, "Scale"),
			Nullable:   fieldBool(sub, "Nullable", true),
			Derivation: sub.Field("Derivation"),
		}
		col.Logic = ClassifyDerivation(col.Derivation)

		cols = append(cols, col)
	}

	return cols, nil
}

func fieldInt(rec *dsx.Record, name string) int {
	if v, ok := rec.Fields[name]; ok {
		if n, ok := v.AsInt(); ok {
			return int(n)
		}
	}

	return 0
}

func fieldBool(rec *dsx.Record, name string, def bool) bool {
	if v, ok := rec.Fields[name]; ok {
		return v.AsBool()
	}

	return def
}

// buildEdges creates edges from per-pin partner references, then fills any
// the partners missed from the container's link arrays. Edges are
// deduplicated on (from pin, to pin).
func (b *Builder) buildEdges(job *Job, warn func(string, ...any) error) error {
	seen := make(map[string]bool)

	add := func(e Edge) {
		key := e.FromPin + "→" + e.ToPin
		if seen[key] {
			return
		}

		seen[key] = true

		job.Edges = append(job.Edges, e)
	}

	// Partner references.
	for _, node := range job.Nodes {
		for _, pin := range node.Pins {
			if pin.Partner == "" {
				continue
			}

			partnerNodeID, partnerPinID, ok := splitPartner(pin.Partner)
			if !ok {
				if err := warn("pin %q: malformed partner reference %q", pin.ID, pin.Partner); err != nil {
					return err
				}

				continue
			}

			partnerNode, partnerPin := job.Pin(partnerPinID)
			if partnerNode == nil || partnerNode.ID != partnerNodeID {
				if err := warn("pin %q: dangling partner reference %q", pin.ID, pin.Partner); err != nil {
					return err
				}

				continue
			}

			switch pin.Direction {
			case DirOutput:
				add(Edge{
					FromNode: node.ID, FromPin: pin.ID, FromPinName: pin.Name,
					ToNode: partnerNode.ID, ToPin: partnerPin.ID, ToPinName: partnerPin.Name,
					JoinType: "unknown",
				})
			case DirInput:
				add(Edge{
					FromNode: partnerNode.ID, FromPin: partnerPin.ID, FromPinName: partnerPin.Name,
					ToNode: node.ID, ToPin: pin.ID, ToPinName: pin.Name,
					JoinType: "unknown",
				})
			}
		}
	}

	// Container link arrays fill edges the partner references missed.
	srcPins := job.Container.LinkSourcePinIDs
	targets := job.Container.TargetStageIDs

	for i, srcPinID := range srcPins {
		if i >= len(targets) {
			if err := warn("container link arrays misaligned: %d source pins, %d targets", len(srcPins), len(targets)); err != nil {
				return err
			}

			break
		}

		srcNode, srcPin := job.Pin(srcPinID)
		if srcNode == nil {
			if err := warn("container link source pin %q not found", srcPinID); err != nil {
				return err
			}

			continue
		}

		tgtNode := job.Node(targets[i])
		if tgtNode == nil {
			if err := warn("container link target stage %q not found", targets[i]); err != nil {
				return err
			}

			continue
		}

		tgtPin := targetInputPin(tgtNode, srcNode.ID, srcPinID)
		if tgtPin == nil {
			if err := warn("container link target stage %q has no input pin", tgtNode.ID); err != nil {
				return err
			}

			continue
		}

		add(Edge{
			FromNode: srcNode.ID, FromPin: srcPin.ID, FromPinName: srcPin.Name,
			ToNode: tgtNode.ID, ToPin: tgtPin.ID, ToPinName: tgtPin.Name,
			JoinType: "unknown",
		})
	}

	return nil
}

// targetInputPin picks the input pin of a link target: the one whose partner
// reference cites the source, else the first input pin.
func targetInputPin(node *Node, srcNodeID, srcPinID string) *Pin {
	inputs := node.InputPins()

	for _, pin := range inputs {
		if pin.Partner == "" {
			continue
		}

		if pNode, pPin, ok := splitPartner(pin.Partner); ok {
			if pNode == srcNodeID || pPin == srcPinID {
				return pin
			}
		}
	}

	if len(inputs) > 0 {
		return inputs[0]
	}

	return nil
}

// splitPartner parses a "V<d>S<d>|V<d>S<d>P<d>" partner reference.
func splitPartner(raw string) (nodeID, pinID string, ok bool) {
	parts := strings.SplitN(raw, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// inferJoinTypes sets edge join types from the target stage's operator
// property.
func inferJoinTypes(job *Job) {
	for i := range job.Edges {
		tgt := job.Node(job.Edges[i].ToNode)
		if tgt == nil {
			continue
		}

		op := strings.ToLower(tgt.Properties.Configuration["operator"])
		if op == "" {
			op = strings.ToLower(tgt.Properties.APT["operator"])
		}

		for _, join := range []string{"leftouter", "fullouter", "inner"} {
			if strings.Contains(op, join) {
				job.Edges[i].JoinType = join
				break
			}
		}
	}
}

func (b *Builder) checkDuplicateNames(job *Job, warn func(string, ...any) error) error {
	seen := make(map[string]string)

	for _, node := range job.Nodes {
		if prev, ok := seen[node.Name]; ok {
			if err := warn("duplicate stage name %q (%s and %s)", node.Name, prev, node.ID); err != nil {
				return err
			}

			continue
		}

		seen[node.Name] = node.ID
	}

	return nil
}

func indexOf(list []string, s string) int {
	for i, item := range list {
		if item == s {
			return i
		}
	}

	return -1
}
