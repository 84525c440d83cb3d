package talend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hupe1980/dsx2talend/internal/ir"
	"github.com/hupe1980/dsx2talend/internal/mapping"
)

// componentDefault is the last-resort resolution rule when neither the
// repository nor the node's props name a component.
func componentDefault(irType, irSubtype string) string {
	isDB := irSubtype == ir.SubtypeDatabase || irSubtype == "DB2" || irSubtype == "ODBC" ||
		irSubtype == "Oracle" || irSubtype == "SQLServer"

	switch {
	case irType == ir.TypeSource && irSubtype == ir.SubtypeFile:
		return ComponentFileInput
	case irType == ir.TypeSink && irSubtype == ir.SubtypeFile:
		return ComponentFileOutput
	case irType == ir.TypeSource && isDB:
		return ComponentDBInput
	case irType == ir.TypeSink && isDB:
		return ComponentDBOutput
	case irType == ir.TypeTransform && irSubtype == ir.SubtypeMap:
		return ComponentMap
	default:
		return ""
	}
}

// componentOverrides pins well-known pairs to their Talend components
// regardless of what the repository returned; mapping databases seeded from
// DataStage exports sometimes carry DataStage component names.
var componentOverrides = map[mapping.Key]string{
	{Type: ir.TypeSource, Subtype: ir.SubtypeFile}:     ComponentFileInput,
	{Type: ir.TypeSource, Subtype: ir.SubtypeDatabase}: ComponentDBInput,
	{Type: ir.TypeTransform, Subtype: ir.SubtypeMap}:   ComponentMap,
	{Type: ir.TypeTransform, Subtype: "Filter"}:        "tFilterRow",
	{Type: ir.TypeTransform, Subtype: "Aggregate"}:     "tAggregateRow",
	{Type: ir.TypeSink, Subtype: ir.SubtypeFile}:       ComponentFileOutput,
	{Type: ir.TypeSink, Subtype: ir.SubtypeDatabase}:   ComponentDBOutput,
}

// BuildOptions configures the IR→Talend job construction.
type BuildOptions struct {
	// Repository resolves (type, subtype) pairs to component names.
	// Nil selects the built-in static table.
	Repository mapping.Repository

	// IncludeDBComponents keeps tDBInput/tDBOutput nodes in the output.
	// When false, DB nodes and their links are dropped.
	IncludeDBComponents bool

	// Strict fails on unmappable nodes instead of emitting tUnknown.
	Strict bool

	// Logger receives diagnostics. Nil selects slog.Default().
	Logger *slog.Logger
}

// Builder constructs the Talend job graph from an IR document.
type Builder struct {
	opts   BuildOptions
	repo   mapping.Repository
	logger *slog.Logger
}

// NewBuilder creates a builder with the given options.
func NewBuilder(opts BuildOptions) *Builder {
	b := &Builder{opts: opts, repo: opts.Repository, logger: opts.Logger}
	if b.repo == nil {
		b.repo = mapping.NewStatic()
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Build converts the document into an in-memory Talend job.
func (b *Builder) Build(ctx context.Context, doc *ir.Document) (*Job, error) {
	// 1. Resolve every node's component up front; DB filtering and link
	// policing need the resolution.
	components := make(map[string]string, len(doc.Nodes))

	for _, node := range doc.Nodes {
		component, err := b.resolveComponent(ctx, node)
		if err != nil {
			return nil, err
		}

		components[node.ID] = component
	}

	// 2. Drop DB components when passthrough is disabled.
	excluded := make(map[string]bool)
	nodes := make([]*ir.Node, 0, len(doc.Nodes))

	for _, node := range doc.Nodes {
		component := components[node.ID]
		if !b.opts.IncludeDBComponents && (component == ComponentDBInput || component == ComponentDBOutput) {
			excluded[node.ID] = true

			b.logger.Debug("excluding DB component",
				slog.String("node", node.Name), slog.String("component", component))

			continue
		}

		nodes = append(nodes, node)
	}

	// 3. Police links against Talend's data-flow rules.
	links := b.policeLinks(doc, excluded)

	// 4. Build Talend nodes on the layout grid.
	job := &Job{Name: doc.Job.Name}

	for _, p := range doc.Job.Parameters {
		job.ContextParams = append(job.ContextParams, ContextParam{
			Name:   p.Name,
			Prompt: p.Prompt,
			Value:  p.Default,
		})
	}

	layout := selectLayout(len(nodes))

	for idx, node := range nodes {
		talendNode := b.buildNode(doc, node, components[node.ID], idx, layout, links)
		job.Nodes = append(job.Nodes, talendNode)
	}

	enforceFlowLayout(job.Nodes, layout)

	// 5. Connections from the surviving links.
	for _, link := range links {
		from := doc.Node(link.From.NodeID)
		to := doc.Node(link.To.NodeID)

		label := rowLabel(from.Name)
		job.Connections = append(job.Connections, &Connection{
			Source:        from.Name,
			Target:        to.Name,
			ConnectorName: "FLOW",
			Label:         label,
			LineStyle:     "0",
			Metaname:      from.Name,
			OffsetLabelX:  "0",
			OffsetLabelY:  "0",
			Parameters:    connectionParameters(label),
		})
	}

	return job, nil
}

// resolveComponent runs the resolution chain: repository (type, subtype),
// repository (type, ""), the node's customType prop, the hard-coded
// defaults, then the override table for well-known pairs.
func (b *Builder) resolveComponent(ctx context.Context, node *ir.Node) (string, error) {
	component := ""

	for _, key := range []mapping.Key{
		{Type: node.Type, Subtype: node.Subtype},
		{Type: node.Type, Subtype: ""},
	} {
		resolved, err := b.repo.Lookup(ctx, key.Type, key.Subtype)
		if err == nil {
			component = resolved
			break
		}

		if !errors.Is(err, mapping.ErrNotFound) {
			return "", fmt.Errorf("looking up component for %s: %w", key, err)
		}
	}

	if component == "" {
		if custom, ok := node.Props["customType"].(string); ok && custom != "" {
			component = custom
		}
	}

	if component == "" {
		component = componentDefault(node.Type, node.Subtype)
	}

	if override, ok := componentOverrides[mapping.Key{Type: node.Type, Subtype: node.Subtype}]; ok {
		component = override
	}

	if component == "" {
		if b.opts.Strict {
			return "", &CodeGenError{
				Phase: "component resolution",
				Msg:   fmt.Sprintf("no component mapping for node %s (%s/%s)", node.Name, node.Type, node.Subtype),
			}
		}

		b.logger.Warn("no component mapping, emitting tUnknown",
			slog.String("node", node.Name),
			slog.String("type", node.Type), slog.String("subtype", node.Subtype))

		component = ComponentUnknown
	}

	return component, nil
}

// policeLinks enforces Talend's DAG semantics on the IR link set: no link
// out of a sink, none into a source, one direction per node pair, and
// nothing touching excluded nodes.
func (b *Builder) policeLinks(doc *ir.Document, excluded map[string]bool) []ir.Link {
	var out []ir.Link

	for _, link := range doc.Links {
		fromID := link.From.NodeID
		toID := link.To.NodeID

		if excluded[fromID] || excluded[toID] {
			b.logger.Debug("dropping link to excluded node", slog.String("link", link.ID))
			continue
		}

		from := doc.Node(fromID)
		to := doc.Node(toID)

		if from == nil || to == nil {
			b.logger.Warn("dropping link with unknown endpoint", slog.String("link", link.ID))
			continue
		}

		if from.Type == ir.TypeSink {
			b.logger.Debug("dropping link out of sink", slog.String("link", link.ID))
			continue
		}

		if to.Type == ir.TypeSource {
			b.logger.Debug("dropping link into source", slog.String("link", link.ID))
			continue
		}

		// For a bidirectional pair, only the direction whose source has
		// the smaller IR ID survives.
		if hasReverse(doc.Links, fromID, toID) && fromID > toID {
			b.logger.Debug("dropping reverse direction of bidirectional pair", slog.String("link", link.ID))
			continue
		}

		out = append(out, link)
	}

	return out
}

func hasReverse(links []ir.Link, fromID, toID string) bool {
	for _, l := range links {
		if l.From.NodeID == toID && l.To.NodeID == fromID {
			return true
		}
	}

	return false
}

// buildNode constructs one Talend node: position, parameters, metadata, and
// component-specific node data.
func (b *Builder) buildNode(doc *ir.Document, node *ir.Node, component string, idx int, layout layoutConfig, links []ir.Link) *Node {
	posX, posY := layout.position(idx)

	cols := b.resolveSchema(doc, node, component, links)

	talendNode := &Node{
		ComponentName:    component,
		ComponentVersion: componentVersion(component),
		UniqueName:       node.Name,
		PosX:             posX,
		PosY:             posY,
		SchemaColumns:    cols,
		Props:            node.Props,
	}

	incoming := incomingInputs(doc, node.ID, links)
	outgoing := countOutgoing(node.ID, links)

	switch component {
	case ComponentFileInput:
		talendNode.Parameters = fileInputParameters(node.Props, node.Name, cols)
		talendNode.Metadata = []Metadata{{Connector: "FLOW", Name: node.Name, Columns: metadataColumns(cols)}}
		talendNode.Metadata = append(talendNode.Metadata, rejectMetadata(cols))
	case ComponentFileOutput:
		talendNode.Parameters = fileOutputParameters(node.Props, node.Name)
		talendNode.Metadata = []Metadata{{Connector: "FLOW", Name: node.Name, Columns: metadataColumns(cols)}}
	case ComponentMap:
		talendNode.Parameters = tMapParameters(node.Name)
		talendNode.Metadata, talendNode.NodeData = buildMapperData(cols, incoming, outgoing)
	case ComponentDBInput, ComponentDBOutput:
		talendNode.Parameters = dbParameters(node.Props, node.Name)
		talendNode.Metadata = []Metadata{{Connector: "FLOW", Name: node.Name, Columns: metadataColumns(cols)}}
	default:
		talendNode.Parameters = genericParameters(node.Name)
		if len(cols) > 0 {
			talendNode.Metadata = []Metadata{{Connector: "FLOW", Name: "row1", Columns: metadataColumns(cols)}}
		}
	}

	return talendNode
}

func componentVersion(component string) string {
	if component == ComponentMap {
		return TMapComponentVersion
	}

	return DefaultComponentVersion
}

// resolveSchema finds the columns for a node: its own schema first, then the
// incoming link's, then — for sources — the outgoing link's or the
// downstream node's. This keeps Talend's mandatory metadata blocks
// non-empty wherever semantically possible.
func (b *Builder) resolveSchema(doc *ir.Document, node *ir.Node, component string, links []ir.Link) []SchemaColumn {
	if node.SchemaRef != "" {
		if cols := doc.Schemas[node.SchemaRef]; len(cols) > 0 {
			return schemaColumns(cols)
		}
	}

	// Adopt the incoming link's schema.
	for _, link := range links {
		if link.To.NodeID != node.ID {
			continue
		}

		if cols := doc.Schemas[link.SchemaRef]; len(cols) > 0 {
			b.logger.Debug("propagating schema from incoming link",
				slog.String("node", node.Name), slog.String("schema", link.SchemaRef))

			return schemaColumns(cols)
		}
	}

	// Sources probe downstream.
	if node.Type == ir.TypeSource || strings.HasPrefix(component, "tFileInput") {
		for _, link := range links {
			if link.From.NodeID != node.ID {
				continue
			}

			if cols := doc.Schemas[link.SchemaRef]; len(cols) > 0 {
				return schemaColumns(cols)
			}

			if target := doc.Node(link.To.NodeID); target != nil && target.SchemaRef != "" {
				if cols := doc.Schemas[target.SchemaRef]; len(cols) > 0 {
					return schemaColumns(cols)
				}
			}
		}
	}

	return nil
}

// incomingInputs collects the incoming connections of a node as mapper
// inputs: row name and upstream schema.
func incomingInputs(doc *ir.Document, nodeID string, links []ir.Link) []mapperInput {
	var inputs []mapperInput

	for _, link := range links {
		if link.To.NodeID != nodeID {
			continue
		}

		from := doc.Node(link.From.NodeID)
		if from == nil {
			continue
		}

		inputs = append(inputs, mapperInput{
			rowName: rowLabel(from.Name),
			columns: schemaColumns(doc.Schemas[link.SchemaRef]),
		})
	}

	return inputs
}

func countOutgoing(nodeID string, links []ir.Link) int {
	count := 0

	for _, link := range links {
		if link.From.NodeID == nodeID {
			count++
		}
	}

	return count
}
