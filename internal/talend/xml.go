package talend

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
)

// Namespace URIs of the .item process XML.
const (
	nsXMI          = "http://www.omg.org/XMI"
	nsXSI          = "http://www.w3.org/2001/XMLSchema-instance"
	nsTalendMapper = "http://www.talend.org/mapper"
	nsTalendFile   = "platform:/resource/org.talend.model/model/TalendFile.xsd"
)

// EmitOptions configures the .item emitter.
type EmitOptions struct {
	// Templates provides the component XML templates for the file I/O
	// components. Nil selects the embedded set.
	Templates *TemplateSet

	// Logger receives diagnostics. Nil selects slog.Default().
	Logger *slog.Logger
}

// Emitter serializes a Talend job graph to .item process XML.
type Emitter struct {
	templates *TemplateSet
	logger    *slog.Logger
}

// NewEmitter creates an emitter with the given options.
func NewEmitter(opts EmitOptions) *Emitter {
	e := &Emitter{templates: opts.Templates, logger: opts.Logger}
	if e.templates == nil {
		e.templates = EmbeddedTemplates()
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Emit renders the job as a talendfile:ProcessType document and verifies
// that the output re-parses as well-formed XML.
func (e *Emitter) Emit(job *Job) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("talendfile:ProcessType")
	root.CreateAttr("xmi:version", "2.0")
	root.CreateAttr("xmlns:xmi", nsXMI)
	root.CreateAttr("xmlns:xsi", nsXSI)
	root.CreateAttr("xmlns:TalendMapper", nsTalendMapper)
	root.CreateAttr("xmlns:talendfile", nsTalendFile)
	root.CreateAttr("defaultContext", "Default")
	root.CreateAttr("jobType", "Standard")

	e.appendContext(root, job)
	root.CreateElement("parameters")

	for _, node := range job.Nodes {
		if err := e.appendNode(root, node); err != nil {
			return "", err
		}
	}

	for _, conn := range job.Connections {
		appendConnection(root, conn)
	}

	appendSubjob(root, job)

	doc.Indent(2)

	out, err := doc.WriteToString()
	if err != nil {
		return "", &CodeGenError{Phase: "serialization", Msg: err.Error()}
	}

	if err := validateWellFormed(out); err != nil {
		return "", err
	}

	return out, nil
}

// appendContext writes the Default context with the job's parameters.
func (e *Emitter) appendContext(root *etree.Element, job *Job) {
	ctx := root.CreateElement("context")
	ctx.CreateAttr("confirmationNeeded", "false")
	ctx.CreateAttr("name", "Default")

	for _, param := range job.ContextParams {
		p := ctx.CreateElement("contextParameter")
		p.CreateAttr("comment", "")
		p.CreateAttr("name", param.Name)
		p.CreateAttr("prompt", param.Prompt)
		p.CreateAttr("promptNeeded", "false")
		p.CreateAttr("type", "id_String")
		p.CreateAttr("value", param.Value)
	}
}

// appendNode writes one node element. The file I/O components render from
// their templates first, falling back to programmatic construction; both
// paths produce equivalent XML.
func (e *Emitter) appendNode(root *etree.Element, node *Node) error {
	if e.templates != nil {
		if el, ok := e.renderTemplated(node); ok {
			root.AddChild(el)
			return nil
		}
	}

	root.AddChild(buildNodeElement(node))

	return nil
}

// renderTemplated renders a component template and parses the result back
// into an element. A failed render or parse falls through to the
// programmatic path.
func (e *Emitter) renderTemplated(node *Node) (*etree.Element, bool) {
	rendered, err := e.templates.Render(node)
	if err != nil {
		if !strings.Contains(err.Error(), "no template") {
			e.logger.Warn("component template render failed, using programmatic emission",
				slog.String("component", node.ComponentName), slog.String("error", err.Error()))
		}

		return nil, false
	}

	parsed := etree.NewDocument()
	if err := parsed.ReadFromString(rendered); err != nil {
		e.logger.Warn("component template produced unparseable XML, using programmatic emission",
			slog.String("component", node.ComponentName), slog.String("error", err.Error()))

		return nil, false
	}

	el := parsed.Root()
	if el == nil {
		return nil, false
	}

	parsed.RemoveChild(el)

	return el, true
}

// buildNodeElement constructs a node element programmatically.
func buildNodeElement(node *Node) *etree.Element {
	el := etree.NewElement("node")
	el.CreateAttr("componentName", node.ComponentName)
	el.CreateAttr("componentVersion", node.ComponentVersion)
	el.CreateAttr("offsetLabelX", "0")
	el.CreateAttr("offsetLabelY", "0")
	el.CreateAttr("posX", fmt.Sprintf("%d", node.PosX))
	el.CreateAttr("posY", fmt.Sprintf("%d", node.PosY))

	for _, param := range node.Parameters {
		appendElementParameter(el, param)
	}

	for _, md := range node.Metadata {
		appendMetadata(el, md)
	}

	if node.NodeData != nil {
		appendMapperData(el, node.NodeData)
	} else if len(node.GenericNodeData) > 0 {
		appendGenericNodeData(el, node.GenericNodeData)
	}

	return el
}

// appendElementParameter writes one elementParameter. The show attribute is
// elided unless explicitly set.
func appendElementParameter(parent *etree.Element, param ElementParameter) {
	el := parent.CreateElement("elementParameter")
	el.CreateAttr("field", param.Field)
	el.CreateAttr("name", param.Name)

	if param.Field != FieldTable {
		el.CreateAttr("value", param.Value)
	}

	if param.Show != nil {
		el.CreateAttr("show", boolString(*param.Show))
	}

	for i, row := range param.TableRows {
		rowEl := el.CreateElement("elementValue")
		rowEl.CreateAttr("elementRef", row.ElementRef)
		rowEl.CreateAttr("value", row.Value)
		rowEl.CreateAttr("id", fmt.Sprintf("%d", i))
	}
}

// appendMetadata writes one metadata block with its columns.
func appendMetadata(parent *etree.Element, md Metadata) {
	el := parent.CreateElement("metadata")
	el.CreateAttr("connector", md.Connector)
	el.CreateAttr("name", md.Name)

	for _, col := range md.Columns {
		colEl := el.CreateElement("column")

		// Error columns carry defaultValue instead of comment/pattern.
		if col.HasDefault {
			colEl.CreateAttr("defaultValue", col.DefaultValue)
		} else {
			colEl.CreateAttr("comment", col.Comment)
		}

		colEl.CreateAttr("key", col.Key)
		colEl.CreateAttr("length", col.Length)
		colEl.CreateAttr("name", col.Name)
		colEl.CreateAttr("nullable", col.Nullable)

		if !col.HasDefault {
			colEl.CreateAttr("pattern", col.Pattern)
		}

		colEl.CreateAttr("precision", col.Precision)
		colEl.CreateAttr("sourceType", col.SourceType)
		colEl.CreateAttr("type", col.Type)
		colEl.CreateAttr("originalLength", col.OriginalLength)
		colEl.CreateAttr("usefulColumn", col.UsefulColumn)
	}
}

// appendMapperData writes the tMap TalendMapper:MapperData dialect.
func appendMapperData(parent *etree.Element, data *MapperData) {
	el := parent.CreateElement("nodeData")
	el.CreateAttr("xsi:type", "TalendMapper:MapperData")

	el.CreateElement("uiProperties")

	for _, vt := range data.VarTables {
		vtEl := el.CreateElement("varTables")
		vtEl.CreateAttr("sizeState", vt.SizeState)
		vtEl.CreateAttr("name", vt.Name)
		vtEl.CreateAttr("minimized", boolString(vt.Minimized))
	}

	for _, out := range data.OutputTables {
		outEl := el.CreateElement("outputTables")
		outEl.CreateAttr("sizeState", out.SizeState)
		outEl.CreateAttr("name", out.Name)

		for _, entry := range out.Entries {
			entryEl := outEl.CreateElement("mapperTableEntries")
			entryEl.CreateAttr("name", entry.Name)
			entryEl.CreateAttr("expression", entry.Expression)
			entryEl.CreateAttr("type", entry.Type)
			entryEl.CreateAttr("nullable", entry.Nullable)
		}
	}

	for _, in := range data.InputTables {
		inEl := el.CreateElement("inputTables")
		inEl.CreateAttr("sizeState", in.SizeState)
		inEl.CreateAttr("name", in.Name)
		inEl.CreateAttr("matchingMode", in.MatchingMode)
		inEl.CreateAttr("lookupMode", in.LookupMode)

		for _, entry := range in.Entries {
			entryEl := inEl.CreateElement("mapperTableEntries")
			entryEl.CreateAttr("name", entry.Name)
			entryEl.CreateAttr("type", entry.Type)
			entryEl.CreateAttr("nullable", entry.Nullable)
		}
	}
}

// appendGenericNodeData serializes non-tMap node data as JSON in CDATA.
func appendGenericNodeData(parent *etree.Element, data map[string]interface{}) {
	blob, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return
	}

	el := parent.CreateElement("nodeData")
	el.CreateCData(string(blob))
}

// appendConnection writes one connection element with its parameters.
func appendConnection(root *etree.Element, conn *Connection) {
	el := root.CreateElement("connection")
	el.CreateAttr("connectorName", conn.ConnectorName)
	el.CreateAttr("label", conn.Label)
	el.CreateAttr("lineStyle", conn.LineStyle)
	el.CreateAttr("metaname", conn.Metaname)
	el.CreateAttr("offsetLabelX", conn.OffsetLabelX)
	el.CreateAttr("offsetLabelY", conn.OffsetLabelY)
	el.CreateAttr("source", conn.Source)
	el.CreateAttr("target", conn.Target)

	for _, param := range conn.Parameters {
		appendElementParameter(el, param)
	}
}

// appendSubjob writes the subjob block Talend requires, anchored to the
// first node.
func appendSubjob(root *etree.Element, job *Job) {
	if len(job.Nodes) == 0 {
		return
	}

	el := root.CreateElement("subjob")

	appendElementParameter(el, ElementParameter{Field: FieldText, Name: "UNIQUE_NAME", Value: job.Nodes[0].UniqueName})
	appendElementParameter(el, ElementParameter{Field: "COLOR", Name: "SUBJOB_TITLE_COLOR", Value: "0;93;185"})
	appendElementParameter(el, ElementParameter{Field: "COLOR", Name: "SUBJOB_COLOR", Value: "0;93;185"})
}

// validateWellFormed re-parses the emitted document and reports the lines
// around any failure.
func validateWellFormed(out string) error {
	decoder := xml.NewDecoder(strings.NewReader(out))

	for {
		_, err := decoder.Token()
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		line := 1 + strings.Count(out[:decoder.InputOffset()], "\n")
		lines := strings.Split(out, "\n")

		start := line - 2
		if start < 1 {
			start = 1
		}

		end := line + 1
		if end > len(lines) {
			end = len(lines)
		}

		var window strings.Builder

		for i := start; i <= end; i++ {
			prefix := "   "
			if i == line {
				prefix = ">>>"
			}

			fmt.Fprintf(&window, "%s %d: %s\n", prefix, i, lines[i-1])
		}

		return &CodeGenError{
			Phase: "xml validation",
			Msg:   fmt.Sprintf("emitted document is not well-formed at line %d: %v\n%s", line, err, window.String()),
		}
	}
}
