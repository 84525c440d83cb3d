package talend

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emitSimple(t *testing.T, templates *TemplateSet) string {
	t.Helper()

	job := buildSimple(t)

	emitter := NewEmitter(EmitOptions{Templates: templates, Logger: discard()})

	out, err := emitter.Emit(job)
	require.NoError(t, err)

	return out
}

// assertXMLEqual compares two XML strings, printing a unified diff on
// mismatch.
func assertXMLEqual(t *testing.T, want, got string) {
	t.Helper()

	if want == got {
		return
	}

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "programmatic",
		ToFile:   "templated",
		Context:  3,
	})
	t.Fatalf("XML outputs differ:\n%s", diff)
}

func TestEmitWellFormed(t *testing.T) {
	out := emitSimple(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "ProcessType", root.Tag)
	assert.Equal(t, "2.0", root.SelectAttrValue("xmi:version", ""))
	assert.Equal(t, "Default", root.SelectAttrValue("defaultContext", ""))
	assert.Equal(t, "Standard", root.SelectAttrValue("jobType", ""))
}

func TestEmitStructure(t *testing.T) {
	out := emitSimple(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	root := doc.Root()

	nodes := root.SelectElements("node")
	require.Len(t, nodes, 3)

	connections := root.SelectElements("connection")
	require.Len(t, connections, 2)

	subjobs := root.SelectElements("subjob")
	require.Len(t, subjobs, 1)

	// Every metadata block carries at least one column.
	for _, node := range nodes {
		for _, md := range node.SelectElements("metadata") {
			assert.NotEmpty(t, md.SelectElements("column"),
				"metadata %q of node %q has no columns",
				md.SelectAttrValue("name", ""), node.SelectAttrValue("componentName", ""))
		}
	}
}

func TestEmitShowAttributeElision(t *testing.T) {
	out := emitSimple(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	for _, conn := range doc.Root().SelectElements("connection") {
		for _, param := range conn.SelectElements("elementParameter") {
			switch param.SelectAttrValue("name", "") {
			case "MONITOR_CONNECTION":
				assert.Nil(t, param.SelectAttr("show"), "MONITOR_CONNECTION must not carry show")
			case "UNIQUE_NAME":
				assert.Equal(t, "false", param.SelectAttrValue("show", ""))
			}
		}
	}
}

func TestEmitTMapMapperData(t *testing.T) {
	out := emitSimple(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	var tmap *etree.Element

	for _, node := range doc.Root().SelectElements("node") {
		if node.SelectAttrValue("componentName", "") == ComponentMap {
			tmap = node
		}
	}

	require.NotNil(t, tmap)

	nodeData := tmap.SelectElement("nodeData")
	require.NotNil(t, nodeData)
	assert.Equal(t, "TalendMapper:MapperData", nodeData.SelectAttrValue("xsi:type", ""))

	require.NotNil(t, nodeData.SelectElement("uiProperties"))

	varTables := nodeData.SelectElements("varTables")
	require.Len(t, varTables, 1)
	assert.Equal(t, "Var", varTables[0].SelectAttrValue("name", ""))

	outputTables := nodeData.SelectElements("outputTables")
	require.Len(t, outputTables, 1)

	entries := outputTables[0].SelectElements("mapperTableEntries")
	require.Len(t, entries, 4)
	assert.Equal(t, "StringHandling.UPPER(rowInput_File.USERNAME)", entries[1].SelectAttrValue("expression", ""))

	inputTables := nodeData.SelectElements("inputTables")
	require.Len(t, inputTables, 1)
	assert.Equal(t, "UNIQUE_MATCH", inputTables[0].SelectAttrValue("matchingMode", ""))

	// Input entries carry no expression attribute.
	for _, entry := range inputTables[0].SelectElements("mapperTableEntries") {
		assert.Nil(t, entry.SelectAttr("expression"))
	}
}

func TestEmitRejectConnector(t *testing.T) {
	out := emitSimple(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	var reject *etree.Element

	for _, node := range doc.Root().SelectElements("node") {
		for _, md := range node.SelectElements("metadata") {
			if md.SelectAttrValue("connector", "") == "REJECT" {
				reject = md
			}
		}
	}

	require.NotNil(t, reject)

	cols := reject.SelectElements("column")
	require.Len(t, cols, 6)

	last := cols[5]
	assert.Equal(t, "errorMessage", last.SelectAttrValue("name", ""))
	assert.NotNil(t, last.SelectAttr("defaultValue"))
	assert.Nil(t, last.SelectAttr("comment"))
}

func TestEmitEscaping(t *testing.T) {
	out := emitSimple(t, nil)

	// Quoted parameter values double-encode as &quot; in the XML.
	assert.Contains(t, out, "&quot;in.csv&quot;")
	assert.NotContains(t, out, `value=""in.csv""`)
}

func TestEmitContextParameters(t *testing.T) {
	out := emitSimple(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	ctx := doc.Root().SelectElement("context")
	require.NotNil(t, ctx)
	assert.Equal(t, "Default", ctx.SelectAttrValue("name", ""))

	params := ctx.SelectElements("contextParameter")
	require.Len(t, params, 2)
	assert.Equal(t, "TEST_Param", params[0].SelectAttrValue("name", ""))
	assert.Equal(t, "2016-03-01", params[1].SelectAttrValue("value", ""))
}

func TestEmitTemplateEquivalence(t *testing.T) {
	// The templated path (embedded templates for the file components) and
	// the fully programmatic path must produce identical documents.
	templated := emitSimple(t, EmbeddedTemplates())
	programmatic := emitSimple(t, &TemplateSet{})

	assertXMLEqual(t, programmatic, templated)
}

func TestEmitTrailingSubjob(t *testing.T) {
	out := emitSimple(t, nil)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	subjob := doc.Root().SelectElement("subjob")
	require.NotNil(t, subjob)

	params := subjob.SelectElements("elementParameter")
	require.NotEmpty(t, params)
	assert.Equal(t, "Input_File", params[0].SelectAttrValue("value", ""))
}

func TestTemplateRenderUnknownComponent(t *testing.T) {
	set := EmbeddedTemplates()
	assert.True(t, set.Has(ComponentFileInput))
	assert.True(t, set.Has(ComponentFileOutput))
	assert.False(t, set.Has(ComponentMap))

	_, err := set.Render(&Node{ComponentName: ComponentMap})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no template")
}

func TestValidateWellFormedReportsContext(t *testing.T) {
	err := validateWellFormed("<a>\n<b>\n</a>\n")

	var cge *CodeGenError
	require.ErrorAs(t, err, &cge)
	assert.Contains(t, cge.Msg, ">>>")
}

func TestEmitGenericNodeDataCDATA(t *testing.T) {
	job := &Job{
		Name: "generic",
		Nodes: []*Node{
			{
				ComponentName:    "tJavaRow",
				ComponentVersion: DefaultComponentVersion,
				UniqueName:       "Custom_Stage",
				PosX:             100, PosY: 100,
				Parameters:      genericParameters("Custom_Stage"),
				GenericNodeData: map[string]interface{}{"code": "row1.out = row1.in;"},
			},
		},
	}

	emitter := NewEmitter(EmitOptions{Logger: discard()})

	out, err := emitter.Emit(job)
	require.NoError(t, err)
	assert.Contains(t, out, "<![CDATA[")
	assert.Contains(t, out, "row1.out = row1.in;")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`D:\in.csv`, `"in.csv"`},
		{"0file/data/in.csv", `"data/in.csv"`},
		{`0file\D:/deep/dir/file.txt`, `"deep/dir/file.txt"`},
		{"plain.csv", `"plain.csv"`},
		{`"already.csv"`, `"already.csv"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.input))
		})
	}
}
