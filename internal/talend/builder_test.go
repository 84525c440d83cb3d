package talend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dsx2talend/internal/ir"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func userSchema() []ir.Column {
	return []ir.Column{
		{Name: "USERID", Type: "integer", Nullable: false, Length: 10},
		{Name: "USERNAME", Type: "string", Nullable: true, Length: 50},
		{Name: "EMAIL", Type: "string", Nullable: true, Length: 100},
		{Name: "CREATED", Type: "date", Nullable: true},
	}
}

// simpleDoc mirrors the lowered three-stage user pipeline.
func simpleDoc() *ir.Document {
	transformed := userSchema()
	transformed[1].HasTransformation = true
	transformed[1].Expression = "UPPER(USERNAME)"

	return &ir.Document{
		IRVersion: ir.Version,
		Job: ir.JobInfo{
			ID:   "job-simple_user_job-201603011200",
			Name: "simple_user_job",
			Parameters: []ir.Parameter{
				{Name: "TEST_Param", Prompt: "Test parameter"},
				{Name: "STMT_START", Default: "2016-03-01"},
			},
		},
		Nodes: []*ir.Node{
			{
				ID: "n0", Type: ir.TypeSource, Subtype: ir.SubtypeFile, Name: "Input_File",
				Props:     map[string]interface{}{"path": "D:/in.csv", "firstLineColumnNames": true},
				SchemaRef: "s_V0S1",
			},
			{
				ID: "n1", Type: ir.TypeTransform, Subtype: ir.SubtypeMap, Name: "User_Transformer",
				Props:     map[string]interface{}{},
				SchemaRef: "s_V0S2",
			},
			{
				ID: "n2", Type: ir.TypeSink, Subtype: ir.SubtypeFile, Name: "Output_File",
				Props:     map[string]interface{}{"path": "D:/out.csv"},
				SchemaRef: "s_V0S3",
			},
		},
		Links: []ir.Link{
			{ID: "l1", From: ir.Endpoint{NodeID: "n0", Port: "out"}, To: ir.Endpoint{NodeID: "n1", Port: "in"}, SchemaRef: "s_V0S1"},
			{ID: "l2", From: ir.Endpoint{NodeID: "n1", Port: "out"}, To: ir.Endpoint{NodeID: "n2", Port: "in"}, SchemaRef: "s_V0S2"},
		},
		Schemas: map[string][]ir.Column{
			"s_V0S1": userSchema(),
			"s_V0S2": transformed,
			"s_V0S3": {},
		},
	}
}

func buildSimple(t *testing.T) *Job {
	t.Helper()

	builder := NewBuilder(BuildOptions{IncludeDBComponents: true, Logger: discard()})

	job, err := builder.Build(context.Background(), simpleDoc())
	require.NoError(t, err)

	return job
}

func TestBuildSimplePipeline(t *testing.T) {
	job := buildSimple(t)

	require.Len(t, job.Nodes, 3)
	require.Len(t, job.Connections, 2)

	assert.Equal(t, ComponentFileInput, job.Nodes[0].ComponentName)
	assert.Equal(t, ComponentMap, job.Nodes[1].ComponentName)
	assert.Equal(t, ComponentFileOutput, job.Nodes[2].ComponentName)

	assert.Equal(t, DefaultComponentVersion, job.Nodes[0].ComponentVersion)
	assert.Equal(t, TMapComponentVersion, job.Nodes[1].ComponentVersion)
}

func TestBuildFileInputParameters(t *testing.T) {
	job := buildSimple(t)
	input := job.Nodes[0]

	params := paramMap(input.Parameters)

	// Drive letter stripped, wrapped in quotes.
	assert.Equal(t, `"in.csv"`, params["FILENAME"].Value)
	assert.Equal(t, `","`, params["FIELDSEPARATOR"].Value)
	assert.Equal(t, `"\n"`, params["ROWSEPARATOR"].Value)
	assert.Equal(t, "1", params["HEADER"].Value)
	assert.Equal(t, `"ISO-8859-15"`, params["ENCODING"].Value)
	assert.Equal(t, "false", params["CSV_OPTION"].Value)
	assert.Equal(t, "true", params["REMOVE_EMPTY_ROW"].Value)

	// One TRIMSELECT/DECODE_COLS row pair per schema column.
	trim := params["TRIMSELECT"]
	require.NotNil(t, trim)
	assert.Len(t, trim.TableRows, 8)
	assert.Equal(t, "USERID", trim.TableRows[0].Value)
	assert.Equal(t, "TRIM", trim.TableRows[1].ElementRef)

	decode := params["DECODE_COLS"]
	require.NotNil(t, decode)
	require.NotNil(t, decode.Show)
	assert.False(t, *decode.Show)
}

func TestBuildRejectMetadata(t *testing.T) {
	job := buildSimple(t)
	input := job.Nodes[0]

	var reject *Metadata

	for i := range input.Metadata {
		if input.Metadata[i].Connector == "REJECT" {
			reject = &input.Metadata[i]
		}
	}

	require.NotNil(t, reject)
	// All schema columns plus errorCode and errorMessage.
	require.Len(t, reject.Columns, 6)
	assert.Equal(t, "errorCode", reject.Columns[4].Name)
	assert.Equal(t, "errorMessage", reject.Columns[5].Name)
	assert.True(t, reject.Columns[4].HasDefault)
}

func TestBuildTMapExpression(t *testing.T) {
	job := buildSimple(t)
	tmap := job.Nodes[1]

	require.NotNil(t, tmap.NodeData)
	require.Len(t, tmap.NodeData.OutputTables, 1)

	out1 := tmap.NodeData.OutputTables[0]
	assert.Equal(t, "out1", out1.Name)
	require.Len(t, out1.Entries, 4)

	assert.Equal(t, "rowInput_File.USERID", out1.Entries[0].Expression)
	assert.Equal(t, "StringHandling.UPPER(rowInput_File.USERNAME)", out1.Entries[1].Expression)
	assert.Equal(t, "rowInput_File.EMAIL", out1.Entries[2].Expression)

	require.Len(t, tmap.NodeData.InputTables, 1)
	in := tmap.NodeData.InputTables[0]
	assert.Equal(t, "rowInput_File", in.Name)
	assert.Equal(t, "UNIQUE_MATCH", in.MatchingMode)
	assert.Equal(t, "LOAD_ONCE", in.LookupMode)

	// Input entries carry no expression.
	for _, entry := range in.Entries {
		assert.Empty(t, entry.Expression)
	}
}

func TestBuildSinkAdoptsUpstreamSchema(t *testing.T) {
	job := buildSimple(t)
	sink := job.Nodes[2]

	// The sink's own schema is empty; it adopts the incoming link's.
	require.Len(t, sink.SchemaColumns, 4)
	require.Len(t, sink.Metadata, 1)
	assert.Len(t, sink.Metadata[0].Columns, 4)
}

func TestBuildConnections(t *testing.T) {
	job := buildSimple(t)

	first := job.Connections[0]
	assert.Equal(t, "Input_File", first.Source)
	assert.Equal(t, "User_Transformer", first.Target)
	assert.Equal(t, "FLOW", first.ConnectorName)
	assert.Equal(t, "rowInput_File", first.Label)
	assert.Equal(t, "Input_File", first.Metaname)

	params := paramMap(first.Parameters)
	require.Contains(t, params, "MONITOR_CONNECTION")
	assert.Nil(t, params["MONITOR_CONNECTION"].Show)
	require.NotNil(t, params["UNIQUE_NAME"].Show)
	assert.False(t, *params["UNIQUE_NAME"].Show)
}

func TestBuildCycleSuppression(t *testing.T) {
	doc := simpleDoc()

	// An over-zealous partner linking produced both directions between the
	// transformer (n1) and a second transformer (n3).
	doc.Nodes = append(doc.Nodes, &ir.Node{
		ID: "n3", Type: ir.TypeTransform, Subtype: ir.SubtypeMap, Name: "Second_Transformer",
		Props: map[string]interface{}{}, SchemaRef: "s_V0S2",
	})
	doc.Links = append(doc.Links,
		ir.Link{ID: "l3", From: ir.Endpoint{NodeID: "n1"}, To: ir.Endpoint{NodeID: "n3"}, SchemaRef: "s_V0S2"},
		ir.Link{ID: "l4", From: ir.Endpoint{NodeID: "n3"}, To: ir.Endpoint{NodeID: "n1"}, SchemaRef: "s_V0S2"},
	)

	builder := NewBuilder(BuildOptions{IncludeDBComponents: true, Logger: discard()})

	job, err := builder.Build(context.Background(), doc)
	require.NoError(t, err)

	var n1n3, n3n1 int

	for _, conn := range job.Connections {
		if conn.Source == "User_Transformer" && conn.Target == "Second_Transformer" {
			n1n3++
		}

		if conn.Source == "Second_Transformer" && conn.Target == "User_Transformer" {
			n3n1++
		}
	}

	// Only the direction whose source has the smaller IR ID survives.
	assert.Equal(t, 1, n1n3)
	assert.Equal(t, 0, n3n1)
}

func TestBuildLinkPolicing(t *testing.T) {
	doc := simpleDoc()
	doc.Links = append(doc.Links,
		// Out of a sink and into a source: both invalid.
		ir.Link{ID: "l5", From: ir.Endpoint{NodeID: "n2"}, To: ir.Endpoint{NodeID: "n1"}, SchemaRef: "s_V0S3"},
		ir.Link{ID: "l6", From: ir.Endpoint{NodeID: "n1"}, To: ir.Endpoint{NodeID: "n0"}, SchemaRef: "s_V0S2"},
	)

	builder := NewBuilder(BuildOptions{IncludeDBComponents: true, Logger: discard()})

	job, err := builder.Build(context.Background(), doc)
	require.NoError(t, err)
	assert.Len(t, job.Connections, 2)
}

func TestBuildExcludesDBComponents(t *testing.T) {
	doc := &ir.Document{
		Job: ir.JobInfo{Name: "db_job"},
		Nodes: []*ir.Node{
			{ID: "n0", Type: ir.TypeSource, Subtype: "DB2", Name: "DB_Source", Props: map[string]interface{}{}, SchemaRef: "s_a"},
			{ID: "n1", Type: ir.TypeSink, Subtype: ir.SubtypeFile, Name: "File_Sink", Props: map[string]interface{}{}, SchemaRef: "s_b"},
		},
		Links: []ir.Link{
			{ID: "l1", From: ir.Endpoint{NodeID: "n0"}, To: ir.Endpoint{NodeID: "n1"}, SchemaRef: "s_a"},
		},
		Schemas: map[string][]ir.Column{"s_a": userSchema(), "s_b": {}},
	}

	t.Run("included by default", func(t *testing.T) {
		builder := NewBuilder(BuildOptions{IncludeDBComponents: true, Logger: discard()})

		job, err := builder.Build(context.Background(), doc)
		require.NoError(t, err)
		assert.Len(t, job.Nodes, 2)
		assert.Equal(t, ComponentDBInput, job.Nodes[0].ComponentName)
	})

	t.Run("excluded on request", func(t *testing.T) {
		builder := NewBuilder(BuildOptions{IncludeDBComponents: false, Logger: discard()})

		job, err := builder.Build(context.Background(), doc)
		require.NoError(t, err)
		require.Len(t, job.Nodes, 1)
		assert.Equal(t, "File_Sink", job.Nodes[0].UniqueName)
		// The link touching the excluded node is gone too.
		assert.Empty(t, job.Connections)
	})
}

func TestBuildLookupThreeInputs(t *testing.T) {
	// A lookup fed by one main flow and two reference tables, emitting 36
	// columns to a DB sink.
	var wideCols []ir.Column
	for i := 0; i < 36; i++ {
		wideCols = append(wideCols, ir.Column{Name: fmt.Sprintf("COL_%02d", i), Type: "string", Nullable: true})
	}

	doc := &ir.Document{
		Job: ir.JobInfo{Name: "lookup_job"},
		Nodes: []*ir.Node{
			{ID: "n0", Type: ir.TypeSource, Subtype: "DB2", Name: "Main_Source", Props: map[string]interface{}{}, SchemaRef: "s_m"},
			{ID: "n1", Type: ir.TypeSource, Subtype: "DB2", Name: "Ref_One", Props: map[string]interface{}{}, SchemaRef: "s_r1"},
			{ID: "n2", Type: ir.TypeSource, Subtype: "DB2", Name: "Ref_Two", Props: map[string]interface{}{}, SchemaRef: "s_r2"},
			{ID: "n3", Type: ir.TypeTransform, Subtype: ir.SubtypeLookup, Name: "Lookup_Stage", Props: map[string]interface{}{}, SchemaRef: "s_lk"},
			{ID: "n4", Type: ir.TypeSink, Subtype: "DB2", Name: "DB_Sink", Props: map[string]interface{}{}, SchemaRef: "s_out"},
		},
		Links: []ir.Link{
			{ID: "l1", From: ir.Endpoint{NodeID: "n0"}, To: ir.Endpoint{NodeID: "n3"}, SchemaRef: "s_m"},
			{ID: "l2", From: ir.Endpoint{NodeID: "n1"}, To: ir.Endpoint{NodeID: "n3"}, SchemaRef: "s_r1"},
			{ID: "l3", From: ir.Endpoint{NodeID: "n2"}, To: ir.Endpoint{NodeID: "n3"}, SchemaRef: "s_r2"},
			{ID: "l4", From: ir.Endpoint{NodeID: "n3"}, To: ir.Endpoint{NodeID: "n4"}, SchemaRef: "s_lk"},
		},
		Schemas: map[string][]ir.Column{
			"s_m":   {{Name: "KEY", Type: "integer"}},
			"s_r1":  {{Name: "KEY", Type: "integer"}, {Name: "REF1", Type: "string"}},
			"s_r2":  {{Name: "KEY", Type: "integer"}, {Name: "REF2", Type: "string"}},
			"s_lk":  wideCols,
			"s_out": {},
		},
	}

	builder := NewBuilder(BuildOptions{IncludeDBComponents: true, Logger: discard()})

	job, err := builder.Build(context.Background(), doc)
	require.NoError(t, err)

	var lookup *Node

	for _, n := range job.Nodes {
		if n.UniqueName == "Lookup_Stage" {
			lookup = n
		}
	}

	require.NotNil(t, lookup)
	assert.Equal(t, ComponentMap, lookup.ComponentName)
	require.NotNil(t, lookup.NodeData)

	assert.Len(t, lookup.NodeData.InputTables, 3)
	require.Len(t, lookup.NodeData.OutputTables, 1)
	assert.Len(t, lookup.NodeData.OutputTables[0].Entries, 36)
}

func TestBuildStrictUnmappable(t *testing.T) {
	doc := &ir.Document{
		Job: ir.JobInfo{Name: "odd"},
		Nodes: []*ir.Node{
			{ID: "n0", Type: "Esoteric", Subtype: "Thing", Name: "Odd_Stage", Props: map[string]interface{}{}},
		},
		Schemas: map[string][]ir.Column{},
	}

	t.Run("lenient falls back to tUnknown", func(t *testing.T) {
		builder := NewBuilder(BuildOptions{IncludeDBComponents: true, Logger: discard()})

		job, err := builder.Build(context.Background(), doc)
		require.NoError(t, err)
		assert.Equal(t, ComponentUnknown, job.Nodes[0].ComponentName)
	})

	t.Run("strict fails", func(t *testing.T) {
		builder := NewBuilder(BuildOptions{IncludeDBComponents: true, Strict: true, Logger: discard()})

		_, err := builder.Build(context.Background(), doc)

		var cge *CodeGenError
		require.ErrorAs(t, err, &cge)
	})
}

func TestBuildCustomTypeFallback(t *testing.T) {
	doc := &ir.Document{
		Job: ir.JobInfo{Name: "custom"},
		Nodes: []*ir.Node{
			{
				ID: "n0", Type: "Esoteric", Subtype: "Thing", Name: "Custom_Stage",
				Props: map[string]interface{}{"customType": "tJavaRow"},
			},
		},
		Schemas: map[string][]ir.Column{},
	}

	builder := NewBuilder(BuildOptions{IncludeDBComponents: true, Logger: discard()})

	job, err := builder.Build(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "tJavaRow", job.Nodes[0].ComponentName)
}

func TestBuildContextParams(t *testing.T) {
	job := buildSimple(t)

	require.Len(t, job.ContextParams, 2)
	assert.Equal(t, "TEST_Param", job.ContextParams[0].Name)
	assert.Equal(t, "2016-03-01", job.ContextParams[1].Value)
}

// paramMap indexes parameters by name.
func paramMap(params []ElementParameter) map[string]*ElementParameter {
	m := make(map[string]*ElementParameter, len(params))
	for i := range params {
		m[params[i].Name] = &params[i]
	}

	return m
}
