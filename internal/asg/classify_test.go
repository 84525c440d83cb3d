package asg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyEnhancedType(t *testing.T) {
	tests := []struct {
		name      string
		stageType string
		oleType   string
		props     Properties
		want      string
	}{
		{"known px stage", "PxSequentialFile", "CCustomStage", Properties{}, TypeSequentialFile},
		{"known lookup", "PxLookup", "", Properties{}, TypeLookup},
		{"connector verbatim", "TeradataConnectorPX", "", Properties{}, "TeradataConnectorPX"},
		{"ole transformer", "", "CTransformerStage", Properties{}, TypeCTransformer},
		{"ole custom", "", "CCustomStage", Properties{}, TypeCustomStage},
		{
			"custom with trx code becomes transformer",
			"", "CCustomStage",
			Properties{APT: map[string]string{"TrxGenCode": "code"}},
			TypeCTransformer,
		},
		{
			"file evidence",
			"", "",
			Properties{Configuration: map[string]string{"FilePath": "in.csv"}},
			TypeSequentialFile,
		},
		{
			"connector evidence",
			"", "",
			Properties{Configuration: map[string]string{"XMLProperties": "<Properties/>"}},
			TypeDB2Connector,
		},
		{"unknown retained verbatim", "PxSomethingNew", "", Properties{}, "PxSomethingNew"},
		{"nothing known", "", "", Properties{}, TypeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyEnhancedType(tt.stageType, tt.oleType, tt.props))
		})
	}
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsFileType(TypeSequentialFile))
	assert.False(t, IsFileType(TypeDB2Connector))

	assert.True(t, IsConnectorType(TypeDB2Connector))
	assert.True(t, IsConnectorType(TypeODBCConnector))
	assert.True(t, IsConnectorType(TypeTransactionalStage))
	assert.False(t, IsConnectorType(TypeSequentialFile))
}

func TestSQLTypeTables(t *testing.T) {
	assert.Equal(t, "VARCHAR", SQLTypeName(12))
	assert.Equal(t, "BIGINT", SQLTypeName(-5))
	assert.Equal(t, "UNKNOWN", SQLTypeName(999))

	assert.Equal(t, "string", TalendTypeHint(12))
	assert.Equal(t, "long", TalendTypeHint(-5))
	assert.Equal(t, "timestamp", TalendTypeHint(11))
	assert.Equal(t, "string", TalendTypeHint(999))
}
