package asg

import "strings"

// Enhanced type values. Unknown stage types are retained verbatim.
const (
	TypeSequentialFile     = "PxSequentialFile"
	TypeTransformer        = "PxTransformer"
	TypeLookup             = "PxLookup"
	TypeJoin               = "PxJoin"
	TypeChangeCapture      = "PxChangeCapture"
	TypeFunnel             = "PxFunnel"
	TypeRemoveDup          = "PxRemoveDup"
	TypeDB2Connector       = "DB2ConnectorPX"
	TypeODBCConnector      = "ODBCConnectorPX"
	TypeOracleConnector    = "OracleConnectorPX"
	TypeCTransformer       = "CTransformerStage"
	TypeCustomStage        = "CCustomStage"
	TypeTransactionalStage = "TransactionalCustomStage"
	TypeGeneric            = "Generic"
)

// knownStageTypes are classifications taken verbatim from the StageType
// field when it matches.
var knownStageTypes = map[string]bool{
	TypeSequentialFile:     true,
	TypeTransformer:        true,
	TypeLookup:             true,
	TypeJoin:               true,
	TypeChangeCapture:      true,
	TypeFunnel:             true,
	TypeRemoveDup:          true,
	TypeDB2Connector:       true,
	TypeODBCConnector:      true,
	TypeOracleConnector:    true,
	TypeCTransformer:       true,
	TypeTransactionalStage: true,
}

// oleTypeClassifications resolve the classification from the record's
// OLEType when the stage type is absent or unrecognized.
var oleTypeClassifications = map[string]string{
	"CTransformerStage": TypeCTransformer,
	"CCustomStage":      TypeCustomStage,
}

// classifyEnhancedType derives the normalized classification for a stage:
// the stage type first, then the OLE type, then property evidence. Unknown
// stage types are retained verbatim so nothing is silently renamed.
func classifyEnhancedType(stageType, oleType string, props Properties) string {
	if knownStageTypes[stageType] {
		return stageType
	}

	if stageType != "" && strings.Contains(stageType, "Connector") {
		return stageType
	}

	if cls, ok := oleTypeClassifications[oleType]; ok {
		// Transformer code in the APT bucket outweighs the generic
		// custom-stage OLE type.
		if cls == TypeCustomStage && hasTransformerEvidence(props) {
			return TypeCTransformer
		}

		return cls
	}

	// Property evidence.
	switch {
	case hasTransformerEvidence(props):
		return TypeCTransformer
	case hasFileEvidence(props):
		return TypeSequentialFile
	case hasConnectorEvidence(props):
		return TypeDB2Connector
	}

	if stageType != "" {
		return stageType
	}

	return TypeGeneric
}

func hasTransformerEvidence(props Properties) bool {
	_, ok := props.APT["TrxGenCode"]
	return ok
}

func hasFileEvidence(props Properties) bool {
	for _, key := range []string{"FilePath", "file", "filepath"} {
		if _, ok := props.Configuration[key]; ok {
			return true
		}
	}

	return false
}

func hasConnectorEvidence(props Properties) bool {
	for _, key := range []string{"XMLProperties", "XMLConnectorDescriptor"} {
		if _, ok := props.Configuration[key]; ok {
			return true
		}
	}

	return false
}

// IsFileType reports whether a classification denotes a file stage.
func IsFileType(enhancedType string) bool {
	return strings.Contains(enhancedType, "Sequential") || strings.Contains(enhancedType, "File")
}

// IsConnectorType reports whether a classification denotes a database
// connector stage.
func IsConnectorType(enhancedType string) bool {
	for _, marker := range []string{"DB2", "ODBC", "Oracle", "SQL", "Connector", "TransactionalCustomStage"} {
		if strings.Contains(enhancedType, marker) {
			return true
		}
	}

	return false
}
