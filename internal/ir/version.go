package ir

// Version constants for the run log schema and engine.
const (
	// IRVersion is the record schema version.
	IRVersion = "1"

	// EngineVersion is the modlayers engine version.
	EngineVersion = "0.1.0"
)
