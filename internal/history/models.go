package history

import "time"

const SchemaVersion = 1

// Run is one persisted analysis outcome. The persistence is a CLI
// concern layered after the core returns; the analysis itself retains
// nothing between invocations.
type Run struct {
	SchemaVersion   int       `json:"schema_version"`
	RunID           string    `json:"run_id"`
	Timestamp       time.Time `json:"timestamp"`
	CommitHash      string    `json:"commit_hash,omitempty"`
	CommitTimestamp time.Time `json:"commit_timestamp,omitempty"`
	Range           string    `json:"range"`
	ChangedCount    int       `json:"changed_count"`
	ImpactedModules int       `json:"impacted_modules"`
	ImpactedTests   int       `json:"impacted_tests"`
	SuggestedJobs   int       `json:"suggested_jobs"`
	ModuleCount     int       `json:"module_count"`
	FileCount       int       `json:"file_count"`
	EdgeCount       int       `json:"edge_count"`
	CycleCount      int       `json:"cycle_count"`
	DiagnosticCount int       `json:"diagnostic_count"`
	DurationMS      int64     `json:"duration_ms"`
}

type TrendPoint struct {
	Timestamp          time.Time `json:"timestamp"`
	CommitHash         string    `json:"commit_hash,omitempty"`
	Range              string    `json:"range"`
	ChangedCount       int       `json:"changed_count"`
	ImpactedModules    int       `json:"impacted_modules"`
	ImpactedTests      int       `json:"impacted_tests"`
	SuggestedJobs      int       `json:"suggested_jobs"`
	ModuleCount        int       `json:"module_count"`
	EdgeCount          int       `json:"edge_count"`
	CycleCount         int       `json:"cycle_count"`
	DiagnosticCount    int       `json:"diagnostic_count"`
	DeltaModules       int       `json:"delta_modules"`
	DeltaEdges         int       `json:"delta_edges"`
	DeltaCycles        int       `json:"delta_cycles"`
	DeltaTests         int       `json:"delta_tests"`
	TestShare          float64   `json:"test_share"`
	AvgImpactedTests   float64   `json:"avg_impacted_tests"`
	AvgImpactedModules float64   `json:"avg_impacted_modules"`
	WindowHours        float64   `json:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	RunCount      int          `json:"run_count"`
	Points        []TrendPoint `json:"points"`
}
