package models

// PipelineRun is the persisted record of one preprocessing run
type PipelineRun struct {
	ID int64 `json:"id" db:"id"`

	// Trigger identifies who started the run: api, cli, scheduler
	Trigger string `json:"trigger" db:"triggered_by"`

	// Status
	Status          string `json:"status" db:"status"` // pending, running, completed, failed
	CurrentStage    string `json:"current_stage,omitempty" db:"current_stage"`
	ProgressPercent int    `json:"progress_percent" db:"progress_percent"`

	// Input parameters
	ParamsJSON string `json:"params_json,omitempty" db:"params_json"`

	// Execution info
	InputRows      int   `json:"input_rows" db:"input_rows"`
	AccurateRows   int   `json:"accurate_rows" db:"accurate_rows"`
	LinkedRows     int   `json:"linked_rows" db:"linked_rows"`
	RoadNames      int   `json:"road_names" db:"road_names"`
	UnresolvedRoad int   `json:"unresolved_roads" db:"unresolved_roads"`
	StartTime      int64 `json:"start_time,omitempty" db:"start_time"` // Unix timestamp
	EndTime        int64 `json:"end_time,omitempty" db:"end_time"`     // Unix timestamp

	// Results
	ResultSummary string `json:"result_summary,omitempty" db:"result_summary"` // JSON object with stage outputs
	ErrorMessage  string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`
}

// RunStatus constants
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunTrigger constants
const (
	RunTriggerAPI       = "api"
	RunTriggerCLI       = "cli"
	RunTriggerScheduler = "scheduler"
)
