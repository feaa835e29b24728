package model

import "time"

// RunState is the cleaning pipeline state machine:
// Idle → Profiling → MissingValues → Outliers → Duplicates → Reporting → Done,
// with any resolver error moving the run to Failed.
type RunState string

const (
	StateIdle          RunState = "idle"
	StateProfiling     RunState = "profiling"
	StateMissingValues RunState = "missing_values"
	StateOutliers      RunState = "outliers"
	StateDuplicates    RunState = "duplicates"
	StateReporting     RunState = "reporting"
	StateDone          RunState = "done"
	StateFailed        RunState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// RunStatus is the persisted status of a cleaning run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSource describes the dataset a run was started for.
type RunSource struct {
	FileName string         `json:"file_name"`
	Rows     int            `json:"rows"`
	Columns  int            `json:"columns"`
	Options  CleaningConfig `json:"options"`
	UsedAI   bool           `json:"used_ai"`
}

// FailureRecord is what a failed run persists: the step that failed, the
// error, and the audit entries accumulated before the failure.
type FailureRecord struct {
	State    RunState     `json:"state"`
	Kind     ErrorKind    `json:"kind,omitempty"`
	Column   string       `json:"column,omitempty"`
	Message  string       `json:"message"`
	AuditLog []AuditEntry `json:"audit_log"`
}

// Run is a persisted cleaning run.
type Run struct {
	ID          string          `json:"id"`
	Source      RunSource       `json:"source"`
	Status      RunStatus       `json:"status"`
	Report      *CleaningReport `json:"report,omitempty"`
	Failure     *FailureRecord  `json:"failure,omitempty"`
	CleanedFile string          `json:"cleaned_file,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
