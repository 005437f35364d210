package stores

import (
	"context"
	"database/sql"
	"time"
)

// RunStatus represents the status of a reconciliation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one invocation of the reconciliation engine against a
// manifest. DryRun records whether the run was a plan (no remote writes).
type Run struct {
	ID           string     `json:"id"`
	ManifestPath string     `json:"manifest_path"`
	DryRun       bool       `json:"dry_run"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        *string    `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Result represents the outcome of reconciling a single manifest entry.
type Result struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Resource   string    `json:"resource"`
	EntityName string    `json:"entity_name"`
	State      string    `json:"state"`
	Operation  string    `json:"operation"`
	Changed    bool      `json:"changed"`
	Diff       *string   `json:"diff,omitempty"` // JSON array of changed field names
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the interface for the run journal
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, err *string) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Result operations
	CreateResult(ctx context.Context, result *Result) error
	ListResultsByRun(ctx context.Context, runID string) ([]*Result, error)
	ListChangedResults(ctx context.Context, runID string) ([]*Result, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
