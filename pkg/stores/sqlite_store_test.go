package stores

import (
	"context"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Check that tables exist by querying them
	tables := []string{"runs", "results"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestRunCRUD tests Run CRUD operations
func TestRunCRUD(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	// Create
	run := &Run{
		ID:           "run-001",
		ManifestPath: "/manifests/site.yaml",
		DryRun:       false,
		Status:       RunStatusPending,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	// Read
	retrieved, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}

	if retrieved.ID != run.ID {
		t.Errorf("expected ID %s, got %s", run.ID, retrieved.ID)
	}
	if retrieved.ManifestPath != run.ManifestPath {
		t.Errorf("expected ManifestPath %s, got %s", run.ManifestPath, retrieved.ManifestPath)
	}
	if retrieved.Status != run.Status {
		t.Errorf("expected Status %s, got %s", run.Status, retrieved.Status)
	}
	if retrieved.DryRun {
		t.Error("expected DryRun to be false")
	}

	// Update
	errMsg := "connection refused"
	if err := store.UpdateRunStatus(ctx, run.ID, RunStatusFailed, &errMsg); err != nil {
		t.Fatalf("failed to update run status: %v", err)
	}

	updated, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get updated run: %v", err)
	}
	if updated.Status != RunStatusFailed {
		t.Errorf("expected status %s, got %s", RunStatusFailed, updated.Status)
	}
	if updated.Error == nil || *updated.Error != errMsg {
		t.Errorf("expected error %q, got %v", errMsg, updated.Error)
	}
	if updated.CompletedAt == nil {
		t.Error("expected CompletedAt to be set for a failed run")
	}

	// Delete
	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if _, err := store.GetRun(ctx, run.ID); err == nil {
		t.Error("expected error getting deleted run")
	}
}

// TestUpdateMissingRun tests that updating a nonexistent run fails
func TestUpdateMissingRun(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if err := store.UpdateRunStatus(context.Background(), "no-such-run", RunStatusCompleted, nil); err == nil {
		t.Error("expected error updating nonexistent run")
	}
}

// TestListRuns tests run listing with pagination
func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		run := &Run{
			ID:           "run-00" + string(rune('1'+i)),
			ManifestPath: "/manifests/site.yaml",
			DryRun:       i%2 == 0,
			Status:       RunStatusCompleted,
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
			CreatedAt:    base,
			UpdatedAt:    base,
		}
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run %d: %v", i, err)
		}
	}

	runs, err := store.ListRuns(ctx, 3, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}

	// Newest first
	if runs[0].ID != "run-005" {
		t.Errorf("expected run-005 first, got %s", runs[0].ID)
	}

	rest, err := store.ListRuns(ctx, 3, 3)
	if err != nil {
		t.Fatalf("failed to list second page: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("expected 2 runs on second page, got %d", len(rest))
	}
}

// TestResultRecording tests result creation and retrieval
func TestResultRecording(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	run := &Run{
		ID:           "run-100",
		ManifestPath: "/manifests/site.yaml",
		Status:       RunStatusRunning,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	diff := `["description","dns_id"]`
	results := []*Result{
		{
			ID:         "res-1",
			RunID:      run.ID,
			Resource:   "organizations",
			EntityName: "ACME",
			State:      "present",
			Operation:  "create",
			Changed:    true,
			CreatedAt:  now,
		},
		{
			ID:         "res-2",
			RunID:      run.ID,
			Resource:   "domains",
			EntityName: "example.com",
			State:      "present",
			Operation:  "update",
			Changed:    true,
			Diff:       &diff,
			CreatedAt:  now.Add(time.Second),
		},
		{
			ID:         "res-3",
			RunID:      run.ID,
			Resource:   "locations",
			EntityName: "HQ",
			State:      "present",
			Operation:  "none",
			Changed:    false,
			CreatedAt:  now.Add(2 * time.Second),
		},
	}

	for _, res := range results {
		if err := store.CreateResult(ctx, res); err != nil {
			t.Fatalf("failed to create result %s: %v", res.ID, err)
		}
	}

	all, err := store.ListResultsByRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list results: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d", len(all))
	}
	if all[0].ID != "res-1" || all[2].ID != "res-3" {
		t.Errorf("results not in insertion order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}
	if all[1].Diff == nil || *all[1].Diff != diff {
		t.Errorf("diff not preserved: %v", all[1].Diff)
	}

	changed, err := store.ListChangedResults(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list changed results: %v", err)
	}
	if len(changed) != 2 {
		t.Fatalf("expected 2 changed results, got %d", len(changed))
	}
	for _, res := range changed {
		if !res.Changed {
			t.Errorf("unchanged result %s in changed list", res.ID)
		}
	}
}

// TestResultCascadeDelete tests that deleting a run removes its results
func TestResultCascadeDelete(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	run := &Run{
		ID:           "run-200",
		ManifestPath: "/manifests/site.yaml",
		Status:       RunStatusCompleted,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	res := &Result{
		ID:         "res-10",
		RunID:      run.ID,
		Resource:   "subnets",
		EntityName: "lab",
		State:      "absent",
		Operation:  "delete",
		Changed:    true,
		CreatedAt:  now,
	}
	if err := store.CreateResult(ctx, res); err != nil {
		t.Fatalf("failed to create result: %v", err)
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}

	orphans, err := store.ListResultsByRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list results after delete: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("expected cascade delete to remove results, found %d", len(orphans))
	}
}

// TestResultRejectsUnknownRun tests the run_id foreign key
func TestResultRejectsUnknownRun(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	res := &Result{
		ID:         "res-20",
		RunID:      "no-such-run",
		Resource:   "domains",
		EntityName: "example.com",
		State:      "present",
		Operation:  "create",
		Changed:    true,
		CreatedAt:  time.Now(),
	}
	if err := store.CreateResult(context.Background(), res); err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

// TestTransactions tests transaction support
func TestTransactions(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, manifest_path, dry_run, status, started_at) VALUES (?, ?, 0, ?, ?)`,
		"run-tx", "/manifests/site.yaml", RunStatusPending, time.Now()); err != nil {
		t.Fatalf("failed to insert in transaction: %v", err)
	}

	if err := store.RollbackTx(tx); err != nil {
		t.Fatalf("failed to rollback: %v", err)
	}

	if _, err := store.GetRun(ctx, "run-tx"); err == nil {
		t.Error("expected rolled-back run to be absent")
	}
}
