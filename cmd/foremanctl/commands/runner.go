package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/foremanctl/foremanctl/pkg/client"
	"github.com/foremanctl/foremanctl/pkg/engine"
	"github.com/foremanctl/foremanctl/pkg/manifest"
	"github.com/foremanctl/foremanctl/pkg/modules"
	"github.com/foremanctl/foremanctl/pkg/stores"
	"github.com/foremanctl/foremanctl/pkg/telemetry"
)

// entryOutcome is the per-entry result apply and plan report.
type entryOutcome struct {
	Resource  string   `json:"resource"`
	Name      string   `json:"name"`
	State     string   `json:"state"`
	Operation string   `json:"operation"`
	Changed   bool     `json:"changed"`
	Diff      []string `json:"diff,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// runner wires the manifest loader, registry, resolver, engine and journal
// together for one invocation.
type runner struct {
	registry *modules.Registry
	resolver *engine.Resolver
	engine   *engine.Engine
	store    stores.Store
	tel      *telemetry.Telemetry
	logger   zerolog.Logger
	dryRun   bool
}

// newTelemetry builds the metrics and tracing stack from the global flags.
// Both stay no-ops unless explicitly enabled.
func newTelemetry() (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if traceExporter != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = traceExporter
	}
	if metricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = metricsListen
	}
	return telemetry.NewTelemetry(cfg)
}

func newRunner(ctx context.Context, dryRun bool) (*runner, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server URL is required (--server or FOREMANCTL_SERVER)")
	}

	registry, err := modules.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in definitions: %w", err)
	}

	tel, err := newTelemetry()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if err := tel.StartMetricsServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	apiClient, err := client.New(client.Config{
		BaseURL:  serverURL,
		Username: username,
		Password: password,
	}, client.WithObserver(tel.Metrics.APIObserver()))
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	logger := log.Logger
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	r := &runner{
		registry: registry,
		resolver: engine.NewResolver(apiClient).WithLogger(logger),
		engine: engine.New(apiClient,
			engine.WithDryRun(dryRun),
			engine.WithLogger(logger)),
		tel:    tel,
		logger: logger,
		dryRun: dryRun,
	}

	if journalPath != "" {
		store, err := stores.NewSQLiteStore(stores.Config{Path: journalPath})
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize journal: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate journal: %w", err)
		}
		r.store = store
	}

	return r, nil
}

// close releases the journal and flushes telemetry.
func (r *runner) close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close journal")
		}
	}
	if r.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.tel.Shutdown(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("failed to shut down telemetry")
		}
	}
}

// runManifest reconciles every entry of the manifest at path, in order. The
// first failing entry aborts the run; earlier results stand.
func (r *runner) runManifest(ctx context.Context, path string) ([]entryOutcome, error) {
	m, err := manifest.NewLoader().Load(path)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = r.tel.WithContext(ctx)
	ctx = telemetry.WithRunContext(ctx, runID, r.dryRun)

	now := time.Now()
	if r.store != nil {
		run := &stores.Run{
			ID:           runID,
			ManifestPath: path,
			DryRun:       r.dryRun,
			Status:       stores.RunStatusRunning,
			StartedAt:    now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.store.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to journal run: %w", err)
		}
	}

	r.logger.Info().
		Str("run_id", runID).
		Str("manifest", path).
		Bool("dry_run", r.dryRun).
		Int("entries", len(m.Entries)).
		Msg("starting reconciliation run")

	outcomes := make([]entryOutcome, 0, len(m.Entries))
	var runErr error
	for _, entry := range m.Entries {
		outcome, err := r.reconcileEntry(ctx, entry)
		if err != nil {
			outcome.Error = err.Error()
			runErr = fmt.Errorf("entry %s/%s: %w", entry.Resource, outcome.Name, err)
		}
		outcomes = append(outcomes, outcome)
		r.journalResult(ctx, runID, outcome)
		if runErr != nil {
			break
		}
	}

	status := stores.RunStatusCompleted
	var errMsg *string
	if runErr != nil {
		status = stores.RunStatusFailed
		msg := runErr.Error()
		errMsg = &msg
	}
	if r.store != nil {
		if err := r.store.UpdateRunStatus(ctx, runID, status, errMsg); err != nil {
			r.logger.Warn().Err(err).Msg("failed to journal run status")
		}
	}
	telemetry.EndRunContext(ctx, string(status), runErr)

	return outcomes, runErr
}

// reconcileEntry drives one manifest entry through lookup, resolution and
// reconciliation.
func (r *runner) reconcileEntry(ctx context.Context, entry manifest.Entry) (outcome entryOutcome, err error) {
	outcome = entryOutcome{
		Resource: entry.Resource,
		State:    entry.State,
	}

	def, err := r.registry.Get(entry.Resource)
	if err != nil {
		return outcome, err
	}

	spec, _, err := engine.NormalizeSpec(def.Spec)
	if err != nil {
		return outcome, err
	}

	name, ok := entry.Entity[def.NameField].(string)
	if !ok || name == "" {
		return outcome, fmt.Errorf("entry is missing the %q field", def.NameField)
	}
	outcome.Name = name

	ctx = telemetry.WithEntityContext(ctx, entry.Resource, name, entry.State)
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		telemetry.EndEntityContext(ctx, entry.Resource, outcome.Operation, status, outcome.Changed, err)
	}()

	scope, err := r.resolveScope(ctx, entry.Scope)
	if err != nil {
		return outcome, err
	}

	desired := make(engine.Entity, len(entry.Entity))
	for k, v := range entry.Entity {
		desired[k] = v
	}

	// Nested resources are unique by their full title; a declared parent
	// prefixes the bare name.
	searchValue := name
	if def.Search == "title" {
		if parent, ok := entry.Entity["parent"].(string); ok && parent != "" {
			searchValue = parent + "/" + name
		}
	}

	// A missing current entity is fine: present creates it, absent is a
	// no-op. Custom verbs fail later with a precise error.
	current, err := r.resolver.FindResourceBy(ctx, def.Resource, def.Search, searchValue, scope, true)
	if err != nil {
		return outcome, err
	}
	if current != nil {
		// The index view omits fields; diff against the full record so a
		// converged entity stays a no-op.
		id, ok := current.ID()
		if !ok {
			return outcome, fmt.Errorf("found %s %q without an id", def.Resource, name)
		}
		current, err = r.resolver.ShowResource(ctx, def.Resource, id, scope)
		if err != nil {
			return outcome, err
		}
	}

	// Reference resolution only matters when we might write the entity.
	if entry.State != engine.StateAbsent {
		if err := r.resolver.Resolve(ctx, desired, spec, scope); err != nil {
			return outcome, err
		}
	}

	result, err := r.engine.Reconcile(ctx, engine.Request{
		Resource:    def.Resource,
		Desired:     desired,
		Current:     current,
		State:       entry.State,
		Spec:        spec,
		Scope:       scope,
		Verbs:       def.Verbs,
		Params:      engine.Record(entry.Params),
		ForceUpdate: def.ForceUpdate,
	})
	if err != nil {
		return outcome, err
	}

	outcome.Operation = string(result.Operation)
	outcome.Changed = result.Changed
	outcome.Diff = result.Diff
	return outcome, nil
}

// resolveScope turns name references in a manifest scope into the id
// parameters the API expects. Keys already ending in "_id" pass through.
func (r *runner) resolveScope(ctx context.Context, raw map[string]interface{}) (engine.Scope, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	scope := make(engine.Scope, len(raw))
	for key, value := range raw {
		if strings.HasSuffix(key, "_id") {
			scope[key] = value
			continue
		}
		name, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("scope key %q must name an entity, got %T", key, value)
		}
		resource := engine.Pluralize(key)

		// Locations nest, so their unique handle is the title.
		var rec engine.Record
		var err error
		if key == "location" {
			rec, err = r.resolver.FindResourceByTitle(ctx, resource, name, nil, false)
		} else {
			rec, err = r.resolver.FindResource(ctx, resource, name, nil, false)
		}
		if err != nil {
			return nil, err
		}
		id, _ := rec.ID()
		scope[key+"_id"] = id
	}
	return scope, nil
}

// journalResult records one entry outcome; journaling failures are logged,
// not fatal.
func (r *runner) journalResult(ctx context.Context, runID string, outcome entryOutcome) {
	if r.store == nil {
		return
	}

	res := &stores.Result{
		ID:         uuid.NewString(),
		RunID:      runID,
		Resource:   outcome.Resource,
		EntityName: outcome.Name,
		State:      outcome.State,
		Operation:  outcome.Operation,
		Changed:    outcome.Changed,
		CreatedAt:  time.Now(),
	}
	if len(outcome.Diff) > 0 {
		if data, err := json.Marshal(outcome.Diff); err == nil {
			diff := string(data)
			res.Diff = &diff
		}
	}
	if outcome.Error != "" {
		msg := outcome.Error
		res.Error = &msg
	}

	if err := r.store.CreateResult(ctx, res); err != nil {
		r.logger.Warn().Err(err).Msg("failed to journal result")
	}
}

// printOutcomes renders the per-entry results as text or JSON.
func printOutcomes(outcomes []entryOutcome) error {
	if jsonOutput {
		data, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	changed := 0
	for _, o := range outcomes {
		marker := " "
		if o.Changed {
			marker = "~"
			changed++
		}
		if o.Error != "" {
			marker = "!"
		}
		line := fmt.Sprintf("%s %s/%s: %s", marker, o.Resource, o.Name, o.Operation)
		if len(o.Diff) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(o.Diff, ", "))
		}
		if o.Error != "" {
			line += " error: " + o.Error
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d entries, %d changed\n", len(outcomes), changed)
	return nil
}
