package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/praetorian-inc/ocigraph/internal/jq"
	"github.com/praetorian-inc/ocigraph/pkg/graph"
	ocicollectors "github.com/praetorian-inc/ocigraph/pkg/oci/collectors"
	ocigrapher "github.com/praetorian-inc/ocigraph/pkg/oci/grapher"
	"github.com/praetorian-inc/ocigraph/pkg/oci/xref"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// Config is one sync request.
type Config struct {
	TenancyID string
	// Regions restricts the sync to these subscribed regions. Empty means all.
	Regions []string
	// Resources selects stages by name, service or kind. Empty means all.
	Resources []string
	// AllCompartments syncs every compartment known to the graph, not just the tenancy root.
	AllCompartments bool
	// UpdateTag stamps every write. Zero means Unix seconds at run start.
	UpdateTag int64
	// ContinueOnError keeps going after a stage fails and returns every failure.
	ContinueOnError bool
	// Filter is a jq expression; only records it matches are written.
	Filter string
}

// CollectorFactory binds collectors to a region.
type CollectorFactory interface {
	ForRegion(region string) (*ocicollectors.Set, error)
}

// RegionLister reads region subscriptions from the identity API.
type RegionLister interface {
	ListRegionSubscriptions(ctx context.Context, tenancyID string) ([]ocitypes.Region, error)
}

type Status int

const (
	StatusOK Status = iota
	StatusFailed
	// StatusSkipped means a prerequisite did not complete.
	StatusSkipped
	// StatusDisabled means Config.Resources did not select the stage.
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusDisabled:
		return "disabled"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// StageResult is the outcome of one stage in one region.
type StageResult struct {
	Stage    string
	Region   string
	Status   Status
	Count    int
	Duration time.Duration
	Err      error
}

type Summary struct {
	RunID     string
	TenancyID string
	UpdateTag int64
	Regions   []string
	Results   []StageResult
}

// Count returns the number of results with status s.
func (s *Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

type Syncer struct {
	db         graph.GraphDatabase
	collectors CollectorFactory
	identity   RegionLister
	pipeline   *Pipeline
	resolver   *xref.Resolver
	metrics    *Metrics
	now        func() time.Time
}

type SyncerOption func(*Syncer)

// WithIdentity is used for regions when the graph has none.
func WithIdentity(l RegionLister) SyncerOption {
	return func(s *Syncer) { s.identity = l }
}

func WithPipeline(p *Pipeline) SyncerOption {
	return func(s *Syncer) { s.pipeline = p }
}

func WithResolver(r *xref.Resolver) SyncerOption {
	return func(s *Syncer) { s.resolver = r }
}

func WithMetrics(m *Metrics) SyncerOption {
	return func(s *Syncer) { s.metrics = m }
}

func WithClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) { s.now = now }
}

func NewSyncer(db graph.GraphDatabase, collectors CollectorFactory, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		db:         db,
		collectors: collectors,
		resolver:   xref.NewResolver(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pipeline == nil {
		s.pipeline = DefaultPipeline()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

func (s *Syncer) Metrics() *Metrics {
	return s.metrics
}

// Run performs one sequential sync pass. With ContinueOnError unset the first
// failure ends the run; the summary covers what ran until then.
func (s *Syncer) Run(ctx context.Context, cfg Config) (*Summary, error) {
	if cfg.TenancyID == "" {
		return nil, errors.New("tenancy id is required")
	}
	if err := s.validateResources(cfg.Resources); err != nil {
		return nil, err
	}

	var filter *jq.Filter
	if cfg.Filter != "" {
		f, err := jq.Compile(cfg.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid record filter: %w", err)
		}
		filter = f
	}

	updateTag := cfg.UpdateTag
	if updateTag == 0 {
		updateTag = s.now().Unix()
	}

	summary := &Summary{RunID: uuid.NewString(), TenancyID: cfg.TenancyID, UpdateTag: updateTag}
	log := slog.With("run", summary.RunID, "tenancy", cfg.TenancyID)
	log.Info("starting sync", "update_tag", updateTag)

	if sm, ok := s.db.(graph.SchemaManager); ok {
		if err := sm.EnsureConstraints(ctx, ocigrapher.Constraints()); err != nil {
			return summary, fmt.Errorf("failed to ensure constraints: %w", err)
		}
	}

	reader := ocigrapher.NewGraphReader(s.db)

	subscribed, err := s.regions(ctx, reader, cfg.TenancyID)
	if err != nil {
		return summary, err
	}
	regions, err := selectRegions(subscribed, cfg.Regions)
	if err != nil {
		return summary, err
	}
	summary.Regions = regions

	scopes := []string{cfg.TenancyID}
	if cfg.AllCompartments {
		compartments, err := reader.Compartments(ctx, cfg.TenancyID)
		if err != nil {
			return summary, err
		}
		for _, c := range compartments {
			if c.OCID != cfg.TenancyID {
				scopes = append(scopes, c.OCID)
			}
		}
	}
	log.Info("sync scope", "regions", len(regions), "compartments", len(scopes))

	env := Env{
		TenancyID: cfg.TenancyID,
		UpdateTag: updateTag,
		Scopes:    scopes,
		Regions:   ocitypes.NewRegionTable(subscribed),
		Index:     NewIndex(),
		Loader:    ocigrapher.NewLoader(s.db),
		Reader:    reader,
		Resolver:  s.resolver,
		Filter:    filter,
		Metrics:   s.metrics,
	}

	r := &runner{cfg: cfg, summary: summary, metrics: s.metrics, log: log, ok: make(map[string]bool)}

	for _, region := range regions {
		set, err := s.collectors.ForRegion(region)
		if err != nil {
			if stop := r.fail(fmt.Errorf("failed to create clients for %s: %w", region, err)); stop {
				return summary, r.err
			}
			continue
		}
		regional := env
		regional.Region = region
		regional.Collectors = set
		for _, stage := range s.pipeline.scoped(ScopeRegional) {
			if stop := r.run(ctx, stage, &regional); stop {
				return summary, r.err
			}
		}
	}

	tenancy := env
	for _, stage := range s.pipeline.scoped(ScopeTenancy) {
		if stop := r.run(ctx, stage, &tenancy); stop {
			return summary, r.err
		}
	}

	log.Info("sync finished",
		"ok", summary.Count(StatusOK),
		"failed", summary.Count(StatusFailed),
		"skipped", summary.Count(StatusSkipped))
	return summary, r.err
}

// regions prefers the identity sync's nodes and falls back to the identity API.
func (s *Syncer) regions(ctx context.Context, reader *ocigrapher.GraphReader, tenancyID string) ([]ocitypes.Region, error) {
	regions, err := reader.Regions(ctx, tenancyID)
	if err != nil {
		return nil, err
	}
	if len(regions) > 0 || s.identity == nil {
		return regions, nil
	}
	slog.Info("no regions in graph, asking the identity API", "tenancy", tenancyID)
	regions, err = s.identity.ListRegionSubscriptions(ctx, tenancyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list region subscriptions: %w", err)
	}
	return regions, nil
}

func selectRegions(subscribed []ocitypes.Region, wanted []string) ([]string, error) {
	names := make([]string, 0, len(subscribed))
	for _, r := range subscribed {
		names = append(names, r.Name)
	}
	if len(wanted) == 0 {
		return names, nil
	}
	for _, w := range wanted {
		if !slices.Contains(names, w) {
			return nil, fmt.Errorf("region %s is not subscribed (subscribed: %v)", w, names)
		}
	}
	out := make([]string, 0, len(wanted))
	for _, n := range names {
		if slices.Contains(wanted, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Syncer) validateResources(selectors []string) error {
	for _, sel := range selectors {
		found := false
		for _, stage := range s.pipeline.stages {
			if stage.Matches(sel) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown resource %q", sel)
		}
	}
	return nil
}

// runner tracks stage outcomes within one Run.
type runner struct {
	cfg     Config
	summary *Summary
	metrics *Metrics
	log     *slog.Logger
	// ok holds "<region>/<stage>" for regional and "<stage>" for tenancy stages that completed.
	ok     map[string]bool
	failed map[string]bool
	err    error
}

func (r *runner) enabled(stage Stage) bool {
	if stage.Resource == "" || len(r.cfg.Resources) == 0 {
		return true
	}
	for _, sel := range r.cfg.Resources {
		if stage.Matches(sel) {
			return true
		}
	}
	return false
}

// ready reports whether every prerequisite completed. A tenancy stage needs
// its regional prerequisites to have completed in every region.
func (r *runner) ready(stage Stage, region string) (bool, string) {
	for _, req := range stage.Requires {
		if region != "" {
			if !r.ok[region+"/"+req] {
				return false, req
			}
			continue
		}
		if r.ok[req] {
			continue
		}
		if len(r.summary.Regions) == 0 || r.failed[req] {
			return false, req
		}
		for _, reg := range r.summary.Regions {
			if !r.ok[reg+"/"+req] {
				return false, req
			}
		}
	}
	return true, ""
}

func (r *runner) record(res StageResult) {
	r.summary.Results = append(r.summary.Results, res)
}

// fail records err and reports whether the run must stop.
func (r *runner) fail(err error) bool {
	r.err = multierr.Append(r.err, err)
	return !r.cfg.ContinueOnError
}

func (r *runner) run(ctx context.Context, stage Stage, env *Env) bool {
	log := r.log.With("stage", stage.Name)
	if env.Region != "" {
		log = log.With("region", env.Region)
	}
	res := StageResult{Stage: stage.Name, Region: env.Region}

	if !r.enabled(stage) {
		res.Status = StatusDisabled
		r.record(res)
		log.Debug("stage disabled")
		return false
	}
	if ok, missing := r.ready(stage, env.Region); !ok {
		res.Status = StatusSkipped
		r.record(res)
		log.Warn("skipping stage, prerequisite did not complete", "requires", missing)
		return false
	}
	if err := ctx.Err(); err != nil {
		res.Status = StatusFailed
		res.Err = err
		r.record(res)
		r.err = multierr.Append(r.err, err)
		return true
	}

	log.Info("running stage")
	start := time.Now()
	n, err := stage.Run(ctx, env)
	res.Duration = time.Since(start)
	res.Count = n
	r.metrics.StageDuration.WithLabelValues(stage.Name).Observe(res.Duration.Seconds())

	key := stage.Name
	if env.Region != "" {
		key = env.Region + "/" + stage.Name
	}

	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		r.record(res)
		r.metrics.StageFailures.WithLabelValues(stage.Name).Inc()
		if r.failed == nil {
			r.failed = make(map[string]bool)
		}
		r.failed[stage.Name] = true
		log.Error("stage failed", "error", err)
		where := stage.Name
		if env.Region != "" {
			where = fmt.Sprintf("%s in %s", stage.Name, env.Region)
		}
		return r.fail(fmt.Errorf("stage %s: %w", where, err))
	}

	res.Status = StatusOK
	r.record(res)
	r.ok[key] = true
	log.Info("stage complete", "count", n, "duration", res.Duration.Round(time.Millisecond))
	return false
}
