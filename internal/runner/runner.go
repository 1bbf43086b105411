// Package runner reconciles the configured zones, several at a time, and
// remembers the outcome of the last run of every zone for health checks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gitlab.bluewillows.net/root/zonesync/internal/config"
	"gitlab.bluewillows.net/root/zonesync/internal/reconciler"
	"gitlab.bluewillows.net/root/zonesync/internal/state"
	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// DefaultConcurrency is used when no concurrency is configured.
const DefaultConcurrency = 4

// ErrProviderUnavailable is returned for zones whose provider instance is
// not initialized.
var ErrProviderUnavailable = errors.New("provider not available")

// ProviderSource looks up initialized provider instances.
type ProviderSource interface {
	Get(name string) (provider.Provider, bool)
}

// DocumentLoader reads desired-state documents.
type DocumentLoader interface {
	Load(ctx context.Context, src state.Source) (*state.Document, error)
}

// ZoneError is the error of one zone.
type ZoneError struct {
	Zone string
	Err  error
}

func (e *ZoneError) Error() string {
	return fmt.Sprintf("zone %s: %v", e.Zone, e.Err)
}

func (e *ZoneError) Unwrap() error {
	return e.Err
}

// Outcome is the result of reconciling one zone.
type Outcome struct {
	Zone   string
	Result *reconciler.Result
	Err    error
}

// ZoneStatus describes the last run of a zone.
type ZoneStatus struct {
	Zone       string    `json:"zone"`
	Provider   string    `json:"provider"`
	LastRun    time.Time `json:"last_run"`
	Success    bool      `json:"success"`
	Changed    bool      `json:"changed"`
	DryRun     bool      `json:"dry_run"`
	Operations int       `json:"operations"`
	Error      string    `json:"error,omitempty"`
}

// Runner reconciles zones.
type Runner struct {
	providers   ProviderSource
	loader      DocumentLoader
	logger      *slog.Logger
	concurrency int
	recOpts     []reconciler.Option

	// runMu keeps runs from overlapping.
	runMu sync.Mutex

	mu     sync.RWMutex
	status map[string]ZoneStatus
}

// Option is a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithConcurrency limits how many zones are reconciled at the same time.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithReconcilerOptions passes options to every reconciler the runner creates.
func WithReconcilerOptions(opts ...reconciler.Option) Option {
	return func(r *Runner) {
		r.recOpts = append(r.recOpts, opts...)
	}
}

// New creates a Runner.
func New(providers ProviderSource, loader DocumentLoader, opts ...Option) *Runner {
	r := &Runner{
		providers:   providers,
		loader:      loader,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
		status:      make(map[string]ZoneStatus),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run reconciles zones with bounded concurrency. A failing zone does not
// stop the others. Outcomes are returned in the order of zones; the error
// joins one *ZoneError per failed zone. forceDryRun plans every zone
// without writing. Concurrent calls are serialized.
func (r *Runner) Run(ctx context.Context, zones []*config.ZoneConfig, forceDryRun bool) ([]Outcome, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	outcomes := make([]Outcome, len(zones))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, z := range zones {
		g.Go(func() error {
			res, err := r.reconcileZone(ctx, z, forceDryRun)
			outcomes[i] = Outcome{Zone: z.Key(), Result: res, Err: err}
			r.recordStatus(z, res, err)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, &ZoneError{Zone: o.Zone, Err: o.Err})
		}
	}
	return outcomes, errors.Join(errs...)
}

func (r *Runner) reconcileZone(ctx context.Context, z *config.ZoneConfig, forceDryRun bool) (*reconciler.Result, error) {
	logger := r.logger.With(
		slog.String("provider", z.Provider),
		slog.String("zone", z.Zone.String()),
	)

	p, ok := r.providers.Get(z.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, z.Provider)
	}

	doc, err := r.loader.Load(ctx, z.State)
	if err != nil {
		return nil, fmt.Errorf("loading desired state: %w", err)
	}
	if err := checkDocumentZone(doc, z.Zone); err != nil {
		return nil, err
	}

	transformation, err := doc.Transformation(z.TXTTransformation)
	if err != nil {
		return nil, err
	}

	req := reconciler.Request{
		Zone:                 z.Zone,
		RecordSets:           doc.Specs(),
		Policy:               z.Policy,
		TXTTransformation:    transformation,
		TXTCharacterEncoding: z.TXTCharacterEncoding,
		DryRun:               z.DryRun || forceDryRun,
	}

	logger.Debug("reconciling zone",
		slog.Int("record_sets", len(req.RecordSets)),
		slog.Bool("dry_run", req.DryRun),
	)

	opts := append([]reconciler.Option{reconciler.WithLogger(r.logger)}, r.recOpts...)
	return reconciler.New(p, opts...).Reconcile(ctx, req)
}

// checkDocumentZone rejects documents written for another zone. Zones
// addressed by ID cannot be checked.
func checkDocumentZone(doc *state.Document, ref provider.ZoneRef) error {
	if doc.Zone == "" || ref.Name == "" {
		return nil
	}
	name, err := dnsname.NormalizeName(doc.Zone)
	if err != nil {
		return fmt.Errorf("desired state zone: %w", err)
	}
	if name != ref.Name {
		return fmt.Errorf("desired state is for zone %s, not %s", name, ref.Name)
	}
	return nil
}

func (r *Runner) recordStatus(z *config.ZoneConfig, res *reconciler.Result, err error) {
	st := ZoneStatus{
		Zone:     z.Zone.String(),
		Provider: z.Provider,
		LastRun:  time.Now(),
		Success:  err == nil,
	}
	if res != nil {
		st.Changed = res.Changed
		st.DryRun = res.DryRun
		st.Operations = len(res.Operations)
	}
	if err != nil {
		st.Error = err.Error()
	}

	r.mu.Lock()
	r.status[z.Key()] = st
	r.mu.Unlock()
}

// Statuses returns the last run of every zone that has run, sorted by
// provider and zone.
func (r *Runner) Statuses() []ZoneStatus {
	r.mu.RLock()
	out := make([]ZoneStatus, 0, len(r.status))
	for _, st := range r.status {
		out = append(out, st)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Zone < out[j].Zone
	})
	return out
}

// Failing returns the zones whose last run failed.
func (r *Runner) Failing() []string {
	var failing []string
	for _, st := range r.Statuses() {
		if !st.Success {
			failing = append(failing, st.Provider+"/"+st.Zone)
		}
	}
	return failing
}

// Loop runs all zones immediately and then every interval until ctx is
// cancelled. Errors are logged; the loop keeps going.
func (r *Runner) Loop(ctx context.Context, zones []*config.ZoneConfig, interval time.Duration) {
	runOnce := func() {
		outcomes, err := r.Run(ctx, zones, false)
		changed := 0
		for _, o := range outcomes {
			if o.Result != nil && o.Result.Changed {
				changed++
			}
		}
		if err != nil {
			r.logger.Error("reconciliation run finished with errors",
				slog.Int("zones", len(zones)),
				slog.Int("changed", changed),
				slog.String("error", err.Error()),
			)
			return
		}
		r.logger.Info("reconciliation run complete",
			slog.Int("zones", len(zones)),
			slog.Int("changed", changed),
		)
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.logger.Debug("periodic reconciliation triggered", slog.Duration("interval", interval))
			runOnce()
		}
	}
}
