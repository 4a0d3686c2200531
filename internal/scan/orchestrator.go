package scan

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/reconcile"
)

// Orchestrator owns the scan lifecycle: idle → scanning → review → complete.
// All exported methods are safe for concurrent use.
type Orchestrator struct {
	purchases Source
	email     Source
	sink      Sink
	log       *zap.Logger
	now       func() time.Time
	timeout   time.Duration

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	state    model.ScanState
	progress model.ScanProgress
	result   *model.SessionResult
	items    []model.ReviewItem
	err      error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSink sets where sessions and confirmed records are persisted.
func WithSink(s Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSourceTimeout bounds each collaborator call. A timeout counts as a
// source failure. Zero means no bound.
func WithSourceTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New creates an idle Orchestrator. Either source may be nil, in which case
// it is always reported unavailable.
func New(purchases, email Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		purchases: purchases,
		email:     email,
		log:       zap.L(),
		now:       time.Now,
		state:     model.StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartScan begins a scan in the background and returns its generation.
// Any scan already in flight is cancelled and its late output discarded.
// The scan outlives ctx's cancellation but keeps its values.
func (o *Orchestrator) StartScan(ctx context.Context, opts Options) uint64 {
	sess := o.begin(context.WithoutCancel(ctx), opts)
	go func() {
		if _, err := o.run(sess); err != nil && !eris.Is(err, ErrSuperseded) {
			o.log.Error("scan: background run failed", zap.Uint64("generation", sess.gen), zap.Error(err))
		}
	}()
	return sess.gen
}

// Scan runs a scan to completion and returns its result. It returns
// ErrSuperseded if another scan replaced it before it finished.
func (o *Orchestrator) Scan(ctx context.Context, opts Options) (*model.SessionResult, error) {
	return o.run(o.begin(ctx, opts))
}

// Wait blocks until no scan is in flight, then returns the latest result.
func (o *Orchestrator) Wait(ctx context.Context) (*model.SessionResult, error) {
	for {
		o.mu.Lock()
		done := o.done
		o.mu.Unlock()

		if done == nil {
			return o.Result(), nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "scan: wait")
		}

		o.mu.Lock()
		same := o.done == done
		o.mu.Unlock()
		if same {
			return o.Result(), nil
		}
	}
}

// session is one scan's private bookkeeping.
type session struct {
	gen       uint64
	ctx       context.Context
	done      chan struct{}
	start     time.Time
	purchases bool
	email     bool
}

func (o *Orchestrator) begin(ctx context.Context, opts Options) *session {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.invalidateLocked()
	scanCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		gen:       o.gen,
		ctx:       scanCtx,
		done:      make(chan struct{}),
		start:     o.now(),
		purchases: opts.IncludePurchases && o.purchases != nil,
		email:     opts.IncludeEmail && o.email != nil,
	}
	o.cancel = cancel
	o.done = sess.done

	o.state = model.StateScanning
	o.result = nil
	o.items = nil
	o.err = nil
	o.progress = model.ScanProgress{
		Generation: o.gen,
		Phase:      model.PhaseStarting,
		Purchases:  model.SourceProgress{Status: initialStatus(sess.purchases)},
		Email:      model.SourceProgress{Status: initialStatus(sess.email)},
		StartedAt:  sess.start,
	}

	o.log.Info("scan: starting",
		zap.Uint64("generation", sess.gen),
		zap.Bool("purchases", sess.purchases),
		zap.Bool("email", sess.email),
	)
	return sess
}

// invalidateLocked cancels the in-flight scan, if any, and bumps the
// generation so its late output is ignored. Must be called with o.mu held.
func (o *Orchestrator) invalidateLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
}

func initialStatus(active bool) model.SourceStatus {
	if active {
		return model.SourcePending
	}
	return model.SourceUnavailable
}

// outcome is what one collaborator produced.
type outcome struct {
	records []model.Candidate
	err     error
}

func (o *Orchestrator) run(sess *session) (*model.SessionResult, error) {
	gen := sess.gen
	defer func() {
		o.mu.Lock()
		if o.gen == gen && o.cancel != nil {
			o.cancel()
			o.cancel = nil
		}
		o.mu.Unlock()
		close(sess.done)
	}()

	scanCtx, cancel := context.WithCancel(sess.ctx)
	defer cancel()

	log := o.log.With(zap.Uint64("generation", gen))

	updates := make(chan update, 64)
	stop := make(chan struct{})
	applied := make(chan struct{})
	go o.applyLoop(updates, stop, applied)

	o.setPhase(gen, model.PhaseScanning)

	// Join, not race: collaborator errors are captured, never returned to
	// the group, so one finishing or failing does not stop the other.
	var purchases, emails outcome
	g, gCtx := errgroup.WithContext(scanCtx)
	if sess.purchases {
		g.Go(func() error {
			purchases = o.runSource(gCtx, o.purchases, reporter(scanCtx, gen, keyPurchases, updates))
			return nil
		})
	}
	if sess.email {
		g.Go(func() error {
			emails = o.runSource(gCtx, o.email, reporter(scanCtx, gen, keyEmail, updates))
			return nil
		})
	}
	_ = g.Wait()

	close(stop)
	<-applied

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		log.Info("scan: discarding superseded result")
		return nil, ErrSuperseded
	}
	purchaseStatus := o.finishSourceLocked(keyPurchases, sess.purchases, purchases)
	emailStatus := o.finishSourceLocked(keyEmail, sess.email, emails)
	o.progress.Phase = model.PhaseAnalyzing
	o.mu.Unlock()

	if purchaseStatus == model.SourceFailed {
		log.Error("scan: purchase history failed", zap.Error(purchases.err))
	}
	if emailStatus == model.SourceFailed {
		// Low-trust source: degrade to fewer candidates, never surface.
		log.Warn("scan: email scan failed, continuing without it", zap.Error(emails.err))
	}

	merged := reconcile.Merge(purchases.records, emails.records)

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		log.Info("scan: discarding superseded result")
		return nil, ErrSuperseded
	}
	result := &model.SessionResult{
		ID:             uuid.New().String(),
		Candidates:     merged,
		ItemsScanned:   o.progress.ItemsScanned(),
		Duration:       o.now().Sub(sess.start),
		StartedAt:      sess.start,
		PurchaseStatus: purchaseStatus,
		EmailStatus:    emailStatus,
	}
	if purchaseStatus == model.SourceFailed {
		o.err = eris.Wrap(purchases.err, "scan: purchase history unavailable, try again")
		result.Error = o.err.Error()
	}
	o.result = result
	o.items = reviewItems(merged)
	o.state = model.StateReview
	o.progress.Phase = model.PhaseComplete
	o.mu.Unlock()

	log.Info("scan: ready for review",
		zap.Int("candidates", len(merged)),
		zap.Int("items_scanned", result.ItemsScanned),
		zap.Duration("duration", result.Duration),
		zap.String("purchase_status", string(purchaseStatus)),
		zap.String("email_status", string(emailStatus)),
	)

	if o.sink != nil {
		if err := o.sink.SaveSession(scanCtx, result); err != nil {
			log.Warn("scan: failed to persist session", zap.Error(err))
		}
	}
	return cloneResult(result), nil
}

// runSource calls one collaborator under the per-source timeout. A
// collaborator that ignores cancellation is abandoned when the bound passes.
func (o *Orchestrator) runSource(ctx context.Context, src Source, report Reporter) outcome {
	report(model.SourceUpdate{Status: model.SourceScanning})

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	ch := make(chan outcome, 1)
	go func() {
		records, err := src.Scan(ctx, report)
		ch <- outcome{records: slices.Clone(records), err: err}
	}()

	select {
	case out := <-ch:
		return out
	case <-ctx.Done():
		return outcome{err: eris.Wrap(ctx.Err(), "scan: source did not finish")}
	}
}

// finishSourceLocked records a collaborator's terminal status. Must be
// called with o.mu held.
func (o *Orchestrator) finishSourceLocked(key sourceKey, launched bool, out outcome) model.SourceStatus {
	sp := o.sourceProgress(key)
	switch {
	case !launched, eris.Is(out.err, ErrUnavailable):
		sp.Status = model.SourceUnavailable
	case out.err != nil:
		sp.Status = model.SourceFailed
	default:
		sp.Status = model.SourceComplete
		sp.CandidatesFound = len(out.records)
	}
	sp.Current = ""
	return sp.Status
}

func (o *Orchestrator) setPhase(gen uint64, phase model.ScanPhase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen == gen {
		o.progress.Phase = phase
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() model.ScanState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Progress returns a snapshot of the current scan progress.
func (o *Orchestrator) Progress() model.ScanProgress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Result returns the latest completed session, or nil.
func (o *Orchestrator) Result() *model.SessionResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneResult(o.result)
}

// Err returns the user-visible error of the latest scan. Only a
// purchase-history failure produces one.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func cloneResult(r *model.SessionResult) *model.SessionResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Candidates = slices.Clone(r.Candidates)
	return &c
}
