package scan

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/subscan/internal/billing"
	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/reconcile"
)

// StartManualEntry skips scanning and opens review with an empty set. Any
// scan in flight is cancelled.
func (o *Orchestrator) StartManualEntry() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.invalidateLocked()
	o.done = nil
	o.state = model.StateReview
	o.result = nil
	o.items = nil
	o.err = nil
	o.progress = model.ScanProgress{
		Generation: o.gen,
		Phase:      model.PhaseComplete,
		Purchases:  model.SourceProgress{Status: model.SourceUnavailable},
		Email:      model.SourceProgress{Status: model.SourceUnavailable},
		StartedAt:  o.now(),
	}
	o.log.Info("scan: manual entry", zap.Uint64("generation", o.gen))
}

// AddManual adds a user-entered record to the review set. The record is
// forced to manual origin and high confidence.
func (o *Orchestrator) AddManual(c model.Candidate) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != model.StateReview {
		return eris.Wrapf(ErrInvalidState, "add manual record in state %s", o.state)
	}
	if o.indexLocked(c.ID) >= 0 {
		return eris.Errorf("scan: duplicate candidate id %s", c.ID)
	}

	c.Origin = model.OriginManual
	c.Confidence = model.ConfidenceHigh
	c.SenderID = ""
	c.ProductID = ""
	if c.DetectedAt.IsZero() {
		c.DetectedAt = o.now()
	}

	included := make(map[string]bool, len(o.items)+1)
	records := make([]model.Candidate, 0, len(o.items)+1)
	for _, it := range o.items {
		included[it.Candidate.ID] = it.Included
		records = append(records, it.Candidate)
	}
	included[c.ID] = true
	records = append(records, c)

	o.items = make([]model.ReviewItem, 0, len(records))
	for _, r := range reconcile.Rank(records) {
		o.items = append(o.items, reviewItem(r, included[r.ID]))
	}
	return nil
}

// ToggleInclusion flips whether a candidate will be confirmed and returns
// the new value.
func (o *Orchestrator) ToggleInclusion(id string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != model.StateReview {
		return false, eris.Wrapf(ErrInvalidState, "toggle in state %s", o.state)
	}
	i := o.indexLocked(id)
	if i < 0 {
		return false, eris.Wrapf(ErrUnknownCandidate, "id %s", id)
	}
	o.items[i].Included = !o.items[i].Included
	return o.items[i].Included, nil
}

// Candidates returns the review set in rank order.
func (o *Orchestrator) Candidates() []model.ReviewItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.items)
}

// Confirm moves review to complete and returns the included candidates.
// When a Sink is configured they are persisted first; on a persistence
// error the orchestrator stays in review so the user can retry. If a new scan
// or manual entry replaces the review while persisting, the saved records
// are still returned, alongside ErrSuperseded, and the state is left to the
// newer session.
func (o *Orchestrator) Confirm(ctx context.Context) ([]model.Candidate, error) {
	o.mu.Lock()
	if o.state != model.StateReview {
		state := o.state
		o.mu.Unlock()
		return nil, eris.Wrapf(ErrInvalidState, "confirm in state %s", state)
	}
	gen := o.gen
	var sessionID string
	if o.result != nil {
		sessionID = o.result.ID
	}
	confirmed := make([]model.Candidate, 0, len(o.items))
	for _, it := range o.items {
		if it.Included {
			confirmed = append(confirmed, it.Candidate)
		}
	}
	o.mu.Unlock()

	if o.sink != nil {
		if err := o.sink.SaveConfirmed(ctx, sessionID, confirmed); err != nil {
			return nil, eris.Wrap(err, "scan: save confirmed")
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen || o.state != model.StateReview {
		if o.sink != nil {
			o.log.Warn("scan: review replaced after confirmed records were saved",
				zap.Uint64("generation", gen),
				zap.Int("confirmed", len(confirmed)),
			)
			return confirmed, eris.Wrap(ErrSuperseded, "scan: confirmed records saved")
		}
		return nil, ErrSuperseded
	}
	o.state = model.StateComplete
	o.log.Info("scan: confirmed",
		zap.Uint64("generation", gen),
		zap.Int("confirmed", len(confirmed)),
		zap.Int("offered", len(o.items)),
	)
	return confirmed, nil
}

// indexLocked must be called with o.mu held.
func (o *Orchestrator) indexLocked(id string) int {
	return slices.IndexFunc(o.items, func(it model.ReviewItem) bool {
		return it.Candidate.ID == id
	})
}

func reviewItems(records []model.Candidate) []model.ReviewItem {
	items := make([]model.ReviewItem, len(records))
	for i, r := range records {
		items[i] = reviewItem(r, true)
	}
	return items
}

func reviewItem(c model.Candidate, included bool) model.ReviewItem {
	return model.ReviewItem{
		Candidate:         c,
		Included:          included,
		MonthlyEquivalent: billing.MonthlyEquivalent(c.Price, c.Cycle),
	}
}
