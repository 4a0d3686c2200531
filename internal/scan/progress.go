package scan

import (
	"context"

	"github.com/sells-group/subscan/internal/model"
)

type sourceKey int

const (
	keyPurchases sourceKey = iota
	keyEmail
)

func (k sourceKey) String() string {
	if k == keyPurchases {
		return "purchases"
	}
	return "email"
}

// update is one collaborator report tagged with the scan it belongs to.
type update struct {
	gen uint64
	key sourceKey
	u   model.SourceUpdate
}

// reporter returns the Reporter handed to one collaborator. Sends give up
// once the scan context is done so a late collaborator never blocks.
func reporter(ctx context.Context, gen uint64, key sourceKey, updates chan<- update) Reporter {
	return func(u model.SourceUpdate) {
		select {
		case updates <- update{gen: gen, key: key, u: u}:
		case <-ctx.Done():
		}
	}
}

// applyLoop is the only writer of collaborator progress for one scan. It
// drains whatever is queued once stop is closed, then closes done.
func (o *Orchestrator) applyLoop(updates <-chan update, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case u := <-updates:
			o.apply(u)
		case <-stop:
			for {
				select {
				case u := <-updates:
					o.apply(u)
				default:
					return
				}
			}
		}
	}
}

func (o *Orchestrator) apply(u update) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Updates from a replaced scan are dropped.
	if u.gen != o.gen {
		return
	}
	sp := o.sourceProgress(u.key)
	if sp.Status.Terminal() {
		return
	}
	if u.u.Status != "" {
		sp.Status = u.u.Status
	}
	sp.ItemsScanned = u.u.ItemsScanned
	sp.CandidatesFound = u.u.CandidatesFound
	sp.Current = u.u.Current
}

// sourceProgress must be called with o.mu held.
func (o *Orchestrator) sourceProgress(key sourceKey) *model.SourceProgress {
	if key == keyPurchases {
		return &o.progress.Purchases
	}
	return &o.progress.Email
}
