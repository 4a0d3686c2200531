package source

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/resilience"
	"github.com/sells-group/subscan/internal/scan"
)

// Guard wraps a collaborator with retries, a circuit breaker and output
// validation. Unavailability passes through untouched and does not count
// against the breaker.
type Guard struct {
	name    string
	src     scan.Source
	policy  resilience.Policy
	breaker *resilience.Breaker
	log     *zap.Logger
}

// NewGuard wraps src. A nil breaker disables fail-fast.
func NewGuard(name string, src scan.Source, policy resilience.Policy, breaker *resilience.Breaker) *Guard {
	log := zap.L().With(zap.String("source", name))
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error) {
			log.Warn("source: retrying", zap.Int("attempt", attempt), zap.Error(err))
		}
	}
	return &Guard{
		name:    name,
		src:     src,
		policy:  policy,
		breaker: breaker,
		log:     log,
	}
}

// Scan implements scan.Source.
func (g *Guard) Scan(ctx context.Context, report scan.Reporter) ([]model.Candidate, error) {
	var unavailable error
	call := func(ctx context.Context) ([]model.Candidate, error) {
		return resilience.Retry(ctx, g.policy, func(ctx context.Context) ([]model.Candidate, error) {
			records, err := g.src.Scan(ctx, report)
			if eris.Is(err, scan.ErrUnavailable) {
				unavailable = err
				return nil, resilience.Neutral(err)
			}
			return records, err
		})
	}

	var (
		records []model.Candidate
		err     error
	)
	if g.breaker != nil {
		records, err = resilience.Call(ctx, g.breaker, call)
	} else {
		records, err = call(ctx)
	}
	if unavailable != nil {
		return nil, unavailable
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", g.name)
	}
	return Filter(records, g.log), nil
}
