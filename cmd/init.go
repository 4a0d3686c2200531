package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/subscan/internal/config"
	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/resilience"
	"github.com/sells-group/subscan/internal/scan"
	"github.com/sells-group/subscan/internal/source"
	"github.com/sells-group/subscan/internal/store"
)

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if err := c.Validate("store"); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch c.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(c.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{MaxConns: c.Store.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initSources builds the guarded fixture collaborators.
func initSources(c *config.Config) (purchases, email scan.Source) {
	policy := resilience.DefaultPolicy()
	policy.Attempts = c.Scan.RetryAttempts
	policy.Backoff = c.Scan.RetryBackoff()

	guard := func(name, path string, origin model.Origin) scan.Source {
		fixture := source.NewFixture(path, origin, c.Scan.ProgressRate)
		breaker := resilience.NewBreaker(c.Scan.BreakerThreshold, c.Scan.BreakerReset())
		return source.NewGuard(name, fixture, policy, breaker)
	}

	return guard("purchases", c.Sources.PurchasesPath, model.OriginPurchase),
		guard("email", c.Sources.EmailPath, model.OriginEmail)
}

func initOrchestrator(c *config.Config, sink scan.Sink) *scan.Orchestrator {
	purchases, email := initSources(c)
	opts := []scan.Option{scan.WithSourceTimeout(c.Scan.SourceTimeout())}
	if sink != nil {
		opts = append(opts, scan.WithSink(sink))
	}
	return scan.New(purchases, email, opts...)
}
