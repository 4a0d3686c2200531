// Package source provides scan collaborators backed by local fixture files,
// the boundary checks applied to collaborator output and manual entry.
package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/scan"
)

const dateLayout = "2006-01-02"

// FixtureFile is the on-disk shape of a collaborator export. JSON files
// parse too.
type FixtureFile struct {
	Account    string          `yaml:"account"`
	RawItems   int             `yaml:"raw_items"`
	Candidates []FixtureRecord `yaml:"candidates"`
}

// FixtureRecord is one candidate as written in a fixture. Money and dates
// stay strings until parsed.
type FixtureRecord struct {
	ID              string `yaml:"id"`
	MerchantID      string `yaml:"merchant_id"`
	DisplayName     string `yaml:"display_name"`
	Price           string `yaml:"price"`
	Cycle           string `yaml:"cycle"`
	Confidence      string `yaml:"confidence"`
	NextBillingDate string `yaml:"next_billing_date"`
	LastChargeDate  string `yaml:"last_charge_date"`
	EvidenceCount   int    `yaml:"evidence_count"`
	SenderID        string `yaml:"sender_id"`
	ProductID       string `yaml:"product_id"`
}

// LoadFixture reads and parses a fixture file. A missing file is
// scan.ErrUnavailable.
func LoadFixture(path string) (*FixtureFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, eris.Wrap(scan.ErrUnavailable, "source: no fixture configured")
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(scan.ErrUnavailable, "source: fixture %s not found", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: read fixture %s", path)
	}

	var f FixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "source: parse fixture %s", path)
	}
	return &f, nil
}

// Candidate converts a fixture record, stamping origin and detection time.
func (r FixtureRecord) Candidate(origin model.Origin, detectedAt time.Time) (model.Candidate, error) {
	price := decimal.Zero
	if strings.TrimSpace(r.Price) != "" {
		p, err := decimal.NewFromString(strings.TrimSpace(r.Price))
		if err != nil {
			return model.Candidate{}, eris.Wrapf(err, "source: price %q of %s", r.Price, r.ID)
		}
		price = p
	}
	next, err := parseDate(r.NextBillingDate)
	if err != nil {
		return model.Candidate{}, eris.Wrapf(err, "source: next_billing_date of %s", r.ID)
	}
	last, err := parseDate(r.LastChargeDate)
	if err != nil {
		return model.Candidate{}, eris.Wrapf(err, "source: last_charge_date of %s", r.ID)
	}

	return model.Candidate{
		ID:              r.ID,
		MerchantID:      r.MerchantID,
		DisplayName:     r.DisplayName,
		Price:           price,
		Cycle:           model.ParseCycle(r.Cycle),
		Confidence:      model.ParseConfidence(r.Confidence),
		NextBillingDate: next,
		LastChargeDate:  last,
		EvidenceCount:   r.EvidenceCount,
		Origin:          origin,
		SenderID:        r.SenderID,
		DetectedAt:      detectedAt,
		ProductID:       r.ProductID,
	}, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Fixture is a scan.Source that replays a collaborator export from disk.
// The file is re-read on every scan.
type Fixture struct {
	path    string
	origin  model.Origin
	limiter *rate.Limiter
	now     func() time.Time
}

// NewFixture creates a Fixture for one origin. progressRate caps how many
// progress reports per second are emitted; zero or less means unpaced.
func NewFixture(path string, origin model.Origin, progressRate float64) *Fixture {
	limit := rate.Inf
	if progressRate > 0 {
		limit = rate.Limit(progressRate)
	}
	return &Fixture{
		path:    path,
		origin:  origin,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Scan implements scan.Source.
func (f *Fixture) Scan(ctx context.Context, report scan.Reporter) ([]model.Candidate, error) {
	file, err := LoadFixture(f.path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(file.Account) == "" {
		return nil, eris.Wrapf(scan.ErrUnavailable, "source: %s fixture has no connected account", f.origin)
	}

	total := len(file.Candidates)
	raw := max(file.RawItems, total)
	detectedAt := f.now()

	out := make([]model.Candidate, 0, total)
	for i, rec := range file.Candidates {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "source: %s scan interrupted", f.origin)
		}
		c, err := rec.Candidate(f.origin, detectedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		report(model.SourceUpdate{
			ItemsScanned:    raw * (i + 1) / total,
			CandidatesFound: len(out),
			Current:         rec.DisplayName,
		})
	}

	report(model.SourceUpdate{
		Status:          model.SourceAnalyzing,
		ItemsScanned:    raw,
		CandidatesFound: len(out),
	})
	return out, nil
}
