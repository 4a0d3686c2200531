package source

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/subscan/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(candidateRules, model.Candidate{})
	return v
}

// candidateRules holds the cross-field invariants of a candidate.
func candidateRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(model.Candidate)

	if c.Price.IsNegative() {
		sl.ReportError(c.Price, "Price", "price", "nonnegative", "")
	}
	switch c.Origin {
	case model.OriginEmail:
		if c.SenderID == "" {
			sl.ReportError(c.SenderID, "SenderID", "sender_id", "required_for_email", "")
		}
	default:
		if c.SenderID != "" {
			sl.ReportError(c.SenderID, "SenderID", "sender_id", "email_only", "")
		}
	}
	if c.Origin == model.OriginManual && c.Confidence != model.ConfidenceHigh {
		sl.ReportError(c.Confidence, "Confidence", "confidence", "manual_is_high", "")
	}
	if c.ProductID != "" && c.Origin != model.OriginPurchase {
		sl.ReportError(c.ProductID, "ProductID", "product_id", "purchase_only", "")
	}
}

// Validate checks one candidate against the record invariants.
func Validate(c model.Candidate) error {
	return validate.Struct(c)
}

// Filter drops invalid records and repeated IDs, logging each at warn.
// Order is preserved.
func Filter(records []model.Candidate, log *zap.Logger) []model.Candidate {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.Candidate, 0, len(records))
	for _, c := range records {
		if err := Validate(c); err != nil {
			log.Warn("source: dropping invalid candidate",
				zap.String("id", c.ID),
				zap.String("name", c.DisplayName),
				zap.Error(err),
			)
			continue
		}
		if _, dup := seen[c.ID]; dup {
			log.Warn("source: dropping duplicate candidate id", zap.String("id", c.ID))
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
