package models

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"uco-udo-recon/pkg/logger"
)

// Normalizer converts heterogeneous cell contents into exact
// fixed-point decimals. Every failure mode resolves to 0.00 with a
// logged input so one malformed cell never aborts a run.
type Normalizer struct {
	log logger.Logger
}

// NewNormalizer creates a Normalizer writing diagnostics to log.
func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize converts raw into a decimal quantized to two places with
// half-up rounding. Handled inputs:
//   - nil or empty string: 0.00
//   - a string starting with "=" (formula residue from the
//     formula-preserving view): 0.00, logged at error level
//   - accounting strings: "," and "$" stripped, bare "-" means zero,
//     "(x)" means -x
//   - numeric types, with float NaN treated as 0.00
//
// Anything unparseable after cleaning is 0.00 with the input logged.
func (n *Normalizer) Normalize(raw interface{}) decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero.Round(2)
	case string:
		return n.normalizeString(v)
	case float64:
		if math.IsNaN(v) {
			n.log.Warn("encountered NaN value, treating as zero")
			return decimal.Zero.Round(2)
		}
		return decimal.NewFromFloat(v).Round(2)
	case float32:
		return n.Normalize(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)).Round(2)
	case int64:
		return decimal.NewFromInt(v).Round(2)
	case decimal.Decimal:
		return v.Round(2)
	default:
		n.log.WithField("value", raw).Warn("unexpected value type, treating as zero")
		return decimal.Zero.Round(2)
	}
}

func (n *Normalizer) normalizeString(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero.Round(2)
	}

	if strings.HasPrefix(s, "=") {
		n.log.WithField("value", s).Error("attempted to convert a formula string to decimal")
		return decimal.Zero.Round(2)
	}

	cleaned := strings.TrimSpace(strings.NewReplacer(",", "", "$", "").Replace(s))
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero.Round(2)
	}

	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		n.log.WithField("value", s).WithError(err).Error("invalid value for decimal conversion")
		return decimal.Zero.Round(2)
	}
	return d.Round(2)
}
