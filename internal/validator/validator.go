package validator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"OHLCPipeline/internal/model"
)

// MaxNaNFraction is the exclusive upper bound on missing close/volume values.
const MaxNaNFraction = 0.10

// Check names reported in CheckError.
const (
	CheckNonEmpty        = "non_empty"
	CheckColumns         = "required_columns"
	CheckNumeric         = "numeric_columns"
	CheckDateIndex       = "date_index"
	CheckPositiveClose   = "positive_close"
	CheckMissingFraction = "missing_fraction"
	CheckInternal        = "internal"
)

// CheckError describes the first failed check.
type CheckError struct {
	Check  string
	Reason string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("validation failed [%s]: %s", e.Check, e.Reason)
}

// Validator asserts structural and statistical invariants before persistence.
type Validator struct {
	Logger *zap.Logger
}

// New creates a Validator.
func New(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{Logger: logger.Named("validate")}
}

// Validate reports whether s passes every check, logging the first failure.
func (v *Validator) Validate(s *model.Series) bool {
	if err := v.Check(s); err != nil {
		v.Logger.Warn("data validation failed", zap.String("ticker", s.Symbol()), zap.Error(err))
		return false
	}
	v.Logger.Info("all data validation checks passed", zap.String("ticker", s.Symbol()))
	return true
}

// Check runs every check in order and returns the first failure as a *CheckError.
// It never modifies s.
func (v *Validator) Check(s *model.Series) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CheckError{Check: CheckInternal, Reason: fmt.Sprint(r)}
		}
	}()

	if s.Empty() {
		return &CheckError{Check: CheckNonEmpty, Reason: "series is empty after processing"}
	}

	for _, col := range model.OHLCVColumns {
		if !s.HasColumn(col) {
			return &CheckError{Check: CheckColumns, Reason: fmt.Sprintf("missing essential column %q", col)}
		}
	}
	if len(s.Tickers) != s.Len() {
		return &CheckError{Check: CheckColumns, Reason: "missing essential column \"ticker\""}
	}
	for i, t := range s.Tickers {
		if t == "" {
			return &CheckError{Check: CheckColumns, Reason: fmt.Sprintf("empty ticker at row %d", i)}
		}
	}

	for _, col := range model.OHLCVColumns {
		values, _ := s.Column(col)
		if len(values) != s.Len() {
			return &CheckError{Check: CheckNumeric, Reason: fmt.Sprintf("%q has %d values for %d rows", col, len(values), s.Len())}
		}
		for i, x := range values {
			if math.IsInf(x, 0) {
				return &CheckError{Check: CheckNumeric, Reason: fmt.Sprintf("%q is not finite at row %d", col, i)}
			}
		}
	}

	for i, d := range s.Dates {
		if d.IsZero() {
			return &CheckError{Check: CheckDateIndex, Reason: fmt.Sprintf("row %d has no date", i)}
		}
		if i > 0 && !d.After(s.Dates[i-1]) {
			return &CheckError{Check: CheckDateIndex, Reason: fmt.Sprintf("dates not strictly ascending at row %d (%s)", i, d.Format("2006-01-02"))}
		}
	}

	closes, _ := s.Column(model.ColClose)
	for i, c := range closes {
		// NaN fails the comparison, matching an all-rows "> 0" assertion.
		if !(c > 0) {
			return &CheckError{Check: CheckPositiveClose, Reason: fmt.Sprintf("non-positive close %v at %s", c, s.Dates[i].Format("2006-01-02"))}
		}
	}

	for _, col := range []string{model.ColClose, model.ColVolume} {
		values, _ := s.Column(col)
		frac := float64(model.CountNaN(values)) / float64(len(values))
		if frac >= MaxNaNFraction {
			return &CheckError{Check: CheckMissingFraction, Reason: fmt.Sprintf("too many NaN values in %q (%.2f%%)", col, frac*100)}
		}
	}
	return nil
}
