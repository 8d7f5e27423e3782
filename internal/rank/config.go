package rank

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/ranked/internal/ir"
)

// Mode selects sparse-rank or dense-position semantics for a list.
type Mode string

const (
	ModeSparse Mode = ir.ModeSparse
	ModeDense  Mode = ir.ModeDense
)

// BoundLimit is the largest magnitude allowed for Min and Max. It keeps
// Max-Min and every midpoint computation inside int64.
const BoundLimit = int64(1)<<62 - 1

// Config holds the rank bounds and ordering mode of one list.
type Config struct {
	Min  int64 `validate:"gte=-4611686018427387903"`
	Max  int64 `validate:"lte=4611686018427387903"`
	Mode Mode  `validate:"required,oneof=sparse dense"`
}

// DefaultConfig returns the 32-bit signed range in sparse mode.
func DefaultConfig() Config {
	return Config{
		Min:  math.MinInt32,
		Max:  math.MaxInt32,
		Mode: ModeSparse,
	}
}

// ConfigFromSpec extracts the rank configuration of a compiled list.
func ConfigFromSpec(spec ir.ListSpec) Config {
	return Config{Min: spec.Min, Max: spec.Max, Mode: Mode(spec.Mode)}
}

// configValidate is the validator instance for Config.
// Initialized once with the struct-level bound rules.
var configValidate = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateConfigBounds, Config{})
	return v
}

// validateConfigBounds enforces rules that span fields:
//   - Max - Min >= 2, so at least one rank exists strictly between the bounds
//   - dense positions start at 0, so 0 must lie within [Min, Max]
func validateConfigBounds(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.Min < -BoundLimit || c.Max > BoundLimit {
		return // reported by the field tags
	}
	if c.Max < c.Min+2 {
		sl.ReportError(c.Max, "Max", "Max", "spread", "")
	}
	if c.Mode == ModeDense && (c.Min > 0 || c.Max < 0) {
		sl.ReportError(c.Min, "Min", "Min", "densebase", "")
	}
}

// Validate checks the configuration and returns a readable error.
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid rank config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeConfigError(fe))
	}
	return fmt.Errorf("invalid rank config: %s", strings.Join(msgs, "; "))
}

func describeConfigError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "spread":
		return "max - min must be at least 2"
	case "densebase":
		return "dense mode requires min <= 0 <= max"
	case "gte", "lte":
		return fmt.Sprintf("%s must be within ±%d", strings.ToLower(fe.Field()), BoundLimit)
	case "oneof", "required":
		return fmt.Sprintf("mode must be %q or %q", ModeSparse, ModeDense)
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
