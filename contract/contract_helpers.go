package contract

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
	"github.com/maxmedina05/flight-surety-udacity-project/surety"
)

// Limits for transaction arguments.
const (
	maxAmountLength = 78 // Decimal digits of 2^256-1
	maxIndexValue   = 255
)

// --- Validation Helper Functions ---

func validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: %s cannot be empty", surety.ErrInvalidArgument, field)
	}
	if len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", surety.ErrInvalidArgument, field, max)
	}
	return nil
}

// parseAmountArg parses a decimal base-unit amount argument.
func parseAmountArg(input, field string) (*uint256.Int, error) {
	if err := validateRequiredString(input, field, maxAmountLength); err != nil {
		return nil, err
	}
	return surety.ParseAmount(strings.TrimSpace(input))
}

func indexArg(index int) (uint8, error) {
	if index < 0 || index > maxIndexValue {
		return 0, fmt.Errorf("%w: index %d out of range", surety.ErrInvalidArgument, index)
	}
	return uint8(index), nil
}

// statusArg converts a status argument. Out of range values are reported as
// invalid status codes rather than invalid arguments.
func statusArg(status int) (model.StatusCode, error) {
	if status < 0 || status > maxIndexValue || !model.StatusCode(status).Valid() {
		return 0, fmt.Errorf("status %d: %w", status, surety.ErrInvalidStatus)
	}
	return model.StatusCode(status), nil
}

func indexesToInts(indexes [3]uint8) []int {
	out := make([]int, len(indexes))
	for i, v := range indexes {
		out[i] = int(v)
	}
	return out
}
