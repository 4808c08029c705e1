package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// Coerce checks text against the expected input type and returns the value
// to store. Numbers are stored as the user typed them once they parse.
func Coerce(text string, want domain.InputType) (string, error) {
	value := strings.TrimSpace(text)
	switch want {
	case domain.InputInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", fmt.Errorf("%w: %q is not an integer", domain.ErrInputTypeMismatch, value)
		}
	case domain.InputFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: %q is not a number", domain.ErrInputTypeMismatch, value)
		}
	case domain.InputString, domain.InputAny:
		return text, nil
	}
	return value, nil
}
