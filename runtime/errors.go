package runtime

import (
	"errors"
	"fmt"
)

// ErrConfig is the sentinel wrapped by every configuration validation
// failure Validate returns — e.g. Iterations <= 0, an unknown strategy
// spec, or a liveness temperature requested without any registered monitor.
var ErrConfig = errors.New("runtime: invalid configuration")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
