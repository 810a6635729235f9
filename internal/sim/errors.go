package sim

import "errors"

// ErrInvalidConfig indicates simulator options that cannot be run.
var ErrInvalidConfig = errors.New("sim: invalid config")
