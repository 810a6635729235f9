package experiment

import "errors"

var (
	ErrUnknownPolicy     = errors.New("experiment: unknown policy")
	ErrUnknownIntegrator = errors.New("experiment: unknown integrator")
)
