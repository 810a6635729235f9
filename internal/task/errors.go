package task

import "errors"

// ErrDegenerateTarget indicates the target coincides with the initial
// position, which leaves the reward's reference distance at zero.
var ErrDegenerateTarget = errors.New("task: target position equals initial position")
