// Package viz renders a live terminal view of a quadcopter episode using
// the Bubble Tea framework.
//
// [Model] steps a task with a policy on every tick and draws the flight in
// the vertical x-z plane on a braille [Canvas], next to the current pose,
// the reward terms of the last substep and a reward history graph.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single step while paused
//	R     - Reset the episode
//	Tab   - Select policy parameter
//	↑/↓   - Tune the selected parameter
//	?     - Show help overlay
package viz
