package task

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// ProximityScale multiplies the normalized progress toward the target.
	ProximityScale = 10.0

	// AngleTolerance is the largest Euler angle magnitude, in radians,
	// that goes unpunished.
	AngleTolerance = 0.03

	// ShiftTolerance is the largest horizontal offset from the origin,
	// per axis, that goes unpunished.
	ShiftTolerance = 1.0
)

// RewardBreakdown holds the terms of a single substep reward.
type RewardBreakdown struct {
	Proximity       float64
	ProximityReward float64
	RotationPunish  int
	ShiftPunish     int
	Reward          float64
}

// Reward returns the reward for pose given the fixed initial pose and target,
// divided by repeat.
func Reward(pose, initPose Pose, target [3]float64, repeat int) (float64, error) {
	b, err := Breakdown(pose, initPose, target, repeat)
	if err != nil {
		return 0, err
	}
	return b.Reward, nil
}

// Breakdown computes the reward for pose and returns every term. It fails
// with ErrDegenerateTarget when the initial position is the target.
func Breakdown(pose, initPose Pose, target [3]float64, repeat int) (RewardBreakdown, error) {
	total := Distance(initPose.Position(), target)
	if total == 0 {
		return RewardBreakdown{}, ErrDegenerateTarget
	}

	remaining := Distance(pose.Position(), target)
	proximity := 1 - remaining/total

	var b RewardBreakdown
	b.Proximity = proximity
	if proximity > 0 {
		b.ProximityReward = ProximityScale * proximity
	}

	for _, a := range pose.Angles() {
		if math.Abs(a) > AngleTolerance {
			b.RotationPunish++
		}
	}
	for _, v := range pose[:2] {
		if math.Abs(v) > ShiftTolerance {
			b.ShiftPunish++
		}
	}

	b.Reward = (b.ProximityReward - float64(b.RotationPunish) - float64(b.ShiftPunish)) / float64(repeat)
	return b, nil
}

// Distance is the Euclidean distance between two points.
func Distance(a, b [3]float64) float64 {
	return floats.Distance(a[:], b[:], 2)
}
