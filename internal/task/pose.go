package task

// Pose is the kinematic pose of the quadcopter: position (x, y, z) followed
// by the Euler angles (roll, pitch, yaw).
type Pose [PoseSize]float64

// Position returns the (x, y, z) part of the pose.
func (p Pose) Position() [3]float64 {
	return [3]float64{p[0], p[1], p[2]}
}

// Angles returns the (roll, pitch, yaw) part of the pose.
func (p Pose) Angles() [3]float64 {
	return [3]float64{p[3], p[4], p[5]}
}

// RotorSpeeds is an action: one speed command per rotor.
type RotorSpeeds [ActionSize]float64

// Observation is the concatenation of ActionRepeat consecutive poses.
type Observation []float64

// Pose returns the i-th pose snapshot held in the observation.
func (o Observation) Pose(i int) Pose {
	var p Pose
	copy(p[:], o[i*PoseSize:(i+1)*PoseSize])
	return p
}

// Latest returns the most recent pose held in the observation.
func (o Observation) Latest() Pose {
	return o.Pose(len(o)/PoseSize - 1)
}

func concat(poses []Pose) Observation {
	obs := make(Observation, 0, len(poses)*PoseSize)
	for _, p := range poses {
		obs = append(obs, p[:]...)
	}
	return obs
}
