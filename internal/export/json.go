package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/quadtask/internal/storage"
	"github.com/san-kum/quadtask/internal/task"
)

// EpisodeData is the JSON form of one stored episode.
type EpisodeData struct {
	Run        string             `json:"run"`
	Policy     string             `json:"policy"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Target     [3]float64         `json:"target"`
	Episode    int                `json:"episode"`
	Steps      int                `json:"steps"`
	Return     float64            `json:"return"`
	Poses      []task.Pose        `json:"poses"`
	Actions    []task.RotorSpeeds `json:"actions"`
	Rewards    []float64          `json:"rewards"`
}

func NewEpisodeData(meta *storage.RunMetadata, episode int, poses []storage.PoseRecord) EpisodeData {
	d := EpisodeData{
		Run:        meta.ID,
		Policy:     meta.Policy,
		Integrator: meta.Integrator,
		Dt:         meta.Dt,
		Target:     meta.Target,
		Episode:    episode,
		Steps:      len(poses),
		Poses:      make([]task.Pose, len(poses)),
		Actions:    make([]task.RotorSpeeds, len(poses)),
		Rewards:    make([]float64, len(poses)),
	}
	for i, p := range poses {
		d.Poses[i] = p.Pose
		d.Actions[i] = p.Action
		d.Rewards[i] = p.Reward
		d.Return += p.Reward
	}
	return d
}

func WriteJSON(w io.Writer, d EpisodeData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
