package export

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/san-kum/quadtask/internal/storage"
)

// Series is a line drawn against the step index.
type Series struct {
	Name   string
	Color  string
	Values []float64
}

// AltitudeSeries returns the z trace of an episode and a flat line at the
// target altitude.
func AltitudeSeries(poses []storage.PoseRecord, targetZ float64) []Series {
	z := make([]float64, len(poses))
	target := make([]float64, len(poses))
	for i, p := range poses {
		z[i] = p.Pose[2]
		target[i] = targetZ
	}
	return []Series{
		{Name: "z", Color: "#00ff00", Values: z},
		{Name: "target", Color: "#ff5555", Values: target},
	}
}

// RewardSeries returns the per-step reward trace of an episode.
func RewardSeries(poses []storage.PoseRecord) []Series {
	r := make([]float64, len(poses))
	for i, p := range poses {
		r[i] = p.Reward
	}
	return []Series{{Name: "reward", Color: "#00aaff", Values: r}}
}

func bounds(series []Series) (r1.Interval, int) {
	n := 0
	iv := r1.Interval{Min: 0, Max: 0}
	first := true
	for _, s := range series {
		if len(s.Values) > n {
			n = len(s.Values)
		}
		for _, v := range s.Values {
			if first {
				iv = r1.Interval{Min: v, Max: v}
				first = false
				continue
			}
			if v < iv.Min {
				iv.Min = v
			}
			if v > iv.Max {
				iv.Max = v
			}
		}
	}
	span := iv.Max - iv.Min
	if span == 0 {
		span = 1
	}
	iv.Min -= span * 0.1
	iv.Max += span * 0.1
	return iv, n
}

// WriteSVG plots series as polylines over a shared y range.
func WriteSVG(w io.Writer, series []Series, width, height int) error {
	yr, n := bounds(series)
	if n < 2 {
		return fmt.Errorf("export: need at least 2 points, got %d", n)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for _, s := range series {
		if len(s.Values) < 2 {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, s.Color)
		for i, v := range s.Values {
			x := float64(i) / float64(n-1) * float64(width)
			y := float64(height) - (v-yr.Min)/(yr.Max-yr.Min)*float64(height)
			if i == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		fmt.Fprintf(&sb, "\"><title>%s</title></path>\n", s.Name)
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
