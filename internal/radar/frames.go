package radar

import "time"

const (
	StepDelay     = 450 * time.Millisecond
	BoundaryDelay = 1500 * time.Millisecond
	FinalDelay    = 2000 * time.Millisecond
)

// Frame is one radar image: its capture (or forecast) time in epoch seconds
// and an XYZ tile URL template.
type Frame struct {
	Timestamp int64  `json:"timestamp"`
	TileURL   string `json:"tileUrl"`
}

// FrameSet holds observed frames followed by forecast frames. Indexes run
// over the concatenation; len(Past) is the observed/forecast boundary.
type FrameSet struct {
	Past     []Frame `json:"past"`
	Forecast []Frame `json:"forecast"`
}

// Total returns the number of frames across both halves.
func (fs FrameSet) Total() int {
	return len(fs.Past) + len(fs.Forecast)
}

// Frame returns the frame at i in the concatenated index space.
func (fs FrameSet) Frame(i int) (Frame, bool) {
	switch {
	case i < 0 || i >= fs.Total():
		return Frame{}, false
	case i < len(fs.Past):
		return fs.Past[i], true
	default:
		return fs.Forecast[i-len(fs.Past)], true
	}
}

// IsForecast reports whether i falls in the forecast half.
func (fs FrameSet) IsForecast(i int) bool {
	return i >= len(fs.Past) && i < fs.Total()
}

// LatestObservedIndex is the last past frame, or 0 if there is none.
func (fs FrameSet) LatestObservedIndex() int {
	return max(len(fs.Past)-1, 0)
}

// FrameDelay is how long the loop holds idx after advancing to it. The last
// observed frame is checked before the last frame overall.
func FrameDelay(fs FrameSet, idx int) time.Duration {
	switch {
	case idx == len(fs.Past)-1:
		return BoundaryDelay
	case idx == fs.Total()-1:
		return FinalDelay
	default:
		return StepDelay
	}
}
