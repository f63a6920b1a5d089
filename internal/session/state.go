package session

import "github.com/i474232898/weather-dashboard/internal/weather"

// Phase is the coarse state of a session.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseLoading     Phase = "loading"
	PhaseReady       Phase = "ready"
	PhaseReadyCached Phase = "ready_cached"
	PhaseError       Phase = "error"
)

// State is the session aggregate. Values handed out by the controller are
// snapshots; their slices and pointers must be treated as read-only.
type State struct {
	Loading           bool                      `json:"loading"`
	Refreshing        bool                      `json:"refreshing"`
	Snapshot          *weather.ForecastSnapshot `json:"snapshot,omitempty"`
	Alerts            []weather.Alert           `json:"alerts"`
	AirQuality        *weather.AirQuality       `json:"airQuality,omitempty"`
	Astronomy         *weather.Astronomy        `json:"astronomy,omitempty"`
	Error             string                    `json:"error,omitempty"`
	IsCachedFallback  bool                      `json:"isCachedFallback"`
	NeedsPermission   bool                      `json:"needsPermission"`
	ActiveCoordinates *weather.Coordinates      `json:"activeCoordinates,omitempty"`
	UseLiveLocation   bool                      `json:"useLiveLocation"`
	SavedLocations    []weather.SavedLocation   `json:"savedLocations"`
	ActivePageIndex   int                       `json:"activePageIndex"`
	Settings          weather.Settings          `json:"settings"`
}

// Phase derives the coarse phase from the flags.
func (s State) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Error != "":
		return PhaseError
	case s.Snapshot != nil && s.IsCachedFallback:
		return PhaseReadyCached
	case s.Snapshot != nil:
		return PhaseReady
	default:
		return PhaseIdle
	}
}

func initialState() State {
	return State{
		UseLiveLocation: true,
		Settings:        weather.DefaultSettings(),
	}
}

func settleReady(s *State, snap weather.ForecastSnapshot, cached bool) {
	s.Loading = false
	s.Refreshing = false
	s.Snapshot = &snap
	s.Error = ""
	s.IsCachedFallback = cached
	s.Alerts = nil
	s.AirQuality = nil
	s.Astronomy = nil
}

func settleError(s *State, msg string) {
	s.Loading = false
	s.Refreshing = false
	s.Snapshot = nil
	s.Error = msg
	s.IsCachedFallback = false
	s.Alerts = nil
	s.AirQuality = nil
	s.Astronomy = nil
}
