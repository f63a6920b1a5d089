package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	msgPermissionRequired = "Location permission required."
	msgLocationFailed     = "Unable to determine location."
	msgCanceled           = "Request canceled."
	subscriberBuffer      = 32
)

// ErrPageOutOfRange is returned by OnPageChanged for an unknown page.
var ErrPageOutOfRange = errors.New("page index out of range")

// LocationResolver is what the controller needs from location resolution.
type LocationResolver interface {
	HasPermission() bool
	ResolveCurrent(ctx context.Context) (weather.Coordinates, error)
}

// WeatherAcquirer is what the controller needs from the forecast pipeline.
type WeatherAcquirer interface {
	Fetch(ctx context.Context, c weather.Coordinates, explicitName string) (weather.Result, error)
	LoadCached(ctx context.Context, c weather.Coordinates) (weather.ForecastSnapshot, bool)
}

// Deps bundles the collaborators of a Controller. Alerts and AirQuality may be nil.
type Deps struct {
	Resolver   LocationResolver
	Acquirer   WeatherAcquirer
	Alerts     weather.AlertSource
	AirQuality weather.AirQualitySource
	Prefs      weather.PreferenceStore
	Locations  weather.SavedLocationStore
}

// Controller owns the session State. All writes go through one lock, and
// every load cancels the load before it, so the last initiated load wins.
type Controller struct {
	deps Deps
	now  func() time.Time

	base     context.Context
	stopBase context.CancelFunc

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	subs   map[chan State]struct{}

	secondary sync.WaitGroup
}

// invocation is one run of a load pipeline.
type invocation struct {
	ctx     context.Context
	gen     uint64
	release func() bool
}

// NewController creates a Controller in the idle state.
func NewController(deps Deps) *Controller {
	base, stop := context.WithCancel(context.Background())
	return &Controller{
		deps:     deps,
		now:      time.Now,
		base:     base,
		stopBase: stop,
		state:    initialState(),
		subs:     make(map[chan State]struct{}),
	}
}

// Init reads the unit settings and saved locations at session start.
func (c *Controller) Init(ctx context.Context) error {
	settings, err := c.deps.Prefs.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	saved, err := c.deps.Locations.ListSavedLocations(ctx)
	if err != nil {
		return fmt.Errorf("load saved locations: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(func(s *State) {
		s.Settings = settings
		s.SavedLocations = saved
	})
	return nil
}

// State returns the latest state snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel that receives the current state and every
// subsequent one. A slow reader loses intermediate states, never the latest.
// The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, subscriberBuffer)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	ch <- c.state
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
}

// Close cancels any running load, waits for secondary fetches to finish and
// closes all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.stopBase()
	c.mu.Unlock()

	c.secondary.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
}

// LoadForCurrentLocation resolves the live position and loads its weather,
// falling back to the cached snapshot of the last known location.
func (c *Controller) LoadForCurrentLocation(ctx context.Context) {
	inv := c.begin(ctx, func(s *State) {
		s.Loading = true
		s.Error = ""
		s.UseLiveLocation = true
	})
	defer c.finish(inv)

	c.loadCurrent(inv)
}

// LoadForCoordinates loads weather for explicit coordinates without going
// through location resolution.
func (c *Controller) LoadForCoordinates(ctx context.Context, coords weather.Coordinates, useLiveLocation bool) error {
	if err := coords.Validate(); err != nil {
		return err
	}

	inv := c.begin(ctx, func(s *State) {
		s.Loading = true
		s.Error = ""
		s.UseLiveLocation = useLiveLocation
	})
	defer c.finish(inv)

	c.fetch(inv, coords, useLiveLocation, "")
	return nil
}

// loadSaved loads a saved location under its saved name.
func (c *Controller) loadSaved(ctx context.Context, loc weather.SavedLocation) {
	inv := c.begin(ctx, func(s *State) {
		s.Loading = true
		s.Error = ""
		s.UseLiveLocation = false
	})
	defer c.finish(inv)

	c.fetch(inv, loc.Coordinates(), false, loc.Name)
}

// Refresh reloads the active session. A session pinned to a saved location
// refetches its coordinates; otherwise the live position is resolved again.
func (c *Controller) Refresh(ctx context.Context) {
	var (
		pinned bool
		coords weather.Coordinates
		name   string
	)
	inv := c.begin(ctx, func(s *State) {
		s.Refreshing = true
		if !s.UseLiveLocation && s.ActiveCoordinates != nil {
			pinned = true
			coords = *s.ActiveCoordinates
			if s.Snapshot != nil {
				name = s.Snapshot.Location.Name
			}
		}
	})
	defer c.finish(inv)

	if pinned {
		c.fetch(inv, coords, false, name)
		return
	}
	c.loadCurrent(inv)
}

// OnPageChanged switches the pager to the saved location at index.
func (c *Controller) OnPageChanged(ctx context.Context, index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.state.SavedLocations) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, index)
	}
	entry := c.state.SavedLocations[index]
	c.setLocked(func(s *State) { s.ActivePageIndex = index })
	c.mu.Unlock()

	log.Printf("DEBUG: page changed to %d (%s, current=%v)", index, entry.Name, entry.IsCurrentLocation)
	if entry.IsCurrentLocation {
		c.LoadForCurrentLocation(ctx)
		return nil
	}
	c.loadSaved(ctx, entry)
	return nil
}

// LoadForLocation loads the saved location with the given ID. Unknown IDs
// and the GPS entry load the live location.
func (c *Controller) LoadForLocation(ctx context.Context, id string) error {
	saved, err := c.deps.Locations.ListSavedLocations(ctx)
	if err != nil {
		return fmt.Errorf("list saved locations: %w", err)
	}
	for i, loc := range saved {
		if loc.ID != id {
			continue
		}
		c.mu.Lock()
		c.setLocked(func(s *State) {
			s.SavedLocations = saved
			s.ActivePageIndex = i
		})
		c.mu.Unlock()
		if loc.IsCurrentLocation {
			c.LoadForCurrentLocation(ctx)
			return nil
		}
		c.loadSaved(ctx, loc)
		return nil
	}
	c.LoadForCurrentLocation(ctx)
	return nil
}

// OnPermissionGranted clears the permission prompt and reloads the live location.
func (c *Controller) OnPermissionGranted(ctx context.Context) {
	c.mu.Lock()
	c.setLocked(func(s *State) { s.NeedsPermission = false })
	c.mu.Unlock()

	c.LoadForCurrentLocation(ctx)
}

// OnPermissionDenied cancels any running load and shows the permission prompt.
func (c *Controller) OnPermissionDenied() {
	inv := c.begin(context.Background(), func(s *State) {
		s.NeedsPermission = true
		s.Loading = false
		s.Refreshing = false
		s.Error = msgPermissionRequired
	})
	inv.release()
}

// UpdateSettings persists new unit settings and publishes them.
func (c *Controller) UpdateSettings(ctx context.Context, settings weather.Settings) error {
	if err := c.deps.Prefs.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(func(s *State) { s.Settings = settings })
	return nil
}

// AddLocation saves a new location at the end of the pager.
func (c *Controller) AddLocation(ctx context.Context, place weather.Place) (weather.SavedLocation, error) {
	coords := weather.Coordinates{Latitude: place.Latitude, Longitude: place.Longitude}
	if err := coords.Validate(); err != nil {
		return weather.SavedLocation{}, err
	}
	saved, err := c.deps.Locations.AddSavedLocation(ctx, weather.SavedLocation{
		Name:      place.Name,
		Region:    place.Region,
		Country:   place.Country,
		Latitude:  place.Latitude,
		Longitude: place.Longitude,
	})
	if err != nil {
		return weather.SavedLocation{}, fmt.Errorf("add location: %w", err)
	}
	return saved, c.reloadSaved(ctx)
}

// RemoveLocation deletes a saved location.
func (c *Controller) RemoveLocation(ctx context.Context, id string) error {
	if err := c.deps.Locations.RemoveSavedLocation(ctx, id); err != nil {
		return err
	}
	return c.reloadSaved(ctx)
}

func (c *Controller) reloadSaved(ctx context.Context) error {
	saved, err := c.deps.Locations.ListSavedLocations(ctx)
	if err != nil {
		return fmt.Errorf("list saved locations: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(func(s *State) {
		s.SavedLocations = saved
		if s.ActivePageIndex >= len(saved) {
			s.ActivePageIndex = max(len(saved)-1, 0)
		}
	})
	return nil
}

// loadCurrent is the live-location half of the pipeline.
func (c *Controller) loadCurrent(inv *invocation) {
	if !c.deps.Resolver.HasPermission() {
		hit := c.tryLoadCachedForLastKnown(inv)
		c.apply(inv, func(s *State) {
			s.NeedsPermission = true
			if !hit {
				settleError(s, msgPermissionRequired)
			}
		})
		return
	}

	coords, err := c.deps.Resolver.ResolveCurrent(inv.ctx)
	if err != nil {
		if inv.ctx.Err() != nil {
			return
		}
		log.Printf("WARN: location resolution failed: %v", err)
		if c.tryLoadCachedForLastKnown(inv) {
			return
		}
		msg := err.Error()
		if msg == "" {
			msg = msgLocationFailed
		}
		c.apply(inv, func(s *State) { settleError(s, msg) })
		return
	}

	c.fetch(inv, coords, true, "")
}

// tryLoadCachedForLastKnown settles ReadyCached from the cache entry of the
// last known location, if there is one.
func (c *Controller) tryLoadCachedForLastKnown(inv *invocation) bool {
	last, err := c.deps.Prefs.LastLocation(inv.ctx)
	if err != nil {
		log.Printf("WARN: reading last location failed: %v", err)
		return false
	}
	if last == nil {
		return false
	}

	snap, ok := c.deps.Acquirer.LoadCached(inv.ctx, last.Coordinates)
	if !ok {
		return false
	}
	coords := last.Coordinates
	return c.apply(inv, func(s *State) {
		settleReady(s, snap, true)
		s.ActiveCoordinates = &coords
	})
}

// fetch is the shared pipeline: primary fetch, persistence, settle, then
// best-effort secondaries on a fresh result. A non-empty name skips naming.
func (c *Controller) fetch(inv *invocation, coords weather.Coordinates, live bool, name string) {
	if !c.apply(inv, func(s *State) {
		s.ActiveCoordinates = &coords
		s.UseLiveLocation = live
	}) {
		return
	}

	res, err := c.deps.Acquirer.Fetch(inv.ctx, coords, name)
	if inv.ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Printf("ERROR: weather fetch failed for %s: %v", coords, err)
		msg := err.Error()
		c.apply(inv, func(s *State) { settleError(s, msg) })
		return
	}

	var saved []weather.SavedLocation
	if !res.IsCachedFallback {
		saved = c.persistFresh(inv.ctx, coords, res.Snapshot.Location.Name, live)
	}

	settled := c.apply(inv, func(s *State) {
		settleReady(s, res.Snapshot, res.IsCachedFallback)
		if live && !res.IsCachedFallback {
			s.NeedsPermission = false
		}
		if saved != nil {
			s.SavedLocations = saved
		}
	})
	if !settled || res.IsCachedFallback {
		return
	}

	// The caller's context bounds only the primary fetch.
	inv.release()
	c.startSecondaries(inv, coords, res.Snapshot)
}

// persistFresh records the last known location and, for live loads, the
// current-location entry. Failures are logged only. It returns the refreshed
// saved-location list, or nil when it did not change.
func (c *Controller) persistFresh(ctx context.Context, coords weather.Coordinates, name string, live bool) []weather.SavedLocation {
	if err := c.deps.Prefs.SaveLastLocation(ctx, weather.LastLocation{Coordinates: coords, Name: name}); err != nil {
		log.Printf("WARN: saving last location failed: %v", err)
	}
	if !live {
		return nil
	}
	if _, err := c.deps.Locations.UpsertCurrentLocation(ctx, coords, name); err != nil {
		log.Printf("WARN: saving current location failed: %v", err)
		return nil
	}
	saved, err := c.deps.Locations.ListSavedLocations(ctx)
	if err != nil {
		log.Printf("WARN: listing saved locations failed: %v", err)
		return nil
	}
	return saved
}

// startSecondaries fires alerts and air quality independently and computes
// astronomy inline. Each writes only its own field; a failure empties it.
func (c *Controller) startSecondaries(inv *invocation, coords weather.Coordinates, snap weather.ForecastSnapshot) {
	if src := c.deps.Alerts; src != nil {
		c.goSecondary(inv, func() {
			alerts, err := src.FetchAlerts(inv.ctx, coords)
			if err != nil {
				log.Printf("WARN: %s alerts failed for %s: %v", src.Name(), coords, err)
				alerts = []weather.Alert{}
			}
			c.apply(inv, func(s *State) { s.Alerts = alerts })
		})
	}

	if src := c.deps.AirQuality; src != nil {
		c.goSecondary(inv, func() {
			aq, err := src.FetchAirQuality(inv.ctx, coords)
			if err != nil {
				log.Printf("WARN: %s air quality failed for %s: %v", src.Name(), coords, err)
				c.apply(inv, func(s *State) { s.AirQuality = nil })
				return
			}
			c.apply(inv, func(s *State) { s.AirQuality = &aq })
		})
	}

	astro := weather.ComputeAstronomy(c.now(), snap.Current.Sunrise, snap.Current.Sunset)
	c.apply(inv, func(s *State) { s.Astronomy = &astro })
}

// goSecondary runs fn in the background unless inv has been superseded or
// the controller closed. The check and the WaitGroup Add share c.mu with
// Close, so no Add happens after Close starts waiting.
func (c *Controller) goSecondary(inv *invocation, fn func()) {
	c.mu.Lock()
	if inv.gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.secondary.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.secondary.Done()
		fn()
	}()
}

// begin cancels the running invocation, applies mutate and starts a new one.
// Cancelling ctx before the primary result settles cancels the invocation.
func (c *Controller) begin(ctx context.Context, mutate func(*State)) *invocation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	pctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel
	c.gen++

	c.setLocked(mutate)

	return &invocation{
		ctx:     pctx,
		gen:     c.gen,
		release: context.AfterFunc(ctx, cancel),
	}
}

// finish clears the busy flags of an invocation that never settled because
// its caller gave up.
func (c *Controller) finish(inv *invocation) {
	inv.release()

	c.mu.Lock()
	defer c.mu.Unlock()
	if inv.gen != c.gen || !(c.state.Loading || c.state.Refreshing) {
		return
	}
	c.setLocked(func(s *State) {
		s.Loading = false
		s.Refreshing = false
		if s.Error == "" && s.Snapshot == nil {
			s.Error = msgCanceled
		}
	})
}

// apply merges fn into the state if inv is still the live invocation.
func (c *Controller) apply(inv *invocation, fn func(*State)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inv.gen != c.gen || inv.ctx.Err() != nil {
		return false
	}
	c.setLocked(fn)
	return true
}

// setLocked replaces the state with a mutated copy and publishes it.
// c.mu must be held.
func (c *Controller) setLocked(fn func(*State)) {
	next := c.state
	fn(&next)
	c.state = next

	for ch := range c.subs {
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}
