package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"golang.org/x/sync/errgroup"
)

const (
	jobTimeout         = 60 * time.Second
	pruneInterval      = time.Hour
	alertCheckInterval = 30 * time.Minute
)

// Session is the part of session.Controller the refresh job drives.
type Session interface {
	State() session.State
	Refresh(ctx context.Context)
}

// Warmer fetches and caches the forecast for one location.
type Warmer interface {
	Fetch(ctx context.Context, c weather.Coordinates, explicitName string) (weather.Result, error)
}

// Config controls the background jobs.
type Config struct {
	RefreshInterval time.Duration
	CacheMaxAge     time.Duration
	WarmConcurrency int
}

// Scheduler runs the background jobs: refreshing the active session,
// warming the cache for saved locations, pruning old cache rows and, when
// enabled, checking alerts for the last-known location.
type Scheduler struct {
	scheduler *gocron.Scheduler
	session   Session
	warmer    Warmer
	locations weather.SavedLocationStore
	cache     weather.CacheStore
	cfg       Config
	now       func() time.Time

	alerts weather.AlertSource
	prefs  weather.PreferenceStore

	mu     sync.RWMutex
	severe []weather.Alert
}

// New creates a new Scheduler.
func New(cfg Config, sess Session, warmer Warmer, locations weather.SavedLocationStore, cache weather.CacheStore) *Scheduler {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 15 * time.Minute
	}
	if cfg.WarmConcurrency <= 0 {
		cfg.WarmConcurrency = 4
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		session:   sess,
		warmer:    warmer,
		locations: locations,
		cache:     cache,
		cfg:       cfg,
		now:       time.Now,
	}
}

// EnableAlertCheck adds the alert job to the next Start. It runs whether or
// not a session is active.
func (s *Scheduler) EnableAlertCheck(alerts weather.AlertSource, prefs weather.PreferenceStore) {
	s.alerts = alerts
	s.prefs = prefs
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.cfg.RefreshInterval).SingletonMode().Do(s.refreshAndWarm); err != nil {
		return err
	}
	if s.alerts != nil && s.prefs != nil {
		if _, err := s.scheduler.Every(alertCheckInterval).SingletonMode().Do(s.checkAlerts); err != nil {
			return err
		}
	}
	if s.cfg.CacheMaxAge > 0 {
		if _, err := s.scheduler.Every(pruneInterval).SingletonMode().Do(s.prune); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	log.Printf("INFO: scheduler started (refresh every %s)", s.cfg.RefreshInterval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) refreshAndWarm() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.RefreshSession(ctx)
	if err := s.WarmSavedLocations(ctx); err != nil {
		log.Printf("ERROR: scheduler: warming saved locations: %v", err)
	}
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.PruneCache(ctx); err != nil {
		log.Printf("ERROR: scheduler: %v", err)
	}
}

func (s *Scheduler) checkAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.CheckAlerts(ctx); err != nil {
		log.Printf("ERROR: scheduler: alert check: %v", err)
	}
}

// CheckAlerts fetches alerts for the last-known location and keeps the
// severe and extreme ones. Alerts missing from the previous result are
// logged. On error the previous result is kept.
func (s *Scheduler) CheckAlerts(ctx context.Context) ([]weather.Alert, error) {
	if s.alerts == nil || s.prefs == nil {
		return nil, nil
	}
	last, err := s.prefs.LastLocation(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil {
		log.Println("DEBUG: scheduler: no last-known location for alert check")
		return nil, nil
	}

	all, err := s.alerts.FetchAlerts(ctx, last.Coordinates)
	if err != nil {
		return nil, err
	}
	severe := make([]weather.Alert, 0, len(all))
	for _, a := range all {
		if a.IsSevere() {
			severe = append(severe, a)
		}
	}

	s.mu.Lock()
	seen := make(map[string]bool, len(s.severe))
	for _, a := range s.severe {
		seen[a.ID] = true
	}
	s.severe = severe
	s.mu.Unlock()

	for _, a := range severe {
		if !seen[a.ID] {
			log.Printf("WARN: %s alert for %s: %s", a.Severity, last.Name, a.Headline)
		}
	}
	return severe, nil
}

// SevereAlerts returns the result of the last successful alert check.
func (s *Scheduler) SevereAlerts() []weather.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]weather.Alert, len(s.severe))
	copy(out, s.severe)
	return out
}

// RefreshSession refreshes the active session. A session that never loaded
// anything is left alone.
func (s *Scheduler) RefreshSession(ctx context.Context) {
	st := s.session.State()
	if st.ActiveCoordinates == nil || st.Loading || st.Refreshing {
		log.Println("DEBUG: scheduler: no active session to refresh")
		return
	}
	log.Println("INFO: scheduler: refreshing active session")
	s.session.Refresh(ctx)
}

// WarmSavedLocations fetches every saved location other than the GPS entry
// so that switching pages can fall back to a recent cache row. A failing
// location does not stop the others.
func (s *Scheduler) WarmSavedLocations(ctx context.Context) error {
	saved, err := s.locations.ListSavedLocations(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WarmConcurrency)

	for _, loc := range saved {
		if loc.IsCurrentLocation {
			continue
		}
		g.Go(func() error {
			if _, err := s.warmer.Fetch(gctx, loc.Coordinates(), loc.Name); err != nil {
				log.Printf("WARN: scheduler: warming %s failed: %v", loc.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// PruneCache deletes cache rows older than CacheMaxAge.
func (s *Scheduler) PruneCache(ctx context.Context) (int64, error) {
	if s.cfg.CacheMaxAge <= 0 {
		return 0, nil
	}
	n, err := s.cache.PruneOlderThan(ctx, s.now().Add(-s.cfg.CacheMaxAge))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("INFO: scheduler: pruned %d cache entries", n)
	}
	return n, nil
}
