package radar

import (
	"context"
	"log"
	"sync"
	"time"
)

// PlaybackState is a snapshot of the player.
type PlaybackState struct {
	Frames          *FrameSet `json:"frames,omitempty"`
	CurrentIndex    int       `json:"currentIndex"`
	IsPlaying       bool      `json:"isPlaying"`
	PausedByGesture bool      `json:"pausedByGesture"`
	Loading         bool      `json:"loading"`
	Error           string    `json:"error,omitempty"`
}

// TotalFrames is zero until a manifest has loaded.
func (s PlaybackState) TotalFrames() int {
	if s.Frames == nil {
		return 0
	}
	return s.Frames.Total()
}

// CurrentFrame returns the frame under the playhead, if any.
func (s PlaybackState) CurrentFrame() (Frame, bool) {
	if s.Frames == nil {
		return Frame{}, false
	}
	return s.Frames.Frame(s.CurrentIndex)
}

// Player animates a FrameSet. At most one playback loop runs at a time and
// a superseded loop never writes state again.
type Player struct {
	source ManifestSource
	wait   func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   PlaybackState
	stop    context.CancelFunc
	loadGen uint64
	closed  bool
	loops   sync.WaitGroup
}

func NewPlayer(source ManifestSource) *Player {
	return &Player{source: source, wait: sleep}
}

// State returns the current playback state.
func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LoadFrames fetches a fresh manifest. Any running loop is stopped, and on
// success the playhead moves to the latest observed frame.
func (p *Player) LoadFrames(ctx context.Context) error {
	p.mu.Lock()
	p.stopLocked()
	p.loadGen++
	gen := p.loadGen
	p.state.IsPlaying = false
	p.state.PausedByGesture = false
	p.state.Loading = true
	p.state.Error = ""
	p.mu.Unlock()

	frames, err := p.source.FetchManifest(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.loadGen || p.closed {
		return err
	}
	p.stopLocked()
	p.state.Loading = false
	p.state.IsPlaying = false
	p.state.PausedByGesture = false
	if err != nil {
		log.Printf("ERROR: radar manifest load failed: %v", err)
		p.state.Error = err.Error()
		return err
	}
	p.state.Frames = &frames
	p.state.CurrentIndex = frames.LatestObservedIndex()
	log.Printf("DEBUG: radar manifest loaded: %d past, %d forecast frames", len(frames.Past), len(frames.Forecast))
	return nil
}

// TogglePlayback flips between playing and stopped.
func (p *Player) TogglePlayback() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.IsPlaying {
		p.pauseLocked(false)
		return
	}
	p.startLocked()
}

// StartPlayback starts the loop. An explicit start forgets any gesture pause.
func (p *Player) StartPlayback() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

// PausePlayback stops the loop. An explicit pause is never auto-resumed.
func (p *Player) PausePlayback() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked(false)
}

// SeekToFrame moves the playhead, clamped into range. Play state is unchanged.
func (p *Player) SeekToFrame(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.state.TotalFrames()
	if total == 0 {
		return
	}
	p.state.CurrentIndex = min(max(index, 0), total-1)
}

// OnMapInteractionStart pauses a playing loop and remembers that a gesture did it.
func (p *Player) OnMapInteractionStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.IsPlaying {
		p.pauseLocked(true)
	}
}

// OnMapInteractionEnd resumes playback only if a gesture paused it.
func (p *Player) OnMapInteractionEnd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.PausedByGesture {
		p.startLocked()
	}
}

// Close stops playback and waits for the loop goroutine to exit.
func (p *Player) Close() {
	p.mu.Lock()
	p.closed = true
	p.stopLocked()
	p.state.IsPlaying = false
	p.mu.Unlock()

	p.loops.Wait()
}

func (p *Player) startLocked() {
	if p.closed {
		return
	}
	p.stopLocked()
	p.state.IsPlaying = true
	p.state.PausedByGesture = false

	if p.state.Frames == nil || p.state.Frames.Total() < 2 {
		return
	}
	frames := *p.state.Frames
	ctx, cancel := context.WithCancel(context.Background())
	p.stop = cancel
	p.loops.Add(1)
	go p.loop(ctx, frames)
}

func (p *Player) pauseLocked(byGesture bool) {
	p.stopLocked()
	p.state.IsPlaying = false
	p.state.PausedByGesture = byGesture
}

func (p *Player) stopLocked() {
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

func (p *Player) loop(ctx context.Context, frames FrameSet) {
	defer p.loops.Done()
	total := frames.Total()
	for {
		p.mu.Lock()
		if ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		next := (p.state.CurrentIndex + 1) % total
		p.state.CurrentIndex = next
		p.mu.Unlock()

		if err := p.wait(ctx, FrameDelay(frames, next)); err != nil {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
