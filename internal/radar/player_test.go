package radar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type staticSource struct {
	frames FrameSet
	err    error
}

func (s staticSource) FetchManifest(_ context.Context) (FrameSet, error) {
	return s.frames, s.err
}

func testFrames(past, forecast int) FrameSet {
	var fs FrameSet
	for i := 0; i < past; i++ {
		fs.Past = append(fs.Past, Frame{Timestamp: int64(1000 + i*600), TileURL: fmt.Sprintf("past/%d", i)})
	}
	for i := 0; i < forecast; i++ {
		fs.Forecast = append(fs.Forecast, Frame{Timestamp: int64(9000 + i*600), TileURL: fmt.Sprintf("nowcast/%d", i)})
	}
	return fs
}

// steppedWait hands each requested delay to the test and blocks until the
// test lets the loop advance.
type steppedWait struct {
	delays chan time.Duration
	tick   chan struct{}
}

func newSteppedWait() *steppedWait {
	return &steppedWait{delays: make(chan time.Duration, 16), tick: make(chan struct{})}
}

func (w *steppedWait) wait(ctx context.Context, d time.Duration) error {
	w.delays <- d
	select {
	case <-w.tick:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newLoadedPlayer(t *testing.T, fs FrameSet) (*Player, *steppedWait) {
	t.Helper()
	w := newSteppedWait()
	p := NewPlayer(staticSource{frames: fs})
	p.wait = w.wait
	if err := p.LoadFrames(context.Background()); err != nil {
		t.Fatalf("LoadFrames: %v", err)
	}
	t.Cleanup(p.Close)
	return p, w
}

func nextDelay(t *testing.T, w *steppedWait) time.Duration {
	t.Helper()
	select {
	case d := <-w.delays:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("playback loop did not advance")
		return 0
	}
}

func TestFrameDelay(t *testing.T) {
	fs := testFrames(5, 3)
	tests := []struct {
		idx  int
		want time.Duration
	}{
		{0, StepDelay},
		{3, StepDelay},
		{4, BoundaryDelay},
		{5, StepDelay},
		{7, FinalDelay},
	}
	for _, tt := range tests {
		if got := FrameDelay(fs, tt.idx); got != tt.want {
			t.Errorf("FrameDelay(%d) = %s, want %s", tt.idx, got, tt.want)
		}
	}

	// With no forecast frames the boundary and the final frame coincide.
	if got := FrameDelay(testFrames(3, 0), 2); got != BoundaryDelay {
		t.Errorf("boundary should win over final, got %s", got)
	}
}

func TestLoadFramesStartsAtLatestObserved(t *testing.T) {
	p, _ := newLoadedPlayer(t, testFrames(5, 3))

	s := p.State()
	if s.CurrentIndex != 4 || s.TotalFrames() != 8 || s.IsPlaying || s.Loading {
		t.Fatalf("unexpected state: %+v", s)
	}
	frame, ok := s.CurrentFrame()
	if !ok || frame.TileURL != "past/4" {
		t.Fatalf("current frame = %+v", frame)
	}
}

func TestPlaybackPacing(t *testing.T) {
	p, w := newLoadedPlayer(t, testFrames(5, 3))

	p.StartPlayback()

	want := []struct {
		idx   int
		delay time.Duration
	}{
		{5, 450 * time.Millisecond},
		{6, 450 * time.Millisecond},
		{7, 2000 * time.Millisecond},
		{0, 450 * time.Millisecond},
		{1, 450 * time.Millisecond},
		{2, 450 * time.Millisecond},
		{3, 450 * time.Millisecond},
		{4, 1500 * time.Millisecond},
	}
	for i, step := range want {
		d := nextDelay(t, w)
		if got := p.State().CurrentIndex; got != step.idx {
			t.Fatalf("step %d: index = %d, want %d", i, got, step.idx)
		}
		if d != step.delay {
			t.Fatalf("step %d: delay = %s, want %s", i, d, step.delay)
		}
		if i < len(want)-1 {
			w.tick <- struct{}{}
		}
	}

	p.PausePlayback()
	if s := p.State(); s.IsPlaying || s.PausedByGesture {
		t.Fatalf("explicit pause: %+v", s)
	}
}

func TestGesturePauseResumes(t *testing.T) {
	p, w := newLoadedPlayer(t, testFrames(5, 3))

	p.StartPlayback()
	nextDelay(t, w)

	p.OnMapInteractionStart()
	if s := p.State(); s.IsPlaying || !s.PausedByGesture {
		t.Fatalf("gesture start: %+v", s)
	}
	paused := p.State().CurrentIndex

	p.OnMapInteractionEnd()
	if s := p.State(); !s.IsPlaying || s.PausedByGesture {
		t.Fatalf("gesture end: %+v", s)
	}
	nextDelay(t, w)
	if got := p.State().CurrentIndex; got != (paused+1)%8 {
		t.Fatalf("resumed at %d, want %d", got, (paused+1)%8)
	}
}

func TestExplicitPauseIsNotResumedByGesture(t *testing.T) {
	p, w := newLoadedPlayer(t, testFrames(5, 3))

	p.TogglePlayback()
	nextDelay(t, w)
	p.TogglePlayback()

	p.OnMapInteractionStart()
	p.OnMapInteractionEnd()

	if s := p.State(); s.IsPlaying || s.PausedByGesture {
		t.Fatalf("explicit pause was resumed: %+v", s)
	}
}

func TestExplicitStartClearsGesturePause(t *testing.T) {
	p, w := newLoadedPlayer(t, testFrames(5, 3))

	p.StartPlayback()
	nextDelay(t, w)
	p.OnMapInteractionStart()
	p.StartPlayback()
	nextDelay(t, w)
	p.PausePlayback()

	p.OnMapInteractionEnd()
	if s := p.State(); s.IsPlaying {
		t.Fatalf("gesture end resumed after explicit pause: %+v", s)
	}
}

func TestSeekToFrameClamps(t *testing.T) {
	p, _ := newLoadedPlayer(t, testFrames(5, 3))

	p.SeekToFrame(-3)
	if got := p.State().CurrentIndex; got != 0 {
		t.Fatalf("seek(-3) = %d, want 0", got)
	}
	p.SeekToFrame(100)
	if got := p.State().CurrentIndex; got != 7 {
		t.Fatalf("seek(100) = %d, want 7", got)
	}
	p.SeekToFrame(6)
	if s := p.State(); s.CurrentIndex != 6 || s.IsPlaying {
		t.Fatalf("seek(6): %+v", s)
	}

	empty := NewPlayer(staticSource{})
	empty.SeekToFrame(3)
	if got := empty.State().CurrentIndex; got != 0 {
		t.Fatalf("seek without frames moved to %d", got)
	}
}

func TestLoadFramesStopsRunningLoop(t *testing.T) {
	p, w := newLoadedPlayer(t, testFrames(5, 3))

	p.StartPlayback()
	nextDelay(t, w)
	nextIdx := p.State().CurrentIndex
	if nextIdx != 5 {
		t.Fatalf("loop did not advance, index %d", nextIdx)
	}

	if err := p.LoadFrames(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	s := p.State()
	if s.IsPlaying || s.CurrentIndex != 4 {
		t.Fatalf("after reload: %+v", s)
	}
	select {
	case d := <-w.delays:
		t.Fatalf("stopped loop kept running (delay %s)", d)
	default:
	}
}

func TestStartPlaybackWithSingleFrame(t *testing.T) {
	p, w := newLoadedPlayer(t, testFrames(1, 0))

	p.StartPlayback()

	if s := p.State(); !s.IsPlaying || s.CurrentIndex != 0 {
		t.Fatalf("single frame: %+v", s)
	}
	select {
	case <-w.delays:
		t.Fatal("a single frame must not start a loop")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLoadFramesError(t *testing.T) {
	p := NewPlayer(staticSource{err: ErrNoRadarData})

	err := p.LoadFrames(context.Background())
	if !errors.Is(err, ErrNoRadarData) {
		t.Fatalf("expected ErrNoRadarData, got %v", err)
	}
	if s := p.State(); s.Loading || s.Error == "" || s.TotalFrames() != 0 {
		t.Fatalf("error state: %+v", s)
	}
}

func TestCloseStopsPlayback(t *testing.T) {
	w := newSteppedWait()
	p := NewPlayer(staticSource{frames: testFrames(5, 3)})
	p.wait = w.wait
	if err := p.LoadFrames(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.StartPlayback()
	nextDelay(t, w)

	p.Close()
	p.StartPlayback()

	if s := p.State(); s.IsPlaying {
		t.Fatalf("closed player restarted: %+v", s)
	}
}
