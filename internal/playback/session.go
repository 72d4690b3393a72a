package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/overlay"
	"github.com/harborwatch/harborwatch/internal/registry"
)

// tickBase is the wall-clock time one record occupies at 1x speed.
const tickBase = time.Second

const (
	minSpeed = 1
	maxSpeed = 10
)

// ErrNoRecords is returned when a history query succeeds but matches
// nothing; there is no session to open over an empty buffer.
var ErrNoRecords = errors.New("no history records in window")

// Sink receives each replayed sample as it is applied. The detail panel
// implements this to mirror playback in its readouts.
type Sink interface {
	OnSample(identity string, sample core.HistorySample, index, total int)
}

// NopSink discards samples.
type NopSink struct{}

func (NopSink) OnSample(string, core.HistorySample, int, int) {}

// SessionConfig wires a replay session to its consumers. Registry and Track
// are optional: sensor sessions have neither and drive only the sink.
type SessionConfig struct {
	Identity string
	Registry *registry.Registry
	Track    *overlay.Track
	Sink     Sink

	// IntervalSec is the server-side downsampling interval for vessel
	// track fetches, in seconds. Zero means every record.
	IntervalSec int

	// TickBase overrides the per-record interval at 1x. Zero means one
	// second; tests shrink it.
	TickBase time.Duration
}

// Session replays a fetched history buffer. At most one tick loop runs; all
// controls are safe for concurrent use.
type Session struct {
	identity string
	reg      *registry.Registry
	track    *overlay.Track
	sink     Sink
	tickBase time.Duration
	samples  []core.HistorySample

	mu      sync.Mutex
	idx     int
	speed   float64
	playing bool
	stop    chan struct{}
	closed  bool
}

// OpenVesselSession fetches the vessel's track for the window, draws it
// progressively while the download streams, suspends the entity from live
// updates and returns the paused session positioned at the first record.
func (c *Controller) OpenVesselSession(ctx context.Context, cfg SessionConfig, start, end time.Time) (*Session, error) {
	var progress func([]core.HistorySample)
	if cfg.Track != nil {
		progress = cfg.Track.SetSamples
	}
	samples, err := c.FetchVesselHistory(ctx, cfg.Identity, start, end, cfg.IntervalSec, progress)
	if err != nil {
		return nil, err
	}
	return newSession(cfg, samples)
}

// OpenSensorSession fetches the sensor's readings for the window and
// returns the paused session. Sensor samples carry no position, so no
// overlay is suspended or moved; the sink sees every reading.
func (c *Controller) OpenSensorSession(ctx context.Context, cfg SessionConfig, start, end time.Time) (*Session, error) {
	samples, err := c.FetchSensorHistory(ctx, cfg.Identity, start, end, nil)
	if err != nil {
		return nil, err
	}
	return newSession(cfg, samples)
}

func newSession(cfg SessionConfig, samples []core.HistorySample) (*Session, error) {
	if len(samples) == 0 {
		return nil, ErrNoRecords
	}
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.TickBase <= 0 {
		cfg.TickBase = tickBase
	}
	s := &Session{
		identity: cfg.Identity,
		reg:      cfg.Registry,
		track:    cfg.Track,
		sink:     cfg.Sink,
		tickBase: cfg.TickBase,
		samples:  samples,
		speed:    minSpeed,
	}
	if s.reg != nil {
		s.reg.Suspend(s.identity)
	}
	s.applyAt(0, true)
	return s, nil
}

// Samples returns the replay buffer.
func (s *Session) Samples() []core.HistorySample {
	return s.samples
}

// Play starts or resumes the tick loop. No-op if already playing.
func (s *Session) Play() {
	s.mu.Lock()
	if s.playing || s.closed {
		s.mu.Unlock()
		return
	}
	s.playing = true
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	go s.loop(stop)
}

// Pause freezes playback at the current record.
func (s *Session) Pause() {
	s.mu.Lock()
	s.pauseLocked()
	s.mu.Unlock()
}

func (s *Session) pauseLocked() {
	if !s.playing {
		return
	}
	s.playing = false
	close(s.stop)
	s.stop = nil
}

// Toggle flips play/pause and reports whether the session is now playing.
func (s *Session) Toggle() bool {
	s.mu.Lock()
	playing := s.playing
	if playing {
		s.pauseLocked()
	}
	closed := s.closed
	s.mu.Unlock()

	if !playing && !closed {
		s.Play()
		return true
	}
	return false
}

// Playing reports whether the tick loop is running.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SetSpeed sets the playback multiplier, clamped to [1, 10]. It takes effect
// on the next tick.
func (s *Session) SetSpeed(speed float64) {
	s.mu.Lock()
	s.speed = math.Min(math.Max(speed, minSpeed), maxSpeed)
	s.mu.Unlock()
}

// Speed returns the current multiplier.
func (s *Session) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Seek jumps to the record at the given fraction of the buffer, in [0, 1],
// and applies it immediately with no animation.
func (s *Session) Seek(pos float64) {
	pos = math.Min(math.Max(pos, 0), 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	idx := int(math.Floor(pos * float64(len(s.samples)-1)))
	s.idx = idx
	s.mu.Unlock()

	s.applyAt(idx, true)
}

// Index returns the current record index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

// Progress returns the position within the buffer as a fraction in [0, 1].
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) < 2 {
		return 0
	}
	return float64(s.idx) / float64(len(s.samples)-1)
}

// Close stops playback, lifts the live-update suspension and removes the
// track. The next live sighting repositions the overlay.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pauseLocked()
	s.mu.Unlock()

	if s.reg != nil {
		s.reg.Resume(s.identity)
	}
	if s.track != nil {
		s.track.Remove()
	}
}

func (s *Session) loop(stop chan struct{}) {
	for {
		s.mu.Lock()
		if !s.playing || s.stop != stop {
			s.mu.Unlock()
			return
		}
		interval := time.Duration(float64(s.tickBase) / s.speed)
		s.mu.Unlock()

		select {
		case <-stop:
			return
		case <-time.After(interval):
		}

		if !s.step(stop) {
			return
		}
	}
}

// step advances to the next record and applies it. The current record was
// already rendered by the session open, a seek or the previous tick, so the
// first tick after any of those moves straight to the next one. Ticking at
// the final record stops playback and rewinds to the start, ready to replay.
func (s *Session) step(stop chan struct{}) bool {
	s.mu.Lock()
	if !s.playing || s.stop != stop {
		s.mu.Unlock()
		return false
	}
	if s.idx >= len(s.samples)-1 {
		s.playing = false
		s.stop = nil
		s.idx = 0
		s.mu.Unlock()
		// stop was handed back as s.stop = nil; close it so Seek or a
		// racing Pause never blocks on a dead loop.
		close(stop)
		return false
	}
	s.idx++
	idx := s.idx
	s.mu.Unlock()

	s.applyAt(idx, false)
	return true
}

// applyAt pushes the record at idx through the overlay update path and the
// sink. snap bypasses animation (seeks and session open).
func (s *Session) applyAt(idx int, snap bool) {
	sample := s.samples[idx]
	speed := s.Speed()
	if s.reg != nil {
		if err := s.reg.Apply(s.identity, sample.Patch(speed, snap)); err != nil {
			// Rejected samples leave the overlay at its previous pose.
			return
		}
	}
	s.sink.OnSample(s.identity, sample, idx, len(s.samples))
}
