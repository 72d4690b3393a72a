package overlay

import (
	"sync"
	"time"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/render"
)

const (
	// baseAnimationDuration is the time one position update takes to play
	// at 1x speed. Playback divides it by the speed multiplier.
	baseAnimationDuration = time.Second

	// defaultFrameInterval paces the interpolation ticks, roughly 40 fps.
	defaultFrameInterval = 25 * time.Millisecond
)

// Interpolator maps animation progress in [0, 1] to an eased fraction in
// [0, 1]. Injected so overlays can swap easing without subclassing.
type Interpolator interface {
	At(progress float64) float64
}

// Linear is the default Interpolator: constant velocity between samples.
type Linear struct{}

func (Linear) At(progress float64) float64 { return progress }

// AnimatedOption configures an Animated overlay.
type AnimatedOption func(*Animated)

// WithInterpolator replaces the easing applied to each frame.
func WithInterpolator(in Interpolator) AnimatedOption {
	return func(a *Animated) { a.interp = in }
}

// WithBaseDuration overrides the 1x animation duration. Tests shrink it so
// sessions settle in milliseconds.
func WithBaseDuration(d time.Duration) AnimatedOption {
	return func(a *Animated) { a.base = d }
}

// WithFrameInterval overrides the tick pacing.
func WithFrameInterval(d time.Duration) AnimatedOption {
	return func(a *Animated) { a.frame = d }
}

// Animated wraps a Vessel and smooths position/heading changes over an
// animation session. At most one session runs per overlay; a new update
// always cancels the previous session before scheduling its own, so a burst
// of updates settles on the last target rather than on a stale frame.
type Animated struct {
	*Vessel

	interp Interpolator
	base   time.Duration
	frame  time.Duration

	amu     sync.Mutex
	cancel  chan struct{}
	done    chan struct{}
	stopped bool
}

// NewAnimated builds the underlying Vessel and attaches the animator.
func NewAnimated(canvas render.Canvas, cfg VesselConfig, opts ...AnimatedOption) (*Animated, error) {
	v, err := NewVessel(canvas, cfg)
	if err != nil {
		return nil, err
	}
	a := &Animated{
		Vessel: v,
		interp: Linear{},
		base:   baseAnimationDuration,
		frame:  defaultFrameInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Update applies a patch. Non-kinematic fields take effect immediately;
// position and heading changes run as a fresh animation session from the
// currently rendered pose to the patch target. Empty patches are no-ops and
// never restart a running session.
func (a *Animated) Update(p core.StatePatch) error {
	if p.Empty() {
		return nil
	}
	if p.Position != nil && !p.Position.Valid() {
		return a.Vessel.Update(p) // surfaces ErrInvalidCoordinates, applies nothing
	}

	if p.Position == nil && p.Heading == nil {
		return a.Vessel.Update(p)
	}

	static := p
	static.Position = nil
	static.Heading = nil
	if !static.Empty() {
		if err := a.Vessel.Update(static); err != nil {
			return err
		}
	}

	speed := p.PlaybackSpeed
	if speed <= 0 {
		speed = 1
	}
	duration := time.Duration(float64(a.base) / speed)

	a.amu.Lock()
	stopped := a.stopped
	cancel := make(chan struct{})
	done := make(chan struct{})
	oldCancel, oldDone := a.cancel, a.done
	a.cancel, a.done = cancel, done
	a.amu.Unlock()

	// Drain the superseded session before reading the start pose so a
	// stale frame can never land after the new session's first frame.
	if oldCancel != nil {
		close(oldCancel)
	}
	if oldDone != nil {
		<-oldDone
	}

	from := a.Rendered()
	toPos := from.Position
	if p.Position != nil {
		toPos = *p.Position
	}
	toHeading := from.Heading
	if p.Heading != nil {
		toHeading = *p.Heading
	}

	if p.Snap || stopped {
		close(done)
		a.amu.Lock()
		if a.cancel == cancel {
			a.cancel, a.done = nil, nil
		}
		a.amu.Unlock()
		a.setPose(toPos, toHeading)
		return nil
	}

	go a.run(from.Position, from.Heading, toPos, toHeading, duration, cancel, done)
	return nil
}

func (a *Animated) run(fromPos geo.LonLat, fromHeading float64, toPos geo.LonLat, toHeading float64, duration time.Duration, cancel, done chan struct{}) {
	defer close(done)

	start := time.Now()
	ticker := time.NewTicker(a.frame)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C:
			progress := float64(now.Sub(start)) / float64(duration)
			if progress >= 1 {
				a.setPose(toPos, toHeading)
				return
			}
			t := a.interp.At(progress)
			a.setPose(geo.LonLat{
				Lon: fromPos.Lon + (toPos.Lon-fromPos.Lon)*t,
				Lat: fromPos.Lat + (toPos.Lat-fromPos.Lat)*t,
			}, fromHeading+(toHeading-fromHeading)*t)
		}
	}
}

func (a *Animated) cancelSession() {
	a.amu.Lock()
	if a.cancel != nil {
		close(a.cancel)
		a.cancel = nil
	}
	done := a.done
	a.done = nil
	a.amu.Unlock()
	if done != nil {
		<-done
	}
}

// Settle blocks until the current animation session, if any, finishes.
// Used by tests and teardown; live updates never wait on it.
func (a *Animated) Settle() {
	a.amu.Lock()
	done := a.done
	a.amu.Unlock()
	if done != nil {
		<-done
	}
}

// Remove cancels any running session and detaches the feature.
func (a *Animated) Remove() {
	a.amu.Lock()
	a.stopped = true
	a.amu.Unlock()
	a.cancelSession()
	a.Vessel.Remove()
}
