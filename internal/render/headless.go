package render

import (
	"sync"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Headless is the in-process Canvas. It keeps all features and text markers
// in memory behind one mutex; the map feature collection is mutated from
// multiple goroutines (live feed, playback ticks, user interaction).
type Headless struct {
	mu       sync.Mutex
	features map[*headlessFeature]struct{}
	texts    map[*headlessText]struct{}
	view     *headlessView
}

// NewHeadless creates a canvas with the given initial view.
func NewHeadless(center geom.XY, zoom float64) *Headless {
	return &Headless{
		features: make(map[*headlessFeature]struct{}),
		texts:    make(map[*headlessText]struct{}),
		view: &headlessView{
			center:    center,
			zoom:      zoom,
			listeners: make(map[int]func()),
		},
	}
}

func (c *Headless) AddFeature(g geom.Geometry, s Style) Feature {
	f := &headlessFeature{geom: g, style: s}
	c.mu.Lock()
	c.features[f] = struct{}{}
	c.mu.Unlock()
	return f
}

func (c *Headless) RemoveFeature(f Feature) {
	hf, ok := f.(*headlessFeature)
	if !ok {
		return
	}
	c.mu.Lock()
	delete(c.features, hf)
	c.mu.Unlock()
}

func (c *Headless) AddText(pos geom.XY, text string) Text {
	t := &headlessText{pos: pos, text: text}
	c.mu.Lock()
	c.texts[t] = struct{}{}
	c.mu.Unlock()
	return t
}

func (c *Headless) RemoveText(t Text) {
	ht, ok := t.(*headlessText)
	if !ok {
		return
	}
	c.mu.Lock()
	delete(c.texts, ht)
	c.mu.Unlock()
}

func (c *Headless) View() View { return c.view }

// FeatureCount reports how many features are currently on the canvas.
func (c *Headless) FeatureCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.features)
}

// TextCount reports how many text markers are currently on the canvas.
func (c *Headless) TextCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.texts)
}

type headlessFeature struct {
	mu    sync.Mutex
	geom  geom.Geometry
	style Style
}

func (f *headlessFeature) SetGeometry(g geom.Geometry) {
	f.mu.Lock()
	f.geom = g
	f.mu.Unlock()
}

func (f *headlessFeature) Geometry() geom.Geometry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geom
}

func (f *headlessFeature) SetStyle(s Style) {
	f.mu.Lock()
	f.style = s
	f.mu.Unlock()
}

func (f *headlessFeature) Style() Style {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.style
}

type headlessText struct {
	mu   sync.Mutex
	pos  geom.XY
	text string
}

func (t *headlessText) SetPosition(pos geom.XY) {
	t.mu.Lock()
	t.pos = pos
	t.mu.Unlock()
}

func (t *headlessText) Position() geom.XY {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

func (t *headlessText) SetText(s string) {
	t.mu.Lock()
	t.text = s
	t.mu.Unlock()
}

func (t *headlessText) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

type headlessView struct {
	mu        sync.Mutex
	center    geom.XY
	zoom      float64
	listeners map[int]func()
	nextID    int
}

func (v *headlessView) Zoom() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

func (v *headlessView) Center() geom.XY {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.center
}

func (v *headlessView) SetZoom(zoom float64) {
	v.mu.Lock()
	v.zoom = zoom
	fns := v.snapshotLocked()
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (v *headlessView) SetCenter(center geom.XY) {
	v.mu.Lock()
	v.center = center
	fns := v.snapshotLocked()
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// AnimateTo jumps straight to the target; the headless canvas has no frames
// of its own to tween through.
func (v *headlessView) AnimateTo(center geom.XY, zoom float64, _ time.Duration) {
	v.mu.Lock()
	v.center = center
	v.zoom = zoom
	fns := v.snapshotLocked()
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (v *headlessView) OnChange(fn func()) (cancel func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}

func (v *headlessView) snapshotLocked() []func() {
	fns := make([]func(), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	return fns
}
