// Package camera drives the globe's continuous rotation and pauses it while
// the user interacts with the view.
package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/pkg/geospatial"
)

// Camera is the orientation resource the controller reads and rotates.
type Camera interface {
	PointOfView() (domain.CameraOrientation, error)
	SetLongitude(lng float64) error
}

// Config tunes rotation speed and resume delays.
type Config struct {
	// Speed is the longitude advance per tick, in degrees.
	Speed float64
	// ResumeDelay applies after an explicit interaction end (pointer-up,
	// touch-end) and after pointer-down/touch-start, whose end is implied.
	ResumeDelay time.Duration
	// HoverResumeDelay applies after the pointer leaves the view.
	HoverResumeDelay time.Duration
	// FrameInterval is the tick period used by Run.
	FrameInterval time.Duration
	// ReadyTimeout bounds how long Run waits for the camera to mount.
	ReadyTimeout time.Duration
}

// DefaultConfig mirrors the globe's stock behaviour.
func DefaultConfig() Config {
	return Config{
		Speed:            0.1,
		ResumeDelay:      2000 * time.Millisecond,
		HoverResumeDelay: 200 * time.Millisecond,
		FrameInterval:    time.Second / 60,
		ReadyTimeout:     30 * time.Second,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithStateHook is called on every Rotating/Paused transition.
func WithStateHook(fn func(from, to domain.InteractionState)) Option {
	return func(c *Controller) { c.onState = fn }
}

// WithFrameHook is called by Run with the orientation of every frame.
func WithFrameHook(fn func(domain.CameraOrientation)) Option {
	return func(c *Controller) { c.onFrame = fn }
}

// Controller is a two-state machine: Rotating (default) and Paused.
// A paused controller holds at most one resume deadline; it is evaluated
// on Tick, replaced by every new interaction and cleared by Close, so a
// resume can never happen after teardown.
type Controller struct {
	mu  sync.Mutex
	cam Camera
	cfg Config

	state    domain.InteractionState
	rotation float64
	synced   bool
	resumeAt time.Time
	closed   bool
	done     chan struct{}

	onState func(from, to domain.InteractionState)
	onFrame func(domain.CameraOrientation)
}

// NewController creates a rotating controller bound to cam.
func NewController(cam Camera, cfg Config, opts ...Option) *Controller {
	def := DefaultConfig()
	if cfg.Speed == 0 {
		cfg.Speed = def.Speed
	}
	if cfg.ResumeDelay <= 0 {
		cfg.ResumeDelay = def.ResumeDelay
	}
	if cfg.HoverResumeDelay <= 0 {
		cfg.HoverResumeDelay = def.HoverResumeDelay
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = def.ReadyTimeout
	}

	c := &Controller{
		cam:   cam,
		cfg:   cfg,
		state: domain.Rotating,
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current interaction state.
func (c *Controller) State() domain.InteractionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ResumeDeadline returns the pending resume time, if any.
func (c *Controller) ResumeDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumeAt, !c.resumeAt.IsZero()
}

// Tick advances the machine by one frame. When the camera is not ready the
// tick is a no-op and domain.ErrCameraNotReady is returned; the caller just
// tries again next frame.
func (c *Controller) Tick(now time.Time) (domain.CameraOrientation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.CameraOrientation{}, domain.ErrControllerClosed
	}

	pov, err := c.cam.PointOfView()
	if err != nil {
		return domain.CameraOrientation{}, err
	}

	if !c.synced {
		c.rotation = geospatial.WrapDegrees(pov.Lng)
		c.synced = true
	}

	if c.state == domain.Paused && !c.resumeAt.IsZero() && !now.Before(c.resumeAt) {
		c.resumeAt = time.Time{}
		// Pick up wherever the user left the camera.
		c.rotation = geospatial.WrapDegrees(pov.Lng)
		c.setState(domain.Rotating)
	}

	if c.state != domain.Rotating {
		return pov, nil
	}

	next := geospatial.WrapDegrees(c.rotation + c.cfg.Speed)
	if err := c.cam.SetLongitude(next); err != nil {
		return domain.CameraOrientation{}, err
	}
	c.rotation = next
	pov.Lng = next
	return pov, nil
}

// Interact dispatches an interaction event.
func (c *Controller) Interact(kind domain.InteractionKind, now time.Time) error {
	switch {
	case kind.IsStart():
		return c.InteractionStart(kind, now)
	case kind.IsEnd():
		return c.InteractionEnd(kind, now)
	default:
		return fmt.Errorf("unknown interaction %q", kind)
	}
}

// InteractionStart pauses immediately and cancels any pending resume.
// Pointer-down and touch-start arm a resume of their own because no end
// event is guaranteed to follow them: the explicit-end delay plus the
// hover delay, the same settle time a pointer-leave adds.
func (c *Controller) InteractionStart(kind domain.InteractionKind, now time.Time) error {
	if !kind.IsStart() {
		return fmt.Errorf("%q is not an interaction start", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrControllerClosed
	}

	c.resumeAt = time.Time{}
	c.setState(domain.Paused)
	if kind == domain.PointerDown || kind == domain.TouchStart {
		c.resumeAt = now.Add(c.cfg.ResumeDelay + c.cfg.HoverResumeDelay)
	}
	return nil
}

// InteractionEnd arms the resume deadline. It does nothing while rotating.
func (c *Controller) InteractionEnd(kind domain.InteractionKind, now time.Time) error {
	if !kind.IsEnd() {
		return fmt.Errorf("%q is not an interaction end", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrControllerClosed
	}
	if c.state != domain.Paused {
		return nil
	}

	delay := c.cfg.ResumeDelay
	if kind == domain.PointerLeave {
		delay = c.cfg.HoverResumeDelay
	}
	c.resumeAt = now.Add(delay)
	return nil
}

// Close tears the controller down: the pending deadline is dropped, Run
// returns, and every later call is a no-op reporting ErrControllerClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.resumeAt = time.Time{}
	close(c.done)
}

// Done is closed once the controller is torn down.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) setState(to domain.InteractionState) {
	from := c.state
	c.state = to
	if from != to && c.onState != nil {
		c.onState(from, to)
	}
}
