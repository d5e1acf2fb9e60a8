package camera

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func mounted(lat, lng, alt float64) *Handle {
	h := NewHandle()
	h.Mount(domain.CameraOrientation{Lat: lat, Lng: lng, Altitude: alt})
	return h
}

func lngOf(t *testing.T, h *Handle) float64 {
	t.Helper()
	pov, err := h.PointOfView()
	if err != nil {
		t.Fatalf("point of view: %v", err)
	}
	return pov.Lng
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTick_RotatesLongitudeOnly(t *testing.T) {
	h := mounted(30, 10, 1.8)
	c := NewController(h, DefaultConfig())

	for i := 1; i <= 3; i++ {
		pov, err := c.Tick(t0)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		want := 10 + 0.1*float64(i)
		if !near(pov.Lng, want) || !near(lngOf(t, h), want) {
			t.Errorf("tick %d: expected lng %f, got %f", i, want, pov.Lng)
		}
		if pov.Lat != 30 || pov.Altitude != 1.8 {
			t.Errorf("tick %d: lat/alt must be untouched, got %+v", i, pov)
		}
	}
}

func TestTick_WrapsAt360(t *testing.T) {
	h := mounted(0, 359.95, 0)
	c := NewController(h, DefaultConfig())

	pov, err := c.Tick(t0)
	if err != nil {
		t.Fatal(err)
	}
	if pov.Lng < 0 || pov.Lng >= 360 || math.Abs(pov.Lng-0.05) > 1e-6 {
		t.Errorf("expected wrap to ~0.05, got %f", pov.Lng)
	}
	if pov.Altitude != DefaultAltitude {
		t.Errorf("expected default altitude, got %f", pov.Altitude)
	}
}

func TestTick_NotReadyIsNoop(t *testing.T) {
	h := NewHandle()
	c := NewController(h, DefaultConfig())

	if _, err := c.Tick(t0); !errors.Is(err, domain.ErrCameraNotReady) {
		t.Fatalf("expected ErrCameraNotReady, got %v", err)
	}

	h.Mount(domain.CameraOrientation{Lng: 5})
	pov, err := c.Tick(t0)
	if err != nil {
		t.Fatal(err)
	}
	if !near(pov.Lng, 5.1) {
		t.Errorf("expected rotation to start from mounted lng, got %f", pov.Lng)
	}
}

func TestPointerDown_PausesAndResumesFromCurrentLng(t *testing.T) {
	h := mounted(0, 10, 2.5)
	c := NewController(h, DefaultConfig())

	if err := c.Interact(domain.PointerDown, t0); err != nil {
		t.Fatal(err)
	}
	if c.State() != domain.Paused {
		t.Fatal("expected paused after pointer-down")
	}
	if at, ok := c.ResumeDeadline(); !ok || !at.Equal(t0.Add(2200*time.Millisecond)) {
		t.Errorf("expected deadline at t0+2.2s, got %v %v", at, ok)
	}

	// User drags the globe while paused.
	if err := h.SetView(domain.CameraOrientation{Lat: 12, Lng: 50}); err != nil {
		t.Fatal(err)
	}

	// The explicit-end delay alone is not enough; the hover settle follows.
	pov, _ := c.Tick(t0.Add(2199 * time.Millisecond))
	if c.State() != domain.Paused || pov.Lng != 50 {
		t.Fatalf("expected still paused at lng 50, got %s %f", c.State(), pov.Lng)
	}

	pov, _ = c.Tick(t0.Add(2200 * time.Millisecond))
	if c.State() != domain.Rotating {
		t.Fatal("expected rotating once the deadline passes")
	}
	if !near(pov.Lng, 50.1) {
		t.Errorf("expected resume from current lng, got %f", pov.Lng)
	}
	if pov.Lat != 12 || pov.Altitude != 2.5 {
		t.Errorf("lat/alt changed on resume: %+v", pov)
	}
	if _, ok := c.ResumeDeadline(); ok {
		t.Error("deadline should be cleared after resume")
	}
}

func TestRepeatedInteractionsKeepOneDeadline(t *testing.T) {
	h := mounted(0, 0, 0)
	c := NewController(h, DefaultConfig())

	_ = c.Interact(domain.PointerDown, t0)
	_ = c.Interact(domain.TouchStart, t0.Add(1500*time.Millisecond))

	c.Tick(t0.Add(2500 * time.Millisecond))
	if c.State() != domain.Paused {
		t.Fatal("first deadline must have been replaced")
	}
	c.Tick(t0.Add(3699 * time.Millisecond))
	if c.State() != domain.Paused {
		t.Fatal("expected paused until the touch-start deadline")
	}
	c.Tick(t0.Add(3700 * time.Millisecond))
	if c.State() != domain.Rotating {
		t.Fatal("expected resume at the latest deadline")
	}
}

func TestHover_PausesUntilLeave(t *testing.T) {
	h := mounted(0, 0, 0)
	c := NewController(h, DefaultConfig())

	_ = c.Interact(domain.PointerEnter, t0)
	if _, ok := c.ResumeDeadline(); ok {
		t.Fatal("hover must not arm a deadline")
	}
	c.Tick(t0.Add(time.Hour))
	if c.State() != domain.Paused {
		t.Fatal("hover should hold the pause")
	}

	leave := t0.Add(time.Hour)
	_ = c.Interact(domain.PointerLeave, leave)
	c.Tick(leave.Add(199 * time.Millisecond))
	if c.State() != domain.Paused {
		t.Fatal("expected paused before hover delay")
	}
	c.Tick(leave.Add(200 * time.Millisecond))
	if c.State() != domain.Rotating {
		t.Fatal("expected rotating after hover delay")
	}
}

func TestEndEvents(t *testing.T) {
	h := mounted(0, 0, 0)
	c := NewController(h, DefaultConfig())

	// An end event while rotating changes nothing.
	if err := c.Interact(domain.PointerUp, t0); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.ResumeDeadline(); ok || c.State() != domain.Rotating {
		t.Fatal("end while rotating must be ignored")
	}

	_ = c.Interact(domain.PointerEnter, t0)
	_ = c.Interact(domain.TouchEnd, t0)
	if at, ok := c.ResumeDeadline(); !ok || !at.Equal(t0.Add(2*time.Second)) {
		t.Errorf("touch-end should arm the 2s delay, got %v", at)
	}
}

func TestInteractionStartRejectsEndKinds(t *testing.T) {
	c := NewController(mounted(0, 0, 0), DefaultConfig())
	if err := c.InteractionStart(domain.PointerUp, t0); err == nil {
		t.Error("expected error for end kind")
	}
	if err := c.InteractionEnd(domain.PointerDown, t0); err == nil {
		t.Error("expected error for start kind")
	}
	if err := c.Interact(domain.InteractionKind("wheel"), t0); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestClose_ResumeNeverFires(t *testing.T) {
	h := mounted(0, 10, 0)
	c := NewController(h, DefaultConfig())

	_ = c.Interact(domain.PointerDown, t0)
	c.Close()
	c.Close()

	if _, err := c.Tick(t0.Add(time.Minute)); !errors.Is(err, domain.ErrControllerClosed) {
		t.Fatalf("expected ErrControllerClosed, got %v", err)
	}
	if c.State() != domain.Paused {
		t.Error("state must not change after close")
	}
	if lngOf(t, h) != 10 {
		t.Error("camera must not move after close")
	}
	if err := c.Interact(domain.PointerUp, t0); !errors.Is(err, domain.ErrControllerClosed) {
		t.Errorf("expected ErrControllerClosed for events, got %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Error("done channel should be closed")
	}
}

func TestStateHook(t *testing.T) {
	var got []string
	c := NewController(mounted(0, 0, 0), DefaultConfig(), WithStateHook(func(from, to domain.InteractionState) {
		got = append(got, from.String()+">"+to.String())
	}))

	_ = c.Interact(domain.PointerDown, t0)
	_ = c.Interact(domain.PointerDown, t0)
	c.Tick(t0.Add(3 * time.Second))

	want := []string{"rotating>paused", "paused>rotating"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRun_WaitsForMountThenStreamsFrames(t *testing.T) {
	h := NewHandle()
	frames := make(chan domain.CameraOrientation, 64)
	cfg := DefaultConfig()
	cfg.FrameInterval = 5 * time.Millisecond
	cfg.ReadyTimeout = 5 * time.Second

	c := NewController(h, cfg, WithFrameHook(func(pov domain.CameraOrientation) {
		select {
		case frames <- pov:
		default:
		}
	}))

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = c.Run(context.Background())
	}()

	time.Sleep(30 * time.Millisecond)
	h.Mount(domain.CameraOrientation{Lng: 100})

	select {
	case pov := <-frames:
		if pov.Lng <= 100 {
			t.Errorf("expected rotation past 100, got %f", pov.Lng)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no frame after mount")
	}

	c.Close()
	wg.Wait()
	if runErr != nil {
		t.Errorf("expected clean stop, got %v", runErr)
	}
}

func TestRun_ContextCancelledBeforeReady(t *testing.T) {
	c := NewController(NewHandle(), DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.Run(ctx); err == nil {
		t.Fatal("expected error when the camera never mounts")
	}
}
