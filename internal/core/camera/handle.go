package camera

import (
	"sync"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// DefaultAltitude is used when the renderer mounts without an altitude.
const DefaultAltitude = 2.5

// Handle owns the camera orientation shared by the motion controller and
// the renderer. The controller writes the longitude; user input (drag,
// zoom) writes the whole view. Until Mount is called the camera is not
// ready and every access fails with domain.ErrCameraNotReady.
type Handle struct {
	mu      sync.RWMutex
	pov     domain.CameraOrientation
	mounted bool
}

// NewHandle returns an unmounted handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Mount marks the camera as constructed with an initial orientation.
func (h *Handle) Mount(pov domain.CameraOrientation) {
	if pov.Altitude <= 0 {
		pov.Altitude = DefaultAltitude
	}
	h.mu.Lock()
	h.pov = pov
	h.mounted = true
	h.mu.Unlock()
}

// Unmount makes the camera unavailable again.
func (h *Handle) Unmount() {
	h.mu.Lock()
	h.mounted = false
	h.mu.Unlock()
}

// Ready reports whether the camera is mounted.
func (h *Handle) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mounted
}

// PointOfView returns the current orientation.
func (h *Handle) PointOfView() (domain.CameraOrientation, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.mounted {
		return domain.CameraOrientation{}, domain.ErrCameraNotReady
	}
	return h.pov, nil
}

// SetLongitude is the controller's write path; lat and altitude are kept.
func (h *Handle) SetLongitude(lng float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.mounted {
		return domain.ErrCameraNotReady
	}
	h.pov.Lng = lng
	return nil
}

// SetView is the user-input write path (drag, zoom).
func (h *Handle) SetView(pov domain.CameraOrientation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.mounted {
		return domain.ErrCameraNotReady
	}
	if pov.Altitude <= 0 {
		pov.Altitude = h.pov.Altitude
	}
	h.pov = pov
	return nil
}
