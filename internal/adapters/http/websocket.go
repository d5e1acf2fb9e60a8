package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/perspectives/internal/adapters/nats"
	"github.com/samirrijal/perspectives/internal/core/camera"
	"github.com/samirrijal/perspectives/internal/core/clustering"
	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/pkg/metrics"
)

// wsMessage is sent by the client.
//
//	{"type":"view","lat":43.2,"lng":-2.9,"altitude":2.5}
//	{"type":"interaction","event":"pointer-down"}
//
// The first view message mounts the camera; until then no frames are sent.
type wsMessage struct {
	Type     string   `json:"type"`
	Event    string   `json:"event,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Altitude *float64 `json:"altitude,omitempty"`
}

type wsFrame struct {
	Type  string                   `json:"type"`
	POV   domain.CameraOrientation `json:"pov"`
	State string                   `json:"state"`
}

type wsClusters struct {
	Type string            `json:"type"`
	Set  domain.ClusterSet `json:"set"`
}

type wsSession struct {
	Type    string `json:"type"`
	Session string `json:"session"`
}

// clusterPush decides when a session needs a fresh cluster set: on the
// first frame, on a band change, or after a snapshot refresh.
type clusterPush struct {
	lastBand int
	stale    atomic.Bool
}

func newClusterPush() *clusterPush {
	return &clusterPush{lastBand: -1}
}

func (p *clusterPush) markStale() { p.stale.Store(true) }

// due is called from the frame hook only. The stale flag is consumed on
// every call so a refresh that lands together with a band change does not
// trigger a second push on the next frame.
func (p *clusterPush) due(band int) bool {
	refreshed := p.stale.Swap(false)
	if band == p.lastBand && !refreshed {
		return false
	}
	p.lastBand = band
	return true
}

// CameraSessionHandler returns a handler that runs one camera controller
// per connection. It streams a frame per tick, pushes a fresh cluster set
// whenever the altitude crosses a threshold band or the point snapshot is
// refreshed, and feeds client interactions into the controller.
func CameraSessionHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID := uuid.NewString()
		logger := slog.Default().With("session", sessionID, "remote", c.RemoteAddr().String())
		logger.Info("camera session opened")

		metrics.ActiveCameraSessions.Inc()
		defer metrics.ActiveCameraSessions.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		_ = writeJSON(wsSession{Type: "session", Session: sessionID})

		// Snapshot refreshes published by any instance force a cluster push.
		push := newClusterPush()
		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.SubjectPointsRefreshed, func(*nats.Msg) {
				push.markStale()
			})
			if err != nil {
				logger.Warn("refresh subscribe failed", "error", err)
			} else {
				defer func() { _ = sub.Unsubscribe() }()
			}
		}

		handle := camera.NewHandle()
		var ctrl *camera.Controller

		onFrame := func(pov domain.CameraOrientation) {
			if err := writeJSON(wsFrame{Type: "frame", POV: pov, State: ctrl.State().String()}); err != nil {
				cancel()
				return
			}

			if !push.due(clustering.Band(pov.Altitude)) {
				return
			}
			if deps.Clusters == nil {
				return
			}
			set, err := deps.Clusters.Clusters(ctx, pov.Altitude)
			if err != nil {
				logger.Warn("cluster push failed", "error", err)
				return
			}
			if err := writeJSON(wsClusters{Type: "clusters", Set: set}); err != nil {
				cancel()
			}
		}

		ctrl = camera.NewController(handle, deps.Camera,
			camera.WithFrameHook(onFrame),
			camera.WithStateHook(func(from, to domain.InteractionState) {
				metrics.CameraTransitions.WithLabelValues(to.String()).Inc()
				logger.Debug("camera state", "from", from.String(), "to", to.String())
			}),
		)
		defer ctrl.Close()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("camera loop stopped", "error", err)
				cancel()
			}
		}()

		// Keep-alive ping
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						cancel()
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		// Unblock the reader once the session is cancelled from elsewhere.
		go func() {
			<-ctx.Done()
			_ = c.SetReadDeadline(time.Now())
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Type {
			case "interaction":
				kind, ok := domain.ParseInteractionKind(m.Event)
				if !ok {
					_ = writeJSON(map[string]string{"error": "unknown event: " + m.Event})
					continue
				}
				if err := ctrl.Interact(kind, time.Now()); err != nil {
					_ = writeJSON(map[string]string{"error": err.Error()})
				}

			case "view":
				applyView(handle, m)

			default:
				_ = writeJSON(map[string]string{"error": "unknown message type: " + m.Type})
			}
		}

		// Cleanup
		ctrl.Close()
		cancel()
		wg.Wait()
		logger.Info("camera session closed")
	}
}

// applyView mounts the camera on the first view message and afterwards
// applies the user's drag/zoom. Missing fields keep their current value.
func applyView(h *camera.Handle, m wsMessage) {
	pov, err := h.PointOfView()
	if err != nil {
		pov = domain.CameraOrientation{}
	}
	if m.Lat != nil {
		pov.Lat = *m.Lat
	}
	if m.Lng != nil {
		pov.Lng = *m.Lng
	}
	if m.Altitude != nil {
		pov.Altitude = *m.Altitude
	}

	if !h.Ready() {
		h.Mount(pov)
		return
	}
	_ = h.SetView(pov)
}
