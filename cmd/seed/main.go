package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	natsadapter "github.com/samirrijal/perspectives/internal/adapters/nats"
	"github.com/samirrijal/perspectives/internal/adapters/postgres"
	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/pkg/config"
	"github.com/samirrijal/perspectives/internal/pkg/logging"
)

const batchSize = 500

// record mirrors a row of the perspectives table as exported to JSON.
type record struct {
	ID         string     `json:"id"`
	PlaceName  string     `json:"place_name"`
	PlaceLat   *float64   `json:"place_lat"`
	PlaceLng   *float64   `json:"place_lng"`
	TimeOfDay  string     `json:"time_of_day"`
	Weather    string     `json:"weather"`
	Images     []string   `json:"images"`
	CoverImage string     `json:"cover_image"`
	Sketches   []string   `json:"sketches"`
	CreatedAt  *time.Time `json:"created_at"`
}

func (r record) point() (domain.GeoPoint, bool) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	p := domain.GeoPoint{
		ID: r.ID,
		Payload: domain.Perspective{
			Name:       r.PlaceName,
			Slug:       r.ID,
			TimeOfDay:  r.TimeOfDay,
			Weather:    r.Weather,
			Images:     r.Images,
			CoverImage: r.CoverImage,
			Sketches:   r.Sketches,
			CreatedAt:  r.CreatedAt,
		},
	}
	if r.PlaceLat == nil || r.PlaceLng == nil {
		return p, false
	}
	p.Lat, p.Lng = *r.PlaceLat, *r.PlaceLng
	return p, p.Valid()
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: seed <perspectives.json>")
	}

	cfg, err := config.Load("perspectives-seed")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("read %s: %v", os.Args[1], err)
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Fatalf("parse %s: %v", os.Args[1], err)
	}

	points := make([]domain.GeoPoint, 0, len(records))
	for i, r := range records {
		p, ok := r.point()
		if !ok {
			// The snapshot pins these at (0, 0); skip them at the source instead.
			slog.Warn("skipping record without valid coordinates", "index", i, "id", r.ID)
			continue
		}
		points = append(points, p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	repo := postgres.NewPointRepo(db)

	ids := make([]string, 0, len(points))
	for start := 0; start < len(points); start += batchSize {
		end := min(start+batchSize, len(points))
		if err := repo.UpsertBatch(ctx, points[start:end]); err != nil {
			log.Fatalf("upsert batch %d-%d: %v", start, end, err)
		}
		for _, p := range points[start:end] {
			ids = append(ids, p.ID)
		}
		fmt.Printf("OK  %d/%d\n", end, len(points))
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, API instances will not refresh", "error", err)
		return
	}
	defer pub.Close()
	if err := pub.PublishSaved(ctx, ids); err != nil {
		slog.Warn("publish saved failed", "error", err)
		return
	}
	slog.Info("seed complete", "points", len(ids), "skipped", len(records)-len(points))
}
