package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

const pointColumns = `
	id, COALESCE(place_name, ''), place_lat, place_lng,
	COALESCE(time_of_day, ''), COALESCE(weather, ''),
	COALESCE(images, '{}'), COALESCE(cover_image, ''), COALESCE(sketches, '{}'),
	created_at`

// PointRepo implements ports.PointRepository over the perspectives table.
type PointRepo struct {
	db *DB
}

// NewPointRepo creates a new PointRepo.
func NewPointRepo(db *DB) *PointRepo {
	return &PointRepo{db: db}
}

// List returns every perspective, newest first. Rows with a missing
// coordinate come back as NaN so the snapshot can flag them.
func (r *PointRepo) List(ctx context.Context) ([]domain.GeoPoint, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+pointColumns+`
		FROM perspectives
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query perspectives: %w", err)
	}
	defer rows.Close()

	var points []domain.GeoPoint
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetByID returns one perspective or domain.ErrPointNotFound.
func (r *PointRepo) GetByID(ctx context.Context, id string) (*domain.GeoPoint, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+pointColumns+`
		FROM perspectives WHERE id = $1`, id)
	p, err := scanPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPointNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertBatch inserts or updates many perspectives using pgx.Batch.
func (r *PointRepo) UpsertBatch(ctx context.Context, points []domain.GeoPoint) error {
	if len(points) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range points {
		created := time.Now().UTC()
		if p.Payload.CreatedAt != nil {
			created = *p.Payload.CreatedAt
		}
		batch.Queue(`
			INSERT INTO perspectives (id, place_name, place_lat, place_lng, time_of_day, weather,
			                          images, cover_image, sketches, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE
			SET place_name = EXCLUDED.place_name, place_lat = EXCLUDED.place_lat,
			    place_lng = EXCLUDED.place_lng, time_of_day = EXCLUDED.time_of_day,
			    weather = EXCLUDED.weather, images = EXCLUDED.images,
			    cover_image = EXCLUDED.cover_image, sketches = EXCLUDED.sketches
		`, p.ID, p.Payload.Name, p.Lat, p.Lng, nullIfEmpty(p.Payload.TimeOfDay), nullIfEmpty(p.Payload.Weather),
			p.Payload.Images, nullIfEmpty(p.Payload.CoverImage), p.Payload.Sketches, created)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func scanPoint(row pgx.Row) (domain.GeoPoint, error) {
	var (
		p        domain.GeoPoint
		lat, lng *float64
		created  time.Time
	)
	err := row.Scan(
		&p.ID, &p.Payload.Name, &lat, &lng,
		&p.Payload.TimeOfDay, &p.Payload.Weather,
		&p.Payload.Images, &p.Payload.CoverImage, &p.Payload.Sketches,
		&created,
	)
	if err != nil {
		return p, err
	}
	p.Lat, p.Lng = floatOrNaN(lat), floatOrNaN(lng)
	p.Payload.Slug = p.ID
	p.Payload.CreatedAt = &created
	return p, nil
}

func floatOrNaN(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
