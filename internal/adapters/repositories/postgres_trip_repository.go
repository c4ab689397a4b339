package repositories

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Postgres-backed implementation of the TripRepository port.
type PostgresTripRepository struct {
	DB     *sql.DB
	Naming RecordNaming
}

func NewPostgresTripRepository(db *sql.DB, naming RecordNaming) *PostgresTripRepository {
	return &PostgresTripRepository{DB: db, Naming: naming}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (p *PostgresTripRepository) insertQuery(upsert bool) string {
	q := fmt.Sprintf(`
	INSERT INTO %s (
		id, origin_lat, origin_lng, %s, %s,
		destinations, segments, total_distance_meters, price, rate_per_km,
		status, color, created_at, completed_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.Naming.table(), p.Naming.origin(), p.Naming.destination())
	if upsert {
		q += `ON CONFLICT (id) DO NOTHING`
	}
	return q + ";"
}

func (p *PostgresTripRepository) insert(ctx context.Context, ex execer, query string, t *domain.Trip) error {
	r, err := toRecord(t)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, query,
		r.ID, r.OriginLat, r.OriginLng, r.OriginAddress, r.DestinationAddress,
		string(r.Destinations), string(r.Segments), r.TotalDistanceMeters, r.Price, r.RatePerKm,
		r.Status, r.Color, r.CreatedAt, r.CompletedAt,
	)
	return err
}

func (p *PostgresTripRepository) Create(ctx context.Context, t *domain.Trip) (err error) {
	defer obs.Time(ctx, "trips.Create")(&err)

	if p.DB == nil {
		return errors.New("trip repository: db is nil")
	}
	if err := p.insert(ctx, p.DB, p.insertQuery(false), t); err != nil {
		return fmt.Errorf("create trip %d: %w", t.ID, err)
	}
	return nil
}

func (p *PostgresTripRepository) UpdateStatus(
	ctx context.Context,
	id int64,
	status domain.TripStatus,
	completedAt *time.Time,
) (err error) {
	defer obs.Time(ctx, "trips.UpdateStatus")(&err)

	if p.DB == nil {
		return errors.New("trip repository: db is nil")
	}

	q := fmt.Sprintf(`UPDATE %s SET status = $2, completed_at = $3 WHERE id = $1;`, p.Naming.table())
	res, err := p.DB.ExecContext(ctx, q, id, string(status), completedAt)
	if err != nil {
		return fmt.Errorf("update trip %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update trip %d: %w", id, domain.ErrTripNotFound)
	}
	return nil
}

func (p *PostgresTripRepository) Delete(ctx context.Context, id int64) (err error) {
	defer obs.Time(ctx, "trips.Delete")(&err)

	if p.DB == nil {
		return errors.New("trip repository: db is nil")
	}

	q := fmt.Sprintf(`DELETE FROM %s WHERE id = $1;`, p.Naming.table())
	if _, err := p.DB.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete trip %d: %w", id, err)
	}
	return nil
}

// Return trips created at or after since, oldest first.
func (p *PostgresTripRepository) ListSince(ctx context.Context, since time.Time) (_ []domain.Trip, err error) {
	defer obs.Time(ctx, "trips.ListSince")(&err)

	if p.DB == nil {
		return nil, errors.New("trip repository: db is nil")
	}

	q := fmt.Sprintf(`
	SELECT
		id, origin_lat, origin_lng, %s, %s,
		destinations, segments, total_distance_meters, price, rate_per_km,
		status, color, created_at, completed_at
	FROM %s
	WHERE created_at >= $1
	ORDER BY created_at, id;
	`, p.Naming.origin(), p.Naming.destination(), p.Naming.table())

	rows, err := p.DB.QueryContext(ctx, q, since)
	if err != nil {
		return nil, fmt.Errorf("list trips: query %s table: %w", p.Naming.Table, err)
	}
	defer rows.Close()

	trips := make([]domain.Trip, 0, 32)
	for rows.Next() {
		var r tripRecord
		var completed sql.NullTime
		err := rows.Scan(
			&r.ID, &r.OriginLat, &r.OriginLng, &r.OriginAddress, &r.DestinationAddress,
			&r.Destinations, &r.Segments, &r.TotalDistanceMeters, &r.Price, &r.RatePerKm,
			&r.Status, &r.Color, &r.CreatedAt, &completed,
		)
		if err != nil {
			return nil, fmt.Errorf("list trips: scan row: %w", err)
		}
		if completed.Valid {
			c := completed.Time
			r.CompletedAt = &c
		}
		t, err := fromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("list trips: %w", err)
		}
		trips = append(trips, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trips: row iteration: %w", err)
	}

	return trips, nil
}
