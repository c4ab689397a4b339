package repositories

import (
	"cadete-dispatch-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
)

const ratePerKmKey = "price_per_km"

// PostgresSettingsStore keeps the price per km in the settings table.
// Default is returned while no rate has been stored.
type PostgresSettingsStore struct {
	DB      *sql.DB
	Default float64
}

func NewPostgresSettingsStore(db *sql.DB, defaultRate float64) *PostgresSettingsStore {
	return &PostgresSettingsStore{DB: db, Default: defaultRate}
}

func (s *PostgresSettingsStore) GetRatePerKm(ctx context.Context) (_ float64, err error) {
	defer obs.Time(ctx, "settings.GetRatePerKm")(&err)

	if s.DB == nil {
		return 0, errors.New("settings store: db is nil")
	}

	var raw string
	err = s.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1;`, ratePerKmKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return s.Default, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get rate per km: %w", err)
	}

	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("get rate per km: parse %q: %w", raw, err)
	}
	return rate, nil
}

func (s *PostgresSettingsStore) SetRatePerKm(ctx context.Context, rate float64) (err error) {
	defer obs.Time(ctx, "settings.SetRatePerKm")(&err)

	if s.DB == nil {
		return errors.New("settings store: db is nil")
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("set rate per km: invalid rate %v", rate)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO settings (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at;
	`, ratePerKmKey, strconv.FormatFloat(rate, 'f', -1, 64))
	if err != nil {
		return fmt.Errorf("set rate per km: %w", err)
	}
	return nil
}
