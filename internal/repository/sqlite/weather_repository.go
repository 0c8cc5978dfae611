package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkpost/internal/domain"
	"inkpost/internal/repository"
)

const createWeatherTable = `
CREATE TABLE IF NOT EXISTS weather_readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	city TEXT NOT NULL,
	temperature REAL NOT NULL,
	condition TEXT NOT NULL,
	humidity INTEGER NOT NULL DEFAULT 0,
	wind_speed REAL NOT NULL DEFAULT 0,
	recorded_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_weather_city_recorded ON weather_readings(city, recorded_at);
`

type WeatherRepository struct {
	db *sql.DB
}

func NewWeatherRepository(db *sql.DB) repository.WeatherRepository {
	return &WeatherRepository{db: db}
}

func (r *WeatherRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createWeatherTable); err != nil {
		return fmt.Errorf("create weather_readings table: %w", err)
	}
	return nil
}

func (r *WeatherRepository) Create(ctx context.Context, reading *domain.WeatherReading) (int64, error) {
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now()
	}
	reading.RecordedAt = reading.RecordedAt.UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO weather_readings (city, temperature, condition, humidity, wind_speed, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		reading.City,
		reading.Temperature,
		reading.Condition,
		reading.Humidity,
		reading.WindSpeed,
		reading.RecordedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert weather reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("weather last insert id: %w", err)
	}
	reading.ID = id
	return id, nil
}

func (r *WeatherRepository) Latest(ctx context.Context, city string) (*domain.WeatherReading, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, city, temperature, condition, humidity, wind_speed, recorded_at
FROM weather_readings
WHERE city=?
ORDER BY recorded_at DESC, id DESC
LIMIT 1`, city)
	return scanReading(row)
}

func (r *WeatherRepository) History(ctx context.Context, city string, limit int) ([]domain.WeatherReading, error) {
	if limit <= 0 {
		return []domain.WeatherReading{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, city, temperature, condition, humidity, wind_speed, recorded_at
FROM weather_readings
WHERE city=?
ORDER BY recorded_at DESC, id DESC
LIMIT ?`, city, limit)
	if err != nil {
		return nil, fmt.Errorf("query weather history: %w", err)
	}
	defer rows.Close()

	readings := []domain.WeatherReading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *reading)
	}
	return readings, rows.Err()
}

func scanReading(row rowScanner) (*domain.WeatherReading, error) {
	var reading domain.WeatherReading
	if err := row.Scan(
		&reading.ID,
		&reading.City,
		&reading.Temperature,
		&reading.Condition,
		&reading.Humidity,
		&reading.WindSpeed,
		&reading.RecordedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("weather reading: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan weather reading: %w", err)
	}
	return &reading, nil
}
