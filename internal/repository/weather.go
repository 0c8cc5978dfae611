package repository

import (
	"context"

	"inkpost/internal/domain"
)

// WeatherRepository stores fetched weather readings.
type WeatherRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, reading *domain.WeatherReading) (int64, error)
	Latest(ctx context.Context, city string) (*domain.WeatherReading, error)
	History(ctx context.Context, city string, limit int) ([]domain.WeatherReading, error)
}
