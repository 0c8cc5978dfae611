package service

import (
	"context"
	"errors"
	"fmt"

	"inkpost/internal/domain"
	"inkpost/internal/repository"
	"inkpost/internal/weather"
)

// ErrNoWeather is returned when no reading has been stored for the city yet.
var ErrNoWeather = errors.New("no weather reading stored")

// Fetcher reads current conditions for a location.
type Fetcher interface {
	Fetch(ctx context.Context, loc weather.Location) (domain.WeatherReading, error)
}

// WeatherService fetches readings for one configured location and serves
// the stored history.
type WeatherService interface {
	FetchNow(ctx context.Context) (*domain.WeatherReading, error)
	Latest(ctx context.Context) (*domain.WeatherReading, error)
	History(ctx context.Context, limit int) ([]domain.WeatherReading, error)
	City() string
}

type WeatherServiceConfig struct {
	Readings repository.WeatherRepository
	Fetcher  Fetcher
	Location weather.Location
	// HistoryLimit caps History when the caller passes a non-positive limit.
	HistoryLimit int
	// OnFetch, when set, observes the outcome of every FetchNow.
	OnFetch func(err error)
}

type weatherService struct {
	cfg WeatherServiceConfig
}

func NewWeatherService(cfg WeatherServiceConfig) WeatherService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	return &weatherService{cfg: cfg}
}

func (s *weatherService) City() string {
	return s.cfg.Location.City
}

// FetchNow performs one fetch and stores the reading. Nothing is stored
// when the fetch fails.
func (s *weatherService) FetchNow(ctx context.Context) (*domain.WeatherReading, error) {
	reading, err := s.fetchAndStore(ctx)
	if s.cfg.OnFetch != nil {
		s.cfg.OnFetch(err)
	}
	return reading, err
}

func (s *weatherService) fetchAndStore(ctx context.Context) (*domain.WeatherReading, error) {
	reading, err := s.cfg.Fetcher.Fetch(ctx, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("fetch weather for %s: %w", s.cfg.Location.City, err)
	}
	if _, err := s.cfg.Readings.Create(ctx, &reading); err != nil {
		return nil, fmt.Errorf("store weather reading: %w", err)
	}
	return &reading, nil
}

func (s *weatherService) Latest(ctx context.Context) (*domain.WeatherReading, error) {
	reading, err := s.cfg.Readings.Latest(ctx, s.cfg.Location.City)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoWeather
		}
		return nil, err
	}
	return reading, nil
}

func (s *weatherService) History(ctx context.Context, limit int) ([]domain.WeatherReading, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.cfg.Readings.History(ctx, s.cfg.Location.City, limit)
}
