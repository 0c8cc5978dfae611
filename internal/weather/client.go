// Package weather fetches current conditions from the Open-Meteo API and
// polls it on an interval.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inkpost/internal/domain"
)

// DefaultBaseURL is the public Open-Meteo forecast endpoint. It needs no API key.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

const currentFields = "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m"

// Location names a point to observe.
type Location struct {
	City      string
	Latitude  float64
	Longitude float64
}

// Client talks to Open-Meteo.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

// NewClient returns a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

type forecastResponse struct {
	Current *struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// Fetch reads current conditions at loc. A single attempt is made.
func (c *Client) Fetch(ctx context.Context, loc Location) (domain.WeatherReading, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return domain.WeatherReading{}, fmt.Errorf("parse weather url: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("current", currentFields)
	q.Set("timezone", "auto")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.WeatherReading{}, fmt.Errorf("build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WeatherReading{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherReading{}, fmt.Errorf("weather api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.WeatherReading{}, fmt.Errorf("decode weather response: %w", err)
	}
	if payload.Current == nil {
		return domain.WeatherReading{}, fmt.Errorf("weather response has no current block")
	}

	return domain.WeatherReading{
		City:        loc.City,
		Temperature: payload.Current.Temperature,
		Condition:   Describe(payload.Current.WeatherCode),
		Humidity:    int(payload.Current.Humidity),
		WindSpeed:   payload.Current.WindSpeed,
		RecordedAt:  c.now().UTC(),
	}, nil
}
