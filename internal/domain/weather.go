package domain

import "time"

// WeatherReading is one observation of current conditions for a city.
type WeatherReading struct {
	ID          int64
	City        string
	Temperature float64
	Condition   string
	Humidity    int
	WindSpeed   float64
	RecordedAt  time.Time
}
