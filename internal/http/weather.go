package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"inkpost/internal/domain"
	"inkpost/internal/service"
)

type WeatherResponse struct {
	ID          int64   `json:"id"`
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	RecordedAt  string  `json:"recorded_at"`
}

type WeatherOverviewResponse struct {
	City    string            `json:"city"`
	Latest  *WeatherResponse  `json:"latest"`
	History []WeatherResponse `json:"history"`
}

func (h *Handler) getWeather(c *gin.Context) {
	ctx := c.Request.Context()
	limit := h.cfg.WeatherHistory
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	resp := WeatherOverviewResponse{City: h.cfg.Weather.City(), History: []WeatherResponse{}}

	latest, err := h.cfg.Weather.Latest(ctx)
	switch {
	case errors.Is(err, service.ErrNoWeather):
	case err != nil:
		h.fail(c, err)
		return
	default:
		r := weatherToResponse(*latest)
		resp.Latest = &r
	}

	history, err := h.cfg.Weather.History(ctx, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	for i := range history {
		resp.History = append(resp.History, weatherToResponse(history[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// fetchWeather triggers a fetch by hand. Any logged in user may do this.
func (h *Handler) fetchWeather(c *gin.Context) {
	ctx := c.Request.Context()
	_, st := sessionOf(c)
	if _, ok := h.cfg.Gate.ResolveIdentity(ctx, st); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	reading, err := h.cfg.Weather.FetchNow(ctx)
	if err != nil {
		h.logger.Warnf("manual weather fetch: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather fetch failed"})
		return
	}
	c.JSON(http.StatusCreated, weatherToResponse(*reading))
}

func weatherToResponse(r domain.WeatherReading) WeatherResponse {
	return WeatherResponse{
		ID:          r.ID,
		City:        r.City,
		Temperature: r.Temperature,
		Condition:   r.Condition,
		Humidity:    r.Humidity,
		WindSpeed:   r.WindSpeed,
		RecordedAt:  r.RecordedAt.Format(time.RFC3339),
	}
}
