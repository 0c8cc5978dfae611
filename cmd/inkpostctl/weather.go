package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"inkpost/internal/config"
	"inkpost/internal/domain"
	"inkpost/internal/repository/sqlite"
	"inkpost/internal/service"
	"inkpost/internal/weather"
)

func weatherCmd(logger *logrus.Logger) *cli.Command {
	var (
		cfg config.Config
		svc service.WeatherService
		db  *sql.DB
	)
	return &cli.Command{
		Name:  "weather",
		Usage: "Fetch and inspect stored weather readings",
		Before: func(ctx *cli.Context) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			db, err = sqlite.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			readings := sqlite.NewWeatherRepository(db)
			if err := readings.Init(ctx.Context); err != nil {
				return err
			}
			svc = service.NewWeatherService(service.WeatherServiceConfig{
				Readings: readings,
				Fetcher:  weather.NewClient(cfg.Weather.BaseURL, time.Duration(cfg.Weather.TimeoutSeconds)*time.Second),
				Location: weather.Location{
					City:      cfg.Weather.City,
					Latitude:  cfg.Weather.Latitude,
					Longitude: cfg.Weather.Longitude,
				},
				HistoryLimit: cfg.Weather.HistoryLimit,
			})
			return nil
		},
		After: func(*cli.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "Fetch current conditions once and store them",
				Action: func(ctx *cli.Context) error {
					reading, err := svc.FetchNow(ctx.Context)
					if err != nil {
						return err
					}
					logger.WithField("city", reading.City).Info("weather reading stored")
					printReading(ctx, *reading)
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "Print the newest stored readings",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Number of readings"},
				},
				Action: func(ctx *cli.Context) error {
					readings, err := svc.History(ctx.Context, ctx.Int("limit"))
					if err != nil {
						return err
					}
					for _, r := range readings {
						printReading(ctx, r)
					}
					return nil
				},
			},
		},
	}
}

func printReading(ctx *cli.Context, r domain.WeatherReading) {
	fmt.Fprintf(ctx.App.Writer, "%s\t%s\t%.1f°C\t%s\thumidity %d%%\twind %.1f km/h\n",
		r.RecordedAt.Format(time.RFC3339), r.City, r.Temperature, r.Condition, r.Humidity, r.WindSpeed)
}
