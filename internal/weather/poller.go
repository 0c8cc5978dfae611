package weather

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"inkpost/internal/domain"
)

// Recorder fetches a reading and stores it.
type Recorder interface {
	FetchNow(ctx context.Context) (*domain.WeatherReading, error)
}

type PollerConfig struct {
	Interval     time.Duration
	FetchOnStart bool
	Logger       *logrus.Logger
}

// Poller calls a Recorder on a fixed interval until shut down. Failed
// fetches are logged and the next tick proceeds as usual.
type Poller struct {
	cfg      PollerConfig
	recorder Recorder

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewPoller(cfg PollerConfig, recorder Recorder) *Poller {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Poller{cfg: cfg, recorder: recorder}
}

func (p *Poller) Start(ctx context.Context) error {
	if p.cfg.Interval <= 0 {
		return errors.New("weather poll interval must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("weather poller already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(loopCtx)
	}()
	p.cfg.Logger.Infof("weather poller started, interval %s", p.cfg.Interval)
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	if p.cfg.FetchOnStart {
		p.poll(ctx)
	}
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	reading, err := p.recorder.FetchNow(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.cfg.Logger.Warnf("weather poll: %v", err)
		return
	}
	p.cfg.Logger.WithFields(logrus.Fields{
		"city":        reading.City,
		"temperature": reading.Temperature,
		"condition":   reading.Condition,
	}).Info("weather reading stored")
}

// Shutdown stops the loop and waits for an in-flight fetch to return.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.cfg.Logger.Info("weather poller stopped")
}
