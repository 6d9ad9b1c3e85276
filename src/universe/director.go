package universe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

//Director prevents several engines sharing the same viewers from running simultaneously
type Director struct {
	mu           sync.Mutex
	active       Universe
	running      bool
	pollInterval time.Duration
	logger       *slog.Logger
}

//NewDirector creates the Director, pollInterval <= 0 means DefPollInterval
func NewDirector(pollInterval time.Duration, logger *slog.Logger) *Director {
	if pollInterval <= 0 {
		pollInterval = DefPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Director{pollInterval: pollInterval, logger: logger}
}

//Launch runs u, blocks until the run ends
//a run in progress is asked to stop first, Launch polls every pollInterval until it did
func (d *Director) Launch(ctx context.Context, u Universe) error {
	for {
		d.mu.Lock()
		if !d.running {
			d.active = u
			d.running = true
			d.mu.Unlock()
			err := u.Run(ctx)
			d.mu.Lock()
			d.running = false
			d.mu.Unlock()
			return err
		}
		//repeated on every poll, the active run may not have started its first epoch yet
		d.active.Stop()
		d.mu.Unlock()
		d.logger.Info("a simulation is already running, waiting for it to stop")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.pollInterval):
		}
	}
}

//Running reports whether a launched universe is still running
func (d *Director) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

//Active returns the last launched universe, nil if none
func (d *Director) Active() Universe {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

//Stop asks the active universe to stop
func (d *Director) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		d.active.Stop()
	}
}
