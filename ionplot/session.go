package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/itohio/ionplot/pkg/acquire"
	"github.com/itohio/ionplot/pkg/config"
	"github.com/itohio/ionplot/pkg/ion"
	"github.com/itohio/ionplot/pkg/record"
	"github.com/itohio/ionplot/pkg/sample"
	"github.com/itohio/ionplot/pkg/scope"
)

// openDevice connects to the configured serial port, or to the simulated front-end.
func openDevice(cfg *config.Config, useMock bool) (ion.Device, error) {
	var device ion.Device
	if useMock {
		device = ion.NewMock(&cfg.Mock)
	} else {
		device = ion.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.ReadTimeout)
	}

	if err := device.Connect(); err != nil {
		if useMock {
			return nil, fmt.Errorf("failed to connect to mocked device: %w", err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Serial.Port, err)
	}
	return device, nil
}

// newAcquirer wires the histories and the record file around an open device.
// The acquirer owns the device from here on.
func newAcquirer(cfg *config.Config, device ion.LineSource) (*acquire.Acquirer, error) {
	rec, err := record.Create(cfg.Record.Path, cfg.Header())
	if err != nil {
		device.Close()
		return nil, err
	}

	histories := sample.NewHistories(len(cfg.Channels), cfg.History.Length)
	acq, err := acquire.New(acquire.Config{
		Arity:    len(cfg.Channels),
		Interval: cfg.Acquisition.Interval,
	}, device, histories, rec)
	if err != nil {
		rec.Close()
		device.Close()
		return nil, err
	}

	acq.OnUpdate(func(u acquire.Update) {
		log.Printf("%s", record.FormatRow(u.Sample.Label, u.Sample.Values))
	})

	return acq, nil
}

// shutdownGrace is how long a cancelled acquisition may wait for a pending line
// before the transport is closed under it.
func shutdownGrace(cfg *config.Config) time.Duration {
	return 2 * cfg.Acquisition.Interval
}

// runAcquisition runs the acquisition loop until ctx is done or the transport
// fails. Once ctx is done, a read still pending after grace is interrupted.
func runAcquisition(ctx context.Context, acq *acquire.Acquirer, grace time.Duration) error {
	finished := make(chan struct{})
	defer close(finished)

	go func() {
		select {
		case <-finished:
			return
		case <-ctx.Done():
		}

		select {
		case <-finished:
		case <-time.After(grace):
			log.Printf("Acquisition still waiting for data, interrupting")
			acq.Interrupt()
		}
	}()

	return acq.Run(ctx)
}

// report logs the tick counters and a per channel summary, and writes the chart
// snapshot when one is configured. Call it after Run returns.
func report(cfg *config.Config, acq *acquire.Acquirer) {
	c := acq.Counters()
	log.Printf("Ticks: %d, accepted: %d, parse errors: %d, arity errors: %d, timeouts: %d",
		c.Ticks, c.Accepted, c.ParseErrors, c.ArityErrors, c.Timeouts)

	series := acq.Histories().Snapshots()
	for i, name := range cfg.Channels {
		s := sample.Summarize(series[i])
		log.Printf("%s: mean %.4fV, std %.4fV, min %.4fV, max %.4fV", name, s.Mean, s.StdDev, s.Min, s.Max)
	}

	if cfg.Chart.PNG != "" {
		if err := scope.SavePNG(cfg.Chart.PNG, scope.OptionsFromConfig(cfg), series); err != nil {
			log.Printf("Failed to save chart snapshot: %v", err)
			return
		}
		fmt.Printf("Chart saved to %s\n", cfg.Chart.PNG)
	}
}
