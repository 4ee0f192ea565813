package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/mapmotion/mapmotion/internal/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// instruments holds the engine's OTel metrics. The global meter is a no-op
// unless the embedding process configures a provider.
type instruments struct {
	ticks     metric.Int64Counter
	emissions metric.Int64Counter
	retargets metric.Int64Counter
	active    metric.Int64ObservableGauge
}

func newInstruments(activeCount func() int) (*instruments, error) {
	m := meter()
	ins := &instruments{}

	var err error
	ins.ticks, err = m.Int64Counter(
		"engine.ticks",
		metric.WithDescription("Total scheduling ticks processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	ins.emissions, err = m.Int64Counter(
		"engine.emissions",
		metric.WithDescription("Total render emissions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating emission counter: %w", err)
	}

	ins.retargets, err = m.Int64Counter(
		"engine.retargets",
		metric.WithDescription("Total mid-flight retargets issued"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retarget counter: %w", err)
	}

	ins.active, err = m.Int64ObservableGauge(
		"engine.animations.active",
		metric.WithDescription("Current number of in-flight marker animations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(ins.active, int64(activeCount()))
			return nil
		},
		ins.active,
	)
	if err != nil {
		return nil, fmt.Errorf("registering active gauge callback: %w", err)
	}

	return ins, nil
}
