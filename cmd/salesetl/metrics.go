package main

import (
	"salesetl/internal/config"
	"salesetl/internal/metrics"
	"salesetl/internal/metrics/datadog"
	"salesetl/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend and returns the
// function that flushes it at the end of the run. On error the no-op
// backend stays in place and the returned flush is still safe to call.
func setupMetrics(job string, m config.MetricsConfig) (func() error, error) {
	noop := func() error { return nil }

	switch m.Backend {
	case "prometheus":
		b, err := prompush.NewBackend(job, m.PushgatewayURL)
		if err != nil {
			return noop, err
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  m.Namespace,
			GlobalTags: []string{"service:salesetl"},
		})
		if err != nil {
			return noop, err
		}
		metrics.SetBackend(b)
	default:
		return noop, nil
	}
	return metrics.Flush, nil
}
