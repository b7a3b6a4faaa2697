package telemetry

import (
	"context"

	"github.com/uptrace/uptrace-go/uptrace"
	"go.uber.org/zap"
)

// StartTracing installs the Uptrace span exporter as the global
// OpenTelemetry provider. It does nothing unless tracing is enabled and a
// DSN is configured.
func (lm *Manager) StartTracing(version string, logger *zap.Logger) {
	if !lm.enableTracing || lm.uptraceDSN == "" {
		return
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(lm.uptraceDSN),
		uptrace.WithServiceName(lm.componentName),
		uptrace.WithServiceVersion(version),
	)

	lm.tracingStarted = true

	logger.Info("Exporting traces to Uptrace", zap.String("service", lm.componentName))
}

// Stop flushes pending spans.
func (lm *Manager) Stop(ctx context.Context) error {
	if !lm.tracingStarted {
		return nil
	}

	lm.tracingStarted = false

	return uptrace.Shutdown(ctx)
}
