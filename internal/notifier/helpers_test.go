package notifier

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agendahub/notifier/pkg/logger"
	"github.com/agendahub/notifier/pkg/metrics"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:  logger.ErrorLevel,
		Output: io.Discard,
	})
}

func testMetrics() *metrics.Metrics {
	return metrics.NewMetrics("test", prometheus.NewRegistry())
}
