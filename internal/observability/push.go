package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushMetrics sends everything in the default registry to a Prometheus
// Pushgateway. A one-shot batch job has no scrape surface, so pushing at the
// end of the run is the only way the metrics leave the process. Callers
// treat a failed push as a warning, never as a run failure.
func PushMetrics(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
