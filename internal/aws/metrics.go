package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/charmbracelet/log"
)

// Metrics publishes counters to CloudWatch. A nil *Metrics or one without a
// client is a no-op, so callers never need to guard.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	logger    *log.Logger
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics publisher for namespace.
func NewMetrics(client CloudWatchAPI, namespace string, logger *log.Logger) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Count publishes a single Count datapoint. Errors are logged and dropped.
func (m *Metrics) Count(ctx context.Context, name string, value float64) {
	if m == nil || m.client == nil {
		return
	}
	now := m.nowFunc()
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: String(name),
				Unit:       cwtypes.StandardUnitCount,
				Value:      &value,
				Timestamp:  &now,
			},
		},
	})
	if err != nil && m.logger != nil {
		m.logger.Warn("put metric data failed", "metric", name, "err", err)
	}
}
