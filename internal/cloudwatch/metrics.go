package cloudwatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/jmurray2011/recency/internal/logging"
	"github.com/jmurray2011/recency/internal/trace"
)

// MaxDatumsPerRequest is the PutMetricData limit on datums per call.
const MaxDatumsPerRequest = 1000

// MetricsAPI is the part of the CloudWatch client the publisher uses.
type MetricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Publisher writes replay results to CloudWatch as custom metrics.
type Publisher struct {
	api       MetricsAPI
	namespace string
	now       func() time.Time
	log       logging.Logger
}

// NewPublisher creates a publisher for the given namespace. Namespaces in
// the reserved AWS/ prefix are rejected.
func NewPublisher(api MetricsAPI, namespace string) (*Publisher, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("metric namespace is required")
	}
	if strings.HasPrefix(namespace, "AWS/") {
		return nil, fmt.Errorf("namespace %q uses the reserved AWS/ prefix", namespace)
	}

	return &Publisher{
		api:       api,
		namespace: namespace,
		now:       time.Now,
		log:       logging.Default().WithField("namespace", namespace),
	}, nil
}

// Publish sends the datums for every result and returns how many were sent.
func (p *Publisher) Publish(ctx context.Context, results []*trace.Result) (int, error) {
	ts := p.now()

	var datums []types.MetricDatum
	for _, r := range results {
		datums = append(datums, ResultDatums(r, ts)...)
	}

	sent := 0
	for start := 0; start < len(datums); start += MaxDatumsPerRequest {
		end := min(start+MaxDatumsPerRequest, len(datums))

		_, err := p.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: datums[start:end],
		})
		if err != nil {
			return sent, fmt.Errorf("failed to put metric data: %w", err)
		}
		sent += end - start
	}

	p.log.Debug("published %d datums for %d results", sent, len(results))
	return sent, nil
}

// ResultDatums converts a replay result into its CloudWatch datums:
// Hits, Misses and Evictions as counts and HitRatio as a percentage,
// each dimensioned by Capacity and Source.
func ResultDatums(r *trace.Result, ts time.Time) []types.MetricDatum {
	dims := []types.Dimension{
		{Name: aws.String("Capacity"), Value: aws.String(strconv.Itoa(r.Capacity))},
	}
	if r.Source != "" {
		dims = append(dims, types.Dimension{Name: aws.String("Source"), Value: aws.String(r.Source)})
	}

	datum := func(name string, value float64, unit types.StandardUnit) types.MetricDatum {
		return types.MetricDatum{
			MetricName: aws.String(name),
			Dimensions: dims,
			Timestamp:  aws.Time(ts),
			Value:      aws.Float64(value),
			Unit:       unit,
		}
	}

	return []types.MetricDatum{
		datum("Hits", float64(r.Hits), types.StandardUnitCount),
		datum("Misses", float64(r.Misses), types.StandardUnitCount),
		datum("Evictions", float64(r.Evictions), types.StandardUnitCount),
		datum("HitRatio", r.HitRatio*100, types.StandardUnitPercent),
	}
}
