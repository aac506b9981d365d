package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
)

// metricsReport 收集本次命令内的缓存操作指标（--metrics），命令结束后输出计数器
type metricsReport struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	observer xmetrics.Observer
}

func newMetricsReport() (*metricsReport, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	obs, err := xmetrics.NewOTelObserver(
		xmetrics.WithMeterProvider(provider),
		xmetrics.WithInstrumentationName("xfeedctl"),
	)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return &metricsReport{reader: reader, provider: provider, observer: obs}, nil
}

// write 输出全部计数器，每行为 "metric <name> <k=v ...> <value>"，按行排序
func (m *metricsReport) write(ctx context.Context, w io.Writer) error {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			sum, ok := mt.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				lines = append(lines, fmt.Sprintf("metric %s %s %d", mt.Name, formatAttrs(dp.Attributes), dp.Value))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}

func (m *metricsReport) close() error {
	return m.provider.Shutdown(context.Background())
}

func formatAttrs(set attribute.Set) string {
	kvs := set.ToSlice()
	parts := make([]string, len(kvs))
	for i, kv := range kvs {
		parts[i] = string(kv.Key) + "=" + kv.Value.Emit()
	}
	return strings.Join(parts, " ")
}
