package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accord_resolutions_total",
		Help: "Chat resolutions by answering source",
	}, []string{"source"})

	datasetMatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accord_dataset_matches_total",
		Help: "Dataset matches by match type",
	}, []string{"match_type"})

	aiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accord_ai_requests_total",
		Help: "Primary AI requests by outcome",
	}, []string{"outcome"})

	activeSockets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "accord_websocket_connections",
		Help: "Open chat websocket connections",
	})

	datasetEntriesDesc = prometheus.NewDesc(
		"accord_dataset_entries",
		"Active dataset entries by category",
		[]string{"category"},
		nil,
	)
	datasetUsageDesc = prometheus.NewDesc(
		"accord_dataset_usage_total",
		"Total recorded usage across active dataset entries",
		nil,
		nil,
	)
)

// DatasetCollector reads dataset statistics from the store on each scrape
type DatasetCollector struct {
	store DatasetStore
}

// Describe sends the metric descriptors to the channel.
func (c *DatasetCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- datasetEntriesDesc
	ch <- datasetUsageDesc
}

// Collect queries the store and emits per-category gauges.
func (c *DatasetCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := c.store.Stats(ctx)
	if err != nil {
		slog.Error("failed to collect dataset metrics", "error", err)
		return
	}
	for category, count := range stats.CategoryStats {
		ch <- prometheus.MustNewConstMetric(datasetEntriesDesc, prometheus.GaugeValue, float64(count), category)
	}
	ch <- prometheus.MustNewConstMetric(datasetUsageDesc, prometheus.CounterValue, float64(stats.TotalUsage))
}

var registerOnce sync.Once

// RegisterMetrics registers the service collectors with reg.
// Only the first call has any effect.
func RegisterMetrics(reg prometheus.Registerer, store DatasetStore) {
	registerOnce.Do(func() {
		reg.MustRegister(resolutionsTotal, datasetMatchesTotal, aiRequestsTotal, activeSockets)
		if store != nil {
			reg.MustRegister(&DatasetCollector{store: store})
		}
	})
}

func recordResolution(source string) {
	resolutionsTotal.WithLabelValues(source).Inc()
}

func recordDatasetMatch(matchType string) {
	datasetMatchesTotal.WithLabelValues(matchType).Inc()
}

func recordAIRequest(outcome string) {
	aiRequestsTotal.WithLabelValues(outcome).Inc()
}
