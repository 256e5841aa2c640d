package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

// relayCollector reads relay queue depths and the approved-unrelayed backlog
// straight from redis at scrape time, so the numbers stay truthful across
// process restarts.
type relayCollector struct {
	rdb    *redis.Client
	logger *slog.Logger

	queueDepthDesc *prometheus.Desc
	backlogDesc    *prometheus.Desc
}

func newRelayCollector(rdb *redis.Client, logger *slog.Logger) *relayCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &relayCollector{
		rdb:    rdb,
		logger: logger,
		queueDepthDesc: prometheus.NewDesc(
			"curator_relay_queue_depth",
			"Current relay queue depth by queue state.",
			[]string{"queue"},
			nil,
		),
		backlogDesc: prometheus.NewDesc(
			"curator_relay_backlog",
			"Approved submissions still awaiting a secondary-ledger relay.",
			nil,
			nil,
		),
	}
}

func (c *relayCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queueDepthDesc
	ch <- c.backlogDesc
}

func (c *relayCollector) Collect(ch chan<- prometheus.Metric) {
	if c.rdb == nil {
		return
	}

	// Keep redis reads bounded so scrapes do not hang.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := c.rdb.Pipeline()
	pending := pipe.LLen(ctx, "curator:relay:pending")
	delayed := pipe.ZCard(ctx, "curator:relay:delayed")
	inflight := pipe.SCard(ctx, "curator:relay:inflight")
	backlog := pipe.ZCard(ctx, "curator:submissions:unrelayed")

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		c.logger.Warn("prometheus relay collector failed", "err", err)
		return
	}

	emitGauge(ch, c.queueDepthDesc, float64(pending.Val()), "pending")
	emitGauge(ch, c.queueDepthDesc, float64(delayed.Val()), "delayed")
	emitGauge(ch, c.queueDepthDesc, float64(inflight.Val()), "in_flight")
	emitGauge(ch, c.backlogDesc, float64(backlog.Val()))
}

func emitGauge(ch chan<- prometheus.Metric, desc *prometheus.Desc, v float64, labelValues ...string) {
	m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, v, labelValues...)
	if err != nil {
		return
	}
	ch <- m
}

var registerOnce sync.Once

// RegisterRelayCollector registers the redis-backed collector once per
// process; repeated calls (tests, reconfigured apps) are no-ops.
func RegisterRelayCollector(rdb *redis.Client, logger *slog.Logger) {
	registerOnce.Do(func() {
		prometheus.MustRegister(newRelayCollector(rdb, logger))
	})
}
