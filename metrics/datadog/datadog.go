// Package datadog implements a Datadog backend for the metrics package.
//
// Metrics are buffered in memory and submitted on a periodic Flush, with one
// final flush on Close. Counters become Datadog COUNT series; histograms are
// collapsed to avg/max/count GAUGE series per flush window, which is enough
// resolution for question latency and build duration without shipping raw
// samples.
//
// Concurrency model:
//   - request handlers call IncCounter/ObserveHistogram at any time
//   - Flush snapshots and resets buffers under a mutex, then submits
//     out of lock
//   - the flush loop calls Flush periodically; Close stops the loop
package datadog

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/sheetql/sheetql/metrics"
)

// defaultFlushInterval is how often buffered metrics are submitted.
const defaultFlushInterval = 60 * time.Second

// Options controls Datadog backend configuration.
type Options struct {
	// Service becomes tag "service:<name>" on every metric.
	// Defaults to "sheetql".
	Service string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; tests use
	// them to avoid real network submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal interface needed to submit metrics.
// The SDK exposes a concrete *datadogV2.MetricsApi; depending on this
// interface instead enables deterministic tests with a fake submitter.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api ctxSubmitter

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
}

type ctxSubmitter struct {
	submitter metricsSubmitter
	ctx       context.Context
}

// NewBackend constructs a Datadog backend using the official client.
// Credentials come from the standard DD_API_KEY environment variable via
// the SDK's default context.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	service := opts.Service
	if service == "" {
		service = "sheetql"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = defaultFlushInterval
	}

	baseTags := append([]string{"service:" + service}, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        ctxSubmitter{submitter: submitter, ctx: dd.NewDefaultContext(parent)},
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	k := seriesKey(name, labels)
	b.mu.Lock()
	b.counters[k] += delta
	b.mu.Unlock()
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	k := seriesKey(name, labels)
	b.mu.Lock()
	b.histograms[k] = append(b.histograms[k], value)
	b.mu.Unlock()
}

// snapshot is the buffered state used to build one flush payload. Flush
// resets buffers under the lock and submits out of lock.
type snapshot struct {
	counters   map[string]float64
	histograms map[string][]float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{counters: b.counters, histograms: b.histograms}
	b.counters = make(map[string]float64)
	b.histograms = make(map[string][]float64)
	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.counters) == 0 && len(s.histograms) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
// Buffers are reset even when submission fails, so a Datadog outage never
// blocks the question path.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.submitter.SubmitMetrics(b.api.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// Close stops the background flush loop and performs one final Flush.
// Close must be called at most once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// buildSeries constructs the Datadog series for a snapshot at a fixed
// timestamp. Pure: no locks, no network, no clocks.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	point := func(value float64) []datadogV2.MetricPoint {
		return []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		}
	}

	series := make([]datadogV2.MetricSeries, 0, len(s.counters)+3*len(s.histograms))

	for k, v := range s.counters {
		name, tags := splitSeriesKey(k)
		series = append(series, datadogV2.MetricSeries{
			Metric: metricName(name),
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: point(v),
			Tags:   append(append([]string{}, b.baseTags...), tags...),
		})
	}

	for k, samples := range s.histograms {
		if len(samples) == 0 {
			continue
		}
		name, tags := splitSeriesKey(k)
		allTags := append(append([]string{}, b.baseTags...), tags...)

		sum, maxV := 0.0, samples[0]
		for _, v := range samples {
			sum += v
			if v > maxV {
				maxV = v
			}
		}

		for suffix, value := range map[string]float64{
			".avg":   sum / float64(len(samples)),
			".max":   maxV,
			".count": float64(len(samples)),
		} {
			series = append(series, datadogV2.MetricSeries{
				Metric: metricName(name) + suffix,
				Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
				Points: point(value),
				Tags:   allTags,
			})
		}
	}

	return series
}

// seriesKey folds a metric name and its labels into one map key with a
// deterministic label order.
func seriesKey(name string, labels metrics.Labels) string {
	if len(labels) == 0 {
		return name
	}
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return name + "|" + strings.Join(tags, ",")
}

func splitSeriesKey(key string) (name string, tags []string) {
	name, rest, found := strings.Cut(key, "|")
	if !found || rest == "" {
		return name, nil
	}
	return name, strings.Split(rest, ",")
}

// metricName converts the engine's underscore names to Datadog dotted form,
// e.g. sheetql_questions_total -> sheetql.questions.total.
func metricName(name string) string {
	return strings.ReplaceAll(name, "_", ".")
}
