// Package metrics defines the minimal metrics contract the engine emits to.
//
// The core depends only on Backend; concrete backends (Datadog, or the no-op
// default) live in subpackages so the ingest and question paths never carry
// vendor-specific code.
package metrics

// Labels are metric tag key/value pairs.
type Labels map[string]string

// Backend receives counters and histogram observations.
//
// Implementations must be safe for concurrent use: the engine calls these
// from request handlers and from catalog builds.
type Backend interface {
	// IncCounter adds delta to the named counter.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records one sample of the named distribution.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush submits buffered metrics. Returns nil when there is nothing
	// to submit.
	Flush() error
	// Close stops background flushing and performs one final Flush.
	Close() error
}

// Metric names emitted by the engine.
const (
	// MetricQuestionsTotal counts questions by status
	// (answered, rejected, timeout, error).
	MetricQuestionsTotal = "sheetql_questions_total"
	// MetricQuestionDuration is end-to-end question latency in seconds.
	MetricQuestionDuration = "sheetql_question_duration_seconds"
	// MetricRowsLoaded counts rows inserted per catalog build.
	MetricRowsLoaded = "sheetql_rows_loaded_total"
	// MetricTablesLoaded counts tables created per catalog build.
	MetricTablesLoaded = "sheetql_tables_loaded_total"
	// MetricSheetErrors counts sheets that failed to ingest.
	MetricSheetErrors = "sheetql_sheet_errors_total"
	// MetricRefreshDuration is catalog build latency in seconds.
	MetricRefreshDuration = "sheetql_refresh_duration_seconds"
)

// Nop is a Backend that discards everything.
type Nop struct{}

// IncCounter implements Backend.
func (Nop) IncCounter(string, float64, Labels) {}

// ObserveHistogram implements Backend.
func (Nop) ObserveHistogram(string, float64, Labels) {}

// Flush implements Backend.
func (Nop) Flush() error { return nil }

// Close implements Backend.
func (Nop) Close() error { return nil }
