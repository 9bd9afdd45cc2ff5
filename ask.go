package sheetql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sheetql/sheetql/llm"
	"github.com/sheetql/sheetql/metrics"
)

// Default time bounds for external calls.
const (
	// DefaultLLMTimeout bounds one model call.
	DefaultLLMTimeout = 30 * time.Second
	// DefaultQueryTimeout bounds one SELECT against the store.
	DefaultQueryTimeout = 10 * time.Second
)

// Answer is the result of one question.
type Answer struct {
	// Question is the original natural-language question.
	Question string `json:"question"`
	// SQL is the sanitized statement that was executed.
	SQL string `json:"sql"`
	// Columns are the result column names.
	Columns []string `json:"columns"`
	// Rows are the result rows; cell values are string, float64 or nil.
	Rows [][]any `json:"rows"`
	// IsAggregate reports whether the statement aggregated rows.
	IsAggregate bool `json:"isAggregate"`
}

// Engine owns the process-wide catalog state and answers questions against
// it. It is the single writer of the active catalog; request handlers share
// one Engine.
type Engine struct {
	db      *sql.DB
	source  Source
	client  llm.Client
	builder *Builder
	logger  *slog.Logger
	metrics metrics.Backend

	llmTimeout   time.Duration
	queryTimeout time.Duration

	mu      sync.RWMutex
	catalog *Catalog
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the metrics backend.
func WithMetrics(backend metrics.Backend) Option {
	return func(e *Engine) { e.metrics = backend }
}

// WithTimeouts overrides the LLM and query time bounds.
func WithTimeouts(llmTimeout, queryTimeout time.Duration) Option {
	return func(e *Engine) {
		if llmTimeout > 0 {
			e.llmTimeout = llmTimeout
		}
		if queryTimeout > 0 {
			e.queryTimeout = queryTimeout
		}
	}
}

// NewEngine creates an Engine over db, loading workbooks from source and
// generating SQL with client. Call Refresh before Ask.
func NewEngine(db *sql.DB, source Source, client llm.Client, opts ...Option) *Engine {
	e := &Engine{
		db:           db,
		source:       source,
		client:       client,
		logger:       slog.Default(),
		metrics:      metrics.Nop{},
		llmTimeout:   DefaultLLMTimeout,
		queryTimeout: DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.builder = NewBuilder(db, e.logger)
	return e
}

// Catalog returns the active catalog, or nil before the first Refresh.
func (e *Engine) Catalog() *Catalog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog
}

// Refresh re-reads the workbook source and rebuilds the whole catalog.
// Idempotent; concurrent refreshes are serialized by the builder and share
// one build. The active catalog is swapped only after the build finishes, so
// readers never see a partially loaded catalog.
func (e *Engine) Refresh(ctx context.Context) (*Catalog, error) {
	start := time.Now()

	wb, err := e.source.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIngestFailure, err)
	}

	catalog, err := e.builder.Build(ctx, wb)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.catalog = catalog
	e.mu.Unlock()

	rows := 0
	for _, t := range catalog.Tables {
		rows += t.RowCount
	}
	e.metrics.IncCounter(metrics.MetricTablesLoaded, float64(len(catalog.Tables)), nil)
	e.metrics.IncCounter(metrics.MetricRowsLoaded, float64(rows), nil)
	e.metrics.IncCounter(metrics.MetricSheetErrors, float64(len(catalog.SheetErrors)), nil)
	e.metrics.ObserveHistogram(metrics.MetricRefreshDuration, time.Since(start).Seconds(), nil)

	e.logger.Info("catalog refreshed",
		"tables", len(catalog.Tables), "rows", rows,
		"base_table", catalog.BaseTable, "sheet_errors", len(catalog.SheetErrors),
		"elapsed", time.Since(start))
	return catalog, nil
}

// Ask answers a natural-language question: it prompts the model for SQL,
// sanitizes the result through the guard, and executes the bounded SELECT.
//
// Errors are the package sentinels: ErrNoBaseTable when the catalog has
// nothing to query, ErrRejectedStatement when the model's SQL cannot be made
// safe, ErrUpstreamTimeout when the model or store call exceeds its bound.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()
	answer, err := e.ask(ctx, question)
	e.metrics.ObserveHistogram(metrics.MetricQuestionDuration, time.Since(start).Seconds(), nil)
	e.metrics.IncCounter(metrics.MetricQuestionsTotal, 1, metrics.Labels{"status": askStatus(err)})
	return answer, err
}

func (e *Engine) ask(ctx context.Context, question string) (*Answer, error) {
	catalog := e.Catalog()
	if catalog == nil || catalog.Base() == nil {
		return nil, ErrNoBaseTable
	}

	prompt := BuildPrompt(catalog, question)

	llmCtx, cancel := context.WithTimeout(ctx, e.llmTimeout)
	defer cancel()
	rawSQL, err := e.client.GenerateSQL(llmCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: model call: %w", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("sheetql: model call failed: %w", err)
	}

	sanitized, err := SanitizeSQL(rawSQL, catalog.BaseTable)
	if err != nil {
		e.logger.Warn("statement rejected", "question", question, "raw_sql", rawSQL, "err", err)
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()
	columns, rows, err := e.execute(queryCtx, sanitized.SQL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: query: %w", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("sheetql: query failed: %w", err)
	}

	e.logger.Info("question answered",
		"question", question, "sql", sanitized.SQL, "rows", len(rows))
	return &Answer{
		Question:    question,
		SQL:         sanitized.SQL,
		Columns:     columns,
		Rows:        rows,
		IsAggregate: sanitized.IsAggregate,
	}, nil
}

// execute runs one sanitized SELECT and scans all rows generically.
func (e *Engine) execute(ctx context.Context, query string) ([]string, [][]any, error) {
	result, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer result.Close()

	columns, err := result.Columns()
	if err != nil {
		return nil, nil, err
	}

	var rows [][]any
	for result.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := result.Scan(scan...); err != nil {
			return nil, nil, err
		}
		for i, v := range values {
			// Text comes back as []byte from some drivers.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rows = append(rows, values)
	}
	if err := result.Err(); err != nil {
		return nil, nil, err
	}
	return columns, rows, nil
}

func askStatus(err error) string {
	switch {
	case err == nil:
		return "answered"
	case errors.Is(err, ErrRejectedStatement):
		return "rejected"
	case errors.Is(err, ErrNoBaseTable):
		return "no_base_table"
	case errors.Is(err, ErrUpstreamTimeout):
		return "timeout"
	default:
		return "error"
	}
}
