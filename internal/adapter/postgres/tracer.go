package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
)

// QueryTracer records the duration and outcome of every query, labelled by
// the statement verb to keep cardinality bounded.
type QueryTracer struct {
	metrics *metrics.DBMetrics
	clock   clockwork.Clock
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(m *metrics.DBMetrics, clock clockwork.Clock) *QueryTracer {
	return &QueryTracer{metrics: m, clock: clock}
}

type queryContextKey struct{}

type queryContext struct {
	start time.Time
	verb  string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{
		start: t.clock.Now(),
		verb:  statementVerb(data.SQL),
	})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	t.metrics.QueryDuration.WithLabelValues(qctx.verb).Observe(t.clock.Since(qctx.start).Seconds())
	if data.Err != nil {
		t.metrics.QueryErrors.WithLabelValues(qctx.verb).Inc()
	}
}

var knownVerbs = map[string]struct{}{
	"SELECT": {}, "INSERT": {}, "UPDATE": {}, "DELETE": {},
	"BEGIN": {}, "COMMIT": {}, "ROLLBACK": {}, "WITH": {},
}

func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	verb := strings.ToUpper(fields[0])
	if _, ok := knownVerbs[verb]; !ok {
		return "other"
	}
	return verb
}
