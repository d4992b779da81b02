package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "ledger_operations_total",
		Help:      "Ledger write operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "notifications_total",
		Help:      "Notification attempts by kind and result.",
	}, []string{"kind", "result"})

	reminderRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "reminder_runs_total",
		Help:      "Overdue reminder job runs by result.",
	}, []string{"result"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

// Classifier maps an error onto an outcome label. Packages register their own
// sentinels so this package stays free of domain imports.
type Classifier struct {
	Label  string
	Target error
}

// LedgerOutcome records one ledger operation. The first matching classifier wins;
// unmatched errors count as "error".
func LedgerOutcome(operation string, err error, classes ...Classifier) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		for _, c := range classes {
			if errors.Is(err, c.Target) {
				outcome = c.Label
				break
			}
		}
	}
	ledgerOps.WithLabelValues(operation, outcome).Inc()
}

// Notification records one send attempt.
func Notification(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	notifications.WithLabelValues(kind, result).Inc()
}

// ReminderRun records the end of a reminder job run.
func ReminderRun(result string) { reminderRuns.WithLabelValues(result).Inc() }

// RateLimited records a rejected request.
func RateLimited() { rateLimited.Inc() }
