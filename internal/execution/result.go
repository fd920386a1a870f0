package execution

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// AggregateOutcome is the tagged result for one pooled order: the
// aggregate with its terminal status plus the error that rejected it,
// if any. A nil Err with status submitted or completed is a success.
type AggregateOutcome struct {
	Aggregate *domain.AggregatedOrder
	Err       error
}

// BatchResult collects every aggregate's outcome for one Execute call.
// Per-aggregate failures live here alongside successes; Execute itself
// only errors on contract violations.
type BatchResult struct {
	mu       sync.Mutex
	Outcomes []AggregateOutcome
	Warnings []string
}

func (r *BatchResult) add(outcome AggregateOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outcomes = append(r.Outcomes, outcome)
}

func (r *BatchResult) warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
}

// sortOutcomes orders outcomes by aggregate key so callers see a stable
// batch report regardless of which broker-type goroutine finished first.
func (r *BatchResult) sortOutcomes() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Slice(r.Outcomes, func(i, j int) bool {
		return r.Outcomes[i].Aggregate.Key().String() < r.Outcomes[j].Aggregate.Key().String()
	})
}

// ByStatus returns the outcomes whose aggregate reached the given status.
func (r *BatchResult) ByStatus(status domain.AggregateStatus) []AggregateOutcome {
	var out []AggregateOutcome
	for _, o := range r.Outcomes {
		if o.Aggregate.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Summary renders a per-symbol success/failure line for the orchestrator.
func (r *BatchResult) Summary() string {
	var b strings.Builder
	for _, o := range r.Outcomes {
		line := fmt.Sprintf("%s: %s", o.Aggregate.Key(), o.Aggregate.Status)
		if o.Aggregate.FailureReason != "" {
			line += " (" + o.Aggregate.FailureReason + ")"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
