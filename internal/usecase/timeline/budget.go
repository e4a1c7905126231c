package timeline

import "nullclaw/internal/domain"

// AggregateBudgetMetrics reduces a (typically already filtered) event
// sequence into per-kind latency stats and an overall error rate. Cost is
// pulled from tracker if non-nil; a nil tracker leaves Cost at its zero
// value.
func AggregateBudgetMetrics(events []domain.TimelineEvent, tracker domain.CostTracker) domain.BudgetMetrics {
	metrics := domain.BudgetMetrics{
		Latency: make(map[string]domain.LatencyStats),
	}
	if tracker != nil {
		metrics.Cost = tracker.Summary()
	}
	if len(events) == 0 {
		return metrics
	}

	errCount := 0
	for _, e := range events {
		if e.Severity == domain.SeverityError {
			errCount++
		}
		if e.DurationNs <= 0 {
			continue
		}
		stats := metrics.Latency[e.Kind]
		if stats.Count == 0 || e.DurationNs < stats.MinNs {
			stats.MinNs = e.DurationNs
		}
		if e.DurationNs > stats.MaxNs {
			stats.MaxNs = e.DurationNs
		}
		stats.Count++
		stats.TotalNs += e.DurationNs
		metrics.Latency[e.Kind] = stats
	}

	for kind, stats := range metrics.Latency {
		if stats.Count > 0 {
			stats.MeanNs = float64(stats.TotalNs) / float64(stats.Count)
			metrics.Latency[kind] = stats
		}
	}

	metrics.ErrorRate = float64(errCount) / float64(len(events))
	return metrics
}
