// Package analyzer chooses a recovery policy for each detected failure and
// learns how well each strategy works per failure pattern.
package analyzer

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ndquoc/remedy/internal/core/domain"
)

const (
	// frequencyThreshold opens the circuit breaker when this many errors
	// share a (service, error_type) key inside frequencyWindow.
	frequencyThreshold = 5
	frequencyWindow    = 60 * time.Minute

	// historyCap bounds per-key history so error storms cannot grow memory
	// without limit.
	historyCap = 100

	topPatternCount = 5

	// Success-rate estimates move by exponential moving average.
	emaSeed   = 0.5
	emaWeight = 0.2
)

// Analyzer maps failures to recovery actions via an ordered cascade:
// frequency protection first, then message content, then severity.
type Analyzer struct {
	mu           sync.Mutex
	history      map[string][]time.Time
	counts       map[string]int
	successRates map[string]float64
	totalErrors  int

	now func() time.Time
}

// New creates an analyzer with empty history.
func New() *Analyzer {
	return &Analyzer{
		history:      make(map[string][]time.Time),
		counts:       make(map[string]int),
		successRates: make(map[string]float64),
		now:          time.Now,
	}
}

// Analyze records the failure and returns the recovery action for it. The
// cascade order is deliberate: a key failing too often gets the breaker no
// matter what the message or severity says.
func (a *Analyzer) Analyze(ectx *domain.ErrorContext) domain.RecoveryAction {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := ectx.Key()
	a.totalErrors++
	a.counts[key]++
	recent := a.recordOccurrence(key, ectx.Timestamp)

	if recent >= frequencyThreshold {
		return domain.RecoveryAction{
			Strategy:         domain.StrategyCircuitBreaker,
			MaxAttempts:      1,
			Delay:            300 * time.Second,
			SuccessThreshold: 0.8,
		}
	}

	msg := strings.ToLower(ectx.ErrorMessage)
	switch {
	case strings.Contains(msg, "timeout"):
		return domain.RecoveryAction{
			Strategy:         domain.StrategyExponentialBackoff,
			MaxAttempts:      3,
			Delay:            2 * time.Second,
			SuccessThreshold: 0.7,
		}
	case strings.Contains(msg, "rate limit"):
		return domain.RecoveryAction{
			Strategy:         domain.StrategyExponentialBackoff,
			MaxAttempts:      2,
			Delay:            60 * time.Second,
			SuccessThreshold: 0.9,
		}
	case ectx.Severity == domain.SeverityCritical:
		return domain.ManualIntervention()
	default:
		return domain.RecoveryAction{
			Strategy:         domain.StrategyImmediateRetry,
			MaxAttempts:      2,
			Delay:            1 * time.Second,
			SuccessThreshold: 0.6,
		}
	}
}

// recordOccurrence appends the timestamp to the key's history, prunes
// entries older than the frequency window, enforces the history cap, and
// returns how many occurrences remain inside the window. Caller holds the
// lock.
func (a *Analyzer) recordOccurrence(key string, ts time.Time) int {
	if ts.IsZero() {
		ts = a.now()
	}

	entries := append(a.history[key], ts)

	cutoff := a.now().Add(-frequencyWindow)
	pruned := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	if len(pruned) > historyCap {
		pruned = pruned[len(pruned)-historyCap:]
	}
	a.history[key] = pruned

	return len(pruned)
}

// RecordOutcome feeds a recovery result back into the per-strategy success
// estimate for the failure pattern.
func (a *Analyzer) RecordOutcome(ectx *domain.ErrorContext, action domain.RecoveryAction, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := rateKey(ectx.ServiceName, ectx.ErrorType, action.Strategy)
	rate, ok := a.successRates[key]
	if !ok {
		rate = emaSeed
	}

	outcome := 0.0
	if success {
		outcome = 1.0
	}
	a.successRates[key] = (1-emaWeight)*rate + emaWeight*outcome

	slog.Debug("Recorded recovery outcome",
		"pattern", key,
		"success", success,
		"rate", a.successRates[key],
	)
}

// SuccessRate returns the tracked estimate for a pattern/strategy pair,
// defaulting to the seed when nothing has been observed.
func (a *Analyzer) SuccessRate(service, errorType string, strategy domain.RecoveryStrategy) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rate, ok := a.successRates[rateKey(service, errorType, strategy)]; ok {
		return rate
	}
	return emaSeed
}

// Statistics snapshots totals, per-key frequencies, the most frequent
// patterns, and the success-rate map.
func (a *Analyzer) Statistics() domain.AnalyzerStatistics {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make(map[string]int, len(a.counts))
	top := make([]domain.PatternFrequency, 0, len(a.counts))
	for k, c := range a.counts {
		counts[k] = c
		top = append(top, domain.PatternFrequency{Key: k, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Key < top[j].Key
	})
	if len(top) > topPatternCount {
		top = top[:topPatternCount]
	}

	rates := make(map[string]float64, len(a.successRates))
	for k, r := range a.successRates {
		rates[k] = r
	}

	windowed := 0
	cutoff := a.now().Add(-frequencyWindow)
	for _, entries := range a.history {
		for _, t := range entries {
			if t.After(cutoff) {
				windowed++
				break
			}
		}
	}

	return domain.AnalyzerStatistics{
		TotalPatterns:    a.totalErrors,
		PatternCounts:    counts,
		TopPatterns:      top,
		SuccessRates:     rates,
		TrackedPatterns:  len(a.counts),
		WindowedPatterns: windowed,
	}
}

func rateKey(service, errorType string, strategy domain.RecoveryStrategy) string {
	return service + ":" + errorType + ":" + string(strategy)
}
