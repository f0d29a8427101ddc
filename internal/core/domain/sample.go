package domain

import "time"

// PerformanceSample captures how one scheduled run of a task went.
// ErrorRate, SuccessRate and LoadFactor are in [0,1].
type PerformanceSample struct {
	ExecutionTime time.Duration
	ErrorRate     float64
	SuccessRate   float64
	LoadFactor    float64
}
