package workflow

import (
	"context"

	"brieflow/internal/pipeline"
	"brieflow/internal/stage"
)

// RunSummary is a snapshot of a finished run.
type RunSummary struct {
	RunID        string
	Status       pipeline.RunStatus
	ErrorMessage string
	Stages       []pipeline.StageRecord
	Usage        pipeline.UsageRecord
}

// StatusSummary represents lightweight orchestrator diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastRun     *RunSummary
	StageHealth map[string]stage.Health
}

// Status returns the latest run information and stage health.
func (o *Orchestrator) Status(ctx context.Context) StatusSummary {
	o.mu.RLock()
	running := o.running
	lastErr := o.lastErr
	lastRun := o.lastRun
	o.mu.RUnlock()

	health := make(map[string]stage.Health, len(o.stages))
	for _, st := range o.stages {
		if checker, ok := st.(stage.HealthChecker); ok {
			health[st.Name()] = checker.HealthCheck(ctx)
			continue
		}
		health[st.Name()] = stage.Healthy(st.Name())
	}

	summary := StatusSummary{Running: running, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastRun != nil {
		copy := *lastRun
		copy.Stages = append([]pipeline.StageRecord(nil), lastRun.Stages...)
		summary.LastRun = &copy
	}
	return summary
}

func (o *Orchestrator) setRunning(running bool) {
	o.mu.Lock()
	o.running = running
	o.mu.Unlock()
}

func (o *Orchestrator) recordSummary(rc *pipeline.Context, lastErr error) {
	summary := &RunSummary{
		RunID:        rc.RunID,
		Status:       rc.Status,
		ErrorMessage: rc.ErrorMessage,
		Stages:       append([]pipeline.StageRecord(nil), rc.StageRecords...),
		Usage:        rc.TotalUsage(),
	}
	o.mu.Lock()
	o.lastRun = summary
	if lastErr != nil {
		o.lastErr = lastErr
	}
	o.mu.Unlock()
}
