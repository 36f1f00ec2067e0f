package notifications

import (
	"context"

	"brieflow/internal/pipeline"
)

// RunNotifier publishes finished runs. Failed runs always notify; completed
// runs notify only when onSuccess is set.
type RunNotifier struct {
	svc       Service
	onSuccess bool
}

// NewRunNotifier wraps svc for use as a run sink.
func NewRunNotifier(svc Service, onSuccess bool) *RunNotifier {
	return &RunNotifier{svc: svc, onSuccess: onSuccess}
}

// RecordRun sends the notification matching the run status.
func (n *RunNotifier) RecordRun(ctx context.Context, rc *pipeline.Context) error {
	if n == nil || n.svc == nil || rc == nil {
		return nil
	}
	switch rc.Status {
	case pipeline.RunFailed:
		return n.svc.NotifyRunFailed(ctx, rc)
	case pipeline.RunCompleted:
		if n.onSuccess {
			return n.svc.NotifyRunCompleted(ctx, rc)
		}
	}
	return nil
}
