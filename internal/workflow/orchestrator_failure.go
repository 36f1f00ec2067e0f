package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services"
)

func (o *Orchestrator) handleStageFailure(logger *slog.Logger, rc *pipeline.Context, stageName string, stageErr error, message string) {
	details := services.Details(stageErr)
	attrs := []logging.Attr{
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorHint, hintForKind(details.Kind)),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	if p, ok := details.Cause.(*panicError); ok {
		attrs = append(attrs, logging.String("panic_stack", p.stack))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
	logger.Error("stage failed", logging.Args(attrs...)...)
	rc.Logf("stage %s failed: %s", stageName, message)
}

// classifyFailure picks the most useful message for a stage error.
func classifyFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return failureMessage(stageName, "failed without error detail")
	}
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if _, isPanic := details.Cause.(*panicError); message != "" && details.Cause != nil && !isPanic {
		message = fmt.Sprintf("%s: %v", message, details.Cause)
	}
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = failureMessage(stageName, "failed")
	}
	if stageName == "" && details.Stage != "" && !strings.HasPrefix(message, details.Stage) {
		message = fmt.Sprintf("%s: %s", details.Stage, message)
	}
	return message
}

func failureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}

func hintForKind(kind services.Kind) string {
	switch kind {
	case services.KindTransient:
		return "the model provider was unavailable; rerun later or raise [retry] max_retries"
	case services.KindTruncated:
		return "the model response was cut off; raise [llm] max_tokens"
	case services.KindExtraction, services.KindValidation:
		return "the model response was not usable; try a different model for this stage"
	case services.KindConfiguration:
		return "check the brieflow config file"
	case services.KindPermanent:
		return "the provider rejected the request; check the API key and model name"
	default:
		return "check logs for details"
	}
}
