package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"brieflow/internal/pipeline"
	"brieflow/internal/textutil"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stageStatusKind(state pipeline.StageState) statusKind {
	switch state {
	case pipeline.StageCompleted:
		return statusOK
	case pipeline.StageSkipped:
		return statusWarn
	case pipeline.StageFailed:
		return statusError
	default:
		return statusInfo
	}
}

func runStatusKind(status pipeline.RunStatus) statusKind {
	switch status {
	case pipeline.RunCompleted:
		return statusOK
	case pipeline.RunFailed:
		return statusError
	default:
		return statusInfo
	}
}

// renderStageLines renders one status line per stage record.
func renderStageLines(records []pipeline.StageRecord, colorize bool) []string {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		message := string(rec.State)
		switch {
		case rec.Error != "":
			message += ": " + rec.Error
		case rec.Reason != "":
			message += ": " + rec.Reason
		case rec.Duration > 0:
			message += " in " + formatDuration(rec.Duration)
		}
		lines = append(lines, renderStatusLine(textutil.Label(rec.Name), stageStatusKind(rec.State), message, colorize))
	}
	return lines
}

func usageRows(usage map[string]pipeline.UsageRecord, order []string) [][]string {
	rows := make([][]string, 0, len(usage)+1)
	seen := make(map[string]struct{}, len(usage))
	var total pipeline.UsageRecord
	appendRow := func(name string, rec pipeline.UsageRecord) {
		rows = append(rows, []string{
			textutil.Label(name),
			rec.ModelID,
			fmt.Sprintf("%d", rec.Calls),
			fmt.Sprintf("%d", rec.PromptTokens),
			fmt.Sprintf("%d", rec.CompletionTokens),
			fmt.Sprintf("%d", rec.TotalTokens),
			formatCost(rec.CostUSD),
			yesNo(rec.IsFallback),
		})
		total = total.Merge(rec)
	}
	for _, name := range order {
		if rec, ok := usage[name]; ok {
			appendRow(name, rec)
			seen[name] = struct{}{}
		}
	}
	for name, rec := range usage {
		if _, ok := seen[name]; !ok {
			appendRow(name, rec)
		}
	}
	if len(rows) > 1 {
		rows = append(rows, []string{
			"Total", "",
			fmt.Sprintf("%d", total.Calls),
			fmt.Sprintf("%d", total.PromptTokens),
			fmt.Sprintf("%d", total.CompletionTokens),
			fmt.Sprintf("%d", total.TotalTokens),
			formatCost(total.CostUSD),
			yesNo(total.IsFallback),
		})
	}
	return rows
}

var usageHeaders = []string{"Stage", "Model", "Calls", "Prompt", "Completion", "Total", "Cost (USD)", "Fallback"}

var usageAligns = []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}

func formatCost(usd float64) string {
	return fmt.Sprintf("%.6f", usd)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
