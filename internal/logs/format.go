package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const displayTimestampLayout = "2006-01-02 15:04:05"

// Format renders a JSON log record as a console line:
//
//	2026-01-02 15:04:05 WARN workflow: stage failed run_id=... stage=strategy
//
// Lines that are not JSON objects are returned unchanged.
func Format(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return line
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
		return line
	}

	var b strings.Builder
	if ts := stringField(record, "ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			ts = parsed.In(time.Local).Format(displayTimestampLayout)
		}
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	level := strings.ToUpper(stringField(record, "level"))
	if level == "" {
		level = "INFO"
	}
	b.WriteString(level)
	b.WriteByte(' ')
	if component := stringField(record, "component"); component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	if msg := stringField(record, "msg"); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if source := stringField(record, "source"); source != "" {
		fmt.Fprintf(&b, " [%s]", source)
	}

	delete(record, "ts")
	delete(record, "level")
	delete(record, "msg")
	delete(record, "component")
	delete(record, "source")
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, formatValue(record[key]))
	}
	return b.String()
}

func stringField(record map[string]any, key string) string {
	value, ok := record[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		if strings.ContainsAny(v, " \t\"=") || v == "" {
			return fmt.Sprintf("%q", v)
		}
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case nil:
		return "null"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
