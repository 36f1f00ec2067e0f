package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimestampLayout = "2006-01-02 15:04:05"

// consoleHandler writes one human-readable line per record:
//
//	2026-01-02 15:04:05 WARN fanout: item failed run_id=... item_index=2
//
// Handlers derived through WithAttrs/WithGroup share the writer lock so
// concurrent fan-out workers never interleave partial lines.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	component string
	attrs     []slog.Attr
	groups    []string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format(consoleTimestampLayout))
	b.WriteByte(' ')
	b.WriteString(record.Level.String())
	b.WriteByte(' ')

	component := h.component
	fields := make([]string, 0, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		fields = appendField(fields, "", attr)
	}
	prefix := groupPrefix(h.groups)
	record.Attrs(func(attr slog.Attr) bool {
		if prefix == "" && attr.Key == FieldComponent {
			component = attr.Value.String()
			return true
		}
		fields = appendField(fields, prefix, attr)
		return true
	})

	if component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	b.WriteString(record.Message)
	for _, field := range fields {
		b.WriteByte(' ')
		b.WriteString(field)
	}
	if h.addSource && record.PC != 0 {
		frame := sourceFrame(record.PC)
		if frame != "" {
			b.WriteString(" [")
			b.WriteString(frame)
			b.WriteByte(']')
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	prefix := groupPrefix(h.groups)
	for _, attr := range attrs {
		if prefix == "" && attr.Key == FieldComponent {
			next.component = attr.Value.String()
			continue
		}
		if prefix != "" {
			attr.Key = prefix + attr.Key
		}
		next.attrs = append(next.attrs, attr)
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *consoleHandler) clone() *consoleHandler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	next.groups = append([]string(nil), h.groups...)
	return &next
}

func groupPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}

func appendField(fields []string, prefix string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return fields
	}
	key := prefix + attr.Key
	if attr.Value.Kind() == slog.KindGroup {
		for _, member := range attr.Value.Group() {
			fields = appendField(fields, key+".", member)
		}
		return fields
	}
	return append(fields, key+"="+consoleValue(attr.Value))
}

func consoleValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return strconv.Quote(err.Error())
		}
		return strconv.Quote(fmt.Sprint(v.Any()))
	default:
		return v.String()
	}
}

func sourceFrame(pc uintptr) string {
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}
