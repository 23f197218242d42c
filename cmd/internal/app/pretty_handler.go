package app

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

// prettyHandler renders one "key=value" line per record for local runs.
// Keys are flattened with their groups ("http.status=201").
type prettyHandler struct {
	out   *lockedWriter
	level slog.Leveler
	src   bool
	color bool

	// prefix is the dotted group path applied to attrs added after it.
	prefix string
	// pre holds attrs from WithAttrs, already rendered.
	pre string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(s string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := io.WriteString(lw.w, s)
	return err
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{out: &lockedWriter{w: w}, level: slog.LevelInfo, color: color}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.src = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ts=%s lvl=%s msg=%s",
		paint(ts.Format("15:04:05.000"), ansiDim, h.color),
		levelTag(r.Level, h.color),
		paint(r.Message, ansiBright, h.color),
	)
	if h.src && r.PC != 0 {
		if f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next(); f.File != "" {
			b.WriteString(" src=" + paint(filepath.Base(f.File)+":"+strconv.Itoa(f.Line), ansiDim, h.color))
		}
	}
	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		h.render(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')
	return h.out.write(b.String())
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	for _, a := range attrs {
		h.render(&b, h.prefix, a)
	}
	cp := *h
	cp.pre = h.pre + b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = joinKey(h.prefix, name)
	return &cp
}

func joinKey(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (h *prettyHandler) render(b *strings.Builder, parent string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)
	if key == "" && a.Value.Kind() != slog.KindGroup {
		return
	}
	if a.Equal(slog.Attr{}) {
		return
	}

	full := joinKey(parent, key)
	if a.Value.Kind() == slog.KindGroup {
		if key == "" {
			full = parent
		}
		for _, ga := range a.Value.Group() {
			h.render(b, full, ga)
		}
		return
	}

	b.WriteString(" " + remapPrettyKey(full) + "=" + h.formatValue(full, a.Value))
}

// valueFormatters highlight the fields the request logger and handlers emit.
// They are keyed by the last segment of the attribute key.
var valueFormatters = map[string]func(v slog.Value, color bool) (string, bool){
	"method": func(v slog.Value, color bool) (string, bool) {
		return colorizeHTTPMethod(strings.ToUpper(strings.TrimSpace(v.String())), color), true
	},
	"path":  pathValue,
	"route": pathValue,
	"status": func(v slog.Value, color bool) (string, bool) {
		n, ok := valueToInt64(v)
		return colorizeStatusCode(int(n), color), ok
	},
	"status_class": classValue,
	"class":        classValue,
	"duration_ms": func(v slog.Value, color bool) (string, bool) {
		n, ok := valueToInt64(v)
		return colorizeDurationMS(n, color), ok
	},
	"result": func(v slog.Value, color bool) (string, bool) {
		return colorizeResult(strings.ToLower(strings.TrimSpace(v.String())), color), true
	},
	"kind": func(v slog.Value, color bool) (string, bool) {
		return colorizeKind(strings.TrimSpace(v.String()), color), true
	},
}

func pathValue(v slog.Value, color bool) (string, bool) {
	return paint(strings.TrimSpace(v.String()), ansiCyan, color), true
}

func classValue(v slog.Value, color bool) (string, bool) {
	return colorizeStatusClass(strings.TrimSpace(v.String()), color), true
}

func (h *prettyHandler) formatValue(key string, v slog.Value) string {
	last := key
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		last = key[i+1:]
	}
	if f, ok := valueFormatters[last]; ok {
		if s, ok := f(v, h.color); ok {
			return s
		}
	}

	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		// slog formats strings, numbers, bools and durations the same way.
		return quoteIfNeeded(v.String())
	}
}

var prettyKeyAliases = map[string]string{
	"status_class": "class",
	"duration_ms":  "duration",
}

func remapPrettyKey(k string) string {
	if alias, ok := prettyKeyAliases[k]; ok {
		return alias
	}
	return k
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelTag(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		return paint("[ERROR]", ansiRed, color)
	case level >= slog.LevelWarn:
		return paint("[WARN]", ansiYellow, color)
	case level < slog.LevelInfo:
		return paint("[DEBUG]", ansiMagenta, color)
	default:
		return paint("[INFO]", ansiBlue, color)
	}
}
