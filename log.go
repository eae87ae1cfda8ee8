package lai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// LevelFatal is above slog.LevelError. Messages at this level mean the
// renderer cannot continue the current operation; logging one does not exit.
const LevelFatal = slog.Level(12)

// UserLevel is the minimum level the renderer's handler prints. It is
// usually set from LevelFromFlags or Config.LogLevel.
var UserLevel = new(slog.LevelVar)

func init() {
	UserLevel.Set(slog.LevelWarn)
}

// LevelFromFlags returns the level for the usual verbosity flags:
//   - vv: [slog.LevelDebug]
//   - v: [slog.LevelInfo]
//   - q: [slog.LevelError]
//   - (default: [slog.LevelWarn])
//
// The flags are evaluated in that order.
func LevelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// ParseLevel maps a config string ("debug", "info", "warn", "error", "fatal")
// to a level.
func ParseLevel(s string) (slog.Level, error) {
	if s == "fatal" || s == "FATAL" {
		return LevelFatal, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// LogHandler is a slog.Handler writing one line per record with a colored
// level tag.
type LogHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	output *termenv.Output
	level  slog.Leveler
	// attrs holds the rendered WithAttrs attributes, each qualified by the
	// groups open when it was added.
	attrs  []byte
	prefix string
}

// NewLogHandler returns a handler writing to w. Colors are used only when w
// is a terminal that supports them.
func NewLogHandler(w io.Writer, level slog.Leveler) *LogHandler {
	return &LogHandler{
		mu:     &sync.Mutex{},
		out:    w,
		output: termenv.NewOutput(w),
		level:  level,
	}
}

// SetupLogging installs a LogHandler on w as the slog default at level.
func SetupLogging(w io.Writer, level slog.Level) {
	if w == nil {
		w = os.Stderr
	}
	UserLevel.Set(level)
	slog.SetDefault(slog.New(NewLogHandler(w, UserLevel)))
}

func (h *LogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	if !r.Time.IsZero() {
		buf.WriteString(r.Time.Format(time.TimeOnly))
		buf.WriteByte(' ')
	}
	buf.WriteString(h.levelTag(r.Level))
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	buf.Write(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	buf := bytes.NewBuffer(append([]byte{}, h.attrs...))
	for _, a := range attrs {
		writeAttr(buf, h.prefix, a)
	}
	nh := *h
	nh.attrs = buf.Bytes()
	return &nh
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func (h *LogHandler) levelTag(l slog.Level) string {
	var name, color string
	switch {
	case l >= LevelFatal:
		name, color = "FATAL", "1"
	case l >= slog.LevelError:
		name, color = "ERROR", "9"
	case l >= slog.LevelWarn:
		name, color = "WARN ", "11"
	case l >= slog.LevelInfo:
		name, color = "INFO ", "10"
	default:
		name, color = "DEBUG", "12"
	}
	s := h.output.String(name).Foreground(h.output.Color(color))
	if l >= LevelFatal {
		s = s.Bold()
	}
	return s.String()
}

func writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(buf, prefix+a.Key+".", ga)
		}
		return
	}
	fmt.Fprintf(buf, " %s%s=%v", prefix, a.Key, a.Value.Any())
}

// Fatal logs msg at LevelFatal through the default logger.
func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
}
