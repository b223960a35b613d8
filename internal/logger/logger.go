package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// TimeFormat is the timestamp layout every line is prefixed with.
const TimeFormat = "2006-01-02 15:04:05"

// Options configures New.
type Options struct {
	Console io.Writer // defaults to os.Stderr
	Dir     string    // log file directory; empty disables the file
	Level   slog.Leveler
	Now     func() time.Time // used for the log file name; defaults to time.Now
}

// FileName returns the log file name for the day of t.
func FileName(t time.Time) string {
	return "umap-" + t.Format("2006-01-02") + ".log"
}

// New returns a logger writing "[timestamp] LEVEL msg k=v" lines to the
// console and appending them to <Dir>/umap-<date>.log. The closer releases
// the log file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("logger: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, FileName(now())), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("logger: %w", err)
		}
		file = f
	}
	h := NewHandler(console, file, opts.Level)
	if file == nil {
		return slog.New(h), nopCloser{}, nil
	}
	return slog.New(h), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel parses debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// Handler is a slog.Handler for line-oriented console and file logs. The
// console copy has its level coloured when the console is a terminal.
type Handler struct {
	mu      *sync.Mutex
	console *termenv.Output
	file    io.Writer
	level   slog.Leveler
	attrs   string // preformatted " k=v" pairs from WithAttrs
	group   string // key prefix from WithGroup
}

// NewHandler returns a handler writing to console and, if non-nil, file.
// A nil level means slog.LevelInfo.
func NewHandler(console, file io.Writer, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{
		mu:      new(sync.Mutex),
		console: termenv.NewOutput(console),
		file:    file,
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	var rest bytes.Buffer
	rest.WriteString(" ")
	rest.WriteString(r.Message)
	rest.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&rest, h.group, a)
		return true
	})
	rest.WriteString("\n")

	stamp := "[" + t.Format(TimeFormat) + "] "
	level := r.Level.String()

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.console, stamp+h.colored(r.Level, level)+rest.String())
	if h.file != nil {
		if _, ferr := io.WriteString(h.file, stamp+level+rest.String()); err == nil {
			err = ferr
		}
	}
	return err
}

func (h *Handler) colored(l slog.Level, s string) string {
	var c termenv.Color
	switch {
	case l >= slog.LevelError:
		c = h.console.Color("9")
	case l >= slog.LevelWarn:
		c = h.console.Color("11")
	case l >= slog.LevelInfo:
		c = h.console.Color("12")
	default:
		c = h.console.Color("8")
	}
	return h.console.String(s).Foreground(c).String()
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b bytes.Buffer
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.group + name + "."
	return &h2
}

func appendAttr(b *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, prefix, ga)
		}
		return
	}
	b.WriteString(" ")
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteString("=")
	b.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Format(TimeFormat)
	default:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = v.String()
		}
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
