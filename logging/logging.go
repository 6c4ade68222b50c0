// Package logging builds the slog loggers of the disease tracker binaries.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

var ErrUnknownFormat = errors.New("unknown log format")

const (
	FormatJSON = "json"
	FormatText = "text"

	RequestIDKey = "request_id"
)

// ParseLevel accepts debug, info, warn or error in any case
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return l, fmt.Errorf("unable to parse log level %q, %w", level, err)
	}
	return l, nil
}

// New returns a logger writing to w in the given format. Records logged with a request
// context carry the request id.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: l}

	var h slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON, "":
		h = slog.NewJSONHandler(w, opts)
	case FormatText:
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("%q, %w", format, ErrUnknownFormat)
	}
	return slog.New(&requestIDHandler{Handler: h}), nil
}

type requestIDHandler struct {
	slog.Handler
}

func (h *requestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	id := middleware.GetReqID(ctx)
	if id == "" {
		return h.Handler.Handle(ctx, r)
	}
	tagged := false
	r.Attrs(func(a slog.Attr) bool {
		tagged = a.Key == RequestIDKey
		return !tagged
	})
	if !tagged {
		r.AddAttrs(slog.String(RequestIDKey, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &requestIDHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *requestIDHandler) WithGroup(name string) slog.Handler {
	return &requestIDHandler{Handler: h.Handler.WithGroup(name)}
}
