// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// NewSlogLogger returns an slog.Logger backed by the global zerolog logger,
// tagged with component. The supervisor tree logs through it.
func NewSlogLogger(component string) *slog.Logger {
	return slog.New(zerologHandler{logger: WithComponent(component)})
}

// zerologHandler writes slog records as zerolog events. sutureslog logs flat
// key/value pairs, so groups are ignored.
type zerologHandler struct {
	logger zerolog.Logger
}

func (h zerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	return toZerologLevel(level) >= h.logger.GetLevel()
}

//nolint:gocritic // slog.Handler takes the record by value
func (h zerologHandler) Handle(_ context.Context, rec slog.Record) error {
	ev := h.logger.WithLevel(toZerologLevel(rec.Level))
	rec.Attrs(func(a slog.Attr) bool {
		ev = ev.Interface(a.Key, attrValue(a))
		return true
	})
	ev.Msg(rec.Message)
	return nil
}

func (h zerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.logger.With()
	for _, a := range attrs {
		c = c.Interface(a.Key, attrValue(a))
	}
	return zerologHandler{logger: c.Logger()}
}

func (h zerologHandler) WithGroup(string) slog.Handler { return h }

// attrValue unwraps durations to strings so restart backoffs read as "15s".
func attrValue(a slog.Attr) interface{} {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindDuration {
		return v.Duration().String()
	}
	return v.Any()
}

func toZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
