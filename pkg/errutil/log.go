// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// Attrs returns slog key/value pairs describing err. Oops errors contribute
// their code, domain and context; other errors contribute their message.
func Attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if domain := oopsErr.Domain(); domain != "" {
		attrs = append(attrs, "domain", domain)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// LogError logs an error with structured context if it's an oops error.
// Extra key/value pairs are appended after the error attributes.
func LogError(logger *slog.Logger, msg string, err error, extra ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := append(Attrs(err), extra...)
	logger.Error(msg, attrs...)
}

// Code returns the oops code of err, or the empty string when err carries none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, ok := oopsErr.Code().(string)
	if !ok {
		return ""
	}
	return code
}
