// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package fault defines the bridge error taxonomy and the failure channel
// used to report errors that have no synchronous caller.
package fault

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes for bridge failures.
const (
	// CodeAddressing marks sends to an unknown instance or surface target.
	CodeAddressing = "ADDRESSING"
	// CodeResource marks file errors and use of a released handle.
	CodeResource = "RESOURCE"
	// CodeLoad marks surface content that failed to load.
	CodeLoad = "LOAD"
	// CodeCallback marks a user handler that failed during delivery.
	CodeCallback = "CALLBACK"
	// CodeCreateFailed marks a player instance that could not be created.
	CodeCreateFailed = "CREATE_FAILED"
	// CodePayloadShape marks an event payload that does not match its name.
	CodePayloadShape = "PAYLOAD_SHAPE"
	// CodeInvalidArgument marks malformed arguments from script code.
	CodeInvalidArgument = "INVALID_ARGUMENT"
	// CodeLoopClosed marks work posted to a script context that has stopped.
	CodeLoopClosed = "LOOP_CLOSED"
	// CodeNetwork marks a failed outbound HTTP or XML-RPC request.
	CodeNetwork = "NETWORK"
)

// Addressing creates an AddressingError for target.
func Addressing(target any, format string, args ...any) error {
	return oops.Code(CodeAddressing).
		In("bridge").
		With("target", target).
		Errorf(format, args...)
}

// Resource creates a ResourceError for path.
func Resource(path, format string, args ...any) error {
	return oops.Code(CodeResource).
		In("fileio").
		With("path", path).
		Errorf(format, args...)
}

// WrapResource wraps an I/O failure on path as a ResourceError.
func WrapResource(path, operation string, err error) error {
	return oops.Code(CodeResource).
		In("fileio").
		With("path", path).
		With("operation", operation).
		Wrapf(err, "%s %s", operation, path)
}

// Load creates a LoadError for a surface document.
func Load(surface, path string, cause error) error {
	builder := oops.Code(CodeLoad).
		In("surface").
		With("surface", surface).
		With("path", path)
	if cause != nil {
		return builder.Wrapf(cause, "load %s into %s", path, surface)
	}
	return builder.Errorf("load %s into %s", path, surface)
}

// Callback wraps an error returned or raised by a user handler.
func Callback(source, name string, cause error) error {
	return oops.Code(CodeCallback).
		In("callback").
		With("source", source).
		With("name", name).
		Wrapf(cause, "%s handler %q failed", source, name)
}

// InvalidArgument creates an error for malformed script arguments.
func InvalidArgument(format string, args ...any) error {
	return oops.Code(CodeInvalidArgument).Errorf(format, args...)
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code string) bool {
	for err != nil {
		if oopsErr, ok := oops.AsOops(err); ok {
			if c, ok := oopsErr.Code().(string); ok && c == code {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}
