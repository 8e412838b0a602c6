// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package errkind defines the error taxonomy shared by the engine and its
// collaborators. Every failure that crosses the engine boundary carries one of
// the kinds below; callers branch on the kind, never on error strings.
package errkind

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind string

const (
	// KindMissingCRS indicates an ingest geometry without a declared source CRS.
	// The engine cannot repair this locally; the caller must set the SRID.
	KindMissingCRS Kind = "missing_crs"

	// KindInvalidGeometry indicates a geometry that survived one repair pass
	// still invalid. Non-fatal: the row is emitted flagged, and the batch
	// summary records a warning.
	KindInvalidGeometry Kind = "invalid_geometry"

	// KindSchemaDrift indicates store columns that do not match the expected
	// schema. Fatal for the call; the offending column is named.
	KindSchemaDrift Kind = "schema_drift"

	// KindStoreUnavailable indicates a transient store I/O failure.
	// Retryable by the caller; the engine does not auto-retry.
	KindStoreUnavailable Kind = "store_unavailable"

	// KindCancelled indicates the caller's cancellation signal fired.
	KindCancelled Kind = "cancelled"

	// KindUnknownUnit indicates a focal unit name that matches no canonical
	// territorial unit at the requested level.
	KindUnknownUnit Kind = "unknown_unit"

	// KindInvalidArgument indicates a malformed request (bad level, negative
	// budget, unparseable filter).
	KindInvalidArgument Kind = "invalid_argument"

	// KindInternal is the fallback for failures outside the taxonomy.
	KindInternal Kind = "internal"
)

// Error is the taxonomy-carrying error type. Column holds the offending column
// for schema drift; it is empty for other kinds.
type Error struct {
	Kind   Kind
	Column string
	Err    error
	msg    string
}

// New creates an Error with a fixed message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind. Returns nil if err is nil.
func Wrap(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err, msg: msg}
}

// SchemaDrift creates a schema drift error naming the offending column.
func SchemaDrift(column string, err error) *Error {
	return &Error{Kind: KindSchemaDrift, Column: column, Err: err, msg: "schema drift on column " + column}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is works against a bare-kind target:
//
//	errors.Is(err, &Error{Kind: KindStoreUnavailable})
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the kind from any error in the chain.
// Returns KindCancelled for context cancellation and deadline errors,
// KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindInternal
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
