// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package normalize canonicalizes Colombian administrative names so that
// activity rows and territorial units join on a single spelling.
//
// Source datasets disagree on accents ("Bogotá" vs "BOGOTA"), case and
// whitespace. Canonical form is: NFD-decomposed with combining marks removed,
// case-folded to upper, interior whitespace collapsed to single spaces, outer
// whitespace trimmed. Names that still match no canonical unit are reported to
// the caller, never silently coerced.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, so "Bogotá"
// becomes "Bogota". Ñ is kept intact: it is phonemic in Spanish place names
// and collapsing it would merge genuinely distinct units.
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(marksExceptTilde{}),
	norm.NFC,
)

// marksExceptTilde matches combining marks other than U+0303 COMBINING TILDE
// following N/n (the decomposition of Ñ/ñ).
type marksExceptTilde struct{}

func (marksExceptTilde) Contains(r rune) bool {
	if r == '̃' {
		return false
	}
	return unicode.Is(unicode.Mn, r)
}

// Name returns the canonical form of an administrative name.
// Idempotent: Name(Name(s)) == Name(s).
func Name(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Transform on valid UTF-8 cannot fail; malformed input passes through
		// untouched so the caller still sees it in the unmatched report.
		out = s
	}
	out = strings.ToUpper(out)
	return collapseSpaces(out)
}

// Equal reports whether two names share a canonical form.
func Equal(a, b string) bool {
	return Name(a) == Name(b)
}

// collapseSpaces trims and collapses runs of whitespace to single spaces.
func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
