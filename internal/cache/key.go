// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key derives the stable cache key for one memoized computation.
//
// The canonical filter form must be deterministic for equal filters (see the
// store adapter's filter canonicalization); embedding the snapshot version
// makes every write an implicit invalidation of all derived entries.
func Key(operation, level, canonicalFilter string, snapshotVersion int64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d", operation, level, canonicalFilter, snapshotVersion)
	return hex.EncodeToString(h.Sum(nil))
}
