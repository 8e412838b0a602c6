// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCallIDRoundTrip(t *testing.T) {
	ctx := ContextWithCallID(context.Background(), "abc12345")
	if got := CallIDFromContext(ctx); got != "abc12345" {
		t.Errorf("CallIDFromContext = %q, want %q", got, "abc12345")
	}
}

func TestCallIDMissing(t *testing.T) {
	if got := CallIDFromContext(context.Background()); got != "" {
		t.Errorf("CallIDFromContext on empty context = %q, want empty", got)
	}
}

func TestGenerateCallIDLength(t *testing.T) {
	id := GenerateCallID()
	if len(id) != 8 {
		t.Errorf("GenerateCallID length = %d, want 8", len(id))
	}
}

func TestCtxAttachesCallID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Timestamp: false, Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithCallID(context.Background(), "deadbeef")
	Ctx(ctx).Info().Msg("hello")

	if !strings.Contains(buf.String(), `"call_id":"deadbeef"`) {
		t.Errorf("log output missing call_id field: %s", buf.String())
	}
}

func TestParseLevelFallback(t *testing.T) {
	if parseLevel("nonsense") != parseLevel("info") {
		t.Error("unknown level should fall back to info")
	}
}
