// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package models

import "time"

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Status   string      `json:"status"` // "success" or "error"
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response bookkeeping.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	CallID    string    `json:"call_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	TookMS    int64     `json:"took_ms"`
}

// APIError is the machine-readable error body. Code is the error kind from
// the store/engine taxonomy.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
