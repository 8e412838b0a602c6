// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package models

import "github.com/goccy/go-json"

// GeoJSON shapes for map-facing callers. Geometries arrive from the store as
// raw GeoJSON fragments (ST_AsGeoJSON output) and are passed through unparsed.

// Feature is a single GeoJSON feature with a property subset.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is the map-facing result shape.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection returns an empty collection with the type tag set.
// Features is non-nil so empty results serialize as [] rather than null.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// Append adds one feature built from a raw geometry and its properties.
func (fc *FeatureCollection) Append(geometry json.RawMessage, props map[string]interface{}) {
	fc.Features = append(fc.Features, Feature{
		Type:       "Feature",
		Geometry:   geometry,
		Properties: props,
	})
}
