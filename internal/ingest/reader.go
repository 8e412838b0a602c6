// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package ingest loads tabular activity exports into the spatial store.
// A CSV reader maps header-addressed rows to typed records, geometries pass
// through CRS normalization, and batches land through the store adapter.
package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sigphi/territorium/internal/errkind"
)

// Record is one raw activity row as read from a CSV export, before geometry
// normalization. SRID is nil when the export carries no srid column or left
// the cell empty; rows with geometry but no SRID are rejected downstream.
type Record struct {
	ID              int64
	Date            time.Time
	Department      string
	Municipality    string
	Location        string
	Zone            string
	Category        string
	InterestGroupID int64
	InterestGroup   string
	Attendees       int
	Contract        string
	GeometryWKT     string
	GeometryKind    string
	SRID            *int
}

// columns maps header names to field positions. Headers are matched
// case-insensitively and addressed by name, so column order in the export
// does not matter.
type columns map[string]int

var dateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

// Reader streams Records from a CSV export. The first row must be a header.
type Reader struct {
	csv  *csv.Reader
	cols columns
	line int
}

// NewReader wraps r and consumes the header row.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errkind.Wrap(errkind.KindInvalidArgument, err, "failed to read CSV header")
	}

	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "date", "department", "municipality", "category", "interest_group_id", "interest_group_name"} {
		if _, ok := cols[required]; !ok {
			return nil, errkind.Newf(errkind.KindInvalidArgument, "CSV header missing required column %q", required)
		}
	}
	return &Reader{csv: cr, cols: cols, line: 1}, nil
}

// Read returns the next record, or io.EOF when the export is exhausted.
func (r *Reader) Read() (*Record, error) {
	row, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errkind.Wrap(errkind.KindInvalidArgument, err, "malformed CSV row")
	}
	r.line++

	cell := func(name string) string {
		i, ok := r.cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := &Record{
		Department:    cell("department"),
		Municipality:  cell("municipality"),
		Location:      cell("location"),
		Zone:          cell("zone"),
		Category:      cell("category"),
		InterestGroup: cell("interest_group_name"),
		Contract:      cell("contract"),
		GeometryWKT:   cell("geometry"),
		GeometryKind:  cell("geometry_kind"),
	}

	if rec.ID, err = strconv.ParseInt(cell("id"), 10, 64); err != nil {
		return nil, errkind.Newf(errkind.KindInvalidArgument, "line %d: bad id %q", r.line, cell("id"))
	}
	if rec.Date, err = parseDate(cell("date")); err != nil {
		return nil, errkind.Newf(errkind.KindInvalidArgument, "line %d: bad date %q", r.line, cell("date"))
	}
	if rec.InterestGroupID, err = strconv.ParseInt(cell("interest_group_id"), 10, 64); err != nil {
		return nil, errkind.Newf(errkind.KindInvalidArgument, "line %d: bad interest_group_id %q", r.line, cell("interest_group_id"))
	}
	if v := cell("attendees"); v != "" {
		if rec.Attendees, err = strconv.Atoi(v); err != nil {
			return nil, errkind.Newf(errkind.KindInvalidArgument, "line %d: bad attendees %q", r.line, v)
		}
	}
	if v := cell("srid"); v != "" {
		srid, err := strconv.Atoi(v)
		if err != nil {
			return nil, errkind.Newf(errkind.KindInvalidArgument, "line %d: bad srid %q", r.line, v)
		}
		rec.SRID = &srid
	}
	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
