// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package threat

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
)

// MaxDepth bounds recursion into nested request bodies.
const MaxDepth = 10

// ScanRequest is the part of a request the Dispatcher inspects.
type ScanRequest struct {
	EventID     string
	SourceIP    string
	Path        string
	Query       map[string][]string
	Headers     map[string]string
	Body        []byte
	ContentType string
}

// DispatcherStats counts Dispatcher activity.
type DispatcherStats struct {
	Scans          int64 `json:"scans"`
	DetectorErrors int64 `json:"detector_errors"`
	ParseErrors    int64 `json:"parse_errors"`
}

// Dispatcher runs every registered detector against every string field of a
// request: query values and names, header values, the path and the body,
// recursing into JSON documents. At most one finding is produced per
// detector per location.
type Dispatcher struct {
	detectors []Detector
	log       zerolog.Logger

	scans          atomic.Int64
	detectorErrors atomic.Int64
	parseErrors    atomic.Int64
}

// NewDispatcher creates a Dispatcher. With no detectors it uses DefaultDetectors.
func NewDispatcher(detectors ...Detector) *Dispatcher {
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	return &Dispatcher{
		detectors: detectors,
		log:       logging.WithComponent("threat"),
	}
}

// Scan inspects req and returns its findings in location order. It never
// fails: a detector that panics is skipped and counted, and a body that
// cannot be decoded is scanned as a single raw string.
func (d *Dispatcher) Scan(req ScanRequest) []models.ThreatFinding {
	d.scans.Add(1)
	s := &scan{d: d, req: req, now: time.Now(), seen: make(map[string]struct{})}

	if req.Path != "" {
		s.field("path", req.Path)
	}

	for _, key := range sortedKeys(req.Query) {
		s.field("query_key."+key, key)
		values := req.Query[key]
		for i, v := range values {
			loc := "query." + key
			if len(values) > 1 {
				loc = fmt.Sprintf("%s[%d]", loc, i)
			}
			s.field(loc, v)
		}
	}

	for _, name := range sortedKeys(req.Headers) {
		v := req.Headers[name]
		if v == secutil.Redacted {
			continue
		}
		s.field("header."+name, v)
	}

	s.body()
	return s.findings
}

// Stats returns a snapshot of the Dispatcher counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Scans:          d.scans.Load(),
		DetectorErrors: d.detectorErrors.Load(),
		ParseErrors:    d.parseErrors.Load(),
	}
}

// detect runs one detector with panic isolation.
func (d *Dispatcher) detect(det Detector, input string) (f models.ThreatFinding, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.detectorErrors.Add(1)
			metrics.RecordDetectorError("detector")
			d.log.Error().
				Str("detector", string(det.Type())).
				Interface("panic", r).
				Msg("detector panicked, skipping")
			ok = false
		}
	}()
	return det.Detect(input)
}

type scan struct {
	d        *Dispatcher
	req      ScanRequest
	now      time.Time
	seen     map[string]struct{}
	findings []models.ThreatFinding
}

func (s *scan) field(location, value string) {
	if value == "" {
		return
	}
	for _, det := range s.d.detectors {
		f, ok := s.d.detect(det, value)
		if !ok {
			continue
		}
		s.add(location, f)
	}
}

func (s *scan) add(location string, f models.ThreatFinding) {
	key := string(f.Type) + "|" + location
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}

	f.Location = location
	f.Timestamp = s.now
	f.SourceIP = s.req.SourceIP
	f.EventID = s.req.EventID
	s.findings = append(s.findings, f)
}

func (s *scan) body() {
	body := s.req.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return
	}
	ct := strings.ToLower(s.req.ContentType)

	switch {
	case strings.Contains(ct, "json") || looksLikeJSON(body):
		var doc any
		if err := json.Unmarshal(body, &doc); err != nil {
			s.parseError(err)
			s.field("body", string(body))
			return
		}
		s.walk("body", doc, 0)

	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		form, err := url.ParseQuery(string(body))
		if err != nil {
			s.parseError(err)
			s.field("body", string(body))
			return
		}
		for _, key := range sortedKeys(form) {
			loc := "body." + key
			if IsPollutionKey(key) {
				s.pollutionKey(loc, key)
			}
			for _, v := range form[key] {
				s.field(loc, v)
			}
		}

	default:
		s.field("body", string(body))
	}
}

func (s *scan) parseError(err error) {
	s.d.parseErrors.Add(1)
	metrics.BodyParseErrors.Inc()
	s.d.log.Debug().Err(err).Str("event_id", s.req.EventID).Msg("request body not decodable, scanning raw")
}

func (s *scan) walk(location string, v any, depth int) {
	if depth > MaxDepth {
		return
	}
	switch node := v.(type) {
	case map[string]any:
		for _, key := range sortedKeys(node) {
			child := location + "." + key
			if IsPollutionKey(key) {
				s.pollutionKey(child, key)
			}
			s.walk(child, node[key], depth+1)
		}
	case []any:
		for i, elem := range node {
			s.walk(fmt.Sprintf("%s[%d]", location, i), elem, depth+1)
		}
	case string:
		s.field(location, node)
	}
}

func (s *scan) pollutionKey(location, key string) {
	s.add(location, newFinding(models.ThreatPrototypePollution, models.SeverityHigh, 0.9, key))
}

func looksLikeJSON(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && (b[0] == '{' || b[0] == '[')
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
