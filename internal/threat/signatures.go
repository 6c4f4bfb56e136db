// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package threat

import (
	"strings"

	"github.com/tomtom215/sentinel/internal/models"
)

// scannerSignatures are user agent fragments of common attack and
// vulnerability scanning tools.
var scannerSignatures = []string{
	"sqlmap", "nikto", "nmap", "masscan", "zgrab", "dirbuster", "gobuster",
	"feroxbuster", "wpscan", "nuclei", "acunetix", "nessus", "openvas",
	"w3af", "havij", "arachni", "commix", "wfuzz", "ffuf", "jaeles",
	"zmeu", "netsparker", "appscan", "hydra", "whatweb",
}

// signatureSet is an Aho-Corasick automaton over lower-cased ASCII
// signatures. It finds every signature in one pass over the input and is
// immutable after construction, so it is safe for concurrent use.
type signatureSet struct {
	root  *acNode
	words []string
}

type acNode struct {
	next map[byte]*acNode
	fail *acNode
	out  []int // indices into words ending here, including via fail links
}

func newSignatureSet(words []string) *signatureSet {
	s := &signatureSet{root: &acNode{next: make(map[byte]*acNode)}}
	for _, w := range words {
		w = strings.ToLower(w)
		if w == "" {
			continue
		}
		s.insert(len(s.words), w)
		s.words = append(s.words, w)
	}
	s.link()
	return s
}

func (s *signatureSet) insert(idx int, w string) {
	n := s.root
	for i := 0; i < len(w); i++ {
		c := w[i]
		child, ok := n.next[c]
		if !ok {
			child = &acNode{next: make(map[byte]*acNode)}
			n.next[c] = child
		}
		n = child
	}
	n.out = append(n.out, idx)
}

// link sets failure links breadth first.
func (s *signatureSet) link() {
	queue := make([]*acNode, 0, len(s.root.next))
	for _, child := range s.root.next {
		child.fail = s.root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for c, child := range n.next {
			queue = append(queue, child)
			f := n.fail
			for f != nil && f.next[c] == nil {
				f = f.fail
			}
			if f == nil {
				child.fail = s.root
			} else {
				child.fail = f.next[c]
				child.out = append(child.out, child.fail.out...)
			}
		}
	}
}

// find returns the first signature to complete in input and the byte offset
// where it starts. Matching is ASCII case-insensitive.
func (s *signatureSet) find(input string) (string, int, bool) {
	n := s.root
	for i := 0; i < len(input); i++ {
		c := input[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		for n != s.root && n.next[c] == nil {
			n = n.fail
		}
		if next, ok := n.next[c]; ok {
			n = next
		}
		if len(n.out) > 0 {
			w := s.words[n.out[0]]
			return w, i - len(w) + 1, true
		}
	}
	return "", -1, false
}

// scannerDetector flags requests whose user agent names a scanning tool.
type scannerDetector struct {
	set *signatureSet
}

// NewScannerDetector detects vulnerability scanner user agents (MEDIUM).
func NewScannerDetector() Detector {
	return &scannerDetector{set: newSignatureSet(scannerSignatures)}
}

func (d *scannerDetector) Type() models.ThreatType   { return models.ThreatVulnScanner }
func (d *scannerDetector) Severity() models.Severity { return models.SeverityMedium }

func (d *scannerDetector) Detect(input string) (models.ThreatFinding, bool) {
	if input == "" {
		return models.ThreatFinding{}, false
	}
	_, at, ok := d.set.find(input)
	if !ok {
		return models.ThreatFinding{}, false
	}
	return newFinding(models.ThreatVulnScanner, models.SeverityMedium, 0.9, input[at:]), true
}
