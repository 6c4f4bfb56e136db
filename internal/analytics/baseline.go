// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package analytics

import "math"

// minStdDev keeps a flat baseline from turning every small bump into a spike
// while still flagging a burst against an idle history.
const minStdDev = 1.0

// Baseline is a fixed-size ring of recent request rates.
type Baseline struct {
	samples []float64
	next    int
	full    bool
}

// NewBaseline creates a ring holding size samples.
func NewBaseline(size int) *Baseline {
	if size < 1 {
		size = 1
	}
	return &Baseline{samples: make([]float64, size)}
}

// Add records one sample, overwriting the oldest when full.
func (b *Baseline) Add(v float64) {
	b.samples[b.next] = v
	b.next = (b.next + 1) % len(b.samples)
	if b.next == 0 {
		b.full = true
	}
}

// Len returns the number of samples held.
func (b *Baseline) Len() int {
	if b.full {
		return len(b.samples)
	}
	return b.next
}

// MeanStdDev returns the population mean and standard deviation.
func (b *Baseline) MeanStdDev() (mean, stddev float64) {
	n := b.Len()
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += b.samples[i]
	}
	mean = sum / float64(n)
	var sq float64
	for i := 0; i < n; i++ {
		d := b.samples[i] - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n))
}

// SpikeThreshold is mean + 3σ, with σ floored at minStdDev.
func (b *Baseline) SpikeThreshold() float64 {
	mean, sd := b.MeanStdDev()
	return mean + 3*math.Max(sd, minStdDev)
}
