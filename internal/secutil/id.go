// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package secutil

import (
	"encoding/hex"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var idFallback atomic.Uint64

// GenerateSecureID returns <prefix>_<unix-ms base36>_<16 hex chars>.
//
// The random part comes from a version 4 UUID (crypto/rand). If the random
// source fails the suffix degrades to a time-mixed counter instead of blocking.
func GenerateSecureID(prefix string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)

	var suffix string
	if u, err := uuid.NewRandom(); err == nil {
		suffix = hex.EncodeToString(u[:8])
	} else {
		n := idFallback.Add(1) ^ uint64(time.Now().UnixNano())
		suffix = strconv.FormatUint(n, 16)
	}

	if prefix == "" {
		return ts + "_" + suffix
	}
	return prefix + "_" + ts + "_" + suffix
}
