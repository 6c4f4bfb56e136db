// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/sentinel/internal/config"
)

// ErrInvalidCredentials is returned for any username or password mismatch.
var ErrInvalidCredentials = errors.New("invalid username or password")

// CredentialChecker verifies the administrator username and password. The
// password is kept only as a bcrypt hash.
type CredentialChecker struct {
	username     string
	passwordHash []byte
}

// NewCredentialChecker hashes password once at startup.
func NewCredentialChecker(username, password string) (*CredentialChecker, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < config.MinAdminPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", config.MinAdminPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &CredentialChecker{username: username, passwordHash: hash}, nil
}

// Check reports whether username and password match. Both comparisons
// always run.
func (c *CredentialChecker) Check(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// CheckHeader validates an "Authorization: Basic ..." header and returns
// the username.
func (c *CredentialChecker) CheckHeader(authHeader string) (string, error) {
	encoded, ok := strings.CutPrefix(authHeader, "Basic ")
	if !ok {
		return "", fmt.Errorf("invalid authorization header format")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", fmt.Errorf("invalid credentials format")
	}
	if err := c.Check(user, pass); err != nil {
		return "", err
	}
	return user, nil
}

// Username returns the configured administrator name.
func (c *CredentialChecker) Username() string { return c.username }

// WWWAuthenticate is sent with 401 responses in basic mode.
const WWWAuthenticate = `Basic realm="Sentinel", charset="UTF-8"`
