package models

import (
	"errors"
	"strings"
)

// SessionRecord is the persisted proof of an authenticated connection
type SessionRecord struct {
	AuthToken   string
	SiteID      string
	UserID      string
	ServerURL   string
	TLSCertPath string // Optional, only meaningful for https servers
}

// Validate checks that every required field is present
func (r *SessionRecord) Validate() error {
	if r.AuthToken == "" {
		return errors.New("auth_token is required")
	}
	if r.SiteID == "" {
		return errors.New("site_id is required")
	}
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if r.ServerURL == "" {
		return errors.New("server_url is required")
	}
	return nil
}

// Trimmed returns a copy with incidental whitespace removed from every field
func (r SessionRecord) Trimmed() SessionRecord {
	return SessionRecord{
		AuthToken:   strings.TrimSpace(r.AuthToken),
		SiteID:      strings.TrimSpace(r.SiteID),
		UserID:      strings.TrimSpace(r.UserID),
		ServerURL:   strings.TrimSpace(r.ServerURL),
		TLSCertPath: strings.TrimSpace(r.TLSCertPath),
	}
}

// Credentials are the inputs for a fresh sign-in
type Credentials struct {
	Server      string
	Site        string
	Username    string
	Password    string
	TLSCertPath string
}

// NormalizeServerURL ensures the address carries a scheme so that
// "server" and "http://server" compare equal.
func NormalizeServerURL(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	lower := strings.ToLower(address)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		address = "http://" + address
	}
	return strings.TrimRight(address, "/")
}

// IsHTTPS reports whether the (normalized) address uses TLS
func IsHTTPS(address string) bool {
	return strings.HasPrefix(strings.ToLower(NormalizeServerURL(address)), "https://")
}
