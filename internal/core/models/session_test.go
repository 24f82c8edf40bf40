package models

import "testing"

func TestSessionRecordValidation(t *testing.T) {
	tests := []struct {
		name    string
		record  SessionRecord
		wantErr bool
	}{
		{
			name: "valid record",
			record: SessionRecord{
				AuthToken: "tok",
				SiteID:    "site-1",
				UserID:    "user-1",
				ServerURL: "http://tableau",
			},
			wantErr: false,
		},
		{
			name: "cert path is optional",
			record: SessionRecord{
				AuthToken:   "tok",
				SiteID:      "site-1",
				UserID:      "user-1",
				ServerURL:   "https://tableau",
				TLSCertPath: "",
			},
			wantErr: false,
		},
		{
			name: "missing token",
			record: SessionRecord{
				SiteID:    "site-1",
				UserID:    "user-1",
				ServerURL: "http://tableau",
			},
			wantErr: true,
		},
		{
			name: "missing server",
			record: SessionRecord{
				AuthToken: "tok",
				SiteID:    "site-1",
				UserID:    "user-1",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"server", "http://server"},
		{"http://server", "http://server"},
		{"HTTPS://server/", "HTTPS://server"},
		{"  tableau.example.com:8000 ", "http://tableau.example.com:8000"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeServerURL(tt.in); got != tt.want {
			t.Errorf("NormalizeServerURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if NormalizeServerURL("server") != NormalizeServerURL("http://server") {
		t.Error("expected bare host and http:// host to compare equal")
	}
}

func TestIsHTTPS(t *testing.T) {
	if IsHTTPS("server") {
		t.Error("bare host should default to http")
	}
	if !IsHTTPS("https://server") {
		t.Error("expected https")
	}
}
