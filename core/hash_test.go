package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"testing"
)

func TestComputeConsultantHash(t *testing.T) {
	tests := []struct {
		consultantID string
		projectID    string
		want         int32
	}{
		{"", "", 0},
		{"a", "", 97},
		{"consultant-1", "project-1", 7000062},
		{"consultant-2", "project-1", -189513443},
		{"cons-42", "proj-7", -1907732255},
	}

	for _, tt := range tests {
		got := ComputeConsultantHash(tt.consultantID, tt.projectID)
		if got != tt.want {
			t.Errorf("ComputeConsultantHash(%q, %q) = %d, want %d", tt.consultantID, tt.projectID, got, tt.want)
		}
	}
}

func TestConsultantHashSuffix(t *testing.T) {
	tests := []struct {
		consultantID string
		projectID    string
		want         string
	}{
		{"consultant-1", "project-1", "0062"},
		{"consultant-1", "project-2", "0063"},
		{"consultant-2", "project-1", "3443"},
		{"cons-42", "proj-7", "2255"},
		{"", "", "0000"},
	}

	for _, tt := range tests {
		got := ConsultantHashSuffix(tt.consultantID, tt.projectID)
		if got != tt.want {
			t.Errorf("ConsultantHashSuffix(%q, %q) = %q, want %q", tt.consultantID, tt.projectID, got, tt.want)
		}
		if len(got) != 4 {
			t.Errorf("ConsultantHashSuffix(%q, %q) length = %d, want 4", tt.consultantID, tt.projectID, len(got))
		}
	}
}

func TestConsultantHashSuffix_Deterministic(t *testing.T) {
	first := ConsultantHashSuffix("consultant-1", "project-1")
	for i := 0; i < 10; i++ {
		if got := ConsultantHashSuffix("consultant-1", "project-1"); got != first {
			t.Fatalf("ConsultantHashSuffix() not deterministic: %q then %q", first, got)
		}
	}
}

func TestComputeKeyedConsultantHash(t *testing.T) {
	key := []byte("test-key")

	sum := ComputeKeyedConsultantHash(key, "consultant-1", "project-1")
	if len(sum) != sha256.Size {
		t.Errorf("ComputeKeyedConsultantHash() length = %d, want %d", len(sum), sha256.Size)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("consultant-1|project-1"))
	if !hmac.Equal(sum, mac.Sum(nil)) {
		t.Errorf("ComputeKeyedConsultantHash() does not match HMAC-SHA256 of consultant|project")
	}

	other := ComputeKeyedConsultantHash([]byte("other-key"), "consultant-1", "project-1")
	if hmac.Equal(sum, other) {
		t.Errorf("different keys should produce different hashes")
	}
}

func TestKeyedConsultantHashSuffix(t *testing.T) {
	key := []byte("test-key")

	if got := KeyedConsultantHashSuffix(key, "consultant-1", "project-1"); got != "7862" {
		t.Errorf("KeyedConsultantHashSuffix() = %q, want %q", got, "7862")
	}
	if got := KeyedConsultantHashSuffix(key, "consultant-1", "project-2"); got != "0353" {
		t.Errorf("KeyedConsultantHashSuffix() = %q, want %q", got, "0353")
	}
}
