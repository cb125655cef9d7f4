package idgen

import (
	"strings"
	"testing"
)

func TestGenerateSecureID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		length     int
		wantErr    bool
		wantPrefix string
	}{
		{
			name:       "generate transaction ID",
			prefix:     "txn",
			length:     16,
			wantErr:    false,
			wantPrefix: "txn_",
		},
		{
			name:       "generate rule ID",
			prefix:     "rule",
			length:     16,
			wantErr:    false,
			wantPrefix: "rule_",
		},
		{
			name:       "generate short ID",
			prefix:     "test",
			length:     8,
			wantErr:    false,
			wantPrefix: "test_",
		},
		{
			name:    "zero length",
			prefix:  "test",
			length:  0,
			wantErr: true,
		},
		{
			name:    "negative length",
			prefix:  "test",
			length:  -1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSecureID(tt.prefix, tt.length)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenerateSecureID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("GenerateSecureID() = %q, want prefix %q", got, tt.wantPrefix)
			}
			random := strings.TrimPrefix(got, tt.wantPrefix)
			if len(random) != tt.length {
				t.Errorf("random part length = %d, want %d", len(random), tt.length)
			}
			for _, r := range random {
				if !strings.ContainsRune(idAlphabet, r) {
					t.Errorf("random part contains %q, outside the id alphabet", r)
				}
			}
		})
	}
}

func TestGenerateSecureID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := GenerateSecureID("txn", 16)
		if err != nil {
			t.Fatalf("GenerateSecureID() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}
