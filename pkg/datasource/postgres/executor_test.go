package postgres

import (
	"testing"
	"time"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{
			name:  "timestamp",
			input: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			want:  "2024-03-15 10:30:00",
		},
		{
			name:  "date at midnight",
			input: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want:  "2024-03-15",
		},
		{
			name:  "bytes",
			input: []byte("hello"),
			want:  "hello",
		},
		{
			name:  "int passthrough",
			input: int64(42),
			want:  int64(42),
		},
		{
			name:  "string passthrough",
			input: "electronics",
			want:  "electronics",
		},
		{
			name:  "nil passthrough",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.input)
			if got != tt.want {
				t.Errorf("normalizeValue(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeValue_UUID(t *testing.T) {
	var raw [16]byte
	for i := range raw {
		raw[i] = byte(i)
	}
	got := normalizeValue(raw)
	if got != "00010203-0405-0607-0809-0a0b0c0d0e0f" {
		t.Errorf("normalizeValue(uuid bytes) = %v", got)
	}
}

func TestPgTypeNameFromOID(t *testing.T) {
	tests := []struct {
		oid  uint32
		want string
	}{
		{23, "INT4"},
		{25, "TEXT"},
		{701, "FLOAT8"},
		{1114, "TIMESTAMP"},
		{1700, "NUMERIC"},
		{99999, "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := pgTypeNameFromOID(tt.oid); got != tt.want {
			t.Errorf("pgTypeNameFromOID(%d) = %q, want %q", tt.oid, got, tt.want)
		}
	}
}
