// internal/storage/s3_test.go
package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{Region: "us-east-1"})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected missing config error, got %v", err)
	}
}

func TestS3Storage_KeyAndRelative(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "prices_abc.csv", "prices_abc.csv"},
		{"quantlab", "prices_abc.csv", "quantlab/prices_abc.csv"},
		{"quantlab/", "runs/x/summary.yaml", "quantlab/runs/x/summary.yaml"},
		{"/quantlab/", "a.csv", "quantlab/a.csv"},
	}

	for _, tt := range tests {
		s, err := NewS3(S3Config{Bucket: "b", Region: "us-east-1", Prefix: tt.prefix})
		if err != nil {
			t.Fatalf("NewS3: %v", err)
		}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
		if rel := s.relative(got); rel != tt.path {
			t.Errorf("relative(%q) = %q, want %q", got, rel, tt.path)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"head not found", fmt.Errorf("operation error: %w", &types.NotFound{}), true},
		{"http 404 text", errors.New("https response error StatusCode: 404, RequestID: x"), true},
		{"access denied", errors.New("StatusCode: 403, AccessDenied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}
