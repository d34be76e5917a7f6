package remote

import (
	"context"
	"testing"
	"time"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{}, nil)
	if err == nil {
		t.Fatal("expected error for missing bucket")
	}
}

func TestNewS3StoreWithRetryConfig(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:   "test-bucket",
		Region:   "us-east-1",
		Endpoint: "http://localhost:9000",
		Credentials: &Credentials{
			AccessKeyID:     "AKIATEST",
			SecretAccessKey: "secret",
		},
		MaxRetries:     5,
		RetryBaseDelay: 500 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	if store == nil {
		t.Fatal("expected store")
	}
}

func TestBackoffCeiling(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		retries int
		want    time.Duration
	}{
		{"doubles per retry", 500 * time.Millisecond, 3, 4 * time.Second},
		{"caps at the maximum delay", 10 * time.Second, 10, utils.MaxRetryDelayMs * time.Millisecond},
		{"zero base uses the default", 0, 1, 2 * utils.DefaultRetryDelayMs * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoffCeiling(tt.base, tt.retries); got != tt.want {
				t.Errorf("backoffCeiling(%v, %d) = %v, want %v", tt.base, tt.retries, got, tt.want)
			}
		})
	}
}
