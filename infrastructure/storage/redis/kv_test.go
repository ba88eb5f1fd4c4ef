package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/freight-agent/domain/kv"
)

func TestKV_prefixKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"freight:", "session:acme:u1", "freight:session:acme:u1"},
		{"", "quote:abc", "quote:abc"},
	}
	for _, tt := range tests {
		s := NewKVFromClient(nil, tt.prefix)
		if got := s.prefixKey(tt.key); got != tt.want {
			t.Errorf("prefixKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestNewKV_ConnectionFailure(t *testing.T) {
	t.Parallel()

	_, err := NewKV(DefaultConfig(),
		WithAddress("127.0.0.1:1"),
		WithTimeouts(200*time.Millisecond, 200*time.Millisecond, 200*time.Millisecond),
	)
	if !errors.Is(err, kv.ErrConnectionFailed) {
		t.Errorf("NewKV() error = %v, want ErrConnectionFailed", err)
	}
}

func TestKV_ContextChecks(t *testing.T) {
	t.Parallel()

	s := NewKVFromClient(nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v", err)
	}
	if err := s.Set(ctx, "k", nil, kv.SetOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v", err)
	}
	if _, _, err := s.TTL(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("TTL() error = %v", err)
	}
	if err := s.Set(context.Background(), "", nil, kv.SetOptions{}); !errors.Is(err, kv.ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestWrapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, kv.ErrOperationTimeout},
		{"net timeout", timeoutErr{}, kv.ErrOperationTimeout},
		{"other", errors.New("connection refused"), kv.ErrConnectionFailed},
	}
	for _, tt := range tests {
		if got := wrapError(tt.err); !errors.Is(got, tt.want) {
			t.Errorf("%s: wrapError() = %v, want %v", tt.name, got, tt.want)
		}
	}
	if wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
}
