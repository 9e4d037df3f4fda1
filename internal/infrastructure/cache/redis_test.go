package cache

import (
	"testing"
	"time"
)

func TestRateLimitWindow(t *testing.T) {
	now := time.Unix(1_700_000_030, 0)

	key, reset := rateLimitWindow("ip:10.0.0.1", now, time.Minute)
	if want := "ratelimit:ip:10.0.0.1:28333333"; key != want {
		t.Errorf("key = %q, want %q", key, want)
	}
	if want := time.Unix(1_700_000_040, 0); !reset.Equal(want) {
		t.Errorf("reset = %v, want %v", reset, want)
	}

	same, _ := rateLimitWindow("ip:10.0.0.1", now.Add(9*time.Second), time.Minute)
	next, _ := rateLimitWindow("ip:10.0.0.1", now.Add(10*time.Second), time.Minute)
	if same != key {
		t.Error("request inside the window got a new counter")
	}
	if next == key {
		t.Error("request after the window reused the old counter")
	}
}

func TestRateLimitWindowSubSecond(t *testing.T) {
	now := time.Unix(100, 0)
	key, reset := rateLimitWindow("k", now, 10*time.Millisecond)
	if key != "ratelimit:k:100" || !reset.Equal(time.Unix(101, 0)) {
		t.Fatalf("got (%q, %v)", key, reset)
	}
}
