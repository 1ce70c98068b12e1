package httpx

import (
	"testing"
	"time"
)

func TestMemoryRateLimiterFixedWindow(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 3; i++ {
		decision := rl.Allow("ip:10.0.0.1", 3, time.Minute)
		if !decision.allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if decision := rl.Allow("ip:10.0.0.1", 3, time.Minute); decision.allowed {
		t.Fatal("fourth request should be rejected")
	}
	// Other keys are independent.
	if decision := rl.Allow("ip:10.0.0.2", 3, time.Minute); !decision.allowed {
		t.Fatal("distinct key should be allowed")
	}
}

func TestMemoryRateLimiterWindowReset(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	if decision := rl.Allow("ip:10.0.0.1", 1, 10*time.Millisecond); !decision.allowed {
		t.Fatal("first request should be allowed")
	}
	if decision := rl.Allow("ip:10.0.0.1", 1, 10*time.Millisecond); decision.allowed {
		t.Fatal("second request in window should be rejected")
	}
	time.Sleep(20 * time.Millisecond)
	if decision := rl.Allow("ip:10.0.0.1", 1, 10*time.Millisecond); !decision.allowed {
		t.Fatal("request after window reset should be allowed")
	}
}

func TestMemoryRateLimiterZeroLimitDisables(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 50; i++ {
		if decision := rl.Allow("ip:10.0.0.1", 0, time.Minute); !decision.allowed {
			t.Fatal("zero limit should disable limiting")
		}
	}
}

func TestMemoryRateLimiterCleanup(t *testing.T) {
	rl := NewMemoryRateLimiter().(*memoryRateLimiter)
	defer rl.Close()

	rl.Allow("ip:10.0.0.1", 5, 5*time.Millisecond)
	rl.Allow("ip:10.0.0.2", 5, time.Hour)
	time.Sleep(10 * time.Millisecond)
	rl.cleanup(time.Now())

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["ip:10.0.0.1"]; ok {
		t.Fatal("expired entry should be swept")
	}
	if _, ok := rl.entries["ip:10.0.0.2"]; !ok {
		t.Fatal("live entry should survive sweep")
	}
}
