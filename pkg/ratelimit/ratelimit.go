// Package ratelimit, in-memory rate limiter'lar.
//
// ConnectRateLimiter IP bazlı WebSocket handshake sınırı, MessageRateLimiter
// kullanıcı bazlı mesaj spam koruması. Paket proje içi hiçbir pakete bağımlı değildir.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	count       int
	windowStart time.Time
}

// ConnectRateLimiter, IP başına window içinde en fazla maxAttempts bağlantı denemesine izin verir.
//
//	limiter := NewConnectRateLimiter(20, time.Minute)
//	if !limiter.Allow(ratelimit.ExtractIP(r)) { return 429 }
type ConnectRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// NewConnectRateLimiter, maxAttempts <= 0 ise limiter her isteğe izin verir.
func NewConnectRateLimiter(maxAttempts int, window time.Duration) *ConnectRateLimiter {
	rl := &ConnectRateLimiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go runCleanup(time.Minute, rl.stopCleanup, rl.cleanup)

	return rl
}

func (rl *ConnectRateLimiter) Allow(ip string) bool {
	if rl.maxAttempts <= 0 {
		return true
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[ip]
	if !exists || now.Sub(b.windowStart) > rl.window {
		rl.buckets[ip] = &bucket{count: 1, windowStart: now}
		return true
	}

	b.count++
	return b.count <= rl.maxAttempts
}

// RetryAfterSeconds, Retry-After header değeri. Bucket yoksa 0.
func (rl *ConnectRateLimiter) RetryAfterSeconds(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[ip]
	if !exists {
		return 0
	}

	remaining := rl.window - rl.now().Sub(b.windowStart)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

func (rl *ConnectRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *ConnectRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window {
			delete(rl.buckets, ip)
		}
	}
}

func runCleanup(interval time.Duration, stop <-chan struct{}, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-stop:
			return
		}
	}
}

// ExtractIP, request'ten client IP'sini çıkarır.
// Öncelik: X-Forwarded-For (ilk değer), X-Real-IP, RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
