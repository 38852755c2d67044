package ratelimit

import (
	"sync"
	"time"
)

// messageBucket, kullanıcının pencere sayacı ve cooldown bitişi.
// cooldownUntil zero value ise cooldown yok.
type messageBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time
}

// MessageRateLimiter, kullanıcı bazlı mesaj spam koruması.
//
// window içinde maxMessages mesaja izin verilir; bir fazlası cooldown başlatır
// ve cooldown bitene kadar kullanıcının tüm mesajları reddedilir.
type MessageRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*messageBucket
	maxMessages int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// NewMessageRateLimiter, maxMessages <= 0 ise limiter devre dışıdır.
func NewMessageRateLimiter(maxMessages int, window, cooldown time.Duration) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets:     make(map[string]*messageBucket),
		maxMessages: maxMessages,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go runCleanup(30*time.Second, rl.stopCleanup, rl.cleanup)

	return rl
}

func (rl *MessageRateLimiter) Allow(userID string) bool {
	if rl.maxMessages <= 0 {
		return true
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists {
		rl.buckets[userID] = &messageBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		// Cooldown bitti: yeni pencere.
		*b = messageBucket{count: 1, windowStart: now}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > rl.maxMessages {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}

	return true
}

// CooldownSeconds, kalan cooldown süresi (saniye, yukarı yuvarlanmış). Cooldown yoksa 0.
func (rl *MessageRateLimiter) CooldownSeconds(userID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := b.cooldownUntil.Sub(rl.now())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

func (rl *MessageRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// cleanup, hem penceresi hem cooldown'ı bitmiş bucket'ları siler.
func (rl *MessageRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)
		if windowExpired && cooldownExpired {
			delete(rl.buckets, userID)
		}
	}
}
