package client

import (
	"sort"
	"sync"
	"time"
)

// DefaultTypingWindow, server ready event'inde başka bir değer bildirmezse kullanılır.
const DefaultTypingWindow = 2 * time.Second

// Timer, Scheduler'ın döndürdüğü iptal edilebilir zamanlayıcı. *time.Timer karşılar.
type Timer interface {
	Stop() bool
}

// Scheduler, gecikmeli fonksiyon çalıştırıcı. Testlerde sahte saat kullanılır.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// typingKey, kullanıcı id'si ile anahtarlanır: aynı görünen ada sahip iki
// kullanıcı birbirinin göstergesini ezmez.
type typingKey struct {
	teamID string
	userID string
}

type typingEntry struct {
	user  string // görünen ad
	timer Timer
	gen   uint64
}

// TypingTracker, "yazıyor" göstergeleri.
//
// Server typing event'ini saklamaz; gösterge tamamen client tarafında,
// zamanlayıcı ile yaşar. Her (takım, kullanıcı) için tek bir zamanlayıcı vardır. Süre dolmadan
// gelen yeni bildirim zamanlayıcıyı yeniden başlatır; süre dolunca gösterge
// kalkar. gen, durdurulamadan tetiklenmiş eski zamanlayıcıları ayırt eder.
type TypingTracker struct {
	mu       sync.Mutex
	self     string // kendi user id'miz
	window   time.Duration
	sched    Scheduler
	entries  map[typingKey]*typingEntry
	gen      uint64
	stopped  bool
	onChange func(teamID, user string, typing bool)
}

// NewTypingTracker, selfID kullanıcısının kendi bildirimleri yok sayılır.
// sched nil ise gerçek zaman kullanılır; window <= 0 ise DefaultTypingWindow.
func NewTypingTracker(selfID string, window time.Duration, sched Scheduler, onChange func(teamID, user string, typing bool)) *TypingTracker {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	if sched == nil {
		sched = realScheduler{}
	}
	return &TypingTracker{
		self:     selfID,
		window:   window,
		sched:    sched,
		entries:  make(map[typingKey]*typingEntry),
		onChange: onChange,
	}
}

// Observe, gelen typing bildirimini işler. userID boşsa (eski server'lar)
// görünen ad anahtar olarak kullanılır.
func (t *TypingTracker) Observe(teamID, userID, user string) {
	if user == "" {
		return
	}
	if userID == "" {
		userID = user
	}
	if userID == t.self {
		return
	}
	key := typingKey{teamID: teamID, userID: userID}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	e, exists := t.entries[key]
	if exists {
		e.timer.Stop()
	} else {
		e = &typingEntry{}
		t.entries[key] = e
	}
	t.gen++
	gen := t.gen
	e.gen = gen
	e.user = user
	e.timer = t.sched.AfterFunc(t.window, func() { t.expire(key, gen) })
	t.mu.Unlock()

	if !exists && t.onChange != nil {
		t.onChange(teamID, user, true)
	}
}

// Clear, göstergeyi süre dolmadan kaldırır (ör. kullanıcının mesajı geldiğinde).
func (t *TypingTracker) Clear(teamID, userID string) {
	key := typingKey{teamID: teamID, userID: userID}

	t.mu.Lock()
	e, ok := t.entries[key]
	if ok {
		e.timer.Stop()
		delete(t.entries, key)
	}
	t.mu.Unlock()

	if ok && t.onChange != nil {
		t.onChange(teamID, e.user, false)
	}
}

func (t *TypingTracker) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.entries, key)
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(key.teamID, e.user, false)
	}
}

// Typing, takımda şu an yazan kullanıcılar (alfabetik).
func (t *TypingTracker) Typing(teamID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var users []string
	for key, e := range t.entries {
		if key.teamID == teamID {
			users = append(users, e.user)
		}
	}
	sort.Strings(users)
	return users
}

// Stop, bütün zamanlayıcıları durdurur. Sonraki bildirimler yok sayılır.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	for key, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, key)
	}
}
