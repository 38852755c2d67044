package client

import "sync"

// UnreadTracker, takım bazlı okunmamış mesaj sayaçları.
//
// Sadece katılınmış takımlar sayılır. Aktif takımın sayacı her zaman 0'dır:
// aktif takıma gelen mesaj sayaca yansımaz, Select sayacı sıfırlar.
// Sayaçlar bellek içidir, yeniden bağlanınca sıfırdan başlar.
type UnreadTracker struct {
	mu     sync.Mutex
	active string
	joined map[string]bool
	counts map[string]int

	onChange func(teamID string, count int)
}

// NewUnreadTracker, onChange nil olabilir; sayaç değiştiğinde lock dışında çağrılır.
func NewUnreadTracker(onChange func(teamID string, count int)) *UnreadTracker {
	return &UnreadTracker{
		joined:   make(map[string]bool),
		counts:   make(map[string]int),
		onChange: onChange,
	}
}

// Join, takımı sayıma dahil eder. Mevcut sayaç korunur.
func (t *UnreadTracker) Join(teamID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.joined[teamID] = true
	if _, ok := t.counts[teamID]; !ok {
		t.counts[teamID] = 0
	}
}

// Leave, takımı sayımdan çıkarır ve sayacını siler.
func (t *UnreadTracker) Leave(teamID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.joined, teamID)
	delete(t.counts, teamID)
}

// Observe, gelen bir mesajı işler. Sayaç arttıysa yeni değeri ve true döner.
// Aktif takım veya katılınmamış takım için (0, false).
func (t *UnreadTracker) Observe(teamID string) (int, bool) {
	t.mu.Lock()
	if !t.joined[teamID] || teamID == t.active {
		t.mu.Unlock()
		return 0, false
	}
	t.counts[teamID]++
	n := t.counts[teamID]
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(teamID, n)
	}
	return n, true
}

// Select, takımı aktif yapar ve sayacını sıfırlar.
func (t *UnreadTracker) Select(teamID string) {
	t.mu.Lock()
	t.active = teamID
	prev, had := t.counts[teamID]
	if t.joined[teamID] {
		t.counts[teamID] = 0
	}
	t.mu.Unlock()

	if had && prev != 0 && t.onChange != nil {
		t.onChange(teamID, 0)
	}
}

func (t *UnreadTracker) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *UnreadTracker) Count(teamID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[teamID]
}

// Counts, sayaçların kopyası.
func (t *UnreadTracker) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}
