package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

// fakeSubscriber, Hub testleri için bellek içi session.
type fakeSubscriber struct {
	id string

	mu     sync.Mutex
	frames []sentFrame
	full   bool
	closed bool
}

type sentFrame struct {
	teamID  string
	joinGen uint64
	event   decodedEvent
}

type decodedEvent struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
	Seq  int64           `json:"seq"`
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (f *fakeSubscriber) SessionID() string { return f.id }

func (f *fakeSubscriber) Deliver(fr Frame) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return true
	}
	if f.full {
		return false
	}

	var ev decodedEvent
	if err := json.Unmarshal(fr.Data, &ev); err != nil {
		panic(err)
	}
	f.frames = append(f.frames, sentFrame{teamID: fr.TeamID, joinGen: fr.JoinGen, event: ev})
	return true
}

func (f *fakeSubscriber) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSubscriber) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSubscriber) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.frames))
	for i, fr := range f.frames {
		out[i] = fr.event.Op
	}
	return out
}

func (f *fakeSubscriber) count(op string) int {
	n := 0
	for _, o := range f.ops() {
		if o == op {
			n++
		}
	}
	return n
}

func registered(t *testing.T, h *Hub, ids ...string) []*fakeSubscriber {
	t.Helper()
	subs := make([]*fakeSubscriber, len(ids))
	for i, id := range ids {
		subs[i] = newFakeSubscriber(id)
		if !h.Register(subs[i]) {
			t.Fatalf("Register(%s) = false", id)
		}
	}
	return subs
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	h := NewHub()
	s := registered(t, h, "a")[0]

	if !h.Join("ops", s) {
		t.Fatal("first Join() = false, want true")
	}
	if h.Join("ops", s) {
		t.Error("second Join() = true, want false")
	}
	if got := h.TeamSize("ops"); got != 1 {
		t.Errorf("TeamSize(ops) = %d, want 1", got)
	}

	h.BroadcastToTeam("ops", Event{Op: OpReceiveMessage})
	if got := s.count(OpReceiveMessage); got != 1 {
		t.Errorf("delivered %d times, want 1", got)
	}
}

func TestHub_JoinRequiresRegistration(t *testing.T) {
	h := NewHub()
	s := newFakeSubscriber("ghost")

	if h.Join("ops", s) {
		t.Error("Join() for unregistered session = true")
	}
	if h.TeamSize("ops") != 0 {
		t.Error("unregistered session created a room")
	}
}

func TestHub_BroadcastDeliversExactlyOnceToEveryMember(t *testing.T) {
	h := NewHub()
	subs := registered(t, h, "a", "b", "c")
	h.Join("ops", subs[0])
	h.Join("ops", subs[1])
	h.Join("sales", subs[2])

	h.BroadcastToTeam("ops", Event{Op: OpReceiveMessage, Data: map[string]string{"message": "hello"}})

	for i, want := range []int{1, 1, 0} {
		if got := subs[i].count(OpReceiveMessage); got != want {
			t.Errorf("session %s received %d, want %d", subs[i].id, got, want)
		}
	}
	if subs[0].frames[0].teamID != "ops" {
		t.Errorf("frame teamID = %q, want ops", subs[0].frames[0].teamID)
	}
}

func TestHub_BroadcastExceptSkipsOrigin(t *testing.T) {
	h := NewHub()
	subs := registered(t, h, "a", "b")
	h.Join("ops", subs[0])
	h.Join("ops", subs[1])

	h.BroadcastToTeamExcept("ops", "a", Event{Op: OpTyping})

	if subs[0].count(OpTyping) != 0 {
		t.Error("origin session received its own typing notice")
	}
	if subs[1].count(OpTyping) != 1 {
		t.Error("other session did not receive typing notice")
	}
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	h := NewHub()
	s := registered(t, h, "a")[0]
	h.Join("ops", s)

	if !h.Leave("ops", s) {
		t.Fatal("Leave() = false, want true")
	}
	if h.Leave("ops", s) {
		t.Error("second Leave() = true, want false")
	}

	h.BroadcastToTeam("ops", Event{Op: OpReceiveMessage})
	if s.count(OpReceiveMessage) != 0 {
		t.Error("session received broadcast after Leave")
	}
	if h.TeamSize("ops") != 0 {
		t.Error("empty room was not dropped")
	}
}

func TestHub_LeaveAllCleansUp(t *testing.T) {
	h := NewHub()
	subs := registered(t, h, "a", "b")
	for _, team := range []string{"ops", "sales", "dev"} {
		h.Join(team, subs[0])
	}
	h.Join("ops", subs[1])

	left := h.LeaveAll(subs[0])
	if len(left) != 3 {
		t.Errorf("LeaveAll() left %d rooms, want 3", len(left))
	}
	if !subs[0].isClosed() {
		t.Error("LeaveAll() did not close the session")
	}
	if got := h.JoinedTeams(subs[0]); len(got) != 0 {
		t.Errorf("JoinedTeams() after LeaveAll = %v", got)
	}

	for _, team := range []string{"ops", "sales", "dev"} {
		h.BroadcastToTeam(team, Event{Op: OpReceiveMessage})
	}
	if subs[0].count(OpReceiveMessage) != 0 {
		t.Error("closed session received a broadcast")
	}
	if subs[1].count(OpReceiveMessage) != 1 {
		t.Error("remaining member missed the broadcast")
	}
	if h.TeamSize("sales") != 0 || h.TeamSize("ops") != 1 {
		t.Errorf("room sizes after LeaveAll: sales=%d ops=%d", h.TeamSize("sales"), h.TeamSize("ops"))
	}

	if left := h.LeaveAll(subs[0]); left != nil {
		t.Errorf("second LeaveAll() = %v, want nil", left)
	}
	if h.Join("ops", subs[0]) {
		t.Error("Join() after LeaveAll = true")
	}
}

func TestHub_SlowSubscriberIsEvicted(t *testing.T) {
	h := NewHub()
	subs := registered(t, h, "slow", "fast")
	h.Join("ops", subs[0])
	h.Join("ops", subs[1])

	subs[0].mu.Lock()
	subs[0].full = true
	subs[0].mu.Unlock()

	h.BroadcastToTeam("ops", Event{Op: OpReceiveMessage})

	if h.IsJoined("ops", subs[0]) {
		t.Error("slow session still joined")
	}
	if !subs[0].isClosed() {
		t.Error("slow session not closed")
	}
	if subs[1].count(OpReceiveMessage) != 1 {
		t.Error("fast session missed the broadcast")
	}
}

func TestHub_SeqIncreases(t *testing.T) {
	h := NewHub()
	s := registered(t, h, "a")[0]
	h.Join("ops", s)

	for i := 0; i < 5; i++ {
		h.BroadcastToTeam("ops", Event{Op: OpReceiveMessage})
	}

	var last int64
	for _, fr := range s.frames {
		if fr.event.Seq <= last {
			t.Fatalf("seq %d after %d", fr.event.Seq, last)
		}
		last = fr.event.Seq
	}
}

func TestHub_ShutdownClosesSessions(t *testing.T) {
	h := NewHub()
	subs := registered(t, h, "a", "b")
	h.Join("ops", subs[0])

	h.Shutdown()

	for _, s := range subs {
		if !s.isClosed() {
			t.Errorf("session %s not closed", s.id)
		}
	}
	if h.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0", h.SessionCount())
	}
	if h.Register(newFakeSubscriber("late")) {
		t.Error("Register() after Shutdown = true")
	}
}

func TestHub_ConcurrentJoinLeaveBroadcast(t *testing.T) {
	h := NewHub()
	subs := make([]*fakeSubscriber, 20)
	for i := range subs {
		subs[i] = newFakeSubscriber(fmt.Sprintf("s%d", i))
		h.Register(subs[i])
	}

	var wg sync.WaitGroup
	for i, s := range subs {
		wg.Add(1)
		go func(i int, s *fakeSubscriber) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Join("ops", s)
				h.BroadcastToTeam("ops", Event{Op: OpReceiveMessage})
				if j%3 == 0 {
					h.Leave("ops", s)
				}
			}
			if i%2 == 0 {
				h.LeaveAll(s)
			}
		}(i, s)
	}
	wg.Wait()

	for i, s := range subs {
		joined := h.IsJoined("ops", s)
		if i%2 == 0 && joined {
			t.Errorf("session %s joined after LeaveAll", s.id)
		}
	}
}

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateConnected, "connected"},
		{StateActive, "active"},
		{StateClosed, "closed"},
		{SessionState(9), "SessionState(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestHub_SeqOrderedPerSessionUnderConcurrency(t *testing.T) {
	h := NewHub()
	s := registered(t, h, "a")[0]
	h.Join("a", s)
	h.Join("b", s)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			team := []string{"a", "b"}[g%2]
			for i := 0; i < 500; i++ {
				switch i % 3 {
				case 0:
					h.BroadcastToTeam(team, Event{Op: OpReceiveMessage})
				case 1:
					h.BroadcastToTeamExcept(team, "other", Event{Op: OpTyping})
				default:
					h.SendToSession(s, "", Event{Op: OpHeartbeatAck})
				}
			}
		}(g)
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) != 8*500 {
		t.Fatalf("frames = %d, want %d", len(s.frames), 8*500)
	}
	var last int64
	for i, fr := range s.frames {
		if fr.event.Seq <= last {
			t.Fatalf("frame %d: seq %d after %d", i, fr.event.Seq, last)
		}
		last = fr.event.Seq
	}
}

func TestHub_RejoinStartsNewJoinGeneration(t *testing.T) {
	h := NewHub()
	s := registered(t, h, "a")[0]

	h.Join("ops", s)
	h.BroadcastToTeam("ops", Event{Op: OpReceiveMessage})
	h.Leave("ops", s)
	h.Join("ops", s)
	h.SendToSession(s, "ops", Event{Op: OpHistory})

	if len(s.frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(s.frames))
	}
	before, after := s.frames[0].joinGen, s.frames[1].joinGen
	if before == 0 || after == 0 || before == after {
		t.Errorf("join generations = %d, %d, want two distinct non-zero values", before, after)
	}
	if gen, ok := h.currentJoin("ops", s); !ok || gen != after {
		t.Errorf("currentJoin() = %d, %v, want %d, true", gen, ok, after)
	}
}

func TestHub_SendToSessionSkipsTeamNotJoined(t *testing.T) {
	h := NewHub()
	s := registered(t, h, "a")[0]

	h.SendToSession(s, "ops", Event{Op: OpHistory})
	h.SendToSession(s, "", Event{Op: OpHeartbeatAck})

	if got := s.ops(); len(got) != 1 || got[0] != OpHeartbeatAck {
		t.Errorf("ops = %v, want [%s]", got, OpHeartbeatAck)
	}
}
