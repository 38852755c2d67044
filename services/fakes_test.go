package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/ws"
)

// fakeMessageRepo, bellek içi MessageRepository. failCreate/failList set edilirse
// ilgili çağrı hata döner.
type fakeMessageRepo struct {
	mu         sync.Mutex
	messages   []models.Message
	nextID     int64
	failCreate error
	failList   error
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	msg.ID = r.nextID
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTeam(ctx context.Context, teamID string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failList != nil {
		return nil, r.failList
	}
	var out []models.Message
	for _, m := range r.messages {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) setFailCreate(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate = err
}

// fakeTeamRepo, takım → üye seti.
type fakeTeamRepo struct {
	mu      sync.Mutex
	members map[string]map[string]bool
	calls   int
	fail    error
}

func newFakeTeamRepo(memberships map[string][]string) *fakeTeamRepo {
	r := &fakeTeamRepo{members: make(map[string]map[string]bool)}
	for team, users := range memberships {
		r.members[team] = make(map[string]bool)
		for _, u := range users {
			r.members[team][u] = true
		}
	}
	return r
}

func (r *fakeTeamRepo) GetUserTeamIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.fail != nil {
		return nil, r.fail
	}
	teams := []string{}
	for team, users := range r.members {
		if users[userID] {
			teams = append(teams, team)
		}
	}
	sort.Strings(teams)
	return teams, nil
}

func (r *fakeTeamRepo) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[teamID][userID], nil
}

func (r *fakeTeamRepo) ReplaceMembers(ctx context.Context, teamID string, userIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return r.fail
	}
	r.members[teamID] = make(map[string]bool)
	for _, u := range userIDs {
		r.members[teamID][u] = true
	}
	return nil
}

func (r *fakeTeamRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var errDiskFull = errors.New("disk full")

// fakeSession, ws.Subscriber'ın bellek içi hali.
type fakeSession struct {
	id string

	mu     sync.Mutex
	events []frameEvent
	closed bool
}

type frameEvent struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
	Seq  int64           `json:"seq"`
}

func (f *fakeSession) SessionID() string { return f.id }

func (f *fakeSession) Deliver(fr ws.Frame) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return true
	}
	var ev frameEvent
	if err := json.Unmarshal(fr.Data, &ev); err != nil {
		panic(err)
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeSession) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSession) byOp(op string) []frameEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []frameEvent
	for _, ev := range f.events {
		if ev.Op == op {
			out = append(out, ev)
		}
	}
	return out
}

// fakeLimiter, allow false ise her isteği reddeder.
type fakeLimiter struct{ allow bool }

func (l *fakeLimiter) Allow(string) bool         { return l.allow }
func (l *fakeLimiter) CooldownSeconds(string) int { return 7 }
