package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hydrachess/backend/internal/game"
	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
)

type fakeRouter struct {
	current string
	unbound []string
	sent    []string
}

func (f *fakeRouter) Bind(ctx context.Context, userID int64, sessionID string) error { return nil }

func (f *fakeRouter) Unbind(ctx context.Context, userID int64, sessionID string) error {
	f.unbound = append(f.unbound, sessionID)
	return nil
}

func (f *fakeRouter) CurrentSession(ctx context.Context, userID int64) string { return f.current }

func (f *fakeRouter) ToSession(sessionID, event string, data interface{}) {
	f.sent = append(f.sent, event)
}

type fakeGatewayStore struct {
	users map[int64]*models.User
	games map[int64]*models.Game
}

func (f *fakeGatewayStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeGatewayStore) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return g, nil
}

type submittedJob struct {
	class tasks.Class
	name  string
}

// recordingQueue captures submissions without running them.
type recordingQueue struct {
	jobs []submittedJob
}

func (q *recordingQueue) Submit(class tasks.Class, name string, run func(context.Context) error) {
	q.jobs = append(q.jobs, submittedJob{class: class, name: name})
}

func (q *recordingQueue) has(class tasks.Class, name string) bool {
	for _, j := range q.jobs {
		if j.class == class && j.name == name {
			return true
		}
	}
	return false
}

func newTestGateway(fr *fakeRouter, fs *fakeGatewayStore, rq *recordingQueue) *Gateway {
	return NewGateway(NewHub(), game.NewEngine(nil, nil, nil, nil, nil), fr, fs, rq, "test-secret")
}

func TestCloseLobbyCancelsSearch(t *testing.T) {
	fr := &fakeRouter{current: "s1"}
	fs := &fakeGatewayStore{users: map[int64]*models.User{
		1: {ID: 1, Login: "alice", InSearch: true},
	}}
	rq := &recordingQueue{}
	gw := newTestGateway(fr, fs, rq)

	gw.onClose(&Client{sessionID: "s1", userID: 1})

	if len(fr.unbound) != 1 || fr.unbound[0] != "s1" {
		t.Fatalf("session not unbound: %v", fr.unbound)
	}
	if !rq.has(tasks.Search, "cancel_search") {
		t.Fatalf("searching user's lobby close must leave the queue, jobs: %v", rq.jobs)
	}
}

func TestCloseLobbyNotSearching(t *testing.T) {
	fr := &fakeRouter{current: "s1"}
	fs := &fakeGatewayStore{users: map[int64]*models.User{
		1: {ID: 1, Login: "alice"},
	}}
	rq := &recordingQueue{}
	gw := newTestGateway(fr, fs, rq)

	gw.onClose(&Client{sessionID: "s1", userID: 1})

	if len(rq.jobs) != 0 {
		t.Fatalf("idle lobby close submitted work: %v", rq.jobs)
	}
}

func TestCloseStaleSessionIgnored(t *testing.T) {
	fr := &fakeRouter{current: "s2"}
	fs := &fakeGatewayStore{users: map[int64]*models.User{
		1: {ID: 1, Login: "alice", InSearch: true},
	}}
	rq := &recordingQueue{}
	gw := newTestGateway(fr, fs, rq)

	gw.onClose(&Client{sessionID: "s1", userID: 1})

	if len(fr.unbound) != 0 {
		t.Fatalf("stale session must not unbind the newer one")
	}
	if len(rq.jobs) != 0 {
		t.Fatalf("stale session close submitted work: %v", rq.jobs)
	}
}

func TestClosePlayerArmsDisconnect(t *testing.T) {
	fr := &fakeRouter{current: "s1"}
	fs := &fakeGatewayStore{}
	rq := &recordingQueue{}
	gw := newTestGateway(fr, fs, rq)

	gw.onClose(&Client{sessionID: "s1", userID: 1, gameID: 7, player: true})

	if !rq.has(tasks.Low, "on_disconnect") {
		t.Fatalf("player close must arm the disconnect timeout, jobs: %v", rq.jobs)
	}
	if rq.has(tasks.Search, "cancel_search") {
		t.Fatalf("game close must not touch the search queue")
	}
}

func TestHandleMessageDropsInvalidSilently(t *testing.T) {
	fr := &fakeRouter{}
	fs := &fakeGatewayStore{}
	rq := &recordingQueue{}
	gw := newTestGateway(fr, fs, rq)

	c := &Client{sessionID: "s1", userID: 1, gameID: 7, player: true, send: make(chan []byte, 4)}

	gw.handleMessage(c, Message{Type: "make_move", Data: json.RawMessage(`{"san":""}`)})
	gw.handleMessage(c, Message{Type: "make_move", Data: json.RawMessage(`not json`)})
	gw.handleMessage(c, Message{Type: "search_game", Data: json.RawMessage(`{"minutes":7}`)})
	gw.handleMessage(c, Message{Type: "bogus"})

	if len(rq.jobs) != 0 {
		t.Fatalf("invalid frames submitted work: %v", rq.jobs)
	}
	if len(c.send) != 0 {
		t.Fatalf("invalid frames must not be answered on the socket")
	}
}

func TestHandleMessageSpectatorCannotPlay(t *testing.T) {
	fr := &fakeRouter{}
	fs := &fakeGatewayStore{}
	rq := &recordingQueue{}
	gw := newTestGateway(fr, fs, rq)

	c := &Client{sessionID: "s1", userID: 3, gameID: 7, send: make(chan []byte, 4)}

	gw.handleMessage(c, Message{Type: "make_move", Data: json.RawMessage(`{"san":"e4"}`)})
	gw.handleMessage(c, Message{Type: "resign"})
	gw.handleMessage(c, Message{Type: "accept_draw_offer"})

	if len(rq.jobs) != 0 {
		t.Fatalf("spectator frames submitted work: %v", rq.jobs)
	}
	if len(c.send) != 0 {
		t.Fatalf("spectator frames must not be answered on the socket")
	}
}

func TestHandleMessageDispatch(t *testing.T) {
	fr := &fakeRouter{}
	fs := &fakeGatewayStore{}
	rq := &recordingQueue{}
	gw := newTestGateway(fr, fs, rq)

	c := &Client{sessionID: "s1", userID: 1, gameID: 7, player: true, send: make(chan []byte, 4)}

	gw.handleMessage(c, Message{Type: "search_game", Data: json.RawMessage(`{"minutes":5}`)})
	gw.handleMessage(c, Message{Type: "make_move", Data: json.RawMessage(`{"san":"e4"}`)})
	gw.handleMessage(c, Message{Type: "make_draw_offer"})

	want := []submittedJob{
		{tasks.Search, "search_game"},
		{tasks.High, "make_move"},
		{tasks.Low, "make_draw_offer"},
	}
	if len(rq.jobs) != len(want) {
		t.Fatalf("jobs = %v, want %v", rq.jobs, want)
	}
	for i, j := range want {
		if rq.jobs[i] != j {
			t.Fatalf("job %d = %v, want %v", i, rq.jobs[i], j)
		}
	}
}
