package ws

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kiliankoe/partyhouse/assets"
	"github.com/kiliankoe/partyhouse/internal/auth"
	"github.com/kiliankoe/partyhouse/internal/config"
	"github.com/kiliankoe/partyhouse/internal/game"
	"github.com/kiliankoe/partyhouse/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type emitted struct {
	event string
	data  any
}

type fakeConn struct {
	id     string
	rooms  []string
	events []emitted
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(event string, v ...interface{}) {
	var data any
	if len(v) > 0 {
		data = v[0]
	}
	c.events = append(c.events, emitted{event: event, data: data})
}

func (c *fakeConn) Join(room string) { c.rooms = append(c.rooms, room) }

func (c *fakeConn) last(event string) (emitted, bool) {
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].event == event {
			return c.events[i], true
		}
	}
	return emitted{}, false
}

type roomEvent struct {
	room  string
	event string
}

type fakeIO struct {
	sent []roomEvent
}

func (f *fakeIO) BroadcastToRoom(_, room, event string, _ ...interface{}) bool {
	f.sent = append(f.sent, roomEvent{room: room, event: event})
	return true
}

func (f *fakeIO) has(room, event string) bool {
	for _, e := range f.sent {
		if e.room == room && e.event == event {
			return true
		}
	}
	return false
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *fakeIO) {
	t.Helper()
	catalog, err := assets.Catalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	rm := game.NewRoomManager(catalog)
	srv := New(rm, cfg, metrics.New("test", nil), nil)
	io := &fakeIO{}
	srv.io = io
	return srv, io
}

func connect(srv *Server, id string) *fakeConn {
	c := &fakeConn{id: id}
	srv.addConn(c)
	return c
}

func errorCode(t *testing.T, c *fakeConn) string {
	t.Helper()
	e, ok := c.last("error")
	if !ok {
		t.Fatal("expected an error event")
	}
	return e.data.(map[string]any)["code"].(string)
}

func TestCreateRoom(t *testing.T) {
	srv, io := newTestServer(t, config.Config{})
	a := connect(srv, "A")

	res := srv.createRoom(a, createRoomReq{RoomID: "R1", PlayerName: "Alice"})
	if res["roomId"] != "R1" {
		t.Fatalf("unexpected ack %v", res)
	}
	if len(a.rooms) != 1 || a.rooms[0] != "R1" {
		t.Fatalf("socket should join R1, got %v", a.rooms)
	}
	e, ok := a.last(game.EventRoomCreated)
	if !ok {
		t.Fatal("expected roomCreated")
	}
	if hand := e.data.(map[string]any)["hand"]; hand == nil {
		t.Fatal("roomCreated should carry the starter deck")
	}
	if !io.has("R1", game.EventUpdatePlayers) {
		t.Fatal("expected updatePlayers broadcast")
	}
	if v := testutil.ToFloat64(srv.metrics.ActiveRooms); v != 1 {
		t.Fatalf("expected 1 active room, got %v", v)
	}

	b := connect(srv, "B")
	srv.createRoom(b, createRoomReq{RoomID: "R1"})
	if code := errorCode(t, b); code != "room_exists" {
		t.Fatalf("expected room_exists, got %s", code)
	}
}

func TestValidation(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})
	a := connect(srv, "A")

	res := srv.joinRoom(a, joinRoomReq{RoomID: ""})
	if res["error"] == nil {
		t.Fatal("expected error ack")
	}
	if code := errorCode(t, a); code != "bad_request" {
		t.Fatalf("expected bad_request, got %s", code)
	}
	srv.buyCard(a, buyReq{RoomID: "R1"})
	if code := errorCode(t, a); code != "bad_request" {
		t.Fatalf("expected bad_request for missing card name, got %s", code)
	}
	srv.playerReady(a, roomReq{RoomID: "nope"})
	if code := errorCode(t, a); code != "room_not_found" {
		t.Fatalf("expected room_not_found, got %s", code)
	}
}

func TestReadyStartsGameAndRoutesNotifications(t *testing.T) {
	srv, io := newTestServer(t, config.Config{})
	a := connect(srv, "A")
	b := connect(srv, "B")
	srv.joinRoom(a, joinRoomReq{RoomID: "R1", Name: "Alice"})
	srv.joinRoom(b, joinRoomReq{RoomID: "R1", Name: "Bob"})

	srv.playerReady(a, roomReq{RoomID: "R1"})
	srv.playerReady(b, roomReq{RoomID: "R1"})

	if !io.has("R1", game.EventStartGame) {
		t.Fatal("expected startGame broadcast")
	}
	if _, ok := a.last(game.EventYourTurn); !ok {
		t.Fatal("A opens the game and should get yourTurn")
	}
	if _, ok := b.last(game.EventYourTurn); ok {
		t.Fatal("B should not get yourTurn yet")
	}

	srv.passTurn(b, "passTurn", roomReq{RoomID: "R1"})
	if code := errorCode(t, b); code != "not_your_turn" {
		t.Fatalf("expected not_your_turn, got %s", code)
	}

	res := srv.passTurn(a, "nextPlayer", roomReq{RoomID: "R1"})
	if res["ok"] != true {
		t.Fatalf("unexpected ack %v", res)
	}
	if _, ok := b.last(game.EventYourTurn); !ok {
		t.Fatal("B should be up after A passes")
	}
	if _, ok := a.last(game.EventPartyResults); !ok {
		t.Fatal("A should get their party results")
	}
}

func TestManualActionGuard(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})
	a := connect(srv, "A")
	srv.joinRoom(a, joinRoomReq{RoomID: "R1"})
	srv.playerReady(a, roomReq{RoomID: "R1"})

	r, err := srv.RM.Get("R1")
	if err != nil {
		t.Fatal(err)
	}
	release, err := r.TryLockManualAction("A")
	if err != nil {
		t.Fatal(err)
	}
	srv.inviteGuest(a, "inviteGuest", inviteReq{RoomID: "R1"})
	if code := errorCode(t, a); code != "action_in_flight" {
		t.Fatalf("expected action_in_flight, got %s", code)
	}

	// auto draws skip the guard
	before := len(a.events)
	srv.inviteGuest(a, "drawCard", inviteReq{RoomID: "R1", IsAuto: true})
	if e := a.events[len(a.events)-1]; len(a.events) > before && e.event == "error" {
		t.Fatalf("auto draw should not be rejected, got %v", e.data)
	}
	release()

	srv.inviteGuest(a, "inviteGuest", inviteReq{RoomID: "R1"})
	if e := a.events[len(a.events)-1]; e.event == "error" && e.data.(map[string]any)["code"] == "action_in_flight" {
		t.Fatal("guard should be free after release")
	}
}

func TestDisconnectClosesRoom(t *testing.T) {
	srv, io := newTestServer(t, config.Config{})
	a := connect(srv, "A")
	b := connect(srv, "B")
	srv.metrics.IncOnlinePlayers()
	srv.metrics.IncOnlinePlayers()
	srv.joinRoom(a, joinRoomReq{RoomID: "R1"})
	srv.joinRoom(b, joinRoomReq{RoomID: "R1"})

	io.sent = nil
	srv.disconnect("B")
	if !io.has("R1", game.EventUpdatePlayers) {
		t.Fatal("remaining players should see updatePlayers")
	}
	if srv.RM.Count() != 1 {
		t.Fatal("room should survive while A is there")
	}

	srv.disconnect("A")
	if srv.RM.Count() != 0 {
		t.Fatal("empty room should be deleted")
	}
	if v := testutil.ToFloat64(srv.metrics.ActiveRooms); v != 0 {
		t.Fatalf("expected 0 active rooms, got %v", v)
	}
	if v := testutil.ToFloat64(srv.metrics.OnlinePlayers); v != 0 {
		t.Fatalf("expected 0 online players, got %v", v)
	}
	srv.emitTo("A", "anything", nil)
	if len(a.events) > 0 && a.events[len(a.events)-1].event == "anything" {
		t.Fatal("disconnected socket should not receive events")
	}
}

func TestSettledPartiesAreExported(t *testing.T) {
	file := filepath.Join(t.TempDir(), "results.txt")
	srv, _ := newTestServer(t, config.Config{ExportEnabled: true, ExportFile: file})
	a := connect(srv, "A")
	srv.joinRoom(a, joinRoomReq{RoomID: "R1", Name: "Alice"})
	srv.playerReady(a, roomReq{RoomID: "R1"})
	srv.endParty(a, "endParty", endPartyReq{RoomID: "R1"})

	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(raw), "Alice") || !strings.Contains(string(raw), "manual_end") {
		t.Fatalf("unexpected export:\n%s", raw)
	}
	if v := testutil.ToFloat64(srv.metrics.Parties.WithLabelValues("manual_end")); v != 1 {
		t.Fatalf("expected 1 manual_end party, got %v", v)
	}
}

type fakeHandshake struct {
	rawURL string
	header http.Header
}

func (h fakeHandshake) URL() url.URL {
	u, _ := url.Parse(h.rawURL)
	return *u
}

func (h fakeHandshake) RemoteHeader() http.Header {
	if h.header == nil {
		return http.Header{}
	}
	return h.header
}

func TestAuthorize(t *testing.T) {
	issuer := auth.NewIssuer("s3cret", time.Hour)
	good, err := issuer.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	forged, err := auth.NewIssuer("other", time.Hour).Issue("mallory")
	if err != nil {
		t.Fatal(err)
	}

	srv, _ := newTestServer(t, config.Config{JWTSecret: "s3cret"})
	srv.auth = issuer

	tests := []struct {
		name    string
		h       fakeHandshake
		user    string
		wantErr error
	}{
		{"query token", fakeHandshake{rawURL: "/socket.io/?EIO=3&token=" + good}, "alice", nil},
		{"bearer header", fakeHandshake{rawURL: "/socket.io/?EIO=3", header: http.Header{"Authorization": {"Bearer " + good}}}, "alice", nil},
		{"missing token", fakeHandshake{rawURL: "/socket.io/?EIO=3"}, "", auth.ErrMissingToken},
		{"bad signature", fakeHandshake{rawURL: "/socket.io/?token=" + forged}, "", auth.ErrInvalidToken},
		{"bad bearer", fakeHandshake{rawURL: "/socket.io/", header: http.Header{"Authorization": {"Bearer " + forged}}}, "", auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := srv.authorize(tt.h)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user != tt.user {
				t.Fatalf("expected user %q, got %q", tt.user, user)
			}
		})
	}
}

func TestAuthorizeWithoutSecret(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})
	user, err := srv.authorize(fakeHandshake{rawURL: "/socket.io/"})
	if err != nil || user != "" {
		t.Fatalf("anonymous connect should pass, got %q %v", user, err)
	}

	srv.config.JWTSecret = "s3cret"
	if _, err := srv.authorize(fakeHandshake{rawURL: "/socket.io/"}); err == nil {
		t.Fatal("auth without an issuer must reject")
	}
}

func TestMarketUnavailableCode(t *testing.T) {
	catalog, err := assets.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	rm := game.NewRoomManager(catalog, game.WithSettings(game.Settings{HouseCapacity: 5, MarketSize: 60, MinPlayers: 1}))
	srv := New(rm, config.Config{}, metrics.New("test", nil), nil)
	srv.io = &fakeIO{}
	a := connect(srv, "A")
	srv.joinRoom(a, joinRoomReq{RoomID: "R1"})
	srv.playerReady(a, roomReq{RoomID: "R1"})
	if code := errorCode(t, a); code != "market_unavailable" {
		t.Fatalf("expected market_unavailable, got %s", code)
	}
}
