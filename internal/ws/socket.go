package ws

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	socketio "github.com/googollee/go-socket.io"
	"github.com/kiliankoe/partyhouse/internal/auth"
	"github.com/kiliankoe/partyhouse/internal/config"
	"github.com/kiliankoe/partyhouse/internal/game"
	"github.com/kiliankoe/partyhouse/internal/metrics"
	"github.com/rs/zerolog/log"
)

const namespace = "/"

// Conn is the part of a socket connection the handlers use.
type Conn interface {
	ID() string
	Emit(event string, v ...interface{})
	Join(room string)
}

type broadcaster interface {
	BroadcastToRoom(namespace, room, event string, args ...interface{}) bool
}

type ConnCtx struct {
	Username string
}

type Server struct {
	RM       *game.RoomManager
	config   config.Config
	metrics  *metrics.Metrics
	auth     *auth.Issuer
	validate *validator.Validate

	io    broadcaster
	mu    sync.RWMutex
	conns map[string]Conn // socketID -> Conn
}

func New(rm *game.RoomManager, cfg config.Config, m *metrics.Metrics, issuer *auth.Issuer) *Server {
	if m == nil {
		m = metrics.New("partyhouse", nil)
	}
	return &Server{
		RM:       rm,
		config:   cfg,
		metrics:  m,
		auth:     issuer,
		validate: validator.New(),
		conns:    make(map[string]Conn),
	}
}

type createRoomReq struct {
	RoomID     string `json:"roomId" validate:"required,max=64"`
	PlayerName string `json:"playerName" validate:"max=32"`
}

type joinRoomReq struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	Name   string `json:"name" validate:"max=32"`
}

type roomReq struct {
	RoomID string `json:"roomId" validate:"required"`
}

type inviteReq struct {
	RoomID string `json:"roomId" validate:"required"`
	IsAuto bool   `json:"isAuto"`
}

type buyReq struct {
	RoomID   string `json:"roomId" validate:"required"`
	CardName string `json:"cardName" validate:"required"`
}

type endPartyReq struct {
	RoomID string `json:"roomId" validate:"required"`
	Forced bool   `json:"forced"`
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect(namespace, func(s socketio.Conn) error {
		user, err := srv.authorize(s)
		if err != nil {
			log.Warn().Str("sid", s.ID()).Err(err).Msg("socket rejected")
			return err
		}
		ctx := &ConnCtx{Username: user}
		s.SetContext(ctx)
		srv.addConn(s)
		srv.metrics.IncOnlinePlayers()
		log.Info().Str("sid", s.ID()).Str("user", ctx.Username).Msg("socket connected")
		return nil
	})

	io.OnEvent(namespace, "createRoom", func(s socketio.Conn, payload createRoomReq) map[string]any {
		if payload.PlayerName == "" {
			payload.PlayerName = username(s)
		}
		return srv.createRoom(s, payload)
	})
	io.OnEvent(namespace, "joinRoom", func(s socketio.Conn, payload joinRoomReq) map[string]any {
		if payload.Name == "" {
			payload.Name = username(s)
		}
		return srv.joinRoom(s, payload)
	})
	io.OnEvent(namespace, "playerReady", func(s socketio.Conn, payload roomReq) map[string]any {
		return srv.playerReady(s, payload)
	})
	io.OnEvent(namespace, "inviteGuest", func(s socketio.Conn, payload inviteReq) map[string]any {
		return srv.inviteGuest(s, "inviteGuest", payload)
	})
	io.OnEvent(namespace, "drawCard", func(s socketio.Conn, payload inviteReq) map[string]any {
		return srv.inviteGuest(s, "drawCard", payload)
	})
	io.OnEvent(namespace, "buyCard", func(s socketio.Conn, payload buyReq) map[string]any {
		return srv.buyCard(s, payload)
	})
	io.OnEvent(namespace, "passTurn", func(s socketio.Conn, payload roomReq) map[string]any {
		return srv.passTurn(s, "passTurn", payload)
	})
	io.OnEvent(namespace, "nextPlayer", func(s socketio.Conn, payload roomReq) map[string]any {
		return srv.passTurn(s, "nextPlayer", payload)
	})
	io.OnEvent(namespace, "endParty", func(s socketio.Conn, payload endPartyReq) map[string]any {
		return srv.endParty(s, "endParty", payload)
	})
	io.OnEvent(namespace, "endDrawPhase", func(s socketio.Conn, payload endPartyReq) map[string]any {
		return srv.endParty(s, "endDrawPhase", payload)
	})

	io.OnError(namespace, func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect(namespace, func(s socketio.Conn, reason string) {
		srv.disconnect(s.ID())
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io server stopped")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) createRoom(s Conn, payload createRoomReq) map[string]any {
	start := time.Now()
	if err := srv.validate.Struct(payload); err != nil {
		return srv.badRequest(s, "createRoom", start, err)
	}
	r, p, err := srv.RM.CreateRoom(payload.RoomID, s.ID(), payload.PlayerName)
	if err != nil {
		return srv.fail(s, "createRoom", start, err)
	}
	s.Join(r.ID)
	tv, _ := r.PlayerTurnView(p.ID)
	s.Emit(game.EventRoomCreated, map[string]any{"roomId": r.ID, "playerId": p.ID, "hand": tv.Deck})
	srv.broadcast(r.ID, game.EventUpdatePlayers, r.Snapshot().Players)
	srv.metrics.SetActiveRooms(srv.RM.Count())
	srv.metrics.ObserveCommand("createRoom", "ok", time.Since(start))
	log.Info().Str("sid", s.ID()).Str("room", r.ID).Msg("createRoom")
	return map[string]any{"roomId": r.ID, "playerId": p.ID}
}

func (srv *Server) joinRoom(s Conn, payload joinRoomReq) map[string]any {
	start := time.Now()
	if err := srv.validate.Struct(payload); err != nil {
		return srv.badRequest(s, "joinRoom", start, err)
	}
	r, p, err := srv.RM.JoinRoom(payload.RoomID, s.ID(), payload.Name)
	if err != nil {
		return srv.fail(s, "joinRoom", start, err)
	}
	s.Join(r.ID)
	tv, _ := r.PlayerTurnView(p.ID)
	snap := r.Snapshot()
	s.Emit(game.EventJoinedRoom, map[string]any{"roomId": r.ID, "playerId": p.ID, "hand": tv.Deck, "started": snap.Started})
	srv.broadcast(r.ID, game.EventUpdatePlayers, snap.Players)
	srv.metrics.SetActiveRooms(srv.RM.Count())
	srv.metrics.ObserveCommand("joinRoom", "ok", time.Since(start))
	log.Info().Str("sid", s.ID()).Str("room", r.ID).Str("name", p.Name).Msg("joinRoom")
	return map[string]any{"roomId": r.ID, "playerId": p.ID}
}

func (srv *Server) playerReady(s Conn, payload roomReq) map[string]any {
	return srv.command(s, "playerReady", payload, payload.RoomID, false, func(r *game.Room) (game.Outcome, error) {
		return r.ToggleReady(s.ID())
	})
}

func (srv *Server) inviteGuest(s Conn, event string, payload inviteReq) map[string]any {
	return srv.command(s, event, payload, payload.RoomID, !payload.IsAuto, func(r *game.Room) (game.Outcome, error) {
		return r.InviteGuest(s.ID(), payload.IsAuto)
	})
}

func (srv *Server) buyCard(s Conn, payload buyReq) map[string]any {
	return srv.command(s, "buyCard", payload, payload.RoomID, true, func(r *game.Room) (game.Outcome, error) {
		return r.BuyCard(s.ID(), payload.CardName)
	})
}

func (srv *Server) passTurn(s Conn, event string, payload roomReq) map[string]any {
	return srv.command(s, event, payload, payload.RoomID, false, func(r *game.Room) (game.Outcome, error) {
		if event == "nextPlayer" {
			return r.NextPlayer(s.ID())
		}
		return r.PassTurn(s.ID())
	})
}

func (srv *Server) endParty(s Conn, event string, payload endPartyReq) map[string]any {
	return srv.command(s, event, payload, payload.RoomID, true, func(r *game.Room) (game.Outcome, error) {
		return r.EndParty(s.ID(), payload.Forced)
	})
}

// command runs one room command: validation, the manual-action guard,
// delivery of the outcome and bookkeeping. Delivery happens after the room
// mutex is released, so notifications of two commands racing on one room
// may interleave; each outcome is still emitted in order.
func (srv *Server) command(s Conn, event string, payload any, roomID string, manual bool, fn func(*game.Room) (game.Outcome, error)) map[string]any {
	start := time.Now()
	if err := srv.validate.Struct(payload); err != nil {
		return srv.badRequest(s, event, start, err)
	}
	r, err := srv.RM.Get(roomID)
	if err != nil {
		return srv.fail(s, event, start, err)
	}
	if manual {
		release, err := r.TryLockManualAction(s.ID())
		if err != nil {
			return srv.fail(s, event, start, err)
		}
		defer release()
	}
	o, err := fn(r)
	if err != nil {
		return srv.fail(s, event, start, err)
	}
	srv.dispatch(o)
	srv.metrics.ObserveCommand(event, "ok", time.Since(start))
	log.Debug().Str("sid", s.ID()).Str("room", roomID).Strs("events", o.Events()).Msg(event)
	return map[string]any{"ok": true}
}

// dispatch delivers an outcome in order and records its settled parties.
func (srv *Server) dispatch(o game.Outcome) {
	for _, n := range o.Notifications {
		switch n.Scope {
		case game.ScopeRoom:
			srv.broadcast(o.RoomID, n.Event, n.Data)
		case game.ScopePlayer:
			srv.emitTo(n.PlayerID, n.Event, n.Data)
		}
	}
	srv.record(o.RoomID, o.Reports)
}

func (srv *Server) record(roomID string, reports []game.PartyReport) {
	if len(reports) == 0 {
		return
	}
	for _, rep := range reports {
		srv.metrics.IncParties(string(rep.Reason))
		log.Info().Str("room", roomID).Str("player", rep.PlayerID).Str("reason", string(rep.Reason)).
			Int("popularity", rep.Score.Popularity).Int("money", rep.Score.Money).Msg("party settled")
	}
	if !srv.config.ExportEnabled {
		return
	}
	if err := game.ExportReports(srv.config.ExportFile, reports); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("failed to export party results")
	}
}

func (srv *Server) disconnect(sid string) {
	srv.removeConn(sid)
	for _, d := range srv.RM.Disconnect(sid) {
		srv.dispatch(d.Outcome)
		if d.Closed {
			log.Info().Str("room", d.RoomID).Msg("room closed")
		}
	}
	srv.metrics.SetActiveRooms(srv.RM.Count())
	srv.metrics.DecOnlinePlayers()
}

func (srv *Server) broadcast(roomID, event string, data any) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom(namespace, roomID, event, data)
}

func (srv *Server) emitTo(sid, event string, data any) {
	srv.mu.RLock()
	c := srv.conns[sid]
	srv.mu.RUnlock()
	if c == nil {
		return
	}
	c.Emit(event, data)
}

func (srv *Server) addConn(c Conn) {
	srv.mu.Lock()
	srv.conns[c.ID()] = c
	srv.mu.Unlock()
}

func (srv *Server) removeConn(sid string) {
	srv.mu.Lock()
	delete(srv.conns, sid)
	srv.mu.Unlock()
}

func (srv *Server) fail(s Conn, event string, start time.Time, err error) map[string]any {
	code := game.ErrorCode(err)
	srv.metrics.ObserveCommand(event, code, time.Since(start))
	log.Warn().Str("sid", s.ID()).Str("code", code).Err(err).Msg(event)
	return srv.err(s, code, err.Error())
}

func (srv *Server) badRequest(s Conn, event string, start time.Time, err error) map[string]any {
	srv.metrics.ObserveCommand(event, "bad_request", time.Since(start))
	return srv.err(s, "bad_request", err.Error())
}

func (srv *Server) err(s Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func username(s socketio.Conn) string {
	if ctx, ok := s.Context().(*ConnCtx); ok {
		return ctx.Username
	}
	return ""
}

// handshake is what a socket carries from its opening request.
type handshake interface {
	URL() url.URL
	RemoteHeader() http.Header
}

// authorize returns the username of the token on h. Without a configured
// secret every connection is let in anonymously.
func (srv *Server) authorize(h handshake) (string, error) {
	if !srv.config.AuthEnabled() {
		return "", nil
	}
	if srv.auth == nil {
		return "", errors.New("auth enabled without an issuer")
	}
	return srv.auth.Verify(tokenFrom(h))
}

// tokenFrom reads the session token from the query string or the
// Authorization header.
func tokenFrom(h handshake) string {
	u := h.URL()
	if t := u.Query().Get("token"); t != "" {
		return t
	}
	return strings.TrimPrefix(h.RemoteHeader().Get("Authorization"), "Bearer ")
}
