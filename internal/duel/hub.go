// apps/duel-server/internal/duel/hub.go
//
// The Hub is the connection registry and matchmaking queue. It owns the
// per-connection context (idle / queued / in-game), pairs compatible
// waiters into sessions, and broadcasts the lobby to idle connections.
//
// All queue mutations are linearized under h.mu so two joiners can never
// both consume the same waiting entry.
package duel

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Config wires the hub's collaborators. Words is required.
type Config struct {
	Words Words
	// IssueToken mints resume tokens for start/rejoin snapshots. Optional.
	IssueToken func(gameID, playerID string) string
	// Record is called once per finished duel, off the session's lock.
	// Optional.
	Record func(r Result)
}

// clientCtx is the hub-owned state of one live connection.
type clientCtx struct {
	session  *Session
	playerID string
}

// waitEntry is an unmatched session parked in the queue, keyed by its host.
type waitEntry struct {
	host         Conn
	hostPlayerID string
	settings     Settings
	sess         *Session
}

// Hub tracks every live connection and all waiting and running sessions.
type Hub struct {
	mu       sync.Mutex
	cfg      Config
	ctxs     map[Conn]*clientCtx
	idle     map[Conn]struct{}
	waiting  []*waitEntry // queue in arrival order; first match wins
	sessions map[string]*Session
}

// NewHub constructs an empty hub.
func NewHub(cfg Config) *Hub {
	return &Hub{
		cfg:      cfg,
		ctxs:     make(map[Conn]*clientCtx),
		idle:     make(map[Conn]struct{}),
		sessions: make(map[string]*Session),
	}
}

// Register adds a new connection to the idle pool and shows it the lobby.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	h.ctxs[conn] = &clientCtx{}
	h.idle[conn] = struct{}{}
	h.sendLobbyLocked(conn)
	h.mu.Unlock()
}

// Unregister handles a dropped connection. An in-game player keeps their
// session slot (conn nulled, rejoin welcome); a waiting entry is abandoned.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	ctx := h.ctxs[conn]
	delete(h.ctxs, conn)
	delete(h.idle, conn)
	removed := h.removeWaitingLocked(conn)
	h.mu.Unlock()

	if ctx != nil && ctx.session != nil {
		ctx.session.DropConn(ctx.playerID, conn)
	}
	if removed {
		h.RefreshLobbies()
	}
}

// Join validates settings and either pairs conn with a compatible waiter
// (starting the session) or parks a new waiting entry. The returned message,
// if non-nil, goes back to conn; matched players are notified with start
// snapshots instead.
func (h *Hub) Join(conn Conn, settings Settings) any {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := h.ctxs[conn]
	if ctx == nil {
		return ErrorMsg{Error: "connection not registered"}
	}
	if ctx.session != nil {
		return ErrorMsg{Error: "attempted to join game while already in game"}
	}
	if err := settings.Validate(); err != nil {
		return ErrorMsg{Error: err.Error()}
	}

	// First compatible waiter wins; a host never matches their own entry.
	for i, e := range h.waiting {
		if e.host == conn || e.settings != settings {
			continue
		}
		h.waiting = append(h.waiting[:i], h.waiting[i+1:]...)
		h.startMatchLocked(e, conn, ctx)
		h.refreshLobbiesLocked()
		return nil
	}

	// No match: park (or replace) this connection's waiting entry.
	h.removeWaitingLocked(conn)
	sess, hostID := NewSession(settings, h.cfg.Words, h.hooks(), conn)
	h.waiting = append(h.waiting, &waitEntry{
		host:         conn,
		hostPlayerID: hostID,
		settings:     settings,
		sess:         sess,
	})
	h.refreshLobbiesLocked()
	return WaitMsg{Wait: settings}
}

// startMatchLocked attaches guest to the waiting session and starts it.
// The session is not yet published when Start locks it, so taking its lock
// under h.mu is safe.
func (h *Hub) startMatchLocked(e *waitEntry, guest Conn, guestCtx *clientCtx) {
	gameID := uuid.NewString()
	guestID := e.sess.AddPlayer(guest)
	h.sessions[gameID] = e.sess

	if hostCtx := h.ctxs[e.host]; hostCtx != nil {
		hostCtx.session = e.sess
		hostCtx.playerID = e.hostPlayerID
	}
	guestCtx.session = e.sess
	guestCtx.playerID = guestID
	delete(h.idle, e.host)
	delete(h.idle, guest)

	log.Info().Str("gameId", gameID).Msg("duel started")
	e.sess.Start(gameID)
}

// Leave removes any waiting entry owned by conn. Idempotent.
func (h *Hub) Leave(conn Conn) {
	h.mu.Lock()
	removed := h.removeWaitingLocked(conn)
	h.mu.Unlock()
	if removed {
		h.RefreshLobbies()
	}
}

// Guess routes a guess to the connection's session.
func (h *Hub) Guess(conn Conn, raw string) any {
	h.mu.Lock()
	ctx := h.ctxs[conn]
	if ctx == nil || ctx.session == nil {
		h.mu.Unlock()
		return ErrorMsg{Error: "can't guess before game starts"}
	}
	sess, pid := ctx.session, ctx.playerID
	h.mu.Unlock()

	return sess.HandleGuess(pid, raw)
}

// Rejoin lets a fresh connection take over an existing player slot. Dead
// games and unknown players are terminal: the error carries gameover so the
// client clears its persisted ids.
func (h *Hub) Rejoin(conn Conn, gameID, playerID string) any {
	h.mu.Lock()
	ctx := h.ctxs[conn]
	if ctx == nil {
		h.mu.Unlock()
		return ErrorMsg{Error: "connection not registered"}
	}
	if ctx.session != nil {
		h.mu.Unlock()
		return ErrorMsg{Error: "attempted to rejoin game while already in game"}
	}
	if gameID == "" || playerID == "" {
		h.mu.Unlock()
		return ErrorMsg{Error: "no ids provided for rejoin"}
	}
	sess := h.sessions[gameID]
	h.mu.Unlock()

	if sess == nil {
		return ErrorMsg{Error: "game not in progress", GameOver: true}
	}

	// Rebind outside h.mu: the session is live and its teardown path locks
	// h.mu, so the reverse order would deadlock.
	snap, ok := sess.Rebind(playerID, conn)
	if !ok {
		return ErrorMsg{Error: "no such player in game", GameOver: true}
	}

	h.mu.Lock()
	ctx.session = sess
	ctx.playerID = playerID
	delete(h.idle, conn)
	removed := h.removeWaitingLocked(conn)
	h.mu.Unlock()

	// The session may have ended between Rebind and the context bind; undo
	// so the connection is not stuck pointing at a dead game.
	if sess.Ended() {
		h.mu.Lock()
		if ctx.session == sess {
			ctx.session = nil
			ctx.playerID = ""
			h.idle[conn] = struct{}{}
		}
		h.mu.Unlock()
		return ErrorMsg{Error: "game not in progress", GameOver: true}
	}

	if removed {
		h.RefreshLobbies()
	}
	return snap
}

// WaitingCount reports the number of parked matchmaking entries.
func (h *Hub) WaitingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiting)
}

// SessionCount reports the number of running sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// RefreshLobbies pushes the current lobby to every idle connection.
func (h *Hub) RefreshLobbies() {
	h.mu.Lock()
	h.refreshLobbiesLocked()
	h.mu.Unlock()
}

func (h *Hub) refreshLobbiesLocked() {
	for conn := range h.idle {
		h.sendLobbyLocked(conn)
	}
}

// sendLobbyLocked sends conn the waiting list, minus its own entry.
func (h *Hub) sendLobbyLocked(conn Conn) {
	entries := lo.FilterMap(h.waiting, func(e *waitEntry, _ int) (Settings, bool) {
		return e.settings, e.host != conn
	})
	if entries == nil {
		entries = []Settings{}
	}
	_ = conn.Send(LobbyMsg{Lobby: entries})
}

// removeWaitingLocked drops conn's waiting entry if present.
func (h *Hub) removeWaitingLocked(conn Conn) bool {
	for i, e := range h.waiting {
		if e.host == conn {
			h.waiting = append(h.waiting[:i], h.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// hooks builds the session callbacks backed by this hub.
func (h *Hub) hooks() Hooks {
	return Hooks{
		PlayerReleased: h.playerReleased,
		SessionEnded:   h.sessionEnded,
		IssueToken:     h.cfg.IssueToken,
	}
}

// playerReleased returns a connection to the idle pool and refreshes its
// lobby view. Invoked with the session lock held; only takes h.mu.
func (h *Hub) playerReleased(conn Conn) {
	if conn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ctx := h.ctxs[conn]
	if ctx == nil {
		// Connection already went away; nothing to release.
		return
	}
	ctx.session = nil
	ctx.playerID = ""
	h.idle[conn] = struct{}{}
	h.sendLobbyLocked(conn)
}

// sessionEnded drops the session from the live table and records the result.
func (h *Hub) sessionEnded(s *Session, r Result) {
	h.mu.Lock()
	delete(h.sessions, s.ID)
	h.mu.Unlock()

	log.Info().
		Str("gameId", r.GameID).
		Str("winner", r.WinnerID).
		Msg("duel finished")

	if h.cfg.Record != nil {
		// Off the session lock; recording must never stall gameplay.
		go h.cfg.Record(r)
	}
}
