// apps/duel-server/internal/wsserver/server.go
//
// HTTP/WebSocket wiring for the duel server.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery).
//   - Public endpoints: "/", "/health", "/debug/words", optional /duels/recent.
//   - "/ws": upgrade, keepalive, per-connection rate limiting, and the
//     decode/dispatch read loop feeding the hub.
//
// One goroutine per connection reads and dispatches; a second runs the ping
// loop. Everything stateful lives in the hub and its sessions.
package wsserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/robalobadob/wordle/apps/duel-server/internal/duel"
	"github.com/robalobadob/wordle/apps/duel-server/internal/words"
)

var upgrader = websocket.Upgrader{
	// The duel protocol carries no credentials; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Options tunes the server. Zero values get sensible defaults.
type Options struct {
	// MsgsPerSec / Burst bound inbound message rates per connection.
	MsgsPerSec float64
	Burst      int
	// RecentDuels, if set, is mounted at GET /duels/recent.
	RecentDuels http.HandlerFunc
}

// Server bundles the router, the hub, and the resume-token secret.
type Server struct {
	r      *chi.Mux
	hub    *duel.Hub
	secret []byte
	opts   Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(hub *duel.Hub, secret []byte, opts Options) *Server {
	if opts.MsgsPerSec <= 0 {
		opts.MsgsPerSec = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	s := &Server{r: chi.NewRouter(), hub: hub, secret: secret, opts: opts}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"service":"wordle-duel","endpoints":["/health","/ws","/duels/recent"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		a, g := words.Stats()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]int{"answers": a, "allowed": g})
	})
	if opts.RecentDuels != nil {
		s.r.Get("/duels/recent", opts.RecentDuels)
	}
	s.r.Get("/ws", s.handleWS)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// inbound is the action envelope clients send. Unknown fields are ignored;
// unknown actions are rejected after decode.
type inbound struct {
	Action               string `json:"action"`
	WordsToRemove        int    `json:"wordsToRemove"`
	GuessLimit           int    `json:"guessLimit"`
	TurnTimeLimitSeconds int    `json:"turnTimeLimitSeconds"`
	HardMode             bool   `json:"hardMode"`
	GameID               string `json:"gameId"`
	PlayerID             string `json:"playerId"`
	ResumeToken          string `json:"resumeToken"`
	Guess                string `json:"guess"`
}

// handleWS upgrades the connection and runs its read loop until the peer
// goes away. Registration with the hub lasts exactly as long as the loop.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	client := newClient(conn)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.hub.Register(client)
	log.Debug().Str("remote", r.RemoteAddr).Msg("client connected")

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := client.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	defer func() {
		close(done)
		s.hub.Unregister(client)
		client.close()
		log.Debug().Str("remote", r.RemoteAddr).Msg("client disconnected")
	}()

	lim := rate.NewLimiter(rate.Limit(s.opts.MsgsPerSec), s.opts.Burst)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if !lim.Allow() {
			_ = client.Send(duel.ErrorMsg{Error: "too many requests"})
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = client.Send(duel.ErrorMsg{Error: "invalid message"})
			continue
		}
		if reply := s.dispatch(client, msg); reply != nil {
			_ = client.Send(reply)
		}
	}
}

// dispatch routes one decoded action to the hub and returns the reply to
// send, or nil when the action produces none.
func (s *Server) dispatch(c *Client, msg inbound) any {
	switch msg.Action {
	case "join":
		return s.hub.Join(c, duel.Settings{
			WordsToRemove:        msg.WordsToRemove,
			GuessLimit:           msg.GuessLimit,
			TurnTimeLimitSeconds: msg.TurnTimeLimitSeconds,
			HardMode:             msg.HardMode,
		})
	case "rejoin":
		gameID, playerID := msg.GameID, msg.PlayerID
		if msg.ResumeToken != "" && (gameID == "" || playerID == "") {
			var err error
			gameID, playerID, err = parseResumeToken(s.secret, msg.ResumeToken)
			if err != nil {
				// A token we cannot verify will never become valid; tell the
				// client to drop it.
				return duel.ErrorMsg{Error: err.Error(), GameOver: true}
			}
		}
		return s.hub.Rejoin(c, gameID, playerID)
	case "guess":
		return s.hub.Guess(c, msg.Guess)
	case "ping":
		return nil
	default:
		return duel.ErrorMsg{Error: "invalid action"}
	}
}
