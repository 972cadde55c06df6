// Package httpx serves the game over a small JSON API.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chessduel/duel/pkg/common"
	"github.com/chessduel/duel/pkg/game"
	"github.com/chessduel/duel/pkg/scheduler"
)

const (
	maxJSONBodyBytes int64 = 1 << 16
	maxEvents              = 32
	apiCSP                 = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
)

// Server exposes a scheduler over HTTP. All moves go through the scheduler,
// so human moves are refused while an agent is to move.
type Server struct {
	sched  *scheduler.Scheduler
	logger zerolog.Logger

	eventsMu sync.Mutex
	events   []eventJSON

	srvMu sync.Mutex
	srv   *http.Server
}

func NewServer(sched *scheduler.Scheduler, logger zerolog.Logger) *Server {
	return &Server{
		sched:  sched,
		logger: logger,
	}
}

// Listen serves on addr until Close is called.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	s.logger.Info().Str("addr", addr).Msg("http listening")
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close attempts a graceful shutdown.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Publish records a scheduler transition for /api/state. It never blocks
// the scheduler for long.
func (s *Server) Publish(ev scheduler.Transition) {
	var e = eventJSON{
		Color: ev.Color.String(),
		Task:  ev.TaskID,
		From:  ev.From.String(),
		To:    ev.To.String(),
		Time:  time.Now().UTC(),
	}
	if ev.Move != common.MoveEmpty {
		e.Move = ev.Move.String()
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	s.eventsMu.Lock()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = append(s.events[:0:0], s.events[len(s.events)-maxEvents:]...)
	}
	s.eventsMu.Unlock()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.withJSON(s.handleState))
	mux.HandleFunc("/api/moves", s.withJSON(s.handleLegalMoves))
	mux.HandleFunc("/api/move", s.withJSON(s.handleMove))
	mux.HandleFunc("/api/mode", s.withJSON(s.handleMode))
	mux.HandleFunc("/api/reset", s.withJSON(s.handleReset))
	mux.HandleFunc("/api/fen", s.withJSON(s.handleFEN))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ---- JSON helpers ----

func (s *Server) withJSON(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": msg})
}

func applyAPISecurityHeaders(h http.Header) {
	h.Set("Content-Security-Policy", apiCSP)
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("X-Content-Type-Options", "nosniff")
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// statusOf maps game errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrIllegalMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scheduler.ErrAgentTurn),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrStalePosition):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// ---- state ----

type terminalJSON struct {
	Over   bool   `json:"over"`
	Text   string `json:"text"`
	Result string `json:"result"`
}

type eventJSON struct {
	Color string    `json:"color"`
	Task  uint64    `json:"task"`
	From  string    `json:"from"`
	To    string    `json:"to"`
	Move  string    `json:"move,omitempty"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

type stateJSON struct {
	FEN        string            `json:"fen"`
	Board      []string          `json:"board"`
	SideToMove string            `json:"side_to_move"`
	Ply        int               `json:"ply"`
	InCheck    bool              `json:"in_check"`
	LastMove   string            `json:"last_move,omitempty"`
	Moves      []string          `json:"moves"`
	Terminal   terminalJSON      `json:"terminal"`
	Mode       string            `json:"mode"`
	Slots      map[string]string `json:"slots"`
	Events     []eventJSON       `json:"events"`
}

func (s *Server) state() stateJSON {
	var snap = s.sched.Game().Snapshot()
	var board = make([]string, 8)
	for row := range board {
		var sb strings.Builder
		for col := 0; col < 8; col++ {
			sb.WriteString(snap.Position.PieceAt(common.SquareAt(row, col)).String())
		}
		board[row] = sb.String()
	}
	var moves = make([]string, 0, len(snap.Moves))
	for _, mv := range snap.Moves {
		moves = append(moves, mv.String())
	}
	var slots = s.sched.States()
	var result = stateJSON{
		FEN:        snap.Position.String(),
		Board:      board,
		SideToMove: snap.Position.SideToMove.String(),
		Ply:        snap.Ply,
		InCheck:    snap.InCheck,
		Moves:      moves,
		Terminal: terminalJSON{
			Over:   snap.Terminal.IsOver(),
			Text:   snap.Terminal.String(),
			Result: snap.Terminal.Result(),
		},
		Mode: s.sched.Mode().String(),
		Slots: map[string]string{
			common.White.String(): slots[common.White].String(),
			common.Black.String(): slots[common.Black].String(),
		},
	}
	if snap.LastMove != common.MoveEmpty {
		result.LastMove = snap.LastMove.String()
	}
	s.eventsMu.Lock()
	result.Events = append([]eventJSON{}, s.events...)
	s.eventsMu.Unlock()
	return result
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, map[string]any{"state": s.state()})
}

// ---- legal moves ----

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var sq, err = common.ParseSquare(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("square"))))
	if err != nil || sq == common.SquareNone {
		writeError(w, http.StatusBadRequest, "invalid square")
		return
	}
	var moves = []string{}
	for _, mv := range s.sched.Game().LegalMoves(sq) {
		moves = append(moves, mv.String())
	}
	writeJSON(w, map[string]any{"square": common.SquareName(sq), "moves": moves})
}

// ---- move ----

type moveBody struct {
	Move      string `json:"move"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion"`
}

func (b moveBody) lan() string {
	if b.Move != "" {
		return b.Move
	}
	var promotion = strings.ToLower(strings.TrimSpace(b.Promotion))
	if len(promotion) > 1 {
		// "queen", "knight"
		if promotion == "knight" {
			promotion = "n"
		} else {
			promotion = promotion[:1]
		}
	}
	return strings.TrimSpace(b.From) + strings.TrimSpace(b.To) + promotion
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body moveBody
	if !decodeBody(w, r, &body) {
		return
	}
	var move, err = common.ParseMoveLAN(body.lan())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.sched.UserMove(move); err != nil {
		s.logger.Debug().Stringer("move", move).Err(err).Msg("move refused")
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, map[string]any{"state": s.state()})
}

// ---- mode ----

type modeBody struct {
	Mode string `json:"mode"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body modeBody
	if !decodeBody(w, r, &body) {
		return
	}
	var mode, err = scheduler.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sched.SetMode(mode)
	writeJSON(w, map[string]any{"state": s.state()})
}

// ---- reset / fen ----

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.Body != nil {
		r.Body.Close()
	}
	s.sched.Reset()
	writeJSON(w, map[string]any{"state": s.state()})
}

type fenBody struct {
	FEN string `json:"fen"`
}

func (s *Server) handleFEN(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]string{"fen": s.sched.Game().FEN()})
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body fenBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.sched.LoadFEN(body.FEN); err != nil {
		var pe *common.ParseError
		if errors.As(err, &pe) {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]string{"error": err.Error(), "field": pe.Field})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]any{"state": s.state()})
}
