package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/chessduel/duel/pkg/common"
	"github.com/chessduel/duel/pkg/game"
	"github.com/chessduel/duel/pkg/scheduler"
)

func newTestServer() *Server {
	var sched = scheduler.New(game.NewGame(), scheduler.Config{}, zerolog.Nop())
	return NewServer(sched, zerolog.Nop())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req = httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	var rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) stateJSON {
	t.Helper()
	var payload struct {
		State stateJSON `json:"state"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return payload.State
}

func TestStateAndMove(t *testing.T) {
	var h = newTestServer().routes()

	var rr = do(t, h, http.MethodGet, "/api/state", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("state: %d", rr.Code)
	}
	var st = decodeState(t, rr)
	if st.FEN != common.InitialPositionFen || st.SideToMove != "white" || st.Mode != "hvh" {
		t.Fatalf("unexpected initial state %+v", st)
	}
	if st.Board[0] != "rnbqkbnr" || st.Board[7] != "RNBQKBNR" {
		t.Errorf("board %v", st.Board)
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}

	rr = do(t, h, http.MethodPost, "/api/move", `{"from":"e2","to":"e4"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("move: %d %s", rr.Code, rr.Body.String())
	}
	st = decodeState(t, rr)
	if st.Ply != 1 || st.LastMove != "e2e4" || st.SideToMove != "black" {
		t.Errorf("after e2e4: %+v", st)
	}
	if !strings.Contains(st.FEN, " e3 ") {
		t.Errorf("en passant target missing: %v", st.FEN)
	}
	if len(st.Moves) != st.Ply || st.Moves[0] != "e2e4" {
		t.Errorf("moves %v at ply %d", st.Moves, st.Ply)
	}

	rr = do(t, h, http.MethodPost, "/api/move", `{"move":"e7e4"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("illegal move: %d", rr.Code)
	}
}

func TestMoveRefusedOnAgentTurn(t *testing.T) {
	var h = newTestServer().routes()
	if rr := do(t, h, http.MethodPost, "/api/mode", `{"mode":"evh"}`); rr.Code != http.StatusOK {
		t.Fatalf("mode: %d", rr.Code)
	}
	var rr = do(t, h, http.MethodPost, "/api/move", `{"move":"e2e4"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("got %d, want conflict", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/api/mode", `{"mode":"sideways"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("bad mode: %d", rr.Code)
	}
}

func TestFenAndReset(t *testing.T) {
	var h = newTestServer().routes()
	const fen = "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"

	var rr = do(t, h, http.MethodPost, "/api/fen", `{"fen":"`+fen+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("fen: %d %s", rr.Code, rr.Body.String())
	}
	if st := decodeState(t, rr); st.FEN != fen {
		t.Errorf("fen %v", st.FEN)
	}

	rr = do(t, h, http.MethodPost, "/api/fen", `{"fen":"4k3/8/8/8/8/8/4P3/4K3 x - - 0 1"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad fen: %d", rr.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["field"] != common.FieldActiveColor {
		t.Errorf("field %q", payload["field"])
	}

	rr = do(t, h, http.MethodGet, "/api/fen", "")
	if !strings.Contains(rr.Body.String(), fen) {
		t.Errorf("failed fen load changed the game: %v", rr.Body.String())
	}

	rr = do(t, h, http.MethodPost, "/api/reset", "")
	if st := decodeState(t, rr); st.FEN != common.InitialPositionFen {
		t.Errorf("reset: %v", st.FEN)
	}
}

func TestLegalMoves(t *testing.T) {
	var h = newTestServer().routes()
	var rr = do(t, h, http.MethodGet, "/api/moves?square=g1", "")
	var payload struct {
		Moves []string `json:"moves"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	sort.Strings(payload.Moves)
	if strings.Join(payload.Moves, " ") != "g1f3 g1h3" {
		t.Errorf("moves %v", payload.Moves)
	}
	if rr := do(t, h, http.MethodGet, "/api/moves?square=z9", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad square: %d", rr.Code)
	}
}

func TestRequestLimits(t *testing.T) {
	var h = newTestServer().routes()
	var big = `{"move":"` + strings.Repeat("a", int(maxJSONBodyBytes)) + `"}`
	if rr := do(t, h, http.MethodPost, "/api/move", big); rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/api/move", "{"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad json: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodDelete, "/api/state", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("method: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("health: %d", rr.Code)
	}
}

func TestStateMatchesSnapshotUnderMoves(t *testing.T) {
	var s = newTestServer()
	var lines = []string{"g1f3", "g8f6", "f3g1", "f6g8", "b1c3", "b8c6", "c3b1", "c6b8"}
	var done = make(chan struct{})
	go func() {
		defer close(done)
		for _, lan := range lines {
			var mv, _ = common.ParseMoveLAN(lan)
			if _, err := s.sched.UserMove(mv); err != nil {
				t.Errorf("%v: %v", lan, err)
				return
			}
		}
	}()
	for {
		var st = s.state()
		if len(st.Moves) != st.Ply {
			t.Fatalf("%d moves at ply %d", len(st.Moves), st.Ply)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestPublishKeepsRecentEvents(t *testing.T) {
	var s = newTestServer()
	for i := 0; i < maxEvents+5; i++ {
		s.Publish(scheduler.Transition{TaskID: uint64(i), From: scheduler.Idle, To: scheduler.Dispatched})
	}
	var st = s.state()
	if len(st.Events) != maxEvents || st.Events[0].Task != 5 || st.Events[0].To != "dispatched" {
		t.Errorf("events %v", st.Events)
	}
}
