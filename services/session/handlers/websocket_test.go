// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/echodrift/server/services/session/engine"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type stubNarrator struct {
	text string
	err  error
}

func (s *stubNarrator) Narrate(context.Context, engine.GameState, string) (string, error) {
	return s.text, s.err
}

type stubExtractor struct {
	delta *engine.Delta
	err   error
}

func (s *stubExtractor) Extract(context.Context, string, string) (*engine.Delta, error) {
	return s.delta, s.err
}

func wsTestServer(t *testing.T, narrator engine.Narrator, extractor engine.Extractor) (*httptest.Server, *engine.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mgr := engine.NewManager(func(id string) *engine.Session {
		return engine.NewSession(id, narrator, extractor, 0)
	})
	t.Cleanup(mgr.CloseAll)

	r := gin.New()
	r.GET("/ws", HandleSessionWebSocket(mgr))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, mgr
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn, wantEvent string) json.RawMessage {
	t.Helper()
	var env WSEnvelope
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if env.Event != wantEvent {
		t.Fatalf("event = %q, want %q", env.Event, wantEvent)
	}
	return env.Data
}

func sendQuery(t *testing.T, ws *websocket.Conn, query string) {
	t.Helper()
	data, _ := json.Marshal(QueryPayload{Query: query})
	if err := ws.WriteJSON(WSEnvelope{Event: EventQuery, Data: data}); err != nil {
		t.Fatalf("write query: %v", err)
	}
}

func TestWebSocket_ConnectHandshake(t *testing.T) {
	srv, _ := wsTestServer(t, &stubNarrator{text: "n"}, &stubExtractor{delta: &engine.Delta{}})
	ws := dialWS(t, srv, "")

	var created SessionCreatedPayload
	if err := json.Unmarshal(readEvent(t, ws, EventSessionCreated), &created); err != nil {
		t.Fatalf("unmarshal session_created: %v", err)
	}
	if created.SessionID == "" {
		t.Error("session_created carried no session id")
	}

	var state engine.GameState
	if err := json.Unmarshal(readEvent(t, ws, EventGameStateUpdate), &state); err != nil {
		t.Fatalf("unmarshal game_state_update: %v", err)
	}
	if state.CurrentModule != "Echo Drift - Module 1" {
		t.Errorf("CurrentModule = %q", state.CurrentModule)
	}
	if state.CurrentArc != engine.StageArchitect {
		t.Errorf("CurrentArc = %q", state.CurrentArc)
	}
}

func TestWebSocket_QueryCycle(t *testing.T) {
	srv, _ := wsTestServer(t,
		&stubNarrator{text: "The hull screams under the second wave."},
		&stubExtractor{delta: &engine.Delta{DiscoveredEchoes: []string{"failed_transfer_discovery"}}},
	)
	ws := dialWS(t, srv, "")
	readEvent(t, ws, EventSessionCreated)
	readEvent(t, ws, EventGameStateUpdate)

	sendQuery(t, ws, "Redirect Power to Shields")

	var res ResponsePayload
	if err := json.Unmarshal(readEvent(t, ws, EventResponse), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if res.AIResponse != "The hull screams under the second wave." {
		t.Errorf("AIResponse = %q", res.AIResponse)
	}
	if res.GameState.CurrentArc != engine.StageQuietBuilders {
		t.Errorf("CurrentArc = %q, want the discovery applied", res.GameState.CurrentArc)
	}
	if len(res.GameState.Timeline) != 1 {
		t.Errorf("Timeline has %d entries, want 1", len(res.GameState.Timeline))
	}
}

func TestWebSocket_SharedSessionByID(t *testing.T) {
	srv, mgr := wsTestServer(t, &stubNarrator{text: "n"},
		&stubExtractor{delta: &engine.Delta{CollectedIntel: []string{"fleet-disposition"}}})

	ws1 := dialWS(t, srv, "?session=alpha")
	readEvent(t, ws1, EventSessionCreated)
	readEvent(t, ws1, EventGameStateUpdate)
	sendQuery(t, ws1, "sweep the deck")
	readEvent(t, ws1, EventResponse)
	ws1.Close()

	// A reconnect with the same id resumes from current state.
	ws2 := dialWS(t, srv, "?session=alpha")
	readEvent(t, ws2, EventSessionCreated)
	var state engine.GameState
	if err := json.Unmarshal(readEvent(t, ws2, EventGameStateUpdate), &state); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if len(state.CollectedIntel) != 1 {
		t.Errorf("CollectedIntel = %v, want state from the first connection", state.CollectedIntel)
	}
	if mgr.Len() != 1 {
		t.Errorf("Len = %d, want the two connections to share one session", mgr.Len())
	}
}

func TestWebSocket_CycleErrorEvent(t *testing.T) {
	srv, _ := wsTestServer(t, &stubNarrator{err: engine.ErrOracleUnavailable},
		&stubExtractor{delta: &engine.Delta{}})
	ws := dialWS(t, srv, "")
	readEvent(t, ws, EventSessionCreated)
	readEvent(t, ws, EventGameStateUpdate)

	sendQuery(t, ws, "anything")

	var perr ErrorPayload
	if err := json.Unmarshal(readEvent(t, ws, EventError), &perr); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if !strings.Contains(perr.Message, "unreachable") {
		t.Errorf("error message = %q, want the oracle-unavailable wording", perr.Message)
	}

	// The connection survives a cycle error.
	sendQuery(t, ws, "")
	readEvent(t, ws, EventError)
}

func TestWebSocket_RejectsEmptyQuery(t *testing.T) {
	srv, _ := wsTestServer(t, &stubNarrator{text: "n"}, &stubExtractor{delta: &engine.Delta{}})
	ws := dialWS(t, srv, "")
	readEvent(t, ws, EventSessionCreated)
	readEvent(t, ws, EventGameStateUpdate)

	sendQuery(t, ws, "")

	var perr ErrorPayload
	if err := json.Unmarshal(readEvent(t, ws, EventError), &perr); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if !strings.Contains(perr.Message, "non-empty query") {
		t.Errorf("error message = %q", perr.Message)
	}
}

func TestWebSocket_IgnoresUnknownEvents(t *testing.T) {
	srv, _ := wsTestServer(t, &stubNarrator{text: "still here"}, &stubExtractor{delta: &engine.Delta{}})
	ws := dialWS(t, srv, "")
	readEvent(t, ws, EventSessionCreated)
	readEvent(t, ws, EventGameStateUpdate)

	if err := ws.WriteJSON(WSEnvelope{Event: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	sendQuery(t, ws, "status")
	readEvent(t, ws, EventResponse)
}
