// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/echodrift/server/services/session/engine"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Websocket event names. Inbound messages route on Event; outbound
// messages carry it so clients can do the same.
const (
	EventQuery           = "query"
	EventSessionCreated  = "session_created"
	EventGameStateUpdate = "game_state_update"
	EventResponse        = "response"
	EventError           = "error"
)

// WSEnvelope frames every message on the session channel.
type WSEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// QueryPayload is the inbound query event body.
type QueryPayload struct {
	Query string `json:"query"`
}

// ResponsePayload is the outbound response event body.
type ResponsePayload struct {
	AIResponse string           `json:"aiResponse"`
	GameState  engine.GameState `json:"gameState"`
}

// ErrorPayload is the outbound error event body.
type ErrorPayload struct {
	Message string `json:"message"`
}

// SessionCreatedPayload acknowledges the resolved session id so clients
// can rejoin the same narrative later.
type SessionCreatedPayload struct {
	SessionID string `json:"sessionId"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

func sendEvent(ws *websocket.Conn, event string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to marshal websocket event", "event", event, "error", err)
		return err
	}
	if err := ws.WriteJSON(WSEnvelope{Event: event, Data: body}); err != nil {
		slog.Warn("Failed to write websocket event", "event", event, "error", err)
		return err
	}
	return nil
}

// HandleSessionWebSocket runs the realtime session channel.
//
// A connection joins the session named by its "session" query parameter
// or gets a fresh one. On connect the client receives the session id and
// a full state snapshot. Each inbound query event runs one interaction
// cycle through the session worker; the response (or a cycle error) goes
// back to this connection only. Socket drops need no recovery: the next
// connection presenting the same session id resumes from current state.
func HandleSessionWebSocket(mgr *engine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		sessionID := c.Query("session")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		sess := mgr.GetOrCreate(sessionID)
		slog.Info("Websocket client connected", "session_id", sessionID)

		if err := sendEvent(ws, EventSessionCreated, SessionCreatedPayload{SessionID: sessionID}); err != nil {
			return
		}
		if err := sendEvent(ws, EventGameStateUpdate, sess.Snapshot()); err != nil {
			return
		}

		for {
			var env WSEnvelope
			if err := ws.ReadJSON(&env); err != nil {
				slog.Info("Websocket client disconnected", "session_id", sessionID, "error", err.Error())
				return
			}
			if env.Event != EventQuery {
				slog.Warn("Ignoring unknown websocket event", "event", env.Event, "session_id", sessionID)
				continue
			}

			var q QueryPayload
			if err := json.Unmarshal(env.Data, &q); err != nil || q.Query == "" {
				if err := sendEvent(ws, EventError, ErrorPayload{Message: "query event requires a non-empty query field"}); err != nil {
					return
				}
				continue
			}

			res, err := sess.Submit(c.Request.Context(), q.Query)
			if err != nil {
				slog.Error("Interaction cycle failed", "session_id", sessionID, "error", err)
				if err := sendEvent(ws, EventError, ErrorPayload{Message: cycleErrorMessage(err)}); err != nil {
					return
				}
				continue
			}

			if err := sendEvent(ws, EventResponse, ResponsePayload{
				AIResponse: res.Narrative,
				GameState:  res.State,
			}); err != nil {
				return
			}
		}
	}
}

// cycleErrorMessage maps cycle errors onto messages fit for players.
func cycleErrorMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrOracleTimeout):
		return "The narrative oracle took too long to answer. Try again."
	case errors.Is(err, engine.ErrOracleUnavailable):
		return "The narrative oracle is unreachable right now. Try again shortly."
	case errors.Is(err, engine.ErrReferenceStoreUnavailable):
		return "Reference data is unavailable right now. Try again shortly."
	case errors.Is(err, engine.ErrSessionClosed):
		return "This session has ended."
	default:
		return "Something went wrong handling that query."
	}
}
