package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler runs one adaptive session per websocket connection: the server
// pushes question sets, the client pushes graded answers, until the session
// completes or the peer disconnects.
type WSHandler struct {
	service     *app.SessionService
	defaultSets int
	upgrader    websocket.Upgrader
}

func NewWSHandler(service *app.SessionService, defaultSets int) *WSHandler {
	if defaultSets < 1 {
		defaultSets = 5
	}
	return &WSHandler{
		service:     service,
		defaultSets: defaultSets,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	Set               domain.PreparedSet `json:"set"`
	Answers           map[string]string  `json:"answers"`
	CompletionSeconds int                `json:"completionSeconds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, starts a session from the query parameters,
// and drives the submit loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learnerId")
	topicID := r.URL.Query().Get("topicId")
	difficultyLabel := r.URL.Query().Get("difficulty")
	if learnerID == "" || topicID == "" || difficultyLabel == "" {
		http.Error(w, "missing learnerId, topicId, or difficulty", http.StatusBadRequest)
		return
	}

	difficulty, err := domain.ParseDifficulty(difficultyLabel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	totalSets := h.defaultSets
	if raw := r.URL.Query().Get("sets"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid sets parameter", http.StatusBadRequest)
			return
		}
		totalSets = parsed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	start, err := h.service.StartSession(r.Context(), learnerID, topicID, difficulty, totalSets)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if err := conn.WriteJSON(outboundMessage[domain.StartResult]{Type: "session", Payload: start}); err != nil {
		log.Printf("ws write error: %v", err)
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "invalid submit payload")
				continue
			}
			result, err := h.service.SubmitSet(r.Context(), start.SessionID, payload.Set, payload.Answers, payload.CompletionSeconds)
			if err != nil {
				h.writeError(conn, err.Error())
				continue
			}

			if err := conn.WriteJSON(outboundMessage[domain.SetResult]{Type: "setResult", Payload: result.SetResult}); err != nil {
				return
			}
			if result.Completed {
				_ = conn.WriteJSON(outboundMessage[*domain.SessionSummary]{Type: "sessionComplete", Payload: result.Final})
				return
			}
			if err := conn.WriteJSON(outboundMessage[*domain.PreparedSet]{Type: "nextSet", Payload: result.NextSet}); err != nil {
				return
			}
		default:
			h.writeError(conn, "unsupported message type")
		}
	}
}

func (h *WSHandler) writeError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}
