package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Handler exposes the adaptive session use cases as a JSON API.
type Handler struct {
	service     *app.SessionService
	defaultSets int
}

func NewHandler(service *app.SessionService, defaultSets int) *Handler {
	if defaultSets < 1 {
		defaultSets = 5
	}
	return &Handler{service: service, defaultSets: defaultSets}
}

// Routes mounts the API under the returned router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Post("/sessions", h.startSession)
	r.Post("/sessions/{sessionID}/submit", h.submitSet)
	r.Get("/sessions/{sessionID}", h.sessionStatus)
	return r
}

type startRequest struct {
	LearnerID         string `json:"learnerId"`
	TopicID           string `json:"topicId"`
	InitialDifficulty string `json:"initialDifficulty"`
	TotalSets         int    `json:"totalSets"`
}

type submitRequest struct {
	Set               domain.PreparedSet `json:"set"`
	Answers           map[string]string  `json:"answers"`
	CompletionSeconds int                `json:"completionSeconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	difficulty, err := domain.ParseDifficulty(req.InitialDifficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	totalSets := req.TotalSets
	if totalSets == 0 {
		totalSets = h.defaultSets
	}

	result, err := h.service.StartSession(r.Context(), req.LearnerID, req.TopicID, difficulty, totalSets)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) submitSet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.SubmitSet(r.Context(), sessionID, req.Set, req.Answers, req.CompletionSeconds)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.SessionStatus(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrInvalidSetCount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTopicNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNoQuestionSets),
		errors.Is(err, domain.ErrNoQuestions),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrAttemptNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrSetMismatch),
		errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
