package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// Handler serves the polling JSON API for presenters and participants.
type Handler struct {
	service *app.QuizService
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service}
}

// Register attaches all routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	// presenter
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{code}", h.snapshot)
	mux.HandleFunc("PATCH /sessions/{code}", h.updateSettings)
	mux.HandleFunc("DELETE /sessions/{code}", h.closeSession)
	mux.HandleFunc("POST /sessions/{code}/questions", h.addQuestion)
	mux.HandleFunc("POST /sessions/{code}/import", h.importQuiz)
	mux.HandleFunc("POST /sessions/{code}/quiz/clear", h.lifecycle(h.service.ClearQuiz))
	mux.HandleFunc("POST /sessions/{code}/start", h.lifecycle(h.service.StartSession))
	mux.HandleFunc("POST /sessions/{code}/next", h.lifecycle(h.service.NextQuestion))
	mux.HandleFunc("POST /sessions/{code}/prev", h.lifecycle(h.service.PrevQuestion))
	mux.HandleFunc("POST /sessions/{code}/reveal", h.toggleReveal)
	mux.HandleFunc("POST /sessions/{code}/stop", h.lifecycle(h.service.StopSession))
	mux.HandleFunc("GET /sessions/{code}/tally/{question}", h.tally)
	mux.HandleFunc("GET /sessions/{code}/leaderboard", h.leaderboard)

	// participant
	mux.HandleFunc("POST /sessions/{code}/join", h.join)
	mux.HandleFunc("GET /sessions/{code}/play", h.play)
	mux.HandleFunc("POST /sessions/{code}/answers", h.submitAnswer)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.CreateSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"code": code})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var update domain.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}
	if err := h.service.UpdateSettings(r.Context(), r.PathValue("code"), update); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseSession(r.Context(), r.PathValue("code")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var in domain.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid question payload", http.StatusBadRequest)
		return
	}
	q, err := h.service.AddQuestion(r.Context(), r.PathValue("code"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) importQuiz(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		QuizID string `json:"quizId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.QuizID == "" {
		http.Error(w, "quizId is required", http.StatusBadRequest)
		return
	}
	added, err := h.service.ImportQuiz(r.Context(), r.PathValue("code"), payload.QuizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

// lifecycle wraps the phase commands that share a (ctx, code) → error shape.
func (h *Handler) lifecycle(cmd func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cmd(r.Context(), r.PathValue("code")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) toggleReveal(w http.ResponseWriter, r *http.Request) {
	revealed, err := h.service.ToggleReveal(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revealed": revealed})
}

func (h *Handler) tally(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.Atoi(r.PathValue("question"))
	if err != nil {
		http.Error(w, "question id must be an integer", http.StatusBadRequest)
		return
	}
	counts, err := h.service.Tally(r.Context(), r.PathValue("code"), questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid join payload", http.StatusBadRequest)
		return
	}
	lb, err := h.service.Join(r.Context(), r.PathValue("code"), payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) play(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	view, err := h.service.ParticipantView(r.Context(), r.PathValue("code"), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name       string        `json:"name"`
		QuestionID int           `json:"questionId"`
		Option     domain.Option `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid answer payload", http.StatusBadRequest)
		return
	}
	record, lb, err := h.service.SubmitAnswer(r.Context(), r.PathValue("code"), payload.QuestionID, payload.Name, payload.Option)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"correct":     record.Correct,
		"leaderboard": lb,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps domain errors onto HTTP status codes; the engine itself
// performs no user-facing formatting.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrInvalidSettings):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotRunning),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrCodesExhausted):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
