package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/domain"
)

// UserIDHeader carries the caller identity established by the authenticating gateway.
const UserIDHeader = "X-User-ID"

var errMissingUser = errors.New("missing " + UserIDHeader + " header")

// Handler exposes the quiz use cases over REST.
type Handler struct {
	service  *app.QuizService
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewHandler(service *app.QuizService, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, validate: validator.New(), log: log}
}

type servedResponse struct {
	Token string          `json:"token"`
	Quiz  domain.QuizView `json:"quiz"`
}

func newServedResponse(served domain.ServedQuiz) servedResponse {
	return servedResponse{Token: served.Token, Quiz: served.View}
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context(), optionalQuery(r, "category_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) ServeQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	mode := domain.ParseMode(r.URL.Query().Get("mode"))
	served, err := h.service.ServeQuiz(r.Context(), userID, chi.URLParam(r, "quizID"), mode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newServedResponse(served))
}

func (h *Handler) ServeDynamicQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	count, err := intQuery(r, "num_questions")
	if err != nil {
		h.respondError(w, err)
		return
	}
	filter := domain.PoolFilter{CategoryID: optionalQuery(r, "category_id")}
	mode := domain.ParseMode(r.URL.Query().Get("mode"))

	served, err := h.service.ServeDynamicQuiz(r.Context(), userID, filter, count, mode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newServedResponse(served))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var sub app.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid submission payload"})
		return
	}
	sub.UserID = userID
	if err := h.validate.Struct(sub); err != nil {
		h.respondError(w, err)
		return
	}

	result, err := h.service.Submit(r.Context(), sub)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *Handler) NextAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	n, err := h.service.NextAttemptNumber(r.Context(), domain.AttemptScope{
		UserID:     userID,
		QuizID:     optionalQuery(r, "quiz_id"),
		CategoryID: optionalQuery(r, "category_id"),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"attempt_number": n})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lb)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, errorBody{Error: errMissingUser.Error()})
		return "", false
	}
	return userID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
		respondJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	var numErr *strconv.NumError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrServedQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuizInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientQuestions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAttemptConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCount), errors.As(err, &validationErrs), errors.As(err, &numErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func optionalQuery(r *http.Request, key string) *string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	return &v
}

func intQuery(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
