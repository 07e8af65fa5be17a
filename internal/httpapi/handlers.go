package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/service"
	"questboard/internal/session"
)

const maxHistoryDays = 365

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type questRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Activity    string `json:"activity"`
	Points      int    `json:"points"`
	Deadline    string `json:"deadline"`
	RepeatDays  int    `json:"repeat_days"`
}

type completeRequest struct {
	Points *int `json:"points"`
}

type effectResponse struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type completionResponse struct {
	OK              bool             `json:"ok"`
	Title           string           `json:"title"`
	Points          int              `json:"points"`
	NewPoints       int              `json:"new_points"`
	NewLevel        int              `json:"new_level"`
	PointsPersisted bool             `json:"points_persisted"`
	PointsError     string           `json:"points_error,omitempty"`
	Effects         []effectResponse `json:"effects"`
	NextQuest       *model.Task      `json:"next_quest,omitempty"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.DefaultCategories)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := session.New()
	user, err := a.Services.Accounts.Register(r.Context(), sess, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	}, a.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a.issueToken(w, r, sess, user, http.StatusCreated)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := session.New()
	user, err := a.Services.Accounts.Login(r.Context(), sess, req.Email, req.Password, a.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a.issueToken(w, r, sess, user, http.StatusOK)
}

// issueToken stores a freshly signed-in session and returns a token bound to it.
func (a *API) issueToken(w http.ResponseWriter, r *http.Request, sess *session.Session, user *model.User, status int) {
	if err := a.Sessions.Save(r.Context(), sess); err != nil {
		writeServiceError(w, fmt.Errorf("save session: %w", err))
		return
	}
	token, err := a.Auth.GenerateToken(sess.Email, sess.ID, session.TTL)
	if err != nil {
		writeServiceError(w, fmt.Errorf("sign token: %w", err))
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: user})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	a.Services.Accounts.Logout(sess)
	discardSession(r.Context())
	if err := a.Sessions.Delete(r.Context(), sess.ID); err != nil {
		log.Printf("delete session %s: %v", sess.ID, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	ov, err := a.Services.Overview.Overview(r.Context(), sessionFromContext(r.Context()), a.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// handleUpdateProfile accepts any JSON object; keys the application does not
// model are passed through and reported in not_saved when the store lacks
// them.
func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decodeJSON(w, r, &body) {
		return
	}
	input, err := profileInput(body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := a.Services.Accounts.UpdateProfile(r.Context(), sessionFromContext(r.Context()), input)
	var mismatch *repository.SchemaMismatchError
	switch {
	case err != nil && errors.As(err, &mismatch) && len(res.NotSaved) > 0:
		writeJSON(w, http.StatusUnprocessableEntity, res)
	case err != nil:
		writeServiceError(w, err)
	case !res.OK && len(res.NotSaved) == 0:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "No fields to update")
	case !res.OK:
		writeJSON(w, http.StatusUnprocessableEntity, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func profileInput(body map[string]any) (service.ProfileInput, error) {
	var input service.ProfileInput
	text := func(key string) (*string, error) {
		raw, ok := body[key]
		if !ok {
			return nil, nil
		}
		delete(body, key)
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", service.ErrInvalidInput, key)
		}
		return &s, nil
	}

	var err error
	if input.Name, err = text("name"); err != nil {
		return input, err
	}
	if input.AvatarURL, err = text("avatar_url"); err != nil {
		return input, err
	}
	if input.Bio, err = text("bio"); err != nil {
		return input, err
	}
	if raw, ok := body["preferred_categories"]; ok {
		delete(body, "preferred_categories")
		list, ok := raw.([]any)
		if !ok {
			return input, fmt.Errorf("%w: preferred_categories must be a list", service.ErrInvalidInput)
		}
		input.PreferredCategories = make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return input, fmt.Errorf("%w: preferred_categories must hold strings", service.ErrInvalidInput)
			}
			input.PreferredCategories = append(input.PreferredCategories, s)
		}
	}
	if len(body) > 0 {
		input.Extra = body
	}
	return input, nil
}

func (a *API) handleListQuests(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.Services.Tasks.ListPending(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (a *API) handleListCompleted(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.Services.Tasks.ListCompleted(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (a *API) handleCreateQuest(w http.ResponseWriter, r *http.Request) {
	var req questRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input := service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Activity:    req.Activity,
		Points:      req.Points,
		RepeatDays:  req.RepeatDays,
	}
	if strings.TrimSpace(req.Deadline) != "" {
		deadline, err := model.ParseNaive(req.Deadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid deadline")
			return
		}
		input.Deadline = &deadline
	}

	task, err := a.Services.Tasks.CreateTask(r.Context(), sessionFromContext(r.Context()), input, a.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (a *API) handleGetQuest(w http.ResponseWriter, r *http.Request) {
	task, err := a.Services.Tasks.GetTask(r.Context(), sessionFromContext(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleDeleteQuest(w http.ResponseWriter, r *http.Request) {
	title, err := a.Services.Tasks.DeleteTask(r.Context(), sessionFromContext(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": title})
}

// handleCompleteQuest credits the quest's own points unless the body names a
// point value.
func (a *API) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFromContext(r.Context())
	ref := chi.URLParam(r, "ref")

	var (
		res service.CompletionResult
		err error
	)
	if req.Points != nil {
		res, err = a.Services.Scoring.CompleteTask(r.Context(), sess, ref, *req.Points, a.now())
	} else {
		res, err = a.Services.Scoring.CompleteQuest(r.Context(), sess, ref, a.now())
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completionBody(res))
}

func completionBody(res service.CompletionResult) completionResponse {
	out := completionResponse{
		OK:              res.OK,
		Title:           res.Title,
		Points:          res.Points,
		NewPoints:       res.NewPoints,
		NewLevel:        res.NewLevel,
		PointsPersisted: res.PointsPersisted,
		Effects:         make([]effectResponse, 0, len(res.Effects)),
		NextQuest:       res.NextTask,
	}
	if res.PointsErr != nil {
		out.PointsError = res.PointsErr.Error()
	}
	for _, effect := range res.Effects {
		item := effectResponse{Name: effect.Name, OK: effect.OK()}
		if effect.Err != nil {
			item.Error = effect.Err.Error()
		}
		out.Effects = append(out.Effects, item)
	}
	return out
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0, 100)
	if !ok {
		return
	}
	entries, err := a.Services.Leaderboard.Top(r.Context(), sessionFromContext(r.Context()), limit, a.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", a.HistoryDays, maxHistoryDays)
	if !ok {
		return
	}
	sess := sessionFromContext(r.Context())
	history, err := a.Services.Points.History(r.Context(), sess.Email, days, a.now())
	if err != nil {
		sess.RecordError("points history", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (a *API) handleToday(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	today, err := a.Services.Points.Today(r.Context(), sess.Email, a.now())
	if err != nil {
		sess.RecordError("today points", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, today)
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", service.DefaultActivityLimit, 200)
	if !ok {
		return
	}
	entries, err := a.Services.Activity.Recent(r.Context(), sessionFromContext(r.Context()), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// queryInt reads an optional integer query parameter within 0..max.
func queryInt(w http.ResponseWriter, r *http.Request, key string, fallback, max int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > max {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("%s must be between 0 and %d", key, max))
		return 0, false
	}
	return v, true
}

