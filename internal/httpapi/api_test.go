package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"questboard/internal/auth"
	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/service"
	"questboard/internal/session"
)

var testNow = time.Date(2025, 6, 10, 14, 0, 0, 0, time.Local)

type testServer struct {
	srv      *httptest.Server
	api      *API
	registry *session.MemoryRegistry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repository.NewDB(":memory:", true)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	registry := session.NewMemoryRegistry(session.TTL)
	api := &API{
		Services: service.NewServices(
			repository.NewUserRepository(db),
			repository.NewTaskRepository(db),
			repository.NewPointsRepository(db),
			repository.NewActivityRepository(db),
			service.DefaultLeaderboardSize,
		),
		Sessions:    registry,
		Auth:        auth.NewManager("test-secret"),
		HistoryDays: 7,
		Now:         func() time.Time { return testNow },
	}
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, api: api, registry: registry}
}

// do sends body as JSON and decodes the response into out when it is non-nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (ts *testServer) register(t *testing.T, email string) string {
	t.Helper()
	var out authResponse
	status := ts.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{Email: email, Password: "hunter2", Name: "Robin"}, &out)
	if status != http.StatusCreated || out.Token == "" {
		t.Fatalf("register: status %d token %q", status, out.Token)
	}
	return out.Token
}

func TestHealthAndCategories(t *testing.T) {
	ts := newTestServer(t)
	var health map[string]string
	if status := ts.do(t, http.MethodGet, "/health", "", nil, &health); status != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("health: %d %v", status, health)
	}
	var cats []model.Category
	if status := ts.do(t, http.MethodGet, "/api/categories", "", nil, &cats); status != http.StatusOK || len(cats) != len(model.DefaultCategories) {
		t.Fatalf("categories: %d %d", status, len(cats))
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "robin@example.com")

	var dup errorResponse
	if status := ts.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{Email: "Robin@example.com", Password: "x"}, &dup); status != http.StatusConflict || dup.Error.Code != "ALREADY_EXISTS" {
		t.Fatalf("duplicate: %d %+v", status, dup)
	}

	var bad errorResponse
	if status := ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "robin@example.com", Password: "nope"}, &bad); status != http.StatusUnauthorized || bad.Error.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("bad login: %d %+v", status, bad)
	}

	var login authResponse
	if status := ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "robin@example.com", Password: "hunter2"}, &login); status != http.StatusOK || login.Token == "" {
		t.Fatalf("login: %d", status)
	}

	if status := ts.do(t, http.MethodPost, "/api/auth/logout", token, nil, nil); status != http.StatusNoContent {
		t.Fatalf("logout: %d", status)
	}
	var expired errorResponse
	if status := ts.do(t, http.MethodGet, "/api/me", token, nil, &expired); status != http.StatusUnauthorized || expired.Error.Code != "SESSION_EXPIRED" {
		t.Fatalf("after logout: %d %+v", status, expired)
	}
	if status := ts.do(t, http.MethodGet, "/api/me", login.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("second session should survive logout of the first, got %d", status)
	}
}

func TestRejectsMissingAndForeignTokens(t *testing.T) {
	ts := newTestServer(t)
	var out errorResponse
	if status := ts.do(t, http.MethodGet, "/api/quests", "", nil, &out); status != http.StatusUnauthorized || out.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("missing token: %d %+v", status, out)
	}

	forged, err := auth.NewManager("other-secret").GenerateToken("robin@example.com", "sid", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if status := ts.do(t, http.MethodGet, "/api/quests", forged, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("forged token: %d", status)
	}
}

func TestQuestLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "robin@example.com")

	var created model.Task
	status := ts.do(t, http.MethodPost, "/api/quests", token, questRequest{
		Category:   "Fitness",
		Activity:   "Run 5K",
		Deadline:   "2025-06-12T08:00:00Z",
		RepeatDays: 2,
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create: %d", status)
	}
	if created.Title != "Run 5K" || created.Points != 40 {
		t.Fatalf("unexpected quest %+v", created)
	}
	if want := time.Date(2025, 6, 12, 8, 0, 0, 0, time.Local); !created.Deadline.Equal(want) {
		t.Fatalf("deadline should keep the wall clock, got %v", created.Deadline)
	}

	var invalid errorResponse
	if status := ts.do(t, http.MethodPost, "/api/quests", token, questRequest{Title: "x", Points: 501}, &invalid); status != http.StatusBadRequest || invalid.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("invalid points: %d %+v", status, invalid)
	}

	ref := "/api/quests/" + strings.TrimSpace(jsonNumber(created.ID))
	var done completionResponse
	if status := ts.do(t, http.MethodPost, ref+"/complete", token, nil, &done); status != http.StatusOK {
		t.Fatalf("complete: %d", status)
	}
	if !done.OK || !done.PointsPersisted || done.NewPoints != 40 || done.NewLevel != 1 {
		t.Fatalf("unexpected completion %+v", done)
	}
	if done.NextQuest == nil || done.NextQuest.RepeatCount != 1 {
		t.Fatalf("expected next quest, got %+v", done.NextQuest)
	}
	for _, effect := range done.Effects {
		if !effect.OK {
			t.Fatalf("effect %s failed: %s", effect.Name, effect.Error)
		}
	}

	var again errorResponse
	if status := ts.do(t, http.MethodPost, ref+"/complete", token, nil, &again); status != http.StatusConflict || again.Error.Code != "ALREADY_COMPLETED" {
		t.Fatalf("second completion: %d %+v", status, again)
	}

	var completed []model.Task
	if status := ts.do(t, http.MethodGet, "/api/quests/completed", token, nil, &completed); status != http.StatusOK || len(completed) != 1 {
		t.Fatalf("completed: %d %d", status, len(completed))
	}
	var pending []model.Task
	if status := ts.do(t, http.MethodGet, "/api/quests", token, nil, &pending); status != http.StatusOK || len(pending) != 1 {
		t.Fatalf("pending: %d %d", status, len(pending))
	}

	var deleted map[string]string
	if status := ts.do(t, http.MethodDelete, ref, token, nil, &deleted); status != http.StatusOK || deleted["deleted"] != "Run 5K" {
		t.Fatalf("delete: %d %v", status, deleted)
	}
	completed = nil
	if status := ts.do(t, http.MethodGet, "/api/quests/completed", token, nil, &completed); status != http.StatusOK || len(completed) != 0 {
		t.Fatalf("completed after delete: %d %d", status, len(completed))
	}
	if status := ts.do(t, http.MethodDelete, ref, token, nil, nil); status != http.StatusNotFound {
		t.Fatalf("second delete: %d", status)
	}
	pending = nil
	if status := ts.do(t, http.MethodGet, "/api/quests", token, nil, &pending); status != http.StatusOK || len(pending) != 1 {
		t.Fatalf("pending after second delete: %d %d", status, len(pending))
	}
	if status := ts.do(t, http.MethodDelete, "/api/quests/abc", token, nil, nil); status != http.StatusNotFound {
		t.Fatalf("delete unknown: %d", status)
	}
}

func jsonNumber(id uint) string {
	data, _ := json.Marshal(id)
	return string(data)
}

func TestCompleteWithExplicitPoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "robin@example.com")

	var created model.Task
	ts.do(t, http.MethodPost, "/api/quests", token, questRequest{Title: "boss fight", Points: 10}, &created)

	var done completionResponse
	if status := ts.do(t, http.MethodPost, "/api/quests/"+jsonNumber(created.ID)+"/complete", token, completeRequest{Points: intPtr(250)}, &done); status != http.StatusOK {
		t.Fatalf("complete: %d", status)
	}
	if done.NewPoints != 250 || done.NewLevel != 3 {
		t.Fatalf("unexpected completion %+v", done)
	}

	var me service.Overview
	if status := ts.do(t, http.MethodGet, "/api/me", token, nil, &me); status != http.StatusOK {
		t.Fatalf("me: %d", status)
	}
	if me.Standing.TotalPoints != 250 || me.Standing.Level != 3 || me.Overridden {
		t.Fatalf("unexpected standing %+v", me)
	}
	if me.Today.DailyPoints != 250 || me.Streak != 1 || me.Completed != 1 {
		t.Fatalf("unexpected overview %+v", me)
	}

	var history []model.DayPoints
	if status := ts.do(t, http.MethodGet, "/api/points/history?days=3", token, nil, &history); status != http.StatusOK || len(history) != 3 {
		t.Fatalf("history: %d %d", status, len(history))
	}
	if last := history[2]; last.Date != "2025-06-10" || last.CumulativePoints != 250 {
		t.Fatalf("unexpected last day %+v", last)
	}
	if status := ts.do(t, http.MethodGet, "/api/points/history?days=abc", token, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("bad days: %d", status)
	}

	var today model.DayPoints
	if status := ts.do(t, http.MethodGet, "/api/points/today", token, nil, &today); status != http.StatusOK || today.DailyPoints != 250 {
		t.Fatalf("today: %d %+v", status, today)
	}

	var activity []model.ActivityLogEntry
	if status := ts.do(t, http.MethodGet, "/api/activity", token, nil, &activity); status != http.StatusOK || len(activity) != 1 {
		t.Fatalf("activity: %d %d", status, len(activity))
	}
}

func intPtr(v int) *int { return &v }

func TestLeaderboardMarksCaller(t *testing.T) {
	ts := newTestServer(t)
	ann := ts.register(t, "ann@example.com")
	bob := ts.register(t, "bob@example.com")

	var created model.Task
	ts.do(t, http.MethodPost, "/api/quests", bob, questRequest{Title: "climb", Points: 80}, &created)
	ts.do(t, http.MethodPost, "/api/quests/"+jsonNumber(created.ID)+"/complete", bob, nil, nil)

	var entries []service.LeaderboardEntry
	if status := ts.do(t, http.MethodGet, "/api/leaderboard", ann, nil, &entries); status != http.StatusOK || len(entries) != 2 {
		t.Fatalf("leaderboard: %d %d", status, len(entries))
	}
	if entries[0].Email != "bob@example.com" || entries[0].IsCurrentUser {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Email != "ann@example.com" || !entries[1].IsCurrentUser {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}

	var foreign errorResponse
	if status := ts.do(t, http.MethodPost, "/api/quests/"+jsonNumber(created.ID)+"/complete", ann, nil, &foreign); status != http.StatusNotFound {
		t.Fatalf("completing another user's quest: %d %+v", status, foreign)
	}
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "robin@example.com")

	var res service.NegotiationResult
	status := ts.do(t, http.MethodPatch, "/api/me", token, map[string]any{
		"bio":                  "archer",
		"preferred_categories": []string{"Fitness"},
		"favourite_colour":     "green",
	}, &res)
	if status != http.StatusOK || !res.OK || len(res.NotSaved) != 1 || res.NotSaved[0] != "favourite_colour" {
		t.Fatalf("update: %d %+v", status, res)
	}

	var me service.Overview
	ts.do(t, http.MethodGet, "/api/me", token, nil, &me)
	if me.User == nil || me.User.Bio != "archer" || len(me.User.PreferredCategories) != 1 {
		t.Fatalf("unexpected user %+v", me.User)
	}

	var empty errorResponse
	if status := ts.do(t, http.MethodPatch, "/api/me", token, map[string]any{}, &empty); status != http.StatusBadRequest {
		t.Fatalf("empty update: %d %+v", status, empty)
	}
	var protected errorResponse
	if status := ts.do(t, http.MethodPatch, "/api/me", token, map[string]any{"total_points": 9999}, &protected); status != http.StatusBadRequest {
		t.Fatalf("protected column: %d %+v", status, protected)
	}
	var wrongType errorResponse
	if status := ts.do(t, http.MethodPatch, "/api/me", token, map[string]any{"name": 12}, &wrongType); status != http.StatusBadRequest {
		t.Fatalf("wrong type: %d %+v", status, wrongType)
	}
}

func TestSessionPersistsOverrideBetweenRequests(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "robin@example.com")

	claims, err := ts.api.Auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sess, err := ts.registry.Get(context.Background(), claims.SessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.Display.Override(session.Standing{TotalPoints: 500, Level: 6})
	if err := ts.registry.Save(context.Background(), sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	var me service.Overview
	ts.do(t, http.MethodGet, "/api/me", token, nil, &me)
	if !me.Overridden || me.Standing.TotalPoints != 500 {
		t.Fatalf("expected the held override, got %+v", me)
	}
}
