// Package session holds the per-client state threaded through every service
// call: who is signed in, the last user row read from the store, the display
// override and the last error seen.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"questboard/internal/model"
)

// TTL bounds how long an idle session is kept by a Registry.
const TTL = 24 * time.Hour

type Session struct {
	ID        string       `json:"id"`
	Email     string       `json:"email,omitempty"`
	User      *model.User  `json:"user,omitempty"`
	Display   DisplayState `json:"display"`
	LastError string       `json:"last_error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// New returns an anonymous session with a fresh id.
func New() *Session {
	return NewWithID(uuid.NewString())
}

// NewWithID returns an anonymous session under a caller-chosen id, e.g. one
// derived from a chat.
func NewWithID(id string) *Session {
	return &Session{ID: id, UpdatedAt: time.Now()}
}

func (s *Session) LoggedIn() bool {
	return s != nil && s.Email != ""
}

// SignIn binds the session to user and drops any state from a previous login.
func (s *Session) SignIn(user *model.User) {
	s.Email = user.Email
	s.User = user
	s.Display = DisplayState{}
	s.LastError = ""
}

func (s *Session) SignOut() {
	s.Email = ""
	s.User = nil
	s.Display = DisplayState{}
}

// Refresh records a fresh read of the signed-in user and reconciles the
// display override against it.
func (s *Session) Refresh(user *model.User) {
	if user == nil {
		return
	}
	s.User = user
	s.Display.Reconcile(StandingOf(user))
}

// Standing is what the current user should see for their own points and level.
func (s *Session) Standing(historyCumulative int) Standing {
	return s.Display.Resolve(StandingOf(s.User), historyCumulative)
}

// RecordError keeps the latest failure for diagnostics.
func (s *Session) RecordError(op string, err error) {
	if err == nil {
		return
	}
	s.LastError = fmt.Sprintf("%s %s: %v", time.Now().Format(model.NaiveLayout), op, err)
}
