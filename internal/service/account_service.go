package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/datatypes"

	"questboard/internal/auth"
	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/session"
)

// RegisterInput represents data required to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	AvatarURL string
}

// ProfileInput holds the profile fields a user asked to change. Nil pointers
// are left untouched.
type ProfileInput struct {
	Name                *string
	AvatarURL           *string
	Bio                 *string
	PreferredCategories []string
	// Extra carries columns this build does not model, written as-is.
	Extra map[string]any
}

// protectedColumns cannot be set through a profile update.
var protectedColumns = map[string]struct{}{
	"email":         {},
	"password_hash": {},
	"total_points":  {},
	"level":         {},
	"created_at":    {},
	"last_active":   {},
}

// columnName is the only shape accepted for an extra profile column. Keys are
// lowercased first, since SQLite matches column names case-insensitively.
var columnName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// AccountService wraps registration, login and profile logic.
type AccountService struct {
	users UserStore
}

func NewAccountService(users UserStore) *AccountService {
	return &AccountService{users: users}
}

// Register creates the account and signs the session into it.
func (s *AccountService) Register(ctx context.Context, sess *session.Session, input RegisterInput, now time.Time) (*model.User, error) {
	email := model.NormalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		AvatarURL:    strings.TrimSpace(input.AvatarURL),
		Level:        1,
		CreatedAt:    model.NewNaiveTime(now),
		LastActive:   model.NewNaiveTime(now),
	}
	if err := s.users.Create(ctx, user); err != nil {
		sess.RecordError("register", err)
		return nil, err
	}

	sess.SignIn(user)
	log.Printf("[info] registered user=%s", email)
	return user, nil
}

// Login verifies credentials and signs the session in. Legacy digests are
// upgraded to bcrypt on the way.
func (s *AccountService) Login(ctx context.Context, sess *session.Session, email, password string, now time.Time) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, auth.ErrInvalidCredentials
	case err != nil:
		sess.RecordError("login", err)
		return nil, err
	}

	needsRehash, err := auth.CheckPassword(strings.TrimSpace(user.PasswordHash), password)
	if err != nil {
		return nil, err
	}
	if needsRehash {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.users.UpdatePasswordHash(ctx, user.Email, hash); err != nil {
				log.Printf("upgrade password hash for %s: %v", user.Email, err)
			}
		}
	}

	if err := s.users.TouchLastActive(ctx, user.Email, now); err != nil {
		log.Printf("touch last active for %s: %v", user.Email, err)
	} else {
		user.LastActive = model.NewNaiveTime(now)
	}

	sess.SignIn(user)
	log.Printf("[info] login user=%s", user.Email)
	return user, nil
}

func (s *AccountService) Logout(sess *session.Session) {
	sess.SignOut()
}

// Reload reads the signed-in user from the store and reconciles the session.
func (s *AccountService) Reload(ctx context.Context, sess *session.Session) (*model.User, error) {
	email, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		sess.RecordError("reload user", err)
		return nil, err
	}
	sess.Refresh(user)
	return user, nil
}

// UpdateProfile saves whatever subset of the requested fields the store
// accepts and reports the rest in NotSaved.
func (s *AccountService) UpdateProfile(ctx context.Context, sess *session.Session, input ProfileInput) (NegotiationResult, error) {
	email, err := requireUser(sess)
	if err != nil {
		return NegotiationResult{}, err
	}

	requested := make(map[string]any)
	for key, value := range input.Extra {
		column := strings.ToLower(strings.TrimSpace(key))
		if !columnName.MatchString(column) {
			return NegotiationResult{}, fmt.Errorf("%w: %q is not a valid field name", ErrInvalidInput, key)
		}
		if _, ok := protectedColumns[column]; ok {
			return NegotiationResult{}, fmt.Errorf("%w: %s cannot be changed here", ErrInvalidInput, column)
		}
		requested[column] = value
	}
	if input.Name != nil {
		requested["name"] = strings.TrimSpace(*input.Name)
	}
	if input.AvatarURL != nil {
		requested["avatar_url"] = strings.TrimSpace(*input.AvatarURL)
	}
	if input.Bio != nil {
		requested["bio"] = strings.TrimSpace(*input.Bio)
	}
	if input.PreferredCategories != nil {
		requested["preferred_categories"] = datatypes.JSONSlice[string](input.PreferredCategories)
	}

	write := func(fields map[string]any) error {
		return s.users.UpdateFields(ctx, email, fields)
	}
	result, err := NegotiateFields(requested, write, repository.MissingColumns)
	if err != nil {
		sess.RecordError("update profile", err)
		return result, fmt.Errorf("update profile: %w", err)
	}
	if !result.OK {
		return result, nil
	}
	if len(result.NotSaved) > 0 {
		log.Printf("[info] profile update for %s dropped %s", email, strings.Join(result.NotSaved, ", "))
	}

	if user, err := s.users.FindByEmail(ctx, email); err == nil {
		sess.Refresh(user)
	} else {
		sess.RecordError("reload user", err)
	}
	return result, nil
}
