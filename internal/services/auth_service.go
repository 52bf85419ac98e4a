package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode"

	"gymflow/internal/models"
	"gymflow/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// EventPublisher publishes account events to the message broker. A nil
// publisher disables events; publishing is always best-effort.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// AuthService handles registration, login and the session lifecycle.
type AuthService struct {
	userRepo   repositories.UserRepository
	sessions   repositories.SessionStore
	events     EventPublisher
	secret     []byte
	sessionTTL time.Duration
	validate   *validator.Validate
}

// NewAuthService creates a new AuthService. The secret signs session
// tokens; sessionTTL bounds how long an established session stays valid.
func NewAuthService(userRepo repositories.UserRepository, sessions repositories.SessionStore, events EventPublisher, secret string, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		sessions:   sessions,
		events:     events,
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		validate:   validator.New(),
	}
}

// Register validates the registration input, creates the user together
// with an empty profile in one transaction, and establishes a session for
// the new user. On validation failure nothing is persisted and the
// returned error is a ValidationErrors map keyed by form field.
func (s *AuthService) Register(ctx context.Context, email, password1, password2 string) (*models.User, string, error) {
	if errs := s.validateRegistration(email, password1, password2); len(errs) > 0 {
		return nil, "", errs
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password1), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		IsActive: true,
	}
	profile := &models.Profile{}

	// The unique index is the real guard against duplicate emails; the
	// pre-check in validateRegistration only gives a friendlier error for
	// the common case. A concurrent registration still lands here.
	if err := s.userRepo.CreateWithProfile(user, profile); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, "", ValidationErrors{"email": "A user with that email already exists."}
		}
		return nil, "", fmt.Errorf("failed to register user: %w", err)
	}

	// The user row is committed before any session exists for it.
	token, err := s.EstablishSession(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to establish session after registration: %w", err)
	}

	s.publishEvent("account.registered", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})

	return user, token, nil
}

// validateRegistration applies the registration rules in order: email
// present and well-formed, email unused, passwords present, passwords
// equal, password policy.
func (s *AuthService) validateRegistration(email, password1, password2 string) ValidationErrors {
	errs := ValidationErrors{}

	if email == "" {
		errs["email"] = "This field is required."
	} else if err := s.validate.Var(email, "email"); err != nil {
		errs["email"] = "Enter a valid email address."
	} else if _, err := s.userRepo.GetByEmail(email); err == nil {
		errs["email"] = "A user with that email already exists."
	}

	if password1 == "" {
		errs["password1"] = "This field is required."
	}
	if password2 == "" {
		errs["password2"] = "This field is required."
	}
	if len(errs) > 0 {
		return errs
	}

	if password1 != password2 {
		errs["password2"] = PasswordMismatchMessage
		return errs
	}

	if msg := checkPasswordPolicy(password1); msg != "" {
		errs["password2"] = msg
	}
	return errs
}

// checkPasswordPolicy enforces the complexity rules: minimum length and
// not entirely numeric. Returns an empty string when the password passes.
func checkPasswordPolicy(password string) string {
	if len(password) < minPasswordLength {
		return fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength)
	}

	numeric := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return "This password is entirely numeric."
	}
	return ""
}

// Login authenticates a user by email and password and establishes a
// session on success. Any failure maps to ErrInvalidCredentials so the
// response never reveals whether the email exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.EstablishSession(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to establish session: %w", err)
	}
	return user, token, nil
}

// Logout terminates the session referenced by the token. Expired, garbled
// or already-terminated tokens are treated as logged out, so calling
// Logout twice is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	sessionID, _, err := s.parseToken(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to terminate session %s: %w", sessionID, err)
	}
	return nil
}

// EstablishSession creates a server-side session record for the user and
// returns the signed token that references it.
func (s *AuthService) EstablishSession(ctx context.Context, user *models.User) (string, error) {
	now := time.Now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": session.ID,
		"sub": user.ID,
		"exp": session.ExpiresAt.Unix(),
		"iat": now.Unix(),
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}

// ValidateSession verifies the token signature and checks that the
// referenced session record still exists and has not expired. Because the
// record is the source of truth, a logout invalidates outstanding tokens
// immediately.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.Session, error) {
	sessionID, userID, err := s.parseToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if session.UserID != userID || session.Expired() {
		return nil, fmt.Errorf("session %s is no longer valid", sessionID)
	}
	return session, nil
}

// parseToken verifies the signature and extracts the session and user IDs.
func (s *AuthService) parseToken(tokenString string) (sessionID, userID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid token claims")
	}

	sessionID, _ = claims["sid"].(string)
	userID, _ = claims["sub"].(string)
	if sessionID == "" || userID == "" {
		return "", "", fmt.Errorf("token missing session claims")
	}
	return sessionID, userID, nil
}

// publishEvent sends an account event to the broker. Failures are logged
// and never propagated to the request.
func (s *AuthService) publishEvent(routingKey string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := s.events.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
