package services

import (
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/models"
)

// AuthServiceProvider defines the interface for the login/signup flow.
type AuthServiceProvider interface {
	Login(username, password string) (Session, error)
	Signup(in UserCreate) (Session, error)
	UserForToken(key string) (models.User, error)
}

// Session is a token paired with the account it authenticates.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// AuthService orchestrates login and signup over the account directory and
// the token store.
type AuthService struct {
	db *sql.DB

	// newTokenKey is swappable so tests can force token issuance to fail.
	newTokenKey func() (string, error)
}

// NewAuthService creates a new AuthService.
func NewAuthService(db *sql.DB) *AuthService {
	return &AuthService{db: db, newTokenKey: auth.NewTokenKey}
}

// Login verifies credentials and returns the account's token. The failure
// shape is identical for an unknown username and a wrong password.
func (s *AuthService) Login(username, password string) (Session, error) {
	if username == "" || password == "" {
		return Session{}, apperror.NewValidation("Both username and password are required!")
	}

	var user models.User
	var hash string
	var superuser int
	row := s.db.QueryRow(
		"SELECT id, username, password_hash, first_name, last_name, email, is_superuser, created_at FROM users WHERE username = ?",
		NormalizeUsername(username),
	)
	err := row.Scan(&user.ID, &user.Username, &hash, &user.FirstName, &user.LastName, &user.Email, &superuser, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Session{}, apperror.NewAuthentication("Invalid username or password!")
		}
		return Session{}, apperror.NewInternal("Error loading user", err)
	}

	if !auth.CheckPassword(password, hash) {
		return Session{}, apperror.NewAuthentication("Invalid username or password!")
	}

	user.IsSuperuser = superuser != 0
	token, err := s.issueOrGetToken(s.db, user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

// Signup creates the account and its token as one atomic unit. Any failure
// inside the transaction rolls the whole thing back and surfaces as a
// SignupError, whether it came from validation, a conflict, or token issuance.
func (s *AuthService) Signup(in UserCreate) (Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Session{}, apperror.NewInternal("Error starting signup transaction", err)
	}

	user, err := createUser(tx, in)
	if err == nil {
		var token string
		token, err = s.issueOrGetToken(tx, user.ID)
		if err == nil {
			if err = tx.Commit(); err == nil {
				return Session{Token: token, User: user}, nil
			}
		}
	}

	if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
		log.Error().Err(rbErr).Msg("Failed to roll back signup transaction")
	}
	return Session{}, apperror.NewSignup("Signup failed!", err)
}

// issueOrGetToken returns the account's token, creating it on first use.
// The unique constraint on tokens.user_id plus insert-or-fetch keeps this
// idempotent under concurrent first logins: at most one live token per
// account.
func (s *AuthService) issueOrGetToken(q dbtx, userID string) (string, error) {
	key, err := s.newTokenKey()
	if err != nil {
		return "", apperror.NewInternal("Error generating token", err)
	}

	if _, err := q.Exec("INSERT INTO tokens(key, user_id) VALUES(?, ?) ON CONFLICT(user_id) DO NOTHING", key, userID); err != nil {
		return "", apperror.NewInternal("Error issuing token", err)
	}

	var stored string
	if err := q.QueryRow("SELECT key FROM tokens WHERE user_id = ?", userID).Scan(&stored); err != nil {
		return "", apperror.NewInternal("Error retrieving token", err)
	}
	return stored, nil
}

// UserForToken resolves a bearer token key to its account. Used by the auth
// middleware.
func (s *AuthService) UserForToken(key string) (models.User, error) {
	var user models.User
	var superuser int
	row := s.db.QueryRow(
		"SELECT u.id, u.username, u.first_name, u.last_name, u.email, u.is_superuser, u.created_at FROM tokens t JOIN users u ON u.id = t.user_id WHERE t.key = ?",
		key,
	)
	err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email, &superuser, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperror.NewUnauthenticated("Invalid token")
		}
		return models.User{}, apperror.NewInternal("Error resolving token", err)
	}
	user.IsSuperuser = superuser != 0
	return user, nil
}
