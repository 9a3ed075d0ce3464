package services

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/models"
	"github.com/openwheels/openwheels-be/internal/storage"
)

// UserServiceProvider defines the interface for account services.
type UserServiceProvider interface {
	GetUserByID(id string) (models.User, error)
	GetAllUsers() ([]models.User, error)
	CreateUser(in UserCreate) (models.User, error)
	UpdateUser(requester *auth.Identity, id string, in UserUpdate) (models.User, error)
	DeleteUser(requester *auth.Identity, id string) error
}

// UserCreate carries the fields accepted when creating an account.
type UserCreate struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	IsSuperuser bool   `json:"-"`
}

// UserUpdate carries a partial account update; nil fields keep their prior
// values.
type UserUpdate struct {
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
}

// UserService provides business logic for account management.
type UserService struct {
	db    *sql.DB
	blobs storage.BlobStore
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, blobs storage.BlobStore) *UserService {
	return &UserService{db: db, blobs: blobs}
}

// NormalizeUsername folds a username to its stored, comparable form.
func NormalizeUsername(username string) string {
	return strings.ToLower(username)
}

func validateUsername(username string) error {
	if len(username) < 3 {
		return apperror.NewValidation("Username must be at least 3 characters long.")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return apperror.NewValidation("Password must be at least 8 characters long.")
	}
	return nil
}

// GetUserByID retrieves a single account by its ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	return getUser(s.db, id)
}

func getUser(q dbtx, id string) (models.User, error) {
	var user models.User
	var superuser int
	row := q.QueryRow("SELECT id, username, first_name, last_name, email, is_superuser, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email, &superuser, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperror.NewNotFound("User not found")
		}
		return models.User{}, apperror.NewInternal("Error loading user", err)
	}
	user.IsSuperuser = superuser != 0
	return user, nil
}

// GetAllUsers retrieves every account in insertion order. created_at only
// has second granularity, so ordering rides on the rowid instead.
func (s *UserService) GetAllUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT id, username, first_name, last_name, email, is_superuser, created_at FROM users ORDER BY rowid")
	if err != nil {
		return nil, apperror.NewInternal("Error listing users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var superuser int
		if err := rows.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email, &superuser, &user.CreatedAt); err != nil {
			return nil, apperror.NewInternal("Error scanning user", err)
		}
		user.IsSuperuser = superuser != 0
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser validates, normalizes, hashes and persists a new account.
func (s *UserService) CreateUser(in UserCreate) (models.User, error) {
	return createUser(s.db, in)
}

// createUser runs against either the pool or the signup transaction.
func createUser(q dbtx, in UserCreate) (models.User, error) {
	username := NormalizeUsername(in.Username)
	if err := validateUsername(username); err != nil {
		return models.User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperror.NewInternal("Failed to hash password", err)
	}

	user := models.User{
		ID:          uuid.New().String(),
		Username:    username,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		IsSuperuser: in.IsSuperuser,
	}

	_, err = q.Exec(
		"INSERT INTO users(id, username, password_hash, first_name, last_name, email, is_superuser) VALUES(?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, hash, user.FirstName, user.LastName, user.Email, user.IsSuperuser,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, apperror.NewConflict("A user with that username already exists.")
		}
		return models.User{}, apperror.NewInternal("Error creating user", err)
	}
	return getUser(q, user.ID)
}

// UpdateUser applies a partial update to an account. Only the account owner
// may update it; supplied fields are re-validated exactly as in create.
func (s *UserService) UpdateUser(requester *auth.Identity, id string, in UserUpdate) (models.User, error) {
	if err := ownershipErr(auth.Decide(requester, id, false)); err != nil {
		return models.User{}, err
	}

	if _, err := getUser(s.db, id); err != nil {
		return models.User{}, err
	}

	if in.Username != nil {
		username := NormalizeUsername(*in.Username)
		if err := validateUsername(username); err != nil {
			return models.User{}, err
		}
		if _, err := s.db.Exec("UPDATE users SET username = ? WHERE id = ?", username, id); err != nil {
			if isUniqueViolation(err) {
				return models.User{}, apperror.NewConflict("A user with that username already exists.")
			}
			return models.User{}, apperror.NewInternal("Error updating username", err)
		}
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return models.User{}, err
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return models.User{}, apperror.NewInternal("Failed to hash password", err)
		}
		if _, err := s.db.Exec("UPDATE users SET password_hash = ? WHERE id = ?", hash, id); err != nil {
			return models.User{}, apperror.NewInternal("Error updating password", err)
		}
	}
	if in.FirstName != nil {
		if _, err := s.db.Exec("UPDATE users SET first_name = ? WHERE id = ?", *in.FirstName, id); err != nil {
			return models.User{}, apperror.NewInternal("Error updating user", err)
		}
	}
	if in.LastName != nil {
		if _, err := s.db.Exec("UPDATE users SET last_name = ? WHERE id = ?", *in.LastName, id); err != nil {
			return models.User{}, apperror.NewInternal("Error updating user", err)
		}
	}
	if in.Email != nil {
		if _, err := s.db.Exec("UPDATE users SET email = ? WHERE id = ?", *in.Email, id); err != nil {
			return models.User{}, apperror.NewInternal("Error updating user", err)
		}
	}

	return getUser(s.db, id)
}

// DeleteUser removes an account. The store cascades the row deletes
// (vehicles, their images, the account token); the image blobs are removed
// here since the blob store knows nothing about foreign keys.
func (s *UserService) DeleteUser(requester *auth.Identity, id string) error {
	if err := ownershipErr(auth.Decide(requester, id, false)); err != nil {
		return err
	}

	if _, err := getUser(s.db, id); err != nil {
		return err
	}

	refs, err := s.imageRefsForOwner(id)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec("DELETE FROM users WHERE id = ?", id); err != nil {
		return apperror.NewInternal("Error deleting user", err)
	}

	for _, ref := range refs {
		if err := s.blobs.Remove(ref); err != nil {
			log.Warn().Err(err).Str("blob_ref", ref).Msg("Failed to remove image blob for deleted user")
		}
	}
	return nil
}

func (s *UserService) imageRefsForOwner(ownerID string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT vi.blob_ref FROM vehicle_images vi JOIN vehicles v ON v.id = vi.vehicle_id WHERE v.owner_id = ?",
		ownerID,
	)
	if err != nil {
		return nil, apperror.NewInternal("Error listing image blobs", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, apperror.NewInternal("Error scanning image blob", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ownershipErr translates a gate decision into the API error for it.
func ownershipErr(d auth.Decision) error {
	switch d {
	case auth.DenyUnauthenticated:
		return apperror.NewUnauthenticated("Authentication required")
	case auth.DenyNotOwner:
		return apperror.NewNotOwner("Not allowed!")
	default:
		return nil
	}
}
