package service

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/stockroom/internal/audit"
	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/repository"
	"github.com/Baaaki/stockroom/internal/session"
	"github.com/Baaaki/stockroom/internal/utils"
	"github.com/Baaaki/stockroom/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserNotFound          = errors.New("user not found")
	ErrSelfDelete            = errors.New("you cannot delete yourself")
)

// ValidationError marks input problems the caller should see as 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

type AuthService struct {
	userRepo *repository.UserRepository
	sessions session.Store
	trail    *audit.Trail
}

func NewAuthService(userRepo *repository.UserRepository, sessions session.Store, trail *audit.Trail) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		trail:    trail,
	}
}

func (s *AuthService) Register(username, password string) (*models.User, error) {
	start := time.Now()

	logger.Log.Debug("Processing user registration",
		zap.String("username", username),
	)

	if err := validateRegisterInput(username, password); err != nil {
		logger.Log.Warn("Registration validation failed",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, err
	}

	existingUser, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		logger.Log.Error("Failed to check username existence",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, err
	}
	if existingUser != nil {
		logger.Log.Warn("Username already exists",
			zap.String("username", username),
		)
		return nil, ErrUsernameAlreadyExists
	}

	hashStart := time.Now()
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		logger.Log.Error("Failed to hash password",
			zap.Error(err),
		)
		return nil, err
	}
	hashDuration := time.Since(hashStart)

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser, // Default role
	}

	if err := s.userRepo.CreateUser(user); err != nil {
		logger.Log.Error("Failed to create user in database",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("User registered successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("username", username),
		zap.Duration("hash_duration", hashDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, nil
}

// Login verifies credentials and, on success, opens a server-side
// session. The returned token is the only thing handed to the client.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	start := time.Now()

	logger.Log.Debug("Processing user login",
		zap.String("username", username),
	)

	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		logger.Log.Error("Failed to get user by username",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, "", err
	}
	if user == nil {
		logger.Log.Warn("Login failed: user not found",
			zap.String("username", username),
		)
		return nil, "", ErrInvalidCredentials
	}

	verifyStart := time.Now()
	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		logger.Log.Error("Failed to verify password",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, "", err
	}
	verifyDuration := time.Since(verifyStart)

	if !valid {
		logger.Log.Warn("Login failed: invalid password",
			zap.String("username", username),
			zap.String("user_id", user.ID.String()),
		)
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, session.Data{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		logger.Log.Error("Failed to create session",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil, "", err
	}

	logger.Log.Info("User logged in successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.Duration("password_verify_duration", verifyDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, token, nil
}

// Logout destroys the session; an already-dead token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		logger.Log.Error("Failed to destroy session",
			zap.Error(err),
		)
		return err
	}
	return nil
}

// GetAllUsers returns every account for the admin user list.
func (s *AuthService) GetAllUsers() ([]*models.User, error) {
	users, err := s.userRepo.GetAllUsers()
	if err != nil {
		logger.Log.Error("Failed to fetch all users",
			zap.Error(err),
		)
		return nil, err
	}
	return users, nil
}

// UpdateRole switches an account between the two roles.
func (s *AuthService) UpdateRole(userID string, role models.Role, actor string) (*models.User, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, NewValidationError("invalid user ID format")
	}

	matched, err := s.userRepo.UpdateRole(uid, role)
	if err != nil {
		logger.Log.Error("Failed to update role",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	if !matched {
		return nil, ErrUserNotFound
	}

	user, err := s.userRepo.GetUserByID(uid)
	if err != nil {
		return nil, err
	}

	s.record(actor, "user.role_update", "user", userID, string(role))

	logger.Log.Info("User role updated",
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.String("actor", actor),
	)

	return user, nil
}

// DeleteUser removes an account. The acting admin can never remove
// their own account, whatever their role.
func (s *AuthService) DeleteUser(userID string, actorID uuid.UUID, actor string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return NewValidationError("invalid user ID format")
	}

	if uid == actorID {
		logger.Log.Warn("Self-delete rejected",
			zap.String("user_id", userID),
			zap.String("actor", actor),
		)
		return ErrSelfDelete
	}

	matched, err := s.userRepo.DeleteUser(uid)
	if err != nil {
		logger.Log.Error("Failed to delete user",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return err
	}
	if !matched {
		return ErrUserNotFound
	}

	s.record(actor, "user.delete", "user", userID, "")

	logger.Log.Info("User deleted",
		zap.String("user_id", userID),
		zap.String("actor", actor),
	)

	return nil
}

// AuditEntries exposes the trail for the admin audit endpoint.
func (s *AuthService) AuditEntries() ([]audit.Entry, error) {
	if s.trail == nil {
		return []audit.Entry{}, nil
	}
	return s.trail.ReadAll()
}

// record appends to the audit trail best-effort: a trail failure must
// not fail the mutation it describes.
func (s *AuthService) record(actor, action, entity, entityID, detail string) {
	if s.trail == nil {
		return
	}
	err := s.trail.Append(audit.Entry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Detail:    detail,
		Timestamp: time.Now(),
	})
	if err != nil {
		logger.Log.Warn("Audit append failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func validateRegisterInput(username, password string) error {
	if username == "" {
		return NewValidationError("username is required")
	}
	if len(username) > 50 {
		return NewValidationError("username must be at most 50 characters")
	}
	if len(password) < 8 {
		return NewValidationError("password must be at least 8 characters")
	}
	if len(password) > 128 {
		return NewValidationError("password too long")
	}
	return nil
}
