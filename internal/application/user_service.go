package application

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, creds UserCredentials) error
	UpdateUser(ctx context.Context, creds UserCredentials) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserCredentials(ctx context.Context, passportID string) (UserCredentials, error)
	ListUsers(ctx context.Context) ([]User, error)
	SaveFaceImage(ctx context.Context, userID string, image []byte, at time.Time) error
}

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// UserService handles account registration, the face registration stub and
// administrator grants.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hash, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: hash, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

func (s *UserService) ready() error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	return nil
}

// Register creates a regular account. A passport id that is already
// registered yields a ConflictError with reason already_exists.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if err = s.ready(); err != nil {
		return
	}

	params = normalizeRegisterParams(params)
	logger := s.loggerWith(ctx, "Register", "passport_id", params.PassportID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	user, err = s.create(ctx, params, false)
	return
}

// CreateUser lets an administrator create an account, optionally with admin rights.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if err = s.ready(); err != nil {
		return
	}

	input := normalizeRegisterParams(params.Input)
	logger := s.loggerWith(ctx, "CreateUser",
		"principal_id", params.Principal.UserID,
		"passport_id", input.PassportID,
		"is_admin", params.IsAdmin,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrForbidden
		return
	}

	user, err = s.create(ctx, input, params.IsAdmin)
	return
}

func (s *UserService) create(ctx context.Context, params RegisterParams, isAdmin bool) (User, error) {
	vErr := &ValidationError{}
	requireField(vErr, "passportId", params.PassportID)
	requireField(vErr, "name", params.DisplayName)
	if params.Password == "" {
		vErr.add(ReasonMissingField, "password", "password is required")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hashPassword(params.Password)
	if err != nil {
		return User{}, &InfrastructureError{Op: "hash password", Err: err}
	}

	now := s.now()
	user := User{
		ID:          s.idGenerator(),
		PassportID:  params.PassportID,
		DisplayName: params.DisplayName,
		IsAdmin:     isAdmin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.CreateUser(ctx, UserCredentials{User: user, PasswordHash: hash}); err != nil {
		return User{}, toServiceError("create user", err)
	}
	return user, nil
}

// RegisterFace stores a captured face image for the principal and marks the
// account as face registered. imageData is base64, optionally carrying a
// "data:image/...;base64," prefix. No recognition is performed.
func (s *UserService) RegisterFace(ctx context.Context, principal Principal, imageData string) (user User, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "RegisterFace", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register face", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "face registered")
	}()

	if principal.UserID == "" {
		err = ErrForbidden
		return
	}

	imageData = strings.TrimSpace(imageData)
	if imageData == "" {
		err = newValidationError(ReasonMissingField, "imageData", "face image data is required")
		return
	}

	var image []byte
	image, err = base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(imageData, ""))
	if err != nil || len(image) == 0 {
		err = newValidationError(ReasonInvalidValue, "imageData", "face image data must be base64 encoded")
		return
	}

	if err = s.users.SaveFaceImage(ctx, principal.UserID, image, s.now()); err != nil {
		err = toServiceError("save face image", err)
		return
	}

	user, err = s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		err = toServiceError("get user", err)
	}
	return
}

// Profile returns the principal's own account.
func (s *UserService) Profile(ctx context.Context, principal Principal) (user User, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if principal.UserID == "" {
		return User{}, ErrForbidden
	}

	user, err = s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		err = toServiceError("get user", err)
		s.loggerWith(ctx, "Profile", "principal_id", principal.UserID).
			ErrorContext(ctx, "failed to load profile", "error", err, "error_kind", ErrorKind(err))
	}
	return
}

// GrantAdmin gives the account with passportID administrator rights. An empty
// principal is treated as the operator CLI.
func (s *UserService) GrantAdmin(ctx context.Context, principal Principal, passportID string) (user User, err error) {
	if err = s.ready(); err != nil {
		return
	}

	passportID = strings.TrimSpace(passportID)
	logger := s.loggerWith(ctx, "GrantAdmin",
		"principal_id", principal.UserID,
		"passport_id", passportID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to grant admin", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "admin granted")
	}()

	if principal.UserID != "" && !principal.IsAdmin {
		err = ErrForbidden
		return
	}
	if passportID == "" {
		err = newValidationError(ReasonMissingField, "passportId", "passportId is required")
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUserCredentials(ctx, passportID)
	if err != nil {
		err = toServiceError("get user credentials", err)
		return
	}
	if creds.User.IsAdmin {
		user = creds.User
		return
	}

	creds.User.IsAdmin = true
	creds.User.UpdatedAt = s.now()
	if err = s.users.UpdateUser(ctx, creds); err != nil {
		err = toServiceError("update user", err)
		return
	}
	user = creds.User
	return
}

// ListUsers returns every account, newest first. An empty principal is
// treated as the operator CLI.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) (users []User, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListUsers", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(users)).InfoContext(ctx, "users listed")
	}()

	if principal.UserID != "" && !principal.IsAdmin {
		err = ErrForbidden
		return
	}

	users, err = s.users.ListUsers(ctx)
	if err != nil {
		err = toServiceError("list users", err)
	}
	return
}

func normalizeRegisterParams(params RegisterParams) RegisterParams {
	return RegisterParams{
		PassportID:  strings.TrimSpace(params.PassportID),
		DisplayName: strings.TrimSpace(params.DisplayName),
		Password:    params.Password,
	}
}
