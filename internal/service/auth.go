package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/models"
	"github.com/HardCodeMatter/file-fortress-api/internal/mykafka"
	"github.com/HardCodeMatter/file-fortress-api/internal/repo"
	"github.com/HardCodeMatter/file-fortress-api/internal/tokens"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID, hashed string) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hashed, plain string) (bool, error)
}

type TokenIssuer interface {
	IssueAccess(subject string) (tokens.Token, error)
	IssueRefresh(subject string) (tokens.Token, error)
	Decode(raw string, expected tokens.Kind) (string, error)
}

type AuthService struct {
	Users  UserStore
	Hasher PasswordHasher
	Tokens TokenIssuer
	Events mykafka.Publisher
	Topic  string
	Now    func() time.Time
}

func NewAuthService(users UserStore, hasher PasswordHasher, issuer TokenIssuer, events mykafka.Publisher, topic string) *AuthService {
	if events == nil {
		events = mykafka.NopPublisher{}
	}
	return &AuthService{
		Users:  users,
		Hasher: hasher,
		Tokens: issuer,
		Events: events,
		Topic:  topic,
		Now:    time.Now,
	}
}

type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	AccessExp    time.Time `json:"-"`
	RefreshExp   time.Time `json:"-"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	user, err := s.newUser(in)
	if err != nil {
		l.Info("register_failed", "status", 400, "reason", DetailOf(err))
		return nil, err
	}

	if err := s.ensureUnique(ctx, user); err != nil {
		l.Info("register_failed", "status", 409, "username", user.Username, "reason", DetailOf(err))
		return nil, err
	}

	hashed, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, internalError("hash password", err)
	}
	user.HashedPassword = hashed

	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			cerr := s.ensureUnique(ctx, user)
			if cerr == nil {
				cerr = newError(KindConflict, MsgUsernameTaken)
			}
			l.Info("register_failed", "status", 409, "username", user.Username, "reason", DetailOf(cerr))
			return nil, cerr
		}
		l.Error("register_failed", "status", 500, "error", err)
		return nil, internalError("create user", err)
	}

	s.publish(ctx, user.ID, mykafka.UserEvent{
		Type:       mykafka.EventUserRegistered,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: s.Now().UTC(),
	})
	l.Info("user_registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *AuthService) newUser(in RegisterInput) (*models.User, error) {
	username := NormalizeUsername(in.Username)
	if ok, msg := ValidateUsername(username); !ok {
		return nil, newError(KindValidation, msg)
	}
	email, ok := NormalizeEmail(in.Email)
	if !ok {
		return nil, newError(KindValidation, "Email is not valid.")
	}
	first, ok, msg := NormalizeName("First name", in.FirstName)
	if !ok {
		return nil, newError(KindValidation, msg)
	}
	last, ok, msg := NormalizeName("Last name", in.LastName)
	if !ok {
		return nil, newError(KindValidation, msg)
	}
	if ok, msg := ValidatePassword(in.Password); !ok {
		return nil, newError(KindValidation, msg)
	}

	return &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		FirstName: first,
		LastName:  last,
		IsActive:  true,
	}, nil
}

// ensureUnique checks the username first, then the email.
func (s *AuthService) ensureUnique(ctx context.Context, u *models.User) error {
	if _, err := s.Users.GetUserByUsername(ctx, u.Username); err == nil {
		return newError(KindConflict, MsgUsernameTaken)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return internalError("lookup username", err)
	}

	if _, err := s.Users.GetUserByEmail(ctx, u.Email); err == nil {
		return newError(KindConflict, MsgEmailTaken)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return internalError("lookup email", err)
	}
	return nil
}

// Authenticate does not tell a missing user apart from a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.Users.GetUserByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(KindUnauthorized, MsgIncorrectCredentials)
		}
		return nil, internalError("lookup user", err)
	}

	ok, err := s.Hasher.Verify(user.HashedPassword, password)
	if err != nil {
		return nil, internalError("verify password", err)
	}
	if !ok {
		return nil, newError(KindUnauthorized, MsgIncorrectCredentials)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if KindOf(err) == KindInternal {
			l.Error("login_failed", "status", 500, "error", err)
		} else {
			l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
		}
		return nil, err
	}

	pair, err := s.issuePair(user.Username)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, user.ID, mykafka.UserEvent{
		Type:       mykafka.EventUserLoggedIn,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: s.Now().UTC(),
	})
	return pair, nil
}

// Refresh issues a new pair for a valid refresh token. The old token is
// not revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	username, err := s.Tokens.Decode(refreshToken, tokens.KindRefresh)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", err.Error())
		return nil, newError(KindUnauthorized, MsgInvalidCredentials)
	}

	user, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "subject not found")
			return nil, newError(KindUnauthorized, MsgInvalidCredentials)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, internalError("lookup user", err)
	}
	if !user.IsActive {
		l.Warn("refresh_failed", "status", 401, "reason", "user is not active")
		return nil, newError(KindUnauthorized, MsgInvalidCredentials)
	}

	pair, err := s.issuePair(user.Username)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) issuePair(subject string) (*TokenPair, error) {
	access, err := s.Tokens.IssueAccess(subject)
	if err != nil {
		return nil, internalError("issue access token", err)
	}
	refresh, err := s.Tokens.IssueRefresh(subject)
	if err != nil {
		return nil, internalError("issue refresh token", err)
	}
	return &TokenPair{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "bearer",
		AccessExp:    access.ExpiresAt,
		RefreshExp:   refresh.ExpiresAt,
	}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "username", username)

	user, err := s.GetUser(ctx, username)
	if err != nil {
		return err
	}

	ok, err := s.Hasher.Verify(user.HashedPassword, oldPassword)
	if err != nil {
		l.Error("change_password_failed", "status", 500, "error", err)
		return internalError("verify password", err)
	}
	if !ok {
		l.Info("change_password_failed", "status", 400, "reason", "old password mismatch")
		return newError(KindBadRequest, MsgOldPasswordIncorrect)
	}
	if ok, msg := ValidatePassword(newPassword); !ok {
		return newError(KindValidation, msg)
	}
	if newPassword == oldPassword {
		return newError(KindBadRequest, MsgPasswordUnchanged)
	}

	hashed, err := s.Hasher.Hash(newPassword)
	if err != nil {
		l.Error("change_password_failed", "status", 500, "error", err)
		return internalError("hash password", err)
	}
	if err := s.Users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		l.Error("change_password_failed", "status", 500, "error", err)
		return internalError("update password", err)
	}
	l.Info("password_changed", "user_id", user.ID)
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.Users.GetUserByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(KindNotFound, MsgUserNotFound)
		}
		return nil, internalError("lookup user", err)
	}
	return user, nil
}

// CurrentUser resolves the subject of an access token.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(KindUnauthorized, MsgInvalidCredentials)
		}
		return nil, internalError("lookup user", err)
	}
	if !user.IsActive {
		return nil, newError(KindBadRequest, MsgUserInactive)
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, key string, ev mykafka.UserEvent) {
	if err := s.Events.PublishEvent(ctx, s.Topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "topic", s.Topic, "event", ev.Type, "error", err)
	}
}
