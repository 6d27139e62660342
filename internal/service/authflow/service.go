// Package authflow implements credential verification and the token lifecycle:
// login, refresh, logout, change, forgot and reset password.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/geocoder89/carehub/internal/auth"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/geocoder89/carehub/internal/security"
)

var (
	ErrNotFound     = errors.New("user does not exist")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

type Users interface {
	GetActiveByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdatePassword(ctx context.Context, id, hash string, clearNeedChange bool) error
}

// Mailer delivers the password reset link. tokenID identifies the issued reset token.
type Mailer interface {
	SendPasswordReset(ctx context.Context, userID, email, link, tokenID string) error
}

// Revoker records refresh token ids that must no longer be accepted.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Options struct {
	ResetLink  string
	BcryptCost int
	Logger     *slog.Logger
	Prom       *observability.Prom
	// Revoker is optional; without it Logout only clears the client cookie.
	Revoker Revoker
}

type Service struct {
	users   Users
	tokens  *auth.Manager
	mailer  Mailer
	revoker Revoker
	opts    Options
	log     *slog.Logger
}

func NewService(users Users, tokens *auth.Manager, mailer Mailer, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		revoker: opts.Revoker,
		opts:    opts,
		log:     log,
	}
}

type LoginResult struct {
	AccessToken        string `json:"accessToken"`
	RefreshToken       string `json:"-"`
	NeedPasswordChange bool   `json:"needPasswordChange"`
}

type RefreshResult struct {
	AccessToken        string `json:"accessToken"`
	NeedPasswordChange bool   `json:"needPasswordChange"`
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.observe("login", "not_found")
			return LoginResult{}, ErrNotFound
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		s.observe("login", "bad_password")
		return LoginResult{}, fmt.Errorf("%w: password incorrect", ErrUnauthorized)
	}
	s.upgradeHash(ctx, u, password)

	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := s.tokens.GenerateRefreshToken(u.Email, string(u.Role))
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue refresh token: %w", err)
	}

	s.observe("login", "ok")
	s.log.InfoContext(ctx, "auth.login", "user_id", u.ID, "role", u.Role)

	return LoginResult{
		AccessToken:        access,
		RefreshToken:       refresh,
		NeedPasswordChange: u.NeedPasswordChange,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	if refreshToken == "" {
		s.observe("refresh", "missing")
		return RefreshResult{}, fmt.Errorf("%w: refresh token missing", ErrForbidden)
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.observe("refresh", "invalid")
		return RefreshResult{}, fmt.Errorf("%w: %v", ErrForbidden, err)
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return RefreshResult{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			s.observe("refresh", "revoked")
			return RefreshResult{}, fmt.Errorf("%w: refresh token revoked", ErrForbidden)
		}
	}

	u, err := s.users.GetActiveByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.observe("refresh", "inactive")
			return RefreshResult{}, fmt.Errorf("%w: user not active", ErrForbidden)
		}
		return RefreshResult{}, fmt.Errorf("lookup user: %w", err)
	}

	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return RefreshResult{}, fmt.Errorf("issue access token: %w", err)
	}

	s.observe("refresh", "ok")
	return RefreshResult{AccessToken: access, NeedPasswordChange: u.NeedPasswordChange}, nil
}

// Logout revokes the refresh token when a revocation store is configured.
// Missing or unverifiable tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if s.revoker == nil || refreshToken == "" {
		return nil
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	exp := time.Now().Add(s.tokens.RefreshTTL())
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	if err := s.revoker.Revoke(ctx, claims.ID, exp); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.observe("logout", "ok")
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.activeByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := security.CheckPassword(u.PasswordHash, oldPassword); err != nil {
		s.observe("change_password", "bad_password")
		return fmt.Errorf("%w: old password is incorrect", ErrUnauthorized)
	}

	hash, err := security.HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, u.ID, hash, true); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.observe("change_password", "ok")
	return nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.observe("forgot_password", "not_found")
			return fmt.Errorf("%w: user does not exist", ErrBadRequest)
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := s.tokens.GeneratePasswordResetToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	claims, err := s.tokens.VerifyPasswordResetToken(token)
	if err != nil {
		return fmt.Errorf("read reset token: %w", err)
	}

	link := ResetLink(s.opts.ResetLink, u.ID, token)

	if err := s.mailer.SendPasswordReset(ctx, u.ID, u.Email, link, claims.ID); err != nil {
		return fmt.Errorf("dispatch reset link: %w", err)
	}

	s.observe("forgot_password", "ok")
	s.log.InfoContext(ctx, "auth.forgot_password", "user_id", u.ID)
	return nil
}

// ResetPassword overwrites the password of userID. It does not clear needPasswordChange.
func (s *Service) ResetPassword(ctx context.Context, token, userID, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || !u.IsActive() {
		if err == nil || errors.Is(err, user.ErrUserNotFound) {
			s.observe("reset_password", "not_found")
			return fmt.Errorf("%w: user not found", ErrBadRequest)
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	claims, err := s.tokens.VerifyPasswordResetToken(StripBearer(token))
	if err != nil {
		s.observe("reset_password", "invalid_token")
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject != u.ID {
		s.observe("reset_password", "wrong_user")
		return fmt.Errorf("%w: token issued for another user", ErrUnauthorized)
	}

	hash, err := security.HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, u.ID, hash, false); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.observe("reset_password", "ok")
	return nil
}

// upgradeHash re-hashes at the configured cost once the plain password is
// known to be right. Failure only costs a log line.
func (s *Service) upgradeHash(ctx context.Context, u user.User, password string) {
	if !security.NeedsRehash(u.PasswordHash, s.opts.BcryptCost) {
		return
	}

	hash, err := security.HashPassword(password, s.opts.BcryptCost)
	if err == nil {
		err = s.users.UpdatePassword(ctx, u.ID, hash, false)
	}
	if err != nil {
		s.log.WarnContext(ctx, "auth.rehash_failed", "user_id", u.ID, "err", err)
	}
}

func (s *Service) activeByID(ctx context.Context, id string) (user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsActive() {
		return user.User{}, ErrNotFound
	}
	return u, nil
}

func (s *Service) observe(op, result string) {
	s.opts.Prom.ObserveAuth(op, result)
}

// ResetLink builds <base>?id=<userID>&token=<token>.
func ResetLink(base, userID, token string) string {
	q := url.Values{}
	q.Set("id", userID)
	q.Set("token", token)

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// StripBearer accepts both "Bearer <token>" and a raw token.
func StripBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}
