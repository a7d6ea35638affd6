package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
)

// DefaultTokenTTL is the validity window of a login token.
const DefaultTokenTTL = 30 * 24 * time.Hour

// TokenIssuer mints signed session tokens.
type TokenIssuer interface {
	Issue(p rbac.Principal, ttl time.Duration) (string, time.Time, error)
}

// Throttle tracks failed logins per identifier.
type Throttle interface {
	Locked(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// SignupNotifier is told about every successful registration.
type SignupNotifier interface {
	NotifySignup(ctx context.Context, userID, email, userName string) error
}

// ServiceConfig carries the optional collaborators of Service.
type ServiceConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
	Throttle   Throttle
	Notifier   SignupNotifier
	Logger     *slog.Logger
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	issuer    TokenIssuer
	ttl       time.Duration
	cost      int
	throttle  Throttle
	notifier  SignupNotifier
	logger    *slog.Logger
	validate  *validator.Validate
	dummyHash []byte
}

// NewService constructs a new Service.
func NewService(repo Repository, issuer TokenIssuer, cfg ServiceConfig) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// Compared against when the email is unknown so both failure paths cost one bcrypt check.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("odyssey-hr/unknown-account"), cost)
	return &Service{
		repo:      repo,
		issuer:    issuer,
		ttl:       ttl,
		cost:      cost,
		throttle:  cfg.Throttle,
		notifier:  cfg.Notifier,
		logger:    logger,
		validate:  validator.New(),
		dummyHash: dummy,
	}
}

// TokenTTL exposes the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.ttl
}

// Login verifies email/password credentials and mints a session token.
// Unknown emails and wrong passwords fail with the same error.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if s.isLocked(ctx, email) {
		return LoginResult{}, shared.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return LoginResult{}, shared.Unavailable(err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.recordFailure(ctx, email)
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil || !user.IsActive {
		s.recordFailure(ctx, email)
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	s.resetFailures(ctx, email)

	principal := rbac.Principal{ID: strconv.FormatInt(user.ID, 10), Role: user.Role}
	token, expiresAt, err := s.issuer.Issue(principal, s.ttl)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: issue token: %w", err)
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    principal.ID,
		UserName:  user.UserName,
		Role:      user.Role,
	}, nil
}

// Register creates a credential record for a new email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Registration, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return Registration{}, shared.ValidationFromStruct(err)
	}
	role := rbac.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		parsed, err := rbac.ParseRole(in.Role)
		if err != nil {
			return Registration{}, shared.Validation("role must be USER or ADMIN")
		}
		role = parsed
	}

	exists, err := s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return Registration{}, shared.Unavailable(err)
	}
	if exists {
		s.logger.WarnContext(ctx, "signup attempted with existing email")
		return Registration{}, shared.ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Registration{}, fmt.Errorf("auth: hash password: %w", err)
	}
	created, err := s.repo.Create(ctx, User{
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		Code:         RegistrationCode(),
	})
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return Registration{}, err
		}
		return Registration{}, shared.Unavailable(err)
	}

	reg := Registration{
		ID:       strconv.FormatInt(created.ID, 10),
		UserName: created.UserName,
		Email:    created.Email,
		Role:     created.Role,
		Code:     created.Code,
	}
	if s.notifier != nil {
		if err := s.notifier.NotifySignup(ctx, reg.ID, reg.Email, reg.UserName); err != nil {
			s.logger.WarnContext(ctx, "enqueue signup notification", slog.Any("error", err))
		}
	}
	return reg, nil
}

// RegistrationCode returns a display code of the form "V1" followed by a number in [11, 99].
// It is informational and carries no security meaning.
func RegistrationCode() string {
	return "V1" + strconv.Itoa(11+rand.IntN(89))
}

func (s *Service) isLocked(ctx context.Context, email string) bool {
	if s.throttle == nil {
		return false
	}
	locked, err := s.throttle.Locked(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "login throttle lookup", slog.Any("error", err))
		return false
	}
	return locked
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Fail(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "login throttle record", slog.Any("error", err))
	}
}

func (s *Service) resetFailures(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "login throttle reset", slog.Any("error", err))
	}
}
