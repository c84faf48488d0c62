package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/authsession"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/specification"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/pkg/events"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrExternalAccount     = errors.New("account uses an external sign-in provider")
)

const pgUniqueViolation = "23505"

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*authsession.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*authsession.Session, error)
	// Logout revokes refreshToken, or every token of the user when it is empty.
	Logout(ctx context.Context, userId uuid.UUID, refreshToken string) error
	// CurrentSession returns nil when the access token is missing, invalid or expired.
	CurrentSession(ctx context.Context, accessToken string) *authsession.Session
	// SignInVerified signs in a user whose email an external provider already verified.
	SignInVerified(ctx context.Context, email string, provider string) (*authsession.Session, error)
}

type authService struct {
	uowFactory     unitofwork.RepositoryFactory
	issuer         *authsession.TokenIssuer
	notifier       *authsession.Notifier
	eventPublisher events.Publisher
	refreshTTL     time.Duration
	logger         logger.ILogger
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	issuer *authsession.TokenIssuer,
	notifier *authsession.Notifier,
	eventPublisher events.Publisher,
	refreshTTL time.Duration,
	log logger.ILogger,
) IAuthService {
	return &authService{
		uowFactory:     uowFactory,
		issuer:         issuer,
		notifier:       notifier,
		eventPublisher: eventPublisher,
		refreshTTL:     refreshTTL,
		logger:         log,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	now := time.Now()
	user := &entity.User{
		Id:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: &hashStr,
		Provider:     entity.UserProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := uow.ProfileRepository().Upsert(ctx, &entity.Profile{Id: user.Id, UpdatedAt: now}); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("AUTH", "User registered", map[string]interface{}{"user_id": user.Id.String()})
	return &dto.RegisterResponse{Id: user.Id, Email: user.Email}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*authsession.Session, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == nil {
		return nil, ErrExternalAccount
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session, err := s.startSession(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, authsession.SignedIn, user)
	return session, nil
}

func (s *authService) SignInVerified(ctx context.Context, email string, provider string) (*authsession.Session, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if user == nil {
		now := time.Now()
		user = &entity.User{
			Id:        uuid.New(),
			Email:     email,
			Provider:  provider,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := uow.Begin(ctx); err != nil {
			return nil, err
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			uow.Rollback()
			return nil, fmt.Errorf("create user: %w", err)
		}
		if err := uow.ProfileRepository().Upsert(ctx, &entity.Profile{Id: user.Id, UpdatedAt: now}); err != nil {
			uow.Rollback()
			return nil, fmt.Errorf("create profile: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return nil, err
		}
		s.logger.Info("AUTH", "User created from external provider", map[string]interface{}{
			"user_id":  user.Id.String(),
			"provider": provider,
		})
	}

	session, err := s.startSession(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, authsession.SignedIn, user)
	return session, nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new one
// issued in the same transaction. Only the caller whose revoke changes the row
// gets a new session.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*authsession.Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)

	tokenHash := authsession.HashRefreshToken(refreshToken)
	stored, err := uow.UserRepository().FindRefreshToken(ctx,
		specification.ByTokenHash{Hash: tokenHash},
		specification.UsableToken{Now: time.Now()},
	)
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if stored == nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: stored.UserId})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidRefreshToken
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	revoked, err := uow.UserRepository().RevokeRefreshToken(ctx, user.Id, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if revoked == 0 {
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.startSession(ctx, uow, user)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	s.announce(ctx, authsession.TokenRefreshed, user)
	return session, nil
}

func (s *authService) Logout(ctx context.Context, userId uuid.UUID, refreshToken string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	var err error
	if refreshToken != "" {
		_, err = uow.UserRepository().RevokeRefreshToken(ctx, userId, authsession.HashRefreshToken(refreshToken))
	} else {
		err = uow.UserRepository().RevokeAllRefreshTokens(ctx, userId)
	}
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.announce(ctx, authsession.SignedOut, &entity.User{Id: userId})
	return nil
}

func (s *authService) CurrentSession(ctx context.Context, accessToken string) *authsession.Session {
	if accessToken == "" {
		return nil
	}
	claims, err := s.issuer.Parse(accessToken)
	if err != nil {
		return nil
	}
	return &authsession.Session{
		AccessToken: accessToken,
		UserId:      claims.UserId,
		Email:       claims.Email,
		ExpiresAt:   claims.ExpiresAt,
	}
}

func (s *authService) startSession(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) (*authsession.Session, error) {
	accessToken, expiresAt, err := s.issuer.Issue(user.Id, user.Email)
	if err != nil {
		return nil, err
	}

	rawRefresh, err := authsession.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	err = uow.UserRepository().CreateRefreshToken(ctx, &entity.UserRefreshToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		TokenHash: authsession.HashRefreshToken(rawRefresh),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &authsession.Session{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		UserId:       user.Id,
		Email:        user.Email,
		ExpiresAt:    expiresAt,
	}, nil
}

// announce tells in-process listeners and, when configured, the event bus.
// Neither failure affects the caller.
func (s *authService) announce(ctx context.Context, event authsession.ChangeEvent, user *entity.User) {
	if s.notifier != nil {
		if err := s.notifier.Publish(authsession.Change{Event: event, UserId: user.Id, Email: user.Email}); err != nil {
			s.logger.Warn("AUTH", "Failed to publish session change", map[string]interface{}{
				"event": string(event),
				"error": err.Error(),
			})
		}
	}

	if s.eventPublisher == nil {
		return
	}
	var eventType string
	switch event {
	case authsession.SignedIn:
		eventType = events.TypeUserLogin
	case authsession.SignedOut:
		eventType = events.TypeUserLogout
	default:
		return
	}
	evt := events.New(eventType, map[string]interface{}{
		"user_id": user.Id.String(),
		"time":    time.Now().Format(time.RFC822),
	})
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("AUTH", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
