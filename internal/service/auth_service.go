package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"todoTracker/internal/auth"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/user"
	repo "todoTracker/internal/repository"

	"go.uber.org/zap"
)

type TokenIssuer interface {
	GenerateAccessToken(userID int64) (*auth.IssuedToken, error)
	GenerateRefreshToken(userID int64) (*auth.IssuedToken, error)
	ValidateRefreshToken(token string) (*auth.Claims, error)
	AccessTokenDuration() time.Duration
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *user.User
}

type AuthService struct {
	storage Storage
	tokens  TokenIssuer
	hasher  PasswordHasher
	now     func() time.Time
}

func NewAuthService(storage Storage, tokens TokenIssuer, hasher PasswordHasher) *AuthService {
	return &AuthService{
		storage: storage,
		tokens:  tokens,
		hasher:  hasher,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func invalidCredentials() *BusinessError {
	return NewUnauthorized("неверный email или пароль")
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return nil, NewValidationError("username", "от 3 до 50 символов")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewValidationError("email", "некорректный адрес")
	}
	if utf8.RuneCountInString(password) < user.MinPasswordLength {
		return nil, NewValidationError("password", fmt.Sprintf("не короче %d символов", user.MinPasswordLength))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	var created *user.User
	err = s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		u, err := uow.Users().Create(ctx, &user.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return NewBusinessError(CodeUserExists, "пользователь с таким email или username уже существует",
				ToDetail("email", email), ToDetail("username", username))
		}
		if err != nil {
			return fmt.Errorf("создание пользователя: %w", err)
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Пользователь зарегистрирован", zap.Int64("user_id", created.ID))
	return created, nil
}

// issue выпускает пару токенов и сохраняет хеш refresh токена в той же единице работы
func (s *AuthService) issue(ctx context.Context, uow UnitOfWork, u *user.User) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	if _, err := uow.Tokens().Create(ctx, &user.RefreshToken{
		UserID:    u.ID,
		TokenHash: auth.HashToken(refresh.Token),
		ExpiresAt: refresh.ExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("сохранение refresh токена: %w", err)
	}
	return &TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    s.tokens.AccessTokenDuration(),
		User:         u,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var pair *TokenPair
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		u, err := uow.Users().GetByEmail(ctx, email)
		if errors.Is(err, repo.ErrNotFound) {
			return invalidCredentials()
		}
		if err != nil {
			return fmt.Errorf("поиск пользователя: %w", err)
		}
		if !u.IsActive || !s.hasher.Verify(password, u.PasswordHash) {
			return invalidCredentials()
		}
		pair, err = s.issue(ctx, uow, u)
		return err
	})
	if err != nil {
		logger.Warn("Service: Неудачный вход", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return pair, nil
}

// Refresh ротирует токен: старый отзывается, выдаётся новая пара
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, NewUnauthorized("недействительный refresh токен")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, NewUnauthorized("недействительный refresh токен")
	}

	var pair *TokenPair
	err = s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		now := s.now()
		stored, err := uow.Tokens().GetByHash(ctx, auth.HashToken(refreshToken))
		if errors.Is(err, repo.ErrNotFound) {
			return NewUnauthorized("refresh токен не найден")
		}
		if err != nil {
			return fmt.Errorf("поиск refresh токена: %w", err)
		}
		if stored.UserID != userID || !stored.Active(now) {
			return NewUnauthorized("refresh токен отозван или истёк")
		}
		if err := uow.Tokens().Revoke(ctx, stored.ID, now); err != nil {
			return fmt.Errorf("отзыв refresh токена: %w", err)
		}

		u, err := uow.Users().GetByID(ctx, userID)
		if err != nil || !u.IsActive {
			return NewUnauthorized("пользователь недоступен")
		}
		pair, err = s.issue(ctx, uow, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout отзывает все refresh токены пользователя
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		return uow.Tokens().RevokeAllForUser(ctx, userID, s.now())
	})
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*user.User, error) {
	var found *user.User
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		u, err := uow.Users().GetByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFound(ResourceUser, userID)
		}
		found = u
		return err
	})
	return found, err
}
