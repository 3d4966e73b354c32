package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortly/internal/repository"
	"github.com/SergeiKhy/shortly/internal/shortcode"
	"go.uber.org/zap"
)

// TokenPurpose назначение одноразового токена
type TokenPurpose string

const (
	TokenEmailVerification TokenPurpose = "EMAIL_VERIFICATION"
	TokenPasswordReset     TokenPurpose = "PASSWORD_RESET"
)

// TokenService выпускает и проверяет короткоживущие одноразовые токены.
// Токен живёт только в кэше и уничтожается при первой успешной проверке.
type TokenService interface {
	Issue(ctx context.Context, purpose TokenPurpose, subject string, ttl time.Duration) (string, error)
	Validate(ctx context.Context, purpose TokenPurpose, subject, supplied string) error
}

type tokenService struct {
	cache  repository.CacheRepository
	logger *zap.Logger
}

func NewTokenService(cache repository.CacheRepository, logger *zap.Logger) TokenService {
	return &tokenService{
		cache:  cache,
		logger: logger,
	}
}

type tokenPayload struct {
	Subject string `json:"subject"`
	Purpose string `json:"purpose"`
	Token   string `json:"token"`
}

// Ключ составной purpose:subject. Одновременные выпуски для разных
// subjects под одним purpose не затирают друг друга; повторный выпуск
// для той же пары перезаписывает предыдущий токен.
func tokenKey(purpose TokenPurpose, subject string) string {
	return fmt.Sprintf("token:%s:%s", purpose, subject)
}

func (s *tokenService) Issue(ctx context.Context, purpose TokenPurpose, subject string, ttl time.Duration) (string, error) {
	token, err := shortcode.Generate(shortcode.TokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	payload := tokenPayload{
		Subject: subject,
		Purpose: string(purpose),
		Token:   token,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token payload: %w", err)
	}

	if err := s.cache.Set(ctx, tokenKey(purpose, subject), string(data), ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return token, nil
}

// Validate сверяет subject, purpose и значение токена. Любое расхождение,
// отсутствие записи или истёкший TTL дают один и тот же ErrInvalidToken:
// по ответу нельзя перечислить валидные subjects. Успешная проверка
// удаляет запись, повтор с тем же токеном провалится.
func (s *tokenService) Validate(ctx context.Context, purpose TokenPurpose, subject, supplied string) error {
	key := tokenKey(purpose, subject)

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("Кэш токенов недоступен", zap.Error(err))
		}
		return ErrInvalidToken
	}

	var payload tokenPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		s.logger.Warn("Повреждённая запись токена", zap.Error(err))
		return ErrInvalidToken
	}

	if payload.Subject != subject || payload.Purpose != string(purpose) || payload.Token != supplied {
		return ErrInvalidToken
	}

	// Одноразовость: без удаления токен можно было бы переиграть
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}

	return nil
}
