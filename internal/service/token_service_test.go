package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/shortly/internal/service"
	"github.com/SergeiKhy/shortly/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTokenService создаёт тестовое окружение с моковым кэшем
func setupTokenService() (service.TokenService, *mocks.MockCacheRepository) {
	cache := mocks.NewMockCacheRepository()
	logger, _ := zap.NewDevelopment()
	tokens := service.NewTokenService(cache, logger)
	return tokens, cache
}

// TestTokenService_RoundTrip проверяет выпуск и однократную проверку токена
func TestTokenService_RoundTrip(t *testing.T) {
	tokens, _ := setupTokenService()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, service.TokenEmailVerification, "alice@example.com", 15*time.Minute)
	require.NoError(t, err)
	assert.Len(t, token, 6)

	// Первая проверка успешна
	err = tokens.Validate(ctx, service.TokenEmailVerification, "alice@example.com", token)
	require.NoError(t, err)

	// Повтор с тем же токеном проваливается: токен одноразовый
	err = tokens.Validate(ctx, service.TokenEmailVerification, "alice@example.com", token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

// TestTokenService_WrongValue проверяет отклонение неверного значения токена
func TestTokenService_WrongValue(t *testing.T) {
	tokens, _ := setupTokenService()
	ctx := context.Background()

	_, err := tokens.Issue(ctx, service.TokenEmailVerification, "alice@example.com", time.Minute)
	require.NoError(t, err)

	err = tokens.Validate(ctx, service.TokenEmailVerification, "alice@example.com", "zzzzzz")
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	// Провал проверки не уничтожает токен
	err = tokens.Validate(ctx, service.TokenEmailVerification, "alice@example.com", "yyyyyy")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

// TestTokenService_WrongSubject проверяет отклонение чужого subject
func TestTokenService_WrongSubject(t *testing.T) {
	tokens, _ := setupTokenService()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, service.TokenEmailVerification, "alice@example.com", time.Minute)
	require.NoError(t, err)

	err = tokens.Validate(ctx, service.TokenEmailVerification, "bob@example.com", token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

// TestTokenService_WrongPurpose проверяет отклонение токена другого назначения
func TestTokenService_WrongPurpose(t *testing.T) {
	tokens, _ := setupTokenService()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, service.TokenEmailVerification, "alice@example.com", time.Minute)
	require.NoError(t, err)

	err = tokens.Validate(ctx, service.TokenPasswordReset, "alice@example.com", token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

// TestTokenService_Expired проверяет отклонение истёкшего токена
func TestTokenService_Expired(t *testing.T) {
	tokens, _ := setupTokenService()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, service.TokenPasswordReset, "alice@example.com", 20*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	err = tokens.Validate(ctx, service.TokenPasswordReset, "alice@example.com", token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

// TestTokenService_IndependentSubjects проверяет, что токены разных subjects
// под одним purpose не затирают друг друга
func TestTokenService_IndependentSubjects(t *testing.T) {
	tokens, _ := setupTokenService()
	ctx := context.Background()

	tokenAlice, err := tokens.Issue(ctx, service.TokenEmailVerification, "alice@example.com", time.Minute)
	require.NoError(t, err)

	tokenBob, err := tokens.Issue(ctx, service.TokenEmailVerification, "bob@example.com", time.Minute)
	require.NoError(t, err)

	assert.NoError(t, tokens.Validate(ctx, service.TokenEmailVerification, "alice@example.com", tokenAlice))
	assert.NoError(t, tokens.Validate(ctx, service.TokenEmailVerification, "bob@example.com", tokenBob))
}

// TestTokenService_ReissueOverwrites проверяет, что повторный выпуск
// для той же пары purpose+subject гасит предыдущий токен
func TestTokenService_ReissueOverwrites(t *testing.T) {
	tokens, _ := setupTokenService()
	ctx := context.Background()

	first, err := tokens.Issue(ctx, service.TokenEmailVerification, "alice@example.com", time.Minute)
	require.NoError(t, err)

	second, err := tokens.Issue(ctx, service.TokenEmailVerification, "alice@example.com", time.Minute)
	require.NoError(t, err)

	if first != second {
		err = tokens.Validate(ctx, service.TokenEmailVerification, "alice@example.com", first)
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	}

	assert.NoError(t, tokens.Validate(ctx, service.TokenEmailVerification, "alice@example.com", second))
}

// TestTokenService_CacheUnavailable проверяет единый отказ при недоступном кэше
func TestTokenService_CacheUnavailable(t *testing.T) {
	tokens, cache := setupTokenService()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, service.TokenEmailVerification, "alice@example.com", time.Minute)
	require.NoError(t, err)

	cache.GetErr = assert.AnError
	err = tokens.Validate(ctx, service.TokenEmailVerification, "alice@example.com", token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}
