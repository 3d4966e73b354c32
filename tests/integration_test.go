package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/SergeiKhy/shortly/internal/auth"
	"github.com/SergeiKhy/shortly/internal/config"
	"github.com/SergeiKhy/shortly/internal/handler"
	"github.com/SergeiKhy/shortly/internal/middleware"
	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/SergeiKhy/shortly/internal/repository"
	"github.com/SergeiKhy/shortly/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// TestMain настраивает тестовые контейнеры
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// nopSender глушит исходящую почту в тестах
type nopSender struct{}

func (nopSender) Send(_ context.Context, _ *service.Email) error { return nil }

// TestEnv хранит окружение для интеграционных тестов
type TestEnv struct {
	router         *gin.Engine
	urls           service.URLService
	tokens         service.TokenService
	mailer         service.MailDispatcher
	dbContainer    testcontainers.Container
	redisContainer testcontainers.Container
	db             *repository.PostgresDB
	redis          *repository.RedisDB
}

// setupTestEnv создаёт тестовое окружение с PostgreSQL и Redis контейнерами
func setupTestEnv(t *testing.T) *TestEnv {
	ctx := t.Context()

	// Запускаем контейнер PostgreSQL
	dbContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("shortly"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	// Запускаем контейнер Redis
	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
	)
	require.NoError(t, err)

	// Получаем данные для подключения
	dbHost, err := dbContainer.Host(ctx)
	require.NoError(t, err)
	dbPort, err := dbContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	// Создаём подключение к БД и накатываем схему
	db, err := repository.NewPostgresDB(config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "user",
		Password: "password",
		Name:     "shortly",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))

	// Создаём подключение к Redis
	redisClient, err := repository.NewRedisClient(config.RedisConfig{
		Host: redisHost,
		Port: redisPort.Port(),
	})
	require.NoError(t, err)

	// Инициализируем репозитории и сервисы
	urlRepo := repository.NewURLRepository(db)
	clickRepo := repository.NewClickRepository(db)
	userRepo := repository.NewUserRepository(db)
	qrRepo := repository.NewQRCodeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	logger := zap.NewNop()
	jwtManager := auth.NewJWTManager("integration-test-secret", time.Hour)
	tokens := service.NewTokenService(cacheRepo, logger)
	recorder := service.NewClickRecorder(clickRepo)

	urlService := service.NewURLService(urlRepo, clickRepo, qrRepo, cacheRepo, recorder, logger, service.URLServiceConfig{
		RedirectTTL: 15 * time.Minute,
	})
	qrService := service.NewQRCodeService(urlRepo, qrRepo, "http://localhost:8080")

	mailer := service.NewMailDispatcher(nopSender{}, logger)
	mailer.Start()

	authService := service.NewAuthService(userRepo, tokens, mailer, jwtManager, logger, 5*time.Minute)

	// Настраиваем роутер с middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 100, // Высокий лимит для тестов
		BurstSize:         200,
		CleanupInterval:   time.Minute,
	})
	jwtAuth := middleware.NewJWTAuth(jwtManager)

	router := handler.NewRouter(urlService, qrService, authService, rateLimiter, jwtAuth, "http://localhost:8080", logger)

	return &TestEnv{
		router:         router,
		urls:           urlService,
		tokens:         tokens,
		mailer:         mailer,
		dbContainer:    dbContainer,
		redisContainer: redisContainer,
		db:             db,
		redis:          redisClient,
	}
}

// teardown очищает ресурсы после теста
func (env *TestEnv) teardown(t *testing.T) {
	env.mailer.Stop()
	env.db.Close()
	env.redis.Close()

	ctx := t.Context()
	if env.dbContainer != nil {
		env.dbContainer.Terminate(ctx)
	}
	if env.redisContainer != nil {
		env.redisContainer.Terminate(ctx)
	}
}

// ShortenResponse представляет тело ответа при создании ссылки
type ShortenResponse struct {
	ID        uuid.UUID `json:"id"`
	ShortCode string    `json:"short_code"`
	LongURL   string    `json:"long_url"`
	IsActive  bool      `json:"is_active"`
	ShortLink string    `json:"short_link"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doJSON выполняет запрос с JSON телом и опциональным Bearer токеном
func (env *TestEnv) doJSON(method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	env.router.ServeHTTP(w, req)
	return w
}

// signupAndLogin регистрирует пользователя и возвращает его access-токен
func (env *TestEnv) signupAndLogin(t *testing.T, email string) (string, uuid.UUID) {
	t.Helper()

	w := env.doJSON("POST", "/api/v1/auth/signup", "", models.SignUpInput{
		Email:    email,
		UserName: "tester",
		Password: "integration-pass1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))

	w = env.doJSON("POST", "/api/v1/auth/login", "", models.LoginInput{
		Email:    email,
		Password: "integration-pass1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var loginResp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.AccessToken)

	return loginResp.AccessToken, user.ID
}

// shorten создаёт короткую ссылку через API
func (env *TestEnv) shorten(t *testing.T, token, longURL string) ShortenResponse {
	t.Helper()

	w := env.doJSON("POST", "/api/v1/urls", token, models.ShortenInput{LongURL: longURL})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp ShortenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ShortCode)
	return resp
}

// TestIntegration_ShortenAndRedirect тестирует создание ссылки и редирект
func TestIntegration_ShortenAndRedirect(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	token, _ := env.signupAndLogin(t, "alice@example.com")

	resp := env.shorten(t, token, "https://example.com/integration-test")
	assert.Len(t, resp.ShortCode, 7)
	assert.True(t, resp.IsActive)

	t.Run("редирект на оригинальный URL", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/"+resp.ShortCode, nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "https://example.com/integration-test", w.Header().Get("Location"))
	})

	t.Run("повторное сокращение возвращает существующую запись", func(t *testing.T) {
		w := env.doJSON("POST", "/api/v1/urls", token, models.ShortenInput{
			LongURL: "https://example.com/integration-test",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		var again ShortenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
		assert.Equal(t, resp.ShortCode, again.ShortCode)
	})

	t.Run("несуществующая ссылка", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/nonexist", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("без токена управление недоступно", func(t *testing.T) {
		w := env.doJSON("POST", "/api/v1/urls", "", models.ShortenInput{
			LongURL: "https://example.com/no-auth",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

// TestIntegration_ClickStats тестирует статистику кликов
func TestIntegration_ClickStats(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	token, _ := env.signupAndLogin(t, "alice@example.com")
	resp := env.shorten(t, token, "https://example.com/stats-test")

	// Симулируем несколько кликов с разных адресов
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/"+resp.ShortCode, nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.168.1.%d", i))
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMovedPermanently, w.Code)
	}

	t.Run("получение статистики кликов", func(t *testing.T) {
		w := env.doJSON("GET", "/api/v1/urls/"+resp.ID.String()+"/stats", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var stats models.ClickStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, resp.ShortCode, stats.ShortCode)
		// Первый клик пишется при промахе кэша, остальные кэш гасит
		assert.GreaterOrEqual(t, stats.TotalClicks, int64(1))
	})

	t.Run("статистика по дням", func(t *testing.T) {
		w := env.doJSON("GET", "/api/v1/urls/"+resp.ID.String()+"/stats/daily?days=7", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

// TestIntegration_DeleteURL тестирует удаление ссылки вместе с кликами
func TestIntegration_DeleteURL(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	token, _ := env.signupAndLogin(t, "alice@example.com")
	resp := env.shorten(t, token, "https://example.com/delete-test")

	// Один клик до удаления
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/"+resp.ShortCode, nil)
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusMovedPermanently, w.Code)

	t.Run("удаление существующей ссылки", func(t *testing.T) {
		w := env.doJSON("DELETE", "/api/v1/urls/"+resp.ID.String(), token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("удаление несуществующей ссылки", func(t *testing.T) {
		w := env.doJSON("DELETE", "/api/v1/urls/"+resp.ID.String(), token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("редирект после удаления", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/"+resp.ShortCode, nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// TestIntegration_DeactivateURL тестирует остановку и включение ссылки
func TestIntegration_DeactivateURL(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	token, _ := env.signupAndLogin(t, "alice@example.com")
	resp := env.shorten(t, token, "https://example.com/pause-test")

	w := env.doJSON("PATCH", "/api/v1/urls/"+resp.ID.String()+"/deactivate", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("остановленная ссылка не редиректит", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/"+resp.ShortCode, nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("повторная остановка даёт конфликт", func(t *testing.T) {
		w := env.doJSON("PATCH", "/api/v1/urls/"+resp.ID.String()+"/deactivate", token, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("после включения редирект работает", func(t *testing.T) {
		w := env.doJSON("PATCH", "/api/v1/urls/"+resp.ID.String()+"/activate", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		rec := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/"+resp.ShortCode, nil)
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	})
}

// TestIntegration_EmailVerification тестирует подтверждение email по токену
func TestIntegration_EmailVerification(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	w := env.doJSON("POST", "/api/v1/auth/signup", "", models.SignUpInput{
		Email:    "bob@example.com",
		UserName: "bob",
		Password: "integration-pass1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.False(t, user.IsVerified)

	// Письмо в тестах глушится, выпускаем токен напрямую
	verifyToken, err := env.tokens.Issue(t.Context(), service.TokenEmailVerification, user.Email, time.Minute)
	require.NoError(t, err)

	t.Run("неверный токен отклоняется", func(t *testing.T) {
		w := env.doJSON("POST", "/api/v1/auth/verify/"+user.ID.String(), "", map[string]string{
			"token": "zzzzzz",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("верный токен подтверждает email", func(t *testing.T) {
		w := env.doJSON("POST", "/api/v1/auth/verify/"+user.ID.String(), "", map[string]string{
			"token": verifyToken,
		})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

// TestIntegration_QRCode тестирует генерацию и получение QR-кода
func TestIntegration_QRCode(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	token, _ := env.signupAndLogin(t, "alice@example.com")
	resp := env.shorten(t, token, "https://example.com/qr-test")

	t.Run("генерация QR-кода", func(t *testing.T) {
		w := env.doJSON("POST", "/api/v1/urls/"+resp.ID.String()+"/qrcode", token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var qr map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &qr))
		assert.Contains(t, qr["qrcode"], "data:image/png;base64,")
	})

	t.Run("повторная генерация даёт конфликт", func(t *testing.T) {
		w := env.doJSON("POST", "/api/v1/urls/"+resp.ID.String()+"/qrcode", token, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("получение сохранённого QR-кода", func(t *testing.T) {
		w := env.doJSON("GET", "/api/v1/urls/"+resp.ID.String()+"/qrcode", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("после удаления QR-кода ссылка остаётся", func(t *testing.T) {
		w := env.doJSON("DELETE", "/api/v1/urls/"+resp.ID.String()+"/qrcode", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = env.doJSON("GET", "/api/v1/urls/"+resp.ID.String()+"/qrcode", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.doJSON("GET", "/api/v1/urls/"+resp.ID.String(), token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

// TestIntegration_HealthCheck тестирует endpoint проверки здоровья
func TestIntegration_HealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/health", nil)
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "ok", resp["status"])
}
