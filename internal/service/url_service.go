package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/SergeiKhy/shortly/internal/repository"
	"github.com/SergeiKhy/shortly/internal/shortcode"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Константы резолвера
const (
	maxCodeAttempts = 5 // попыток подобрать свободный код перед отказом
)

var (
	urlPattern        = regexp.MustCompile(`^https?://[^\s]+$`)
	customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// URLServiceConfig поведение резолвера
type URLServiceConfig struct {
	RedirectTTL time.Duration
	// CountCacheHits включает запись аналитики и при попадании в кэш.
	// При false попадание в кэш пропускает аналитику (меньше записей,
	// но клики недосчитываются).
	CountCacheHits bool
}

// URLService операции над короткими ссылками
type URLService interface {
	Shorten(ctx context.Context, userID uuid.UUID, input *models.ShortenInput) (*models.ShortenResult, error)
	Resolve(ctx context.Context, req *models.RedirectRequest) (string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.URLDetails, error)
	Edit(ctx context.Context, id uuid.UUID, input *models.EditURLInput) error
	Activate(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListForOwner(ctx context.Context, userID uuid.UUID) ([]models.URLDetails, error)
	Stats(ctx context.Context, id uuid.UUID) (*models.ClickStats, error)
	DailyStats(ctx context.Context, id uuid.UUID, days int) ([]models.DailyClickStats, error)
}

type urlService struct {
	urlRepo   repository.URLRepository
	clickRepo repository.ClickRepository
	qrRepo    repository.QRCodeRepository
	cache     repository.CacheRepository
	recorder  ClickRecorder
	logger    *zap.Logger
	cfg       URLServiceConfig
}

func NewURLService(
	urlRepo repository.URLRepository,
	clickRepo repository.ClickRepository,
	qrRepo repository.QRCodeRepository,
	cache repository.CacheRepository,
	recorder ClickRecorder,
	logger *zap.Logger,
	cfg URLServiceConfig,
) URLService {
	if cfg.RedirectTTL == 0 {
		cfg.RedirectTTL = 15 * time.Minute
	}
	return &urlService{
		urlRepo:   urlRepo,
		clickRepo: clickRepo,
		qrRepo:    qrRepo,
		cache:     cache,
		recorder:  recorder,
		logger:    logger,
		cfg:       cfg,
	}
}

// Ключ кэша параметризован хостом и коротким кодом: каждая ссылка
// кэшируется отдельно, а попадание возможно только с того хоста, который
// уже прошёл проверку кастомного домена
func redirectKey(host, code string) string {
	return "redirect:" + strings.ToLower(host) + ":" + code
}

// Shorten создаёт короткую ссылку.
// Дедупликация best-effort: при уже существующем longUrl возвращается
// существующая запись. Проверка вне транзакции, гонка двух одновременных
// запросов может создать две строки — принятое поведение.
func (s *urlService) Shorten(ctx context.Context, userID uuid.UUID, input *models.ShortenInput) (*models.ShortenResult, error) {
	if !urlPattern.MatchString(input.LongURL) {
		return nil, ErrInvalidURL
	}

	existing, err := s.urlRepo.GetByLongURL(ctx, input.LongURL)
	if err == nil {
		return &models.ShortenResult{URL: existing, AlreadyExists: true}, nil
	}
	if !errors.Is(err, repository.ErrURLNotFound) {
		return nil, fmt.Errorf("failed to check existing url: %w", err)
	}

	url := &models.ShortURL{
		ID:       uuid.New(),
		LongURL:  input.LongURL,
		Title:    input.Title,
		IsActive: true,
		UserID:   userID,
	}
	if input.CustomDomain != nil {
		url.CustomDomain = *input.CustomDomain
	}

	if input.CustomName != nil && *input.CustomName != "" {
		if err := validateCustomCode(*input.CustomName); err != nil {
			return nil, err
		}

		taken, err := s.urlRepo.CodeExists(ctx, *input.CustomName)
		if err != nil {
			return nil, fmt.Errorf("failed to check custom name: %w", err)
		}
		if taken {
			return nil, ErrConflict
		}

		url.ShortCode = *input.CustomName
		if err := s.urlRepo.Create(ctx, url); err != nil {
			if errors.Is(err, repository.ErrCodeExists) {
				// Гонка: имя заняли между проверкой и вставкой
				return nil, ErrConflict
			}
			return nil, err
		}
		return &models.ShortenResult{URL: url}, nil
	}

	// Цикл generate -> create с ограниченным числом попыток:
	// уникальный индекс в БД ловит коллизию, мы пробуем новый код
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := shortcode.Generate(shortcode.ShortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		url.ShortCode = code
		err = s.urlRepo.Create(ctx, url)
		if err == nil {
			return &models.ShortenResult{URL: url}, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return nil, err
		}

		s.logger.Warn("Коллизия короткого кода, повторная генерация",
			zap.String("code", code),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, ErrCodeGeneration
}

// Resolve возвращает длинный URL по короткому коду: сначала кэш,
// затем основное хранилище. Ошибки кэша best-effort: чтение падает
// в хранилище, запись логируется и глотается.
func (s *urlService) Resolve(ctx context.Context, req *models.RedirectRequest) (string, error) {
	code := EffectiveCode(req.Code)
	key := redirectKey(req.Host, code)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		if s.cfg.CountCacheHits {
			s.recordForCode(ctx, code, req)
		}
		return cached, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("Кэш недоступен, идём в хранилище", zap.Error(err))
	}

	url, err := s.urlRepo.GetActiveByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	// Ссылка с кастомным доменом обслуживается только со своего домена
	if url.CustomDomain != "" && req.Host != "" && !strings.EqualFold(url.CustomDomain, req.Host) {
		return "", ErrNotFound
	}

	if err := s.recorder.Record(ctx, url, req.IPAddress, req.UserAgent); err != nil {
		// Аналитика не блокирует редирект
		s.logger.Warn("Не удалось записать клик",
			zap.String("code", code),
			zap.Error(err),
		)
	}

	if err := s.cache.Set(ctx, key, url.LongURL, s.cfg.RedirectTTL); err != nil {
		s.logger.Warn("Не удалось закэшировать редирект", zap.Error(err))
	}

	return url.LongURL, nil
}

// recordForCode запись аналитики для редиректа из кэша: строку ссылки
// всё равно приходится поднимать из хранилища ради её id
func (s *urlService) recordForCode(ctx context.Context, code string, req *models.RedirectRequest) {
	url, err := s.urlRepo.GetActiveByShortCode(ctx, code)
	if err != nil {
		s.logger.Warn("Клик из кэша без строки в хранилище", zap.String("code", code), zap.Error(err))
		return
	}
	if err := s.recorder.Record(ctx, url, req.IPAddress, req.UserAgent); err != nil {
		s.logger.Warn("Не удалось записать клик из кэша", zap.String("code", code), zap.Error(err))
	}
}

// EffectiveCode вычленяет короткий код из пути запроса: для ссылок
// под кастомным доменом путь несёт префикс домена, берём последний сегмент
func EffectiveCode(path string) string {
	p := strings.Trim(path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func (s *urlService) Get(ctx context.Context, id uuid.UUID) (*models.URLDetails, error) {
	url, err := s.urlRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	details, err := s.withDetails(ctx, url)
	if err != nil {
		return nil, err
	}
	return details, nil
}

// Edit меняет изменяемые поля активной ссылки и сбрасывает кэш целиком:
// после правки любой закэшированный редирект может быть устаревшим
func (s *urlService) Edit(ctx context.Context, id uuid.UUID, input *models.EditURLInput) error {
	if input.LongURL != nil && !urlPattern.MatchString(*input.LongURL) {
		return ErrInvalidURL
	}

	url, err := s.urlRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !url.IsActive {
		return ErrNotFound
	}

	if err := s.urlRepo.Update(ctx, id, input); err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.resetCache(ctx)
	return nil
}

func (s *urlService) Activate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, true)
}

func (s *urlService) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := s.setActive(ctx, id, false)
	if err == nil {
		// Деактивированная ссылка не должна дорабатывать из кэша
		s.resetCache(ctx)
	}
	return err
}

func (s *urlService) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	url, err := s.urlRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return ErrNotFound
		}
		return err
	}
	if url.IsActive == active {
		return ErrConflict
	}

	if err := s.urlRepo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete каскадно удаляет аналитику и QR-код, затем саму ссылку,
// после чего сбрасывает кэш
func (s *urlService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.urlRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.clickRepo.DeleteByURL(ctx, id); err != nil {
		return fmt.Errorf("failed to delete analytics: %w", err)
	}
	if err := s.qrRepo.DeleteByURL(ctx, id); err != nil {
		return fmt.Errorf("failed to delete qr code: %w", err)
	}
	if err := s.urlRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.resetCache(ctx)
	return nil
}

// ListForOwner возвращает ссылки владельца от новых к старым
// с вложенной аналитикой и QR-кодом
func (s *urlService) ListForOwner(ctx context.Context, userID uuid.UUID) ([]models.URLDetails, error) {
	urls, err := s.urlRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	details := make([]models.URLDetails, 0, len(urls))
	for i := range urls {
		d, err := s.withDetails(ctx, &urls[i])
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}

	return details, nil
}

func (s *urlService) Stats(ctx context.Context, id uuid.UUID) (*models.ClickStats, error) {
	url, err := s.urlRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.clickRepo.GetStats(ctx, url.ShortCode)
}

func (s *urlService) DailyStats(ctx context.Context, id uuid.UUID, days int) ([]models.DailyClickStats, error) {
	url, err := s.urlRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.clickRepo.GetDailyStats(ctx, url.ShortCode, days)
}

func (s *urlService) withDetails(ctx context.Context, url *models.ShortURL) (*models.URLDetails, error) {
	stats, err := s.clickRepo.GetStats(ctx, url.ShortCode)
	if err != nil {
		return nil, err
	}

	details := &models.URLDetails{
		ShortURL:  *url,
		Analytics: *stats,
	}

	qr, err := s.qrRepo.GetByURL(ctx, url.ID)
	if err == nil {
		// Бинарный PNG отдаём как data URI
		details.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(qr.Image)
	} else if !errors.Is(err, repository.ErrQRCodeNotFound) {
		return nil, err
	}

	return details, nil
}

func (s *urlService) resetCache(ctx context.Context) {
	if err := s.cache.Reset(ctx); err != nil {
		s.logger.Warn("Не удалось сбросить кэш", zap.Error(err))
	}
}

func validateCustomCode(code string) error {
	if len(code) < 4 || len(code) > 12 {
		return ErrInvalidCode
	}
	if !customCodePattern.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}
