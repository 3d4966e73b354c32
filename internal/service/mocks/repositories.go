package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/SergeiKhy/shortly/internal/repository"
	"github.com/google/uuid"
)

// MockURLRepository implements repository.URLRepository for testing
type MockURLRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.ShortURL
	byCode map[string]*models.ShortURL
}

func NewMockURLRepository() *MockURLRepository {
	return &MockURLRepository{
		byID:   make(map[uuid.UUID]*models.ShortURL),
		byCode: make(map[string]*models.ShortURL),
	}
}

func (m *MockURLRepository) Create(ctx context.Context, url *models.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[url.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	now := time.Now()
	url.CreatedAt = now
	url.UpdatedAt = now
	m.byID[url.ID] = url
	m.byCode[url.ShortCode] = url
	return nil
}

func (m *MockURLRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	url, exists := m.byID[id]
	if !exists {
		return nil, repository.ErrURLNotFound
	}
	return url, nil
}

func (m *MockURLRepository) GetActiveByShortCode(ctx context.Context, code string) (*models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	url, exists := m.byCode[code]
	if !exists || !url.IsActive {
		return nil, repository.ErrURLNotFound
	}
	return url, nil
}

func (m *MockURLRepository) GetByLongURL(ctx context.Context, longURL string) (*models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, url := range m.byID {
		if url.LongURL == longURL {
			return url, nil
		}
	}
	return nil, repository.ErrURLNotFound
}

func (m *MockURLRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var urls []models.ShortURL
	for _, url := range m.byID {
		if url.UserID == userID {
			urls = append(urls, *url)
		}
	}

	// created_at descending, like the SQL query
	for i := 0; i < len(urls); i++ {
		for j := i + 1; j < len(urls); j++ {
			if urls[j].CreatedAt.After(urls[i].CreatedAt) {
				urls[i], urls[j] = urls[j], urls[i]
			}
		}
	}
	return urls, nil
}

func (m *MockURLRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.byCode[code]
	return exists, nil
}

func (m *MockURLRepository) Update(ctx context.Context, id uuid.UUID, input *models.EditURLInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, exists := m.byID[id]
	if !exists {
		return repository.ErrURLNotFound
	}
	if input.LongURL != nil {
		url.LongURL = *input.LongURL
	}
	if input.Title != nil {
		url.Title = *input.Title
	}
	url.UpdatedAt = time.Now()
	return nil
}

func (m *MockURLRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, exists := m.byID[id]
	if !exists {
		return repository.ErrURLNotFound
	}
	url.IsActive = active
	url.UpdatedAt = time.Now()
	return nil
}

func (m *MockURLRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, exists := m.byID[id]
	if !exists {
		return repository.ErrURLNotFound
	}
	delete(m.byCode, url.ShortCode)
	delete(m.byID, id)
	return nil
}

// IncrementClicks is used by MockClickRepository to mirror the SQL increment
func (m *MockURLRepository) IncrementClicks(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if url, exists := m.byID[id]; exists {
		url.Clicks++
	}
}

func (m *MockURLRepository) CodeByID(id uuid.UUID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	url, exists := m.byID[id]
	if !exists {
		return "", false
	}
	return url.ShortCode, true
}

// MockCacheRepository implements repository.CacheRepository for testing.
// Entries honor TTL so token expiry can be exercised without Redis.
type MockCacheRepository struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	// GetErr / SetErr simulate an unreachable backend
	GetErr error
	SetErr error
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		entries: make(map[string]cacheEntry),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}

	m.mu.RLock()
	entry, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		return "", repository.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", repository.ErrCacheMiss
	}
	return entry.value, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MockCacheRepository) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]cacheEntry)
	return nil
}

func (m *MockCacheRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// MockClickRepository implements repository.ClickRepository for testing.
// It mirrors the production transaction by bumping the click counter
// on the linked MockURLRepository.
type MockClickRepository struct {
	mu     sync.RWMutex
	clicks map[uuid.UUID][]*models.Click
	urls   *MockURLRepository
}

func NewMockClickRepository(urls *MockURLRepository) *MockClickRepository {
	return &MockClickRepository{
		clicks: make(map[uuid.UUID][]*models.Click),
		urls:   urls,
	}
}

func (m *MockClickRepository) Record(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	m.clicks[click.URLID] = append(m.clicks[click.URLID], click)
	m.mu.Unlock()

	if m.urls != nil {
		m.urls.IncrementClicks(click.URLID)
	}
	return nil
}

func (m *MockClickRepository) GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.ClickStats{ShortCode: shortCode}
	uniqueIPs := make(map[string]bool)

	for urlID, clicks := range m.clicks {
		if m.urls != nil {
			if code, ok := m.urls.CodeByID(urlID); !ok || code != shortCode {
				continue
			}
		}
		for _, c := range clicks {
			stats.TotalClicks++
			uniqueIPs[c.IPAddress] = true
		}
	}

	stats.UniqueClicks = int64(len(uniqueIPs))
	return stats, nil
}

func (m *MockClickRepository) GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error) {
	stats, err := m.GetStats(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if stats.TotalClicks == 0 {
		return []models.DailyClickStats{}, nil
	}
	return []models.DailyClickStats{
		{Date: time.Now().Format("2006-01-02"), Clicks: stats.TotalClicks},
	}, nil
}

func (m *MockClickRepository) ListByURL(ctx context.Context, urlID uuid.UUID) ([]models.Click, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var clicks []models.Click
	for _, c := range m.clicks[urlID] {
		clicks = append(clicks, *c)
	}
	return clicks, nil
}

func (m *MockClickRepository) DeleteByURL(ctx context.Context, urlID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clicks, urlID)
	return nil
}

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[user.Email]; exists {
		return repository.ErrEmailExists
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.byEmail[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.byID[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *MockUserRepository) SetVerified(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.byID[id]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.IsVerified = true
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.byID[id]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.Password = passwordHash
	return nil
}

// MockQRCodeRepository implements repository.QRCodeRepository for testing
type MockQRCodeRepository struct {
	mu    sync.RWMutex
	codes map[uuid.UUID]*models.QRCode
}

func NewMockQRCodeRepository() *MockQRCodeRepository {
	return &MockQRCodeRepository{
		codes: make(map[uuid.UUID]*models.QRCode),
	}
}

func (m *MockQRCodeRepository) Create(ctx context.Context, qr *models.QRCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.codes[qr.URLID]; exists {
		return repository.ErrQRCodeExists
	}
	qr.CreatedAt = time.Now()
	m.codes[qr.URLID] = qr
	return nil
}

func (m *MockQRCodeRepository) GetByURL(ctx context.Context, urlID uuid.UUID) (*models.QRCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	qr, exists := m.codes[urlID]
	if !exists {
		return nil, repository.ErrQRCodeNotFound
	}
	return qr, nil
}

func (m *MockQRCodeRepository) DeleteByURL(ctx context.Context, urlID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, urlID)
	return nil
}
