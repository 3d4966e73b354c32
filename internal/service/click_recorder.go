package service

import (
	"context"
	"time"

	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/SergeiKhy/shortly/internal/repository"
	"github.com/mssola/user_agent"
)

// ClickRecorder записывает событие клика: одна строка аналитики плюс
// инкремент счётчика ссылки, единой единицей работы (транзакция в репозитории).
// Ошибка записи возвращается вызывающему как восстановимая: редирект
// может состояться и без аналитики.
type ClickRecorder interface {
	Record(ctx context.Context, url *models.ShortURL, ipAddress, userAgent string) error
}

type clickRecorder struct {
	clickRepo repository.ClickRepository
}

func NewClickRecorder(clickRepo repository.ClickRepository) ClickRecorder {
	return &clickRecorder{clickRepo: clickRepo}
}

func (r *clickRecorder) Record(ctx context.Context, url *models.ShortURL, ipAddress, userAgent string) error {
	click := &models.Click{
		URLID:     url.ID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ClickedAt: time.Now(),
	}

	// Разбор user-agent для аналитики по браузерам и устройствам
	if userAgent != "" {
		ua := user_agent.New(userAgent)
		click.Browser, _ = ua.Browser()
		click.OS = ua.OS()
		click.Device = "desktop"
		if ua.Mobile() {
			click.Device = "mobile"
		} else if ua.Bot() {
			click.Device = "bot"
		}
	}

	return r.clickRepo.Record(ctx, click)
}
