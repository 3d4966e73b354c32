package models

import (
	"time"

	"github.com/google/uuid"
)

type ShortURL struct {
	ID           uuid.UUID `json:"id"`
	ShortCode    string    `json:"short_code"`
	LongURL      string    `json:"long_url"`
	Title        string    `json:"title,omitempty"`
	CustomDomain string    `json:"custom_domain,omitempty"`
	IsActive     bool      `json:"is_active"`
	Clicks       int64     `json:"clicks"`
	UserID       uuid.UUID `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ShortenInput struct {
	LongURL      string  `json:"long_url" binding:"required,url"`
	CustomName   *string `json:"custom_name,omitempty"`
	Title        string  `json:"title,omitempty"`
	CustomDomain *string `json:"custom_domain,omitempty"`
}

// ShortenResult результат создания короткой ссылки.
// AlreadyExists означает, что longUrl уже был сокращён и вернулась существующая запись.
type ShortenResult struct {
	URL           *ShortURL `json:"url"`
	AlreadyExists bool      `json:"already_exists"`
}

type EditURLInput struct {
	LongURL *string `json:"long_url,omitempty"`
	Title   *string `json:"title,omitempty"`
}

// RedirectRequest входные данные редиректа по короткому коду
type RedirectRequest struct {
	Code      string
	Host      string
	IPAddress string
	UserAgent string
}

// URLDetails ссылка с вложенной аналитикой и QR-кодом (data URI)
type URLDetails struct {
	ShortURL
	Analytics ClickStats `json:"analytics"`
	QRCode    string     `json:"qrcode,omitempty"`
}
