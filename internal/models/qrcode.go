package models

import (
	"time"

	"github.com/google/uuid"
)

// QRCode PNG-изображение QR-кода, привязанное к короткой ссылке
type QRCode struct {
	URLID     uuid.UUID `json:"url_id"`
	Image     []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
