package models

import (
	"time"

	"github.com/google/uuid"
)

type Click struct {
	ID        int64     `json:"id"`
	URLID     uuid.UUID `json:"url_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Browser   string    `json:"browser,omitempty"`
	OS        string    `json:"os,omitempty"`
	Device    string    `json:"device,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

type ClickStats struct {
	ShortCode    string `json:"short_code"`
	TotalClicks  int64  `json:"total_clicks"`
	UniqueClicks int64  `json:"unique_clicks"`
}

type DailyClickStats struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}
