package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SergeiKhy/shortly/internal/middleware"
	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/SergeiKhy/shortly/internal/service"
)

type URLHandler struct {
	urls    service.URLService
	qrcodes service.QRCodeService
	baseURL string
	logger  *zap.Logger
}

func NewURLHandler(urls service.URLService, qrcodes service.QRCodeService, baseURL string, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		urls:    urls,
		qrcodes: qrcodes,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type ShortenResponse struct {
	models.ShortURL
	ShortLink string `json:"short_link"`
}

// shortLink собирает полный короткий адрес для ответа
func (h *URLHandler) shortLink(url *models.ShortURL) string {
	if url.CustomDomain != "" {
		return "https://" + url.CustomDomain + "/" + url.ShortCode
	}
	return h.baseURL + "/" + url.ShortCode
}

// Shorten создаёт короткую ссылку.
// Повторное сокращение того же адреса возвращает существующую запись с кодом 200.
func (h *URLHandler) Shorten(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return
	}

	var input models.ShortenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	result, err := h.urls.Shorten(c.Request.Context(), userID, &input)
	if err != nil {
		h.logger.Warn("Failed to shorten URL", zap.Error(err))
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyExists {
		status = http.StatusOK
	}

	c.JSON(status, ShortenResponse{
		ShortURL:  *result.URL,
		ShortLink: h.shortLink(result.URL),
	})
}

// Redirect разрешает короткий код и перенаправляет на исходный адрес
func (h *URLHandler) Redirect(c *gin.Context) {
	code := strings.Trim(c.Param("code"), "/")
	if sub := strings.Trim(c.Param("sub"), "/"); sub != "" {
		code = code + "/" + sub
	}

	req := &models.RedirectRequest{
		Code:      code,
		Host:      c.Request.Host,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	longURL, err := h.urls.Resolve(c.Request.Context(), req)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			h.logger.Error("Failed to resolve short code", zap.String("code", code), zap.Error(err))
		}
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusMovedPermanently, longURL)
}

// ownedURL загружает ссылку по :id и проверяет владельца.
// Чужая ссылка неотличима от несуществующей.
func (h *URLHandler) ownedURL(c *gin.Context) (*models.URLDetails, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid URL id",
		})
		return nil, false
	}

	details, err := h.urls.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	if details.UserID != userID {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
		})
		return nil, false
	}

	return details, true
}

// List возвращает все ссылки пользователя с аналитикой и QR-кодами
func (h *URLHandler) List(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return
	}

	urls, err := h.urls.ListForOwner(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list URLs", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"urls": urls})
}

// Get возвращает одну ссылку с аналитикой
func (h *URLHandler) Get(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, details)
}

// Edit изменяет адрес назначения и/или заголовок ссылки
func (h *URLHandler) Edit(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	var input models.EditURLInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	if err := h.urls.Edit(c.Request.Context(), details.ID, &input); err != nil {
		h.logger.Warn("Failed to edit URL", zap.String("id", details.ID.String()), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "URL updated successfully"})
}

// Activate включает остановленную ссылку
func (h *URLHandler) Activate(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	if err := h.urls.Activate(c.Request.Context(), details.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "URL activated"})
}

// Deactivate останавливает ссылку: редирект начнёт отвечать 404
func (h *URLHandler) Deactivate(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	if err := h.urls.Deactivate(c.Request.Context(), details.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "URL deactivated"})
}

// Delete удаляет ссылку вместе с кликами и QR-кодом
func (h *URLHandler) Delete(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	if err := h.urls.Delete(c.Request.Context(), details.ID); err != nil {
		h.logger.Warn("Failed to delete URL", zap.String("id", details.ID.String()), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "URL deleted successfully"})
}

// Stats возвращает суммарную статистику кликов по ссылке
func (h *URLHandler) Stats(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	stats, err := h.urls.Stats(c.Request.Context(), details.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DailyStats возвращает статистику кликов по дням
func (h *URLHandler) DailyStats(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	days := 7
	if d := c.Query("days"); d != "" {
		if _, err := fmt.Sscanf(d, "%d", &days); err != nil || days < 1 || days > 90 {
			days = 7
		}
	}

	stats, err := h.urls.DailyStats(c.Request.Context(), details.ID, days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GenerateQR создаёт QR-код для ссылки
func (h *URLHandler) GenerateQR(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	image, err := h.qrcodes.Generate(c.Request.Context(), details.ID)
	if err != nil {
		h.logger.Warn("Failed to generate QR code", zap.String("id", details.ID.String()), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"qrcode": image})
}

// GetQR возвращает ранее созданный QR-код
func (h *URLHandler) GetQR(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	image, err := h.qrcodes.Fetch(c.Request.Context(), details.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"qrcode": image})
}

// DeleteQR удаляет QR-код, сама ссылка продолжает работать
func (h *URLHandler) DeleteQR(c *gin.Context) {
	details, ok := h.ownedURL(c)
	if !ok {
		return
	}

	if err := h.qrcodes.Delete(c.Request.Context(), details.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "QR code deleted"})
}
