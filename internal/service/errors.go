package service

import "errors"

// Ошибки сервисного слоя. Каждая несёт свой вид отказа: слои выше
// не схлопывают разные причины в один NotFound.
var (
	ErrInvalidURL  = errors.New("невалидный URL")
	ErrInvalidCode = errors.New("невалидный кастомный код")
	// ErrNotFound ссылка не найдена или деактивирована
	ErrNotFound = errors.New("ссылка не найдена")
	// ErrConflict кастомный код занят, либо ссылка уже в запрошенном состоянии
	ErrConflict = errors.New("конфликт состояния")
	// ErrCodeGeneration не удалось подобрать свободный код за отведённые попытки
	ErrCodeGeneration = errors.New("не удалось сгенерировать свободный код")
	// ErrInvalidToken единый ответ на любой провал проверки одноразового токена:
	// отсутствует, истёк или не совпал. Детали не раскрываем.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidCredentials единый ответ на любой провал аутентификации
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists email уже зарегистрирован
	ErrEmailExists = errors.New("email address already exists")
)
