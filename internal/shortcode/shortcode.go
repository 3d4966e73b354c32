// Package shortcode генерирует случайные алфавитно-цифровые коды
// для коротких ссылок и одноразовых токенов.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Длины кодов по назначению
const (
	ShortCodeLength = 7 // короткая ссылка
	TokenLength     = 6 // одноразовый токен
)

// Generate возвращает случайную строку указанной длины из 62-символьного
// алфавита. Без внутреннего состояния, безопасна для конкурентных вызовов.
// Коллизии здесь не обрабатываются: их проверяет вызывающая сторона.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}

	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		result[i] = alphabet[num.Int64()]
	}
	return string(result), nil
}
