// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// PickupCodeLength: длина кода подтверждения передачи.
const PickupCodeLength = 8

// DateLayout: формат дат в параметрах запросов.
const DateLayout = "2006-01-02"

// IsValidPickupCode проверяет, что код состоит ровно из восьми цифр ASCII.
func IsValidPickupCode(code string) bool {
	if len(code) != PickupCodeLength {
		return false
	}

	for i := 0; i < len(code); i++ {
		ch := rune(code[i])
		if ch > unicode.MaxASCII || !unicode.IsDigit(ch) {
			return false
		}
	}

	return true
}

// IsBlank сообщает, что строка пуста или состоит только из пробельных символов.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ParseDay разбирает дату в формате YYYY-MM-DD в UTC. Пустая строка означает отсутствие значения.
func ParseDay(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}

// EndOfDay возвращает последний момент суток, к которым относится t.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
