// Package handoff вычисляет коды подтверждения передачи пожертвования волонтёру.
//
// Код выводится из идентификатора волонтёра детерминированно и не является секретом:
// он доказывает знание идентификатора, а не владение ключом. Устройство поставщика
// может сверить код без обращения к серверу.
package handoff

import "fmt"

const (
	hashSeed   uint32 = 5381
	hashFactor uint32 = 33
	codeModulo uint32 = 100_000_000
)

// CodeFor возвращает восьмизначный код для идентификатора волонтёра.
func CodeFor(volunteerID string) string {
	return fmt.Sprintf("%08d", hash(volunteerID)%codeModulo)
}

// hash: вариант djb2 с XOR в беззнаковой 32-битной арифметике.
func hash(s string) uint32 {
	h := hashSeed
	for _, r := range s {
		h = (h * hashFactor) ^ uint32(r)
	}
	return h
}

// Match возвращает первого кандидата, чей код совпадает с переданным.
func Match(code string, candidates []string) (string, bool) {
	for _, id := range candidates {
		if CodeFor(id) == code {
			return id, true
		}
	}
	return "", false
}
