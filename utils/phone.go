package utils

import (
	"regexp"
	"strings"
)

// Узбекский мобильный номер: опциональный префикс +998 / 998 и 9 цифр
var phoneRe = regexp.MustCompile(`^(\+?998)?[0-9]{9}$`)

// NormalizePhone убирает пробелы, дефисы и скобки
func NormalizePhone(raw string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return r.Replace(strings.TrimSpace(raw))
}

// ValidPhone проверяет номер после нормализации
func ValidPhone(raw string) bool {
	return phoneRe.MatchString(NormalizePhone(raw))
}
