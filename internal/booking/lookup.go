package booking

import (
	"strings"

	"github.com/Leganyst/apartment-booking/internal/model"
)

// Короткий фрагмент совпал бы почти с любым телефоном.
const minContactDigits = 6

// MatchesContact: проверка для самообслуживания гостя. contact должен совпасть
// с e-mail брони без учёта регистра, либо его цифры должны входить в телефон брони.
// Это знание, а не полноценная аутентификация.
func MatchesContact(b model.Booking, contact string) bool {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return false
	}
	if strings.Contains(contact, "@") {
		return NormalizeEmail(contact) == NormalizeEmail(b.GuestEmail)
	}
	digits := NormalizePhone(contact)
	if len(digits) < minContactDigits {
		return false
	}
	return strings.Contains(NormalizePhone(b.GuestPhone), digits)
}
