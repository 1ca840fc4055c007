package booking

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const bookingIDPrefix = "RSV-"

// NewBookingID выдаёт короткий читаемый номер вида RSV-1A2B3C4D.
func NewBookingID() string {
	id := uuid.New()
	return bookingIDPrefix + strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}

// NewPaymentReference выдаёт 9-значный номер для платежа.
// Коллизии не проверяются.
func NewPaymentReference() string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8]) % 900_000_000
	return fmt.Sprintf("%09d", n+100_000_000)
}

// NewExtraID: идентификатор доп. услуги внутри брони.
func NewExtraID() string {
	return uuid.NewString()
}
