package booking

import (
	"time"

	"github.com/Leganyst/apartment-booking/internal/calendar"
	"github.com/Leganyst/apartment-booking/internal/model"
)

// HasConflict: пересекается ли проживание [checkIn, checkOut) на apartmentID
// с бронью, которая ещё держит даты. Выезд в день чужого заезда не конфликт.
func HasConflict(existing []model.Booking, apartmentID string, checkIn, checkOut time.Time) bool {
	_, found := FindConflict(existing, apartmentID, checkIn, checkOut)
	return found
}

// FindConflict возвращает первую бронь, мешающую запрошенному проживанию.
func FindConflict(existing []model.Booking, apartmentID string, checkIn, checkOut time.Time) (model.Booking, bool) {
	conflicts := Conflicts(existing, apartmentID, checkIn, checkOut)
	if len(conflicts) == 0 {
		return model.Booking{}, false
	}
	return conflicts[0], true
}

// Conflicts возвращает все брони апартамента, которые держат пересекающиеся даты,
// в порядке existing.
func Conflicts(existing []model.Booking, apartmentID string, checkIn, checkOut time.Time) []model.Booking {
	var (
		holders []model.Booking
		ranges  []calendar.TimeRange
	)
	for _, b := range existing {
		if b.ApartmentID != apartmentID || !b.Status.HoldsDates() {
			continue
		}
		holders = append(holders, b)
		ranges = append(ranges, calendar.TimeRange{Start: b.CheckIn, End: b.CheckOut})
	}

	candidate := calendar.TimeRange{Start: checkIn, End: checkOut}
	found, idx := calendar.HasOverlap(candidate, ranges, false)
	if !found {
		return nil
	}
	out := make([]model.Booking, 0, len(idx))
	for _, i := range idx {
		out = append(out, holders[i])
	}
	return out
}
