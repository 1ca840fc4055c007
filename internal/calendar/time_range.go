package calendar

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidDate      = errors.New("invalid date")
)

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт непустой интервал: обе границы заданы, End строго позже Start.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// StayRange приводит даты заезда и выезда к началу календарных суток в loc.
// Выезд должен быть строго позже заезда.
func StayRange(checkIn, checkOut time.Time, loc *time.Location) (TimeRange, error) {
	// нулевое время в чужой зоне перестаёт быть нулевым, проверяем до сдвига
	if checkIn.IsZero() || checkOut.IsZero() {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return NewTimeRange(StartOfDay(checkIn, loc), StartOfDay(checkOut, loc))
}

// Nights: число ночей между датами интервала.
func (tr TimeRange) Nights() int {
	return NightsBetween(tr.Start, tr.End)
}

// HasOverlap проверяет, пересекается ли newRange с existing, и возвращает
// индексы пересечений в existing по порядку.
// inclusive = true: касание концами считается пересечением.
func HasOverlap(
	newRange TimeRange,
	existing []TimeRange,
	inclusive bool,
) (bool, []int) {
	var conflicts []int

	for i, tr := range existing {
		if Overlaps(newRange, tr, inclusive) {
			conflicts = append(conflicts, i)
		}
	}

	return len(conflicts) > 0, conflicts
}

func Overlaps(a, b TimeRange, inclusive bool) bool {
	if inclusive {
		return !a.Start.After(b.End) && !b.Start.After(a.End)
	}

	// Полуоткрытые интервалы [Start, End)
	// пересекаются, если a.Start < b.End && b.Start < a.End
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// StartOfDay возвращает полночь календарного дня t в loc.
// Если loc == nil, используется зона самого t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// NightsBetween считает разницу в календарных днях; переходы на летнее
// время на результат не влияют.
func NightsBetween(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	a := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// ParseDate разбирает дату вида 2006-01-02 или RFC3339 и возвращает начало дня в loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return StartOfDay(t, loc), nil
}

// FormatDate печатает дату в формате 2006-01-02 в loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}
