package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Leganyst/apartment-booking/internal/calendar"
	"github.com/Leganyst/apartment-booking/internal/model"
)

const (
	minPhoneDigits = 9
	maxPhoneDigits = 15
)

// CreateBookingRequest: заявка гостя с формы бронирования.
type CreateBookingRequest struct {
	ApartmentID string    `json:"apartment_id" validate:"required,max=64"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	Guests      int       `json:"guests" validate:"gte=1"`
	GuestName   string    `json:"guest_name" validate:"required,max=255"`
	GuestPhone  string    `json:"guest_phone" validate:"required,phone"`
	GuestEmail  string    `json:"guest_email" validate:"required,email,max=255"`
}

// ExtraInput: доп. услуга, которую вносит оператор.
// Границы в тегах совпадают с MaxQuantity и MaxAmount.
type ExtraInput struct {
	Description string `json:"description" validate:"required,max=255"`
	Quantity    int64  `json:"quantity" validate:"gte=1,lte=10000"`
	UnitPrice   int64  `json:"unit_price" validate:"gte=0,lte=1000000000000"`
}

// ApartmentInput создаёт или заменяет апартамент.
type ApartmentInput struct {
	ID           string `json:"id" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,max=255"`
	NightlyPrice int64  `json:"nightly_price" validate:"gt=0,lte=1000000000000"`
	Capacity     int    `json:"capacity" validate:"gte=1"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		n := len(NormalizePhone(fl.Field().String()))
		return n >= minPhoneDigits && n <= maxPhoneDigits
	}); err != nil {
		panic(err)
	}
	return v
}

// NormalizePhone оставляет от номера только цифры.
func NormalizePhone(phone string) string {
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if c := phone[i]; c >= '0' && c <= '9' {
			b = append(b, c)
		}
	}
	return string(b)
}

// NormalizeEmail обрезает пробелы и приводит адрес к нижнему регистру.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize чистит контактные поля: валидация и запись видят одни и те же значения.
func (r CreateBookingRequest) Normalize() CreateBookingRequest {
	r.ApartmentID = strings.TrimSpace(r.ApartmentID)
	r.GuestName = strings.TrimSpace(r.GuestName)
	r.GuestPhone = strings.TrimSpace(r.GuestPhone)
	r.GuestEmail = NormalizeEmail(r.GuestEmail)
	return r
}

// Validate проверяет саму заявку, без апартамента.
func (r CreateBookingRequest) Validate() *ValidationError {
	vErr := &ValidationError{}
	collect(validate.Struct(r), vErr)

	switch {
	case r.CheckIn.IsZero():
		vErr.Add("check_in", "check-in date is required")
	case r.CheckOut.IsZero():
		vErr.Add("check_out", "check-out date is required")
	case !r.CheckOut.After(r.CheckIn):
		vErr.Add("check_out", "check-out must be after check-in")
	}

	if !vErr.HasErrors() {
		return nil
	}
	return vErr
}

// Validate проверяет доп. услугу.
func (e ExtraInput) Validate() *ValidationError {
	vErr := &ValidationError{}
	collect(validate.Struct(e), vErr)
	if strings.TrimSpace(e.Description) == "" {
		vErr.Add("description", "description is required")
	}
	if !vErr.HasErrors() {
		return nil
	}
	return vErr
}

// Stay: нормализованное проживание, выведенное из заявки и апартамента.
type Stay struct {
	Range     calendar.TimeRange
	Nights    int
	TotalStay int64
}

// ValidateStay сверяет заявку с апартаментом и считает проживание.
// Даты обрезаются до начала суток в зоне объекта.
func ValidateStay(r CreateBookingRequest, apt model.Apartment, loc *time.Location) (Stay, *ValidationError) {
	vErr := &ValidationError{}

	if !apt.IsActive() {
		vErr.Add("apartment_id", "apartment is not available for booking")
	}
	if r.Guests > apt.Capacity {
		vErr.Add("guests", fmt.Sprintf("apartment capacity is %d guests", apt.Capacity))
	}

	tr, err := calendar.StayRange(r.CheckIn, r.CheckOut, loc)
	if err != nil {
		vErr.Add("check_out", "stay must be at least one night")
	}

	if vErr.HasErrors() {
		return Stay{}, vErr
	}

	nights := tr.Nights()
	total, err := TotalStay(nights, apt.NightlyPrice)
	if err != nil {
		vErr.Add("check_out", "stay total exceeds the supported amount")
		return Stay{}, vErr
	}
	return Stay{
		Range:     tr,
		Nights:    nights,
		TotalStay: total,
	}, nil
}

// Validate проверяет поля апартамента и возвращает модель для записи.
func (a ApartmentInput) Validate() (model.Apartment, *ValidationError) {
	a.ID = strings.TrimSpace(a.ID)
	a.Name = strings.TrimSpace(a.Name)
	a.Status = strings.ToLower(strings.TrimSpace(a.Status))

	vErr := &ValidationError{}
	collect(validate.Struct(a), vErr)
	if vErr.HasErrors() {
		return model.Apartment{}, vErr
	}

	status := model.ApartmentStatus(a.Status)
	if status == "" {
		status = model.ApartmentStatusActive
	}
	return model.Apartment{
		ID:           a.ID,
		Name:         a.Name,
		NightlyPrice: a.NightlyPrice,
		Capacity:     a.Capacity,
		Status:       status,
	}, nil
}

func collect(err error, vErr *ValidationError) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.Add("request", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		vErr.Add(fe.Field(), fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "must be a valid email address"
	case "phone":
		return fmt.Sprintf("must contain %d to %d digits", minPhoneDigits, maxPhoneDigits)
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
