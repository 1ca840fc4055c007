package access

import (
	"context"
	"errors"
	"slices"

	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

// Ошибки проверки оператора.
var (
	ErrInvalidOperatorID = errors.New("invalid operator id")
	ErrOperatorNotFound  = errors.New("operator not found")
	ErrOperatorInactive  = errors.New("operator is inactive")
	ErrPermissionDenied  = errors.New("permission denied")
)

type Permission string

const (
	PermBookingsView     Permission = "bookings.view"
	PermBookingsCreate   Permission = "bookings.create"
	PermBookingsStatus   Permission = "bookings.status"
	PermBookingsCheckIn  Permission = "bookings.checkin"
	PermBookingsCheckout Permission = "bookings.checkout"
	PermBookingsExtras   Permission = "bookings.extras"
	PermBookingsPayments Permission = "bookings.payments"
	PermApartmentsManage Permission = "apartments.manage"
	PermUsersManage      Permission = "users.manage"
	PermReportsView      Permission = "reports.view"
)

var allPermissions = []Permission{
	PermBookingsView,
	PermBookingsCreate,
	PermBookingsStatus,
	PermBookingsCheckIn,
	PermBookingsCheckout,
	PermBookingsExtras,
	PermBookingsPayments,
	PermApartmentsManage,
	PermUsersManage,
	PermReportsView,
}

var rolePermissions = map[model.UserRole][]Permission{
	model.UserRoleAdmin: allPermissions,
	model.UserRoleManager: {
		PermBookingsView,
		PermBookingsCreate,
		PermBookingsStatus,
		PermBookingsCheckIn,
		PermBookingsCheckout,
		PermBookingsExtras,
		PermBookingsPayments,
		PermApartmentsManage,
		PermReportsView,
	},
	model.UserRoleReceptionist: {
		PermBookingsView,
		PermBookingsCreate,
		PermBookingsCheckIn,
		PermBookingsCheckout,
		PermBookingsExtras,
		PermBookingsPayments,
	},
}

// Set: множество прав пользователя.
type Set map[Permission]struct{}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted возвращает права в стабильном порядке.
func (s Set) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// PermissionsFor: явный список прав пользователя, если он задан, иначе права роли.
// Неизвестные строки в явном списке пропускаются.
func PermissionsFor(u model.User) Set {
	if len(u.Permissions) > 0 {
		set := make(Set, len(u.Permissions))
		for _, raw := range u.Permissions {
			if p := Permission(raw); IsKnown(p) {
				set[p] = struct{}{}
			}
		}
		return set
	}

	perms := rolePermissions[u.Role]
	set := make(Set, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func Can(u model.User, p Permission) bool {
	return PermissionsFor(u).Has(p)
}

func IsKnown(p Permission) bool {
	return slices.Contains(allPermissions, p)
}

func IsKnownRole(r model.UserRole) bool {
	_, ok := rolePermissions[r]
	return ok
}

// Источник данных об операторах.
// В реале это репозиторий поверх БД, в тестах мок.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// ValidateOperator:
//   - проверяет, что идентификатор задан;
//   - вытаскивает пользователя из хранилища;
//   - отклоняет неактивных и заблокированных;
//   - при непустом perm проверяет право.
func ValidateOperator(
	ctx context.Context,
	store UserStore,
	operatorID string,
	perm Permission,
) (*model.User, error) {
	if operatorID == "" {
		return nil, ErrInvalidOperatorID
	}

	u, err := store.GetByID(ctx, operatorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOperatorNotFound
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrOperatorNotFound
	}

	if u.Status == model.UserStatusInactive || u.Status == model.UserStatusBlocked {
		return nil, ErrOperatorInactive
	}

	if perm != "" && !Can(*u, perm) {
		return nil, ErrPermissionDenied
	}

	return u, nil
}
