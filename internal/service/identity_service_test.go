package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Leganyst/apartment-booking/internal/access"
	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

func newIdentity(t *testing.T) *IdentityService {
	t.Helper()
	return NewIdentityService(repository.NewGormUserRepository(newTestDB(t)), discardLogger())
}

func TestIdentityService_RegisterOperator(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()

	u, err := svc.RegisterOperator(ctx, OperatorInput{Username: "Maria", Role: model.UserRoleReceptionist})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == "" || u.Username != "maria" || u.Status != model.UserStatusActive {
		t.Fatalf("user = %+v", u)
	}

	_, err = svc.RegisterOperator(ctx, OperatorInput{Username: "MARIA", Role: model.UserRoleAdmin})
	var vErr *booking.ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["username"] == "" {
		t.Fatalf("duplicate username: err = %v", err)
	}

	_, err = svc.RegisterOperator(ctx, OperatorInput{Username: "bob", Role: "owner", Permissions: []string{"bookings.fly"}})
	if !errors.As(err, &vErr) || vErr.FieldErrors["role"] == "" || vErr.FieldErrors["permissions"] == "" {
		t.Fatalf("invalid input: err = %v", err)
	}
}

func TestIdentityService_AuthorizeFollowsRoleAndOverride(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()

	u, err := svc.RegisterOperator(ctx, OperatorInput{ID: "rec", Username: "rec", Role: model.UserRoleReceptionist})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authorize(ctx, u.ID, access.PermBookingsCheckIn); err != nil {
		t.Fatalf("receptionist check-in: %v", err)
	}
	if _, err := svc.Authorize(ctx, u.ID, access.PermBookingsStatus); !errors.Is(err, access.ErrPermissionDenied) {
		t.Fatalf("err = %v, want permission denied", err)
	}

	if _, ok, err := svc.SetPermissions(ctx, u.ID, []string{string(access.PermBookingsStatus)}); err != nil || !ok {
		t.Fatalf("set permissions: ok=%v err=%v", ok, err)
	}
	if _, err := svc.Authorize(ctx, u.ID, access.PermBookingsStatus); err != nil {
		t.Fatalf("override must grant status: %v", err)
	}
	if _, err := svc.Authorize(ctx, u.ID, access.PermBookingsCheckIn); !errors.Is(err, access.ErrPermissionDenied) {
		t.Fatalf("override must replace role defaults, err = %v", err)
	}

	perms, ok, err := svc.Permissions(ctx, u.ID)
	if err != nil || !ok || len(perms) != 1 {
		t.Fatalf("permissions = %v ok=%v err=%v", perms, ok, err)
	}

	// пустой список возвращает права роли
	if _, _, err := svc.SetPermissions(ctx, u.ID, nil); err != nil {
		t.Fatalf("reset permissions: %v", err)
	}
	if _, err := svc.Authorize(ctx, u.ID, access.PermBookingsCheckIn); err != nil {
		t.Fatalf("role defaults after reset: %v", err)
	}

	if _, ok, err := svc.SetStatus(ctx, u.ID, model.UserStatusBlocked); err != nil || !ok {
		t.Fatalf("block: ok=%v err=%v", ok, err)
	}
	if _, err := svc.Authorize(ctx, u.ID, access.PermBookingsView); !errors.Is(err, access.ErrOperatorInactive) {
		t.Fatalf("err = %v, want inactive", err)
	}

	if _, err := svc.Authorize(ctx, "ghost", access.PermBookingsView); !errors.Is(err, access.ErrOperatorNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if _, ok, err := svc.SetRole(ctx, "ghost", model.UserRoleAdmin); ok || err != nil {
		t.Fatalf("unknown user: ok=%v err=%v", ok, err)
	}
}
