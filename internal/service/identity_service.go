package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Leganyst/apartment-booking/internal/access"
	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

// IdentityService ведёт операторов: регистрация, роль, статус, явные права.
type IdentityService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewIdentityService(users repository.UserRepository, logger *slog.Logger) *IdentityService {
	return &IdentityService{users: users, logger: defaultLogger(logger)}
}

// OperatorInput: данные нового оператора.
type OperatorInput struct {
	ID          string
	Username    string
	DisplayName string
	Role        model.UserRole
	Permissions []string
}

// RegisterOperator создаёт оператора. Пустой ID генерируется.
func (s *IdentityService) RegisterOperator(ctx context.Context, in OperatorInput) (model.User, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	vErr := &booking.ValidationError{}
	if in.Username == "" {
		vErr.Add("username", "username is required")
	}
	if !access.IsKnownRole(in.Role) {
		vErr.Add("role", "unknown role")
	}
	checkPermissions(in.Permissions, vErr)
	if vErr.HasErrors() {
		return model.User{}, vErr
	}

	_, err := s.users.GetByUsername(ctx, in.Username)
	switch {
	case err == nil:
		vErr.Add("username", "username is already taken")
		return model.User{}, vErr
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, fmt.Errorf("get user: %w", err)
	}

	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	u := model.User{
		ID:          in.ID,
		Username:    in.Username,
		DisplayName: in.DisplayName,
		Role:        in.Role,
		Status:      model.UserStatusActive,
		Permissions: in.Permissions,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	serviceLogger(ctx, s.logger, "IdentityService", "RegisterOperator", "user_id", u.ID).
		InfoContext(ctx, "operator registered", "role", u.Role)
	return u, nil
}

// SetRole назначает роль оператору.
func (s *IdentityService) SetRole(ctx context.Context, userID string, role model.UserRole) (model.User, bool, error) {
	if !access.IsKnownRole(role) {
		vErr := &booking.ValidationError{}
		vErr.Add("role", "unknown role")
		return model.User{}, false, vErr
	}
	return s.update(ctx, userID, s.users.SetRole(ctx, userID, role))
}

// SetStatus блокирует или активирует оператора.
func (s *IdentityService) SetStatus(ctx context.Context, userID string, status model.UserStatus) (model.User, bool, error) {
	switch status {
	case model.UserStatusActive, model.UserStatusInactive, model.UserStatusBlocked:
	default:
		vErr := &booking.ValidationError{}
		vErr.Add("status", "unknown user status")
		return model.User{}, false, vErr
	}
	return s.update(ctx, userID, s.users.SetStatus(ctx, userID, status))
}

// SetPermissions задаёт явный список прав; пустой список возвращает права роли.
func (s *IdentityService) SetPermissions(ctx context.Context, userID string, permissions []string) (model.User, bool, error) {
	vErr := &booking.ValidationError{}
	checkPermissions(permissions, vErr)
	if vErr.HasErrors() {
		return model.User{}, false, vErr
	}
	return s.update(ctx, userID, s.users.SetPermissions(ctx, userID, permissions))
}

// Authorize проверяет, что оператор существует, активен и имеет право perm.
func (s *IdentityService) Authorize(ctx context.Context, operatorID string, perm access.Permission) (*model.User, error) {
	u, err := access.ValidateOperator(ctx, s.users, operatorID, perm)
	if err != nil {
		serviceLogger(ctx, s.logger, "IdentityService", "Authorize", "operator_id", operatorID).
			WarnContext(ctx, "operator rejected", "permission", perm, "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return u, nil
}

// Permissions возвращает действующие права оператора.
func (s *IdentityService) Permissions(ctx context.Context, userID string) ([]access.Permission, bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	return access.PermissionsFor(*u).Sorted(), true, nil
}

func (s *IdentityService) update(ctx context.Context, userID string, err error) (model.User, bool, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("update user: %w", err)
	}

	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return *u, true, nil
}

func checkPermissions(perms []string, vErr *booking.ValidationError) {
	for _, p := range perms {
		if !access.IsKnown(access.Permission(p)) {
			vErr.Add("permissions", fmt.Sprintf("unknown permission %q", p))
		}
	}
}
