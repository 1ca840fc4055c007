package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	bookingpb "github.com/Leganyst/apartment-booking/internal/api/booking/v1"
	"github.com/Leganyst/apartment-booking/internal/access"
	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/calendar"
	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

// BookingGRPCServer: gRPC-обёртка над сервисами бронирования.
// Операции персонала требуют operator_id с нужным правом; поиск брони гостем,
// создание брони и список апартаментов публичные.
type BookingGRPCServer struct {
	bookingpb.UnimplementedBookingServiceServer

	bookings   *BookingService
	apartments *ApartmentService
	identity   *IdentityService
}

func NewBookingGRPCServer(
	bookings *BookingService,
	apartments *ApartmentService,
	identity *IdentityService,
) *BookingGRPCServer {
	return &BookingGRPCServer{
		bookings:   bookings,
		apartments: apartments,
		identity:   identity,
	}
}

// ---------- запросы ----------

type listBookingsRequest struct {
	OperatorID  string   `json:"operator_id"`
	ApartmentID string   `json:"apartment_id"`
	Statuses    []string `json:"statuses"`
	Page        int      `json:"page"`
	PageSize    int      `json:"page_size"`
}

type bookingRequest struct {
	OperatorID string `json:"operator_id"`
	BookingID  string `json:"booking_id"`
}

type createBookingRequest struct {
	ApartmentID string `json:"apartment_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Guests      int    `json:"guests"`
	GuestName   string `json:"guest_name"`
	GuestPhone  string `json:"guest_phone"`
	GuestEmail  string `json:"guest_email"`
}

type updateStatusRequest struct {
	OperatorID string `json:"operator_id"`
	BookingID  string `json:"booking_id"`
	Status     string `json:"status"`
}

type paymentRequest struct {
	OperatorID string `json:"operator_id"`
	BookingID  string `json:"booking_id"`
	Method     string `json:"method"`
}

type checkInRequest struct {
	OperatorID  string `json:"operator_id"`
	BookingID   string `json:"booking_id"`
	ExtraGuests int    `json:"extra_guests"`
}

type addExtraRequest struct {
	OperatorID string `json:"operator_id"`
	BookingID  string `json:"booking_id"`
	booking.ExtraInput
}

type findBookingRequest struct {
	BookingID string `json:"booking_id"`
	Contact   string `json:"contact"`
}

type listApartmentsRequest struct {
	OnlyActive bool `json:"only_active"`
}

type saveApartmentRequest struct {
	OperatorID string `json:"operator_id"`
	booking.ApartmentInput
}

type registerOperatorRequest struct {
	OperatorID  string   `json:"operator_id"`
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type setPermissionsRequest struct {
	OperatorID  string   `json:"operator_id"`
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

// ---------- ответы ----------

type amountsView struct {
	TotalStay        string `json:"total_stay"`
	Deposit          string `json:"deposit"`
	RemainingBalance string `json:"remaining_balance"`
	ExtrasTotal      string `json:"extras_total"`
	FinalBalance     string `json:"final_balance"`
}

type bookingView struct {
	ID               string        `json:"id"`
	PaymentReference string        `json:"payment_reference"`
	ApartmentID      string        `json:"apartment_id"`
	CheckIn          string        `json:"check_in"`
	CheckOut         string        `json:"check_out"`
	Nights           int           `json:"nights"`
	Guests           int           `json:"guests"`
	GuestName        string        `json:"guest_name"`
	GuestPhone       string        `json:"guest_phone"`
	GuestEmail       string        `json:"guest_email"`
	Status           string        `json:"status"`
	TotalStay        int64         `json:"total_stay"`
	Deposit          int64         `json:"deposit"`
	RemainingBalance int64         `json:"remaining_balance"`
	ExtrasTotal      int64         `json:"extras_total"`
	FinalBalance     int64         `json:"final_balance"`
	Display          amountsView   `json:"display"`
	Extras           []model.Extra `json:"extras"`
	CreatedAt        time.Time     `json:"created_at"`
	ExpiresAt        time.Time     `json:"expires_at"`
	CheckedInAt      *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt     *time.Time    `json:"checked_out_at,omitempty"`
	CheckInOperator  string        `json:"check_in_operator,omitempty"`
	CheckOutOperator string        `json:"check_out_operator,omitempty"`
	DepositMethod    string        `json:"deposit_method,omitempty"`
	BalanceMethod    string        `json:"balance_method,omitempty"`
	Version          int64         `json:"version"`
}

type bookingResponse struct {
	Booking bookingView `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingView `json:"bookings"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
	HasNext  bool          `json:"has_next"`
}

type eventView struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
	Operator  string    `json:"operator,omitempty"`
	Details   string    `json:"details,omitempty"`
}

type listEventsResponse struct {
	Events []eventView `json:"events"`
}

type apartmentView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NightlyPrice int64  `json:"nightly_price"`
	PriceDisplay string `json:"price_display"`
	Capacity     int    `json:"capacity"`
	Status       string `json:"status"`
}

type apartmentResponse struct {
	Apartment apartmentView `json:"apartment"`
}

type listApartmentsResponse struct {
	Apartments []apartmentView `json:"apartments"`
}

type operatorView struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Role        string   `json:"role"`
	Status      string   `json:"status"`
	Permissions []string `json:"permissions"`
}

type operatorResponse struct {
	Operator operatorView `json:"operator"`
}

// ---------- RPC ----------

func (s *BookingGRPCServer) ListBookings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listBookingsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.OperatorID, access.PermBookingsView); err != nil {
		return nil, err
	}

	filter := repository.BookingFilter{ApartmentID: strings.TrimSpace(req.ApartmentID)}
	for _, raw := range req.Statuses {
		st, err := model.ParseBookingStatus(strings.ToUpper(strings.TrimSpace(raw)))
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "unknown booking status %q", raw)
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}

	page := calendar.Paginate(bookings, req.Page, req.PageSize)
	resp := listBookingsResponse{
		Bookings: make([]bookingView, 0, len(page.Items)),
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
		HasNext:  page.HasNext,
	}
	for _, b := range page.Items {
		view, err := s.mapBooking(b)
		if err != nil {
			return nil, toStatus(err)
		}
		resp.Bookings = append(resp.Bookings, view)
	}
	return encode(resp)
}

func (s *BookingGRPCServer) GetBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req bookingRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.OperatorID, access.PermBookingsView); err != nil {
		return nil, err
	}
	if req.BookingID == "" {
		return nil, status.Error(codes.InvalidArgument, "booking_id is required")
	}

	b, ok, err := s.bookings.GetBooking(ctx, req.BookingID)
	return s.bookingResult(b, ok, err)
}

// CreateBooking: публичная форма бронирования.
func (s *BookingGRPCServer) CreateBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createBookingRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	loc := s.bookings.Policy().Loc()
	vErr := &booking.ValidationError{}
	checkIn := parseDateField(req.CheckIn, "check_in", loc, vErr)
	checkOut := parseDateField(req.CheckOut, "check_out", loc, vErr)
	if vErr.HasErrors() {
		return nil, toStatus(vErr)
	}

	b, err := s.bookings.CreateBooking(ctx, booking.CreateBookingRequest{
		ApartmentID: req.ApartmentID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      req.Guests,
		GuestName:   req.GuestName,
		GuestPhone:  req.GuestPhone,
		GuestEmail:  req.GuestEmail,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return s.bookingResult(b, true, nil)
}

func (s *BookingGRPCServer) UpdateStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateStatusRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	op, err := s.authorize(ctx, req.OperatorID, access.PermBookingsStatus)
	if err != nil {
		return nil, err
	}

	b, ok, err := s.bookings.UpdateStatus(ctx, req.BookingID, req.Status, op.Username)
	return s.bookingResult(b, ok, err)
}

func (s *BookingGRPCServer) RegisterDepositPayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req paymentRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	op, err := s.authorize(ctx, req.OperatorID, access.PermBookingsPayments)
	if err != nil {
		return nil, err
	}

	b, ok, err := s.bookings.RegisterDepositPayment(ctx, req.BookingID, req.Method, op.Username)
	return s.bookingResult(b, ok, err)
}

func (s *BookingGRPCServer) RegisterCheckIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req checkInRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	op, err := s.authorize(ctx, req.OperatorID, access.PermBookingsCheckIn)
	if err != nil {
		return nil, err
	}

	b, ok, err := s.bookings.RegisterCheckIn(ctx, req.BookingID, op.Username, req.ExtraGuests)
	return s.bookingResult(b, ok, err)
}

func (s *BookingGRPCServer) AddExtra(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req addExtraRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	op, err := s.authorize(ctx, req.OperatorID, access.PermBookingsExtras)
	if err != nil {
		return nil, err
	}

	b, ok, err := s.bookings.AddExtra(ctx, req.BookingID, req.ExtraInput, op.Username)
	return s.bookingResult(b, ok, err)
}

func (s *BookingGRPCServer) RegisterRemainingPayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req paymentRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	op, err := s.authorize(ctx, req.OperatorID, access.PermBookingsPayments)
	if err != nil {
		return nil, err
	}

	b, ok, err := s.bookings.RegisterRemainingPayment(ctx, req.BookingID, op.Username, req.Method)
	return s.bookingResult(b, ok, err)
}

func (s *BookingGRPCServer) RegisterCheckout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req bookingRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	op, err := s.authorize(ctx, req.OperatorID, access.PermBookingsCheckout)
	if err != nil {
		return nil, err
	}

	b, ok, err := s.bookings.RegisterCheckout(ctx, req.BookingID, op.Username)
	return s.bookingResult(b, ok, err)
}

// FindBooking: поиск брони гостем по номеру и контакту. На любой промах
// отвечает одинаково, чтобы не подсказывать, какая часть не совпала.
func (s *BookingGRPCServer) FindBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req findBookingRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	b, ok, err := s.bookings.FindBySecureLookup(ctx, req.BookingID, req.Contact)
	return s.bookingResult(b, ok, err)
}

func (s *BookingGRPCServer) ListEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req bookingRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.OperatorID, access.PermReportsView); err != nil {
		return nil, err
	}

	events, err := s.bookings.Events(ctx, req.BookingID)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := listEventsResponse{Events: make([]eventView, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, eventView{
			ID:        e.ID,
			EventType: string(e.EventType),
			CreatedAt: e.CreatedAt,
			Operator:  e.Operator,
			Details:   e.Details,
		})
	}
	return encode(resp)
}

func (s *BookingGRPCServer) ListApartments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listApartmentsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	apartments, err := s.apartments.ListApartments(ctx, req.OnlyActive)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := listApartmentsResponse{Apartments: make([]apartmentView, 0, len(apartments))}
	for _, a := range apartments {
		resp.Apartments = append(resp.Apartments, s.mapApartment(a))
	}
	return encode(resp)
}

func (s *BookingGRPCServer) SaveApartment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req saveApartmentRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.OperatorID, access.PermApartmentsManage); err != nil {
		return nil, err
	}

	apt, err := s.apartments.SaveApartment(ctx, req.ApartmentInput)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(apartmentResponse{Apartment: s.mapApartment(apt)})
}

func (s *BookingGRPCServer) RegisterOperator(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req registerOperatorRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.OperatorID, access.PermUsersManage); err != nil {
		return nil, err
	}

	u, err := s.identity.RegisterOperator(ctx, OperatorInput{
		ID:          req.UserID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Role:        model.UserRole(strings.ToLower(strings.TrimSpace(req.Role))),
		Permissions: req.Permissions,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(operatorResponse{Operator: mapOperator(u)})
}

func (s *BookingGRPCServer) SetOperatorPermissions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req setPermissionsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.OperatorID, access.PermUsersManage); err != nil {
		return nil, err
	}

	u, ok, err := s.identity.SetPermissions(ctx, req.UserID, req.Permissions)
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return nil, status.Error(codes.NotFound, "operator not found")
	}
	return encode(operatorResponse{Operator: mapOperator(u)})
}

// ---------- helpers ----------

func (s *BookingGRPCServer) authorize(ctx context.Context, operatorID string, perm access.Permission) (*model.User, error) {
	u, err := s.identity.Authorize(ctx, strings.TrimSpace(operatorID), perm)
	if err != nil {
		return nil, toStatus(err)
	}
	return u, nil
}

func (s *BookingGRPCServer) bookingResult(b model.Booking, ok bool, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return nil, status.Error(codes.NotFound, "booking not found")
	}
	view, err := s.mapBooking(b)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(bookingResponse{Booking: view})
}

func (s *BookingGRPCServer) mapBooking(b model.Booking) (bookingView, error) {
	policy := s.bookings.Policy()
	loc := policy.Loc()
	totals, err := booking.Summary(b)
	if err != nil {
		return bookingView{}, fmt.Errorf("booking %s totals: %w", b.ID, err)
	}

	extras := []model.Extra(b.Extras)
	if extras == nil {
		extras = []model.Extra{}
	}

	return bookingView{
		ID:               b.ID,
		PaymentReference: b.PaymentReference,
		ApartmentID:      b.ApartmentID,
		CheckIn:          calendar.FormatDate(b.CheckIn, loc),
		CheckOut:         calendar.FormatDate(b.CheckOut, loc),
		Nights:           b.Nights,
		Guests:           b.Guests,
		GuestName:        b.GuestName,
		GuestPhone:       b.GuestPhone,
		GuestEmail:       b.GuestEmail,
		Status:           string(b.Status),
		TotalStay:        totals.TotalStay,
		Deposit:          totals.Deposit,
		RemainingBalance: totals.RemainingBalance,
		ExtrasTotal:      totals.ExtrasTotal,
		FinalBalance:     totals.FinalBalance,
		Display: amountsView{
			TotalStay:        policy.Format(totals.TotalStay),
			Deposit:          policy.Format(totals.Deposit),
			RemainingBalance: policy.Format(totals.RemainingBalance),
			ExtrasTotal:      policy.Format(totals.ExtrasTotal),
			FinalBalance:     policy.Format(totals.FinalBalance),
		},
		Extras:           extras,
		CreatedAt:        b.CreatedAt,
		ExpiresAt:        b.ExpiresAt,
		CheckedInAt:      b.CheckedInAt,
		CheckedOutAt:     b.CheckedOutAt,
		CheckInOperator:  b.CheckInOperator,
		CheckOutOperator: b.CheckOutOperator,
		DepositMethod:    b.DepositMethod,
		BalanceMethod:    b.BalanceMethod,
		Version:          b.Version,
	}, nil
}

func (s *BookingGRPCServer) mapApartment(a model.Apartment) apartmentView {
	return apartmentView{
		ID:           a.ID,
		Name:         a.Name,
		NightlyPrice: a.NightlyPrice,
		PriceDisplay: s.bookings.Policy().Format(a.NightlyPrice),
		Capacity:     a.Capacity,
		Status:       string(a.Status),
	}
}

func mapOperator(u model.User) operatorView {
	perms := access.PermissionsFor(u).Sorted()
	out := operatorView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Permissions: make([]string, 0, len(perms)),
	}
	for _, p := range perms {
		out.Permissions = append(out.Permissions, string(p))
	}
	return out
}

func parseDateField(value, field string, loc *time.Location, vErr *booking.ValidationError) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := calendar.ParseDate(value, loc)
	if err != nil {
		vErr.Add(field, "must be a date in YYYY-MM-DD format")
		return time.Time{}
	}
	return t
}

func decode(in *structpb.Struct, v any) error {
	if err := bookingpb.Decode(in, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := bookingpb.Encode(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// toStatus переводит доменные ошибки в коды gRPC.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	var vErr *booking.ValidationError
	var cErr *booking.ConflictError
	switch {
	case errors.As(err, &vErr):
		st := status.New(codes.InvalidArgument, vErr.Error())
		br := &errdetails.BadRequest{}
		for _, field := range slices.Sorted(maps.Keys(vErr.FieldErrors)) {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       field,
				Description: vErr.FieldErrors[field],
			})
		}
		if detailed, dErr := st.WithDetails(br); dErr == nil {
			return detailed.Err()
		}
		return st.Err()
	case errors.As(err, &cErr):
		return status.Error(codes.AlreadyExists, "dates unavailable for this apartment")
	case errors.Is(err, booking.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, repository.ErrVersionConflict):
		return status.Error(codes.Aborted, "booking was modified concurrently, retry")
	case errors.Is(err, repository.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, access.ErrInvalidOperatorID):
		return status.Error(codes.Unauthenticated, "operator_id is required")
	case errors.Is(err, access.ErrOperatorNotFound), errors.Is(err, access.ErrOperatorInactive):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, access.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
