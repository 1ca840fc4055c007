// Package bookingv1: контракт gRPC-сервиса booking.v1.BookingService.
//
// Запросы и ответы передаются как google.protobuf.Struct, имена полей совпадают
// с JSON-тегами доменных типов (snake_case). Encode и Decode переводят Go-значения
// в Struct и обратно через protojson.
package bookingv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "booking.v1.BookingService"

const (
	MethodListBookings             = "ListBookings"
	MethodGetBooking               = "GetBooking"
	MethodCreateBooking            = "CreateBooking"
	MethodUpdateStatus             = "UpdateStatus"
	MethodRegisterDepositPayment   = "RegisterDepositPayment"
	MethodRegisterCheckIn          = "RegisterCheckIn"
	MethodAddExtra                 = "AddExtra"
	MethodRegisterRemainingPayment = "RegisterRemainingPayment"
	MethodRegisterCheckout         = "RegisterCheckout"
	MethodFindBooking              = "FindBooking"
	MethodListEvents               = "ListEvents"
	MethodListApartments           = "ListApartments"
	MethodSaveApartment            = "SaveApartment"
	MethodRegisterOperator         = "RegisterOperator"
	MethodSetOperatorPermissions   = "SetOperatorPermissions"
)

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// BookingServiceServer: серверная часть booking.v1.BookingService.
type BookingServiceServer interface {
	ListBookings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterDepositPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterCheckIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddExtra(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterRemainingPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterCheckout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListApartments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveApartment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterOperator(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetOperatorPermissions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedBookingServiceServer()
}

// UnimplementedBookingServiceServer встраивается в реализации сервера.
type UnimplementedBookingServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedBookingServiceServer) ListBookings(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodListBookings)
}
func (UnimplementedBookingServiceServer) GetBooking(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetBooking)
}
func (UnimplementedBookingServiceServer) CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodCreateBooking)
}
func (UnimplementedBookingServiceServer) UpdateStatus(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodUpdateStatus)
}
func (UnimplementedBookingServiceServer) RegisterDepositPayment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRegisterDepositPayment)
}
func (UnimplementedBookingServiceServer) RegisterCheckIn(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRegisterCheckIn)
}
func (UnimplementedBookingServiceServer) AddExtra(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodAddExtra)
}
func (UnimplementedBookingServiceServer) RegisterRemainingPayment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRegisterRemainingPayment)
}
func (UnimplementedBookingServiceServer) RegisterCheckout(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRegisterCheckout)
}
func (UnimplementedBookingServiceServer) FindBooking(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodFindBooking)
}
func (UnimplementedBookingServiceServer) ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodListEvents)
}
func (UnimplementedBookingServiceServer) ListApartments(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodListApartments)
}
func (UnimplementedBookingServiceServer) SaveApartment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSaveApartment)
}
func (UnimplementedBookingServiceServer) RegisterOperator(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRegisterOperator)
}
func (UnimplementedBookingServiceServer) SetOperatorPermissions(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSetOperatorPermissions)
}
func (UnimplementedBookingServiceServer) mustEmbedUnimplementedBookingServiceServer() {}

type unaryMethod func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodDesc {
	fullMethod := FullMethod(method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// BookingService_ServiceDesc: описание сервиса для grpc.Server.
var BookingService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodListBookings, BookingServiceServer.ListBookings),
		unaryHandler(MethodGetBooking, BookingServiceServer.GetBooking),
		unaryHandler(MethodCreateBooking, BookingServiceServer.CreateBooking),
		unaryHandler(MethodUpdateStatus, BookingServiceServer.UpdateStatus),
		unaryHandler(MethodRegisterDepositPayment, BookingServiceServer.RegisterDepositPayment),
		unaryHandler(MethodRegisterCheckIn, BookingServiceServer.RegisterCheckIn),
		unaryHandler(MethodAddExtra, BookingServiceServer.AddExtra),
		unaryHandler(MethodRegisterRemainingPayment, BookingServiceServer.RegisterRemainingPayment),
		unaryHandler(MethodRegisterCheckout, BookingServiceServer.RegisterCheckout),
		unaryHandler(MethodFindBooking, BookingServiceServer.FindBooking),
		unaryHandler(MethodListEvents, BookingServiceServer.ListEvents),
		unaryHandler(MethodListApartments, BookingServiceServer.ListApartments),
		unaryHandler(MethodSaveApartment, BookingServiceServer.SaveApartment),
		unaryHandler(MethodRegisterOperator, BookingServiceServer.RegisterOperator),
		unaryHandler(MethodSetOperatorPermissions, BookingServiceServer.SetOperatorPermissions),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: FileName,
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingService_ServiceDesc, srv)
}

// BookingServiceClient вызывает методы booking.v1.BookingService по имени.
type BookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

// Call вызывает метод и отдаёт ответ как есть.
func (c *BookingServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Invoke кодирует req, вызывает метод и раскладывает ответ в resp.
// resp == nil: нужен только код ошибки.
func (c *BookingServiceClient) Invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := Encode(req)
	if err != nil {
		return err
	}
	out, err := c.Call(ctx, method, in, opts...)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return Decode(out, resp)
}
