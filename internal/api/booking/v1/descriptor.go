package bookingv1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// FileName: имя proto-файла сервиса, на него ссылается Metadata в ServiceDesc.
const FileName = "booking/v1/booking.proto"

const structType = ".google.protobuf.Struct"

// File_booking_v1_booking_proto: дескриптор сервиса в глобальном реестре,
// по нему gRPC reflection отвечает на describe.
var File_booking_v1_booking_proto protoreflect.FileDescriptor

func init() {
	fd, err := protodesc.NewFile(fileDescriptorProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("bookingv1: build %s: %v", FileName, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("bookingv1: register %s: %v", FileName, err))
	}
	File_booking_v1_booking_proto = fd
}

// Методы берутся из ServiceDesc, так что дескриптор и обработчики не расходятся.
func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(BookingService_ServiceDesc.Methods))
	for _, m := range BookingService_ServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		})
	}

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(FileName),
		Package:    proto.String("booking.v1"),
		Dependency: []string{"google/protobuf/struct.proto"},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/Leganyst/apartment-booking/internal/api/booking/v1;bookingv1"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("BookingService"),
			Method: methods,
		}},
		Syntax: proto.String("proto3"),
	}
}
