// internal/grpc/descriptor.go
package grpc

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const descriptorFile = "moviecatalog/v1/catalog_query.proto"

var (
	descriptorOnce sync.Once
	fileDescriptor protoreflect.FileDescriptor
	descriptorErr  error
)

// registerFileDescriptor publishes the CatalogQuery service description in the global
// registry so server reflection can describe it as well as list it.
func registerFileDescriptor() (protoreflect.FileDescriptor, error) {
	descriptorOnce.Do(func() {
		fileDescriptor, descriptorErr = buildFileDescriptor()
	})
	return fileDescriptor, descriptorErr
}

func buildFileDescriptor() (protoreflect.FileDescriptor, error) {
	if fd, err := protoregistry.GlobalFiles.FindFileByPath(descriptorFile); err == nil {
		return fd, nil
	}

	wrappers := wrapperspb.File_google_protobuf_wrappers_proto
	structs := structpb.File_google_protobuf_struct_proto

	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(descriptorFile),
		Package:    proto.String("moviecatalog.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{wrappers.Path(), structs.Path()},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("CatalogQuery"),
			Method: []*descriptorpb.MethodDescriptorProto{
				{
					Name:       proto.String("GetMovie"),
					InputType:  proto.String(".google.protobuf.Int64Value"),
					OutputType: proto.String(".google.protobuf.Struct"),
				},
				{
					Name:       proto.String("ListByCategory"),
					InputType:  proto.String(".google.protobuf.StringValue"),
					OutputType: proto.String(".google.protobuf.ListValue"),
				},
			},
		}},
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("build %s descriptor: %w", descriptorFile, err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		return nil, fmt.Errorf("register %s descriptor: %w", descriptorFile, err)
	}
	return fd, nil
}
