// Package grpcapi exposes the assessment use case over gRPC. Messages are
// google.protobuf.Struct values that mirror the JSON record, so no generated
// code is needed.
package grpcapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/woundrisk/internal/risk"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "woundrisk.v1.RiskAssessor"
	// AssessMethod is the full method path of the unary Assess call.
	AssessMethod = "/" + ServiceName + "/Assess"

	// ImageField carries the base64 encoded image in an Assess request.
	ImageField = "image_base64"
	// AssessmentIDKey is the response header carrying the assessment id.
	AssessmentIDKey = "x-assessment-id"
	// ErrorKindKey is the trailer naming the pipeline error kind on failure.
	ErrorKindKey = "x-error-kind"
)

// RiskAssessorServer is the server API for the RiskAssessor service.
type RiskAssessorServer interface {
	Assess(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the RiskAssessor service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskAssessorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Assess", Handler: assessHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "woundrisk/v1/risk_assessor.proto",
}

// RegisterRiskAssessorServer registers srv on s.
func RegisterRiskAssessorServer(s grpc.ServiceRegistrar, srv RiskAssessorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func assessHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskAssessorServer).Assess(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AssessMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RiskAssessorServer).Assess(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// EncodeRequest builds an Assess request message.
func EncodeRequest(image []byte, symptoms risk.Symptoms) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		ImageField: base64.StdEncoding.EncodeToString(image),
	}
	for name, value := range symptoms.Flags() {
		fields[name] = value
	}
	return structpb.NewStruct(fields)
}

// DecodeRequest reads an Assess request. Unknown fields are ignored and
// missing symptom fields are false.
func DecodeRequest(req *structpb.Struct) ([]byte, risk.Symptoms, error) {
	fields := req.GetFields()
	raw, ok := fields[ImageField]
	if !ok {
		return nil, risk.Symptoms{}, fmt.Errorf("%s is required", ImageField)
	}
	encoded, ok := raw.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, risk.Symptoms{}, fmt.Errorf("%s must be a string", ImageField)
	}
	image, err := base64.StdEncoding.DecodeString(encoded.StringValue)
	if err != nil {
		return nil, risk.Symptoms{}, fmt.Errorf("%s is not valid base64", ImageField)
	}

	flags := make(map[string]bool, 5)
	for _, name := range risk.SymptomSignalNames() {
		v, ok := fields[name]
		if !ok {
			continue
		}
		switch kind := v.GetKind().(type) {
		case *structpb.Value_BoolValue:
			flags[name] = kind.BoolValue
		case *structpb.Value_NullValue:
		default:
			return nil, risk.Symptoms{}, fmt.Errorf("%s must be a boolean", name)
		}
	}
	return image, risk.SymptomsFromFlags(flags), nil
}

// EncodeAssessment renders an assessment with the JSON field names.
func EncodeAssessment(a *risk.Assessment) (*structpb.Struct, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// DecodeAssessment is the inverse of EncodeAssessment.
func DecodeAssessment(s *structpb.Struct) (*risk.Assessment, error) {
	raw, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var a risk.Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
