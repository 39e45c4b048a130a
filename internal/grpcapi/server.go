package grpcapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/woundrisk/internal/apperr"
	"github.com/example/woundrisk/internal/auth"
	"github.com/example/woundrisk/internal/logging"
	"github.com/example/woundrisk/internal/risk"
)

// AssessUseCase is the part of the use case the server needs.
type AssessUseCase interface {
	Assess(ctx context.Context, subject string, image []byte, symptoms risk.Symptoms) (string, *risk.Assessment, error)
}

// Server implements RiskAssessorServer on top of the assessment use case.
type Server struct {
	uc       AssessUseCase
	authn    *auth.Authenticator
	logger   *zap.Logger
	maxImage int
}

// NewServer returns a Server. Tokens are optional; when present they must
// verify against authn. Images above maxImage bytes are rejected.
func NewServer(uc AssessUseCase, authn *auth.Authenticator, maxImage int, logger *zap.Logger) *Server {
	return &Server{uc: uc, authn: authn, logger: logger.Named("grpc_server"), maxImage: maxImage}
}

// Assess implements RiskAssessorServer.
func (s *Server) Assess(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subject, err := s.subject(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	image, symptoms, err := DecodeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if s.maxImage > 0 && len(image) > s.maxImage {
		return nil, status.Error(codes.ResourceExhausted, "image too large")
	}

	assessmentID, result, err := s.uc.Assess(ctx, subject, image, symptoms)
	if err != nil {
		kind := apperr.KindOf(err)
		_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorKindKey, kind.String()))
		return nil, status.Error(Code(err), apperr.PublicMessage(err))
	}

	resp, err := EncodeAssessment(result)
	if err != nil {
		logging.WithOperation(s.logger, "grpc.encode_assessment", assessmentID).Error("failed to encode assessment", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	if err := grpc.SetHeader(ctx, metadata.Pairs(AssessmentIDKey, assessmentID)); err != nil {
		s.logger.Warn("failed to set response header", zap.Error(err))
	}
	return resp, nil
}

func (s *Server) subject(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", nil
	}
	return s.authn.Verify(values[0])
}

// Code maps pipeline errors onto gRPC status codes.
func Code(err error) codes.Code {
	switch apperr.KindOf(err) {
	case apperr.KindDecode, apperr.KindImageTooSmall:
		return codes.InvalidArgument
	case apperr.KindSegmentation:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// LoggingInterceptor logs every unary call with its code and latency.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = logger.Named("grpc_access")
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		if code == codes.Internal || code == codes.Unknown {
			logger.Error("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Info("rpc served", fields...)
		}
		return resp, err
	}
}
