package grpcapi

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/woundrisk/internal/apperr"
	"github.com/example/woundrisk/internal/logging"
	"github.com/example/woundrisk/internal/risk"
)

// Client calls a remote RiskAssessor. It satisfies assessor.Assessor.
type Client struct {
	conn   *grpc.ClientConn
	token  string
	logger *zap.Logger
}

// Dial returns a Client for addr. The connection is established lazily on
// the first call. A non-empty token is sent as a bearer token.
func Dial(addr, token string, logger *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		wrapped := logging.NewOperationError("grpcapi.dial", "", err)
		logger.Error("failed to create grpc client", zap.Error(wrapped), zap.String("addr", addr))
		return nil, wrapped
	}
	return &Client{conn: conn, token: token, logger: logger.Named("grpc_client")}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Assess sends image and symptoms to the server.
func (c *Client) Assess(ctx context.Context, image []byte, symptoms risk.Symptoms) (*risk.Assessment, error) {
	_, result, err := c.AssessWithID(ctx, image, symptoms)
	return result, err
}

// AssessWithID is Assess that also returns the server-side assessment id.
// Pipeline failures come back as *apperr.Error values of the kind the server
// reported.
func (c *Client) AssessWithID(ctx context.Context, image []byte, symptoms risk.Symptoms) (string, *risk.Assessment, error) {
	req, err := EncodeRequest(image, symptoms)
	if err != nil {
		return "", nil, fmt.Errorf("encode request: %w", err)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}

	var header, trailer metadata.MD
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, AssessMethod, req, resp, grpc.Header(&header), grpc.Trailer(&trailer)); err != nil {
		if kinds := trailer.Get(ErrorKindKey); len(kinds) > 0 {
			if kind := apperr.ParseKind(kinds[0]); kind != apperr.KindUnknown {
				return "", nil, apperr.Wrap(err, kind, status.Convert(err).Message())
			}
		}
		wrapped := logging.NewOperationError("grpcapi.assess", "", err)
		c.logger.Warn("assess call failed", zap.Error(wrapped))
		return "", nil, wrapped
	}

	var assessmentID string
	if ids := header.Get(AssessmentIDKey); len(ids) > 0 {
		assessmentID = ids[0]
	}
	result, err := DecodeAssessment(resp)
	if err != nil {
		return "", nil, fmt.Errorf("decode assessment: %w", err)
	}
	return assessmentID, result, nil
}
