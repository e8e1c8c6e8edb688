package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

// requestIDMetadataKey mirrors the X-Request-ID HTTP header.
const requestIDMetadataKey = "x-request-id"

var protectedMethods = map[string]bool{
	LogoutMethod: true,
	WhoAmIMethod: true,
}

func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := firstMetadata(ctx, requestIDMetadataKey)
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, id))
	ctx = logging.ContextWithRequestID(ctx, id)

	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn(ctx, "grpc_request", "method", info.FullMethod, "code", status.Code(err).String())
	} else {
		s.logger.Info(ctx, "grpc_request", "method", info.FullMethod, "code", codes.OK.String())
	}
	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	scheme, token, _ := strings.Cut(firstMetadata(ctx, common.AuthorizationHeaderName), " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, common.BearerScheme) || token == "" {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	p, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return nil, statusError(err)
	}

	return handler(context.WithValue(ctx, principalKey, p), req)
}

func principalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	return p, ok && p != nil
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// statusError maps service errors to fixed status messages.
func statusError(err error) error {
	switch {
	case errors.Is(err, common.ErrMissingRequiredField):
		return status.Error(codes.InvalidArgument, "login and password are required")
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrInvalidOrExpiredRefreshToken):
		return status.Error(codes.Unauthenticated, "invalid refresh token")
	case errors.Is(err, common.ErrServiceUnavailable):
		return status.Error(codes.Unavailable, "service unavailable")
	case common.IsUnauthorized(err):
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	return status.Error(codes.Internal, "internal error")
}
