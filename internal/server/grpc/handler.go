package grpc

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	pair, err := s.sessions.Login(ctx, fields["login"].GetStringValue(), fields["password"].GetStringValue())
	if err != nil {
		return nil, statusError(err)
	}
	return tokenStruct(pair)
}

func (s *GRPCServer) Refresh(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	pair, err := s.sessions.Refresh(ctx, req.GetValue())
	if err != nil {
		return nil, statusError(err)
	}
	return tokenStruct(pair)
}

func (s *GRPCServer) Logout(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	p, ok := principalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if err := s.sessions.Logout(ctx, p); err != nil {
		return nil, statusError(err)
	}
	return structpb.NewStruct(map[string]any{"detail": "Successfully logged out"})
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	p, ok := principalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	return wrapperspb.String(p.UserID), nil
}

func tokenStruct(p *services.TokenPair) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"access_token":  p.AccessToken,
		"refresh_token": p.RefreshToken,
		"token_type":    p.TokenType,
	})
}
