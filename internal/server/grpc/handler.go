package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) ListSessions(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	sessions, err := s.sessions.ListSessions(ctx, claims.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(sessions))}
	for _, ss := range sessions {
		st, err := structpb.NewStruct(map[string]any{
			"id":        ss.ID,
			"family":    ss.Family,
			"createdAt": ss.CreatedAt.UTC().Format(time.RFC3339),
			"expiresAt": ss.ExpiresAt.UTC().Format(time.RFC3339),
			"ipAddress": ss.IPAddress,
			"userAgent": ss.UserAgent,
		})
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		out.Values = append(out.Values, structpb.NewStructValue(st))
	}
	return out, nil
}

func (s *GRPCServer) RevokeSession(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	if _, err := s.sessions.RevokeSession(ctx, claims.UserID, req.GetValue()); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) RevokeAll(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	n, err := s.sessions.RevokeAll(ctx, claims.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return wrapperspb.Int64(n), nil
}

// toStatus maps service errors onto gRPC codes. Store failures are logged
// and hidden behind codes.Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		common.IsRefreshFailure(err):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrorRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		s.logger.Error(ctx, "sessions call failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
