package client

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	gs "github.com/dmitrijs2005/blogauth/internal/server/grpc"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Refresher renews a token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// GRPCClient calls the session admin service. An expired access token is
// refreshed once through the Refresher and the call retried.
type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *gs.SessionsClient
	refresher   Refresher

	mu     sync.Mutex
	tokens TokenPair
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	tokens := s.Tokens()
	err := invoker(withAccessToken(ctx, tokens.AccessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if s.refresher == nil || tokens.RefreshToken == "" {
		return err
	}

	fresh, rerr := s.refresher.Refresh(ctx, tokens.RefreshToken)
	if rerr != nil {
		// the presented refresh token is spent either way
		s.SetTokens(TokenPair{})
		return rerr
	}
	s.SetTokens(fresh)

	return invoker(withAccessToken(ctx, fresh.AccessToken), method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string, r Refresher, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, refresher: r}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = gs.NewSessionsClient(conn)
	return c, nil
}

// SetTokens replaces the credentials used for subsequent calls.
func (s *GRPCClient) SetTokens(t TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
}

// Tokens returns the current credentials, which change after a refresh.
func (s *GRPCClient) Tokens() TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *GRPCClient) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	list, err := s.client.ListSessions(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}

	out := make([]models.SessionSummary, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		f := v.GetStructValue().GetFields()
		ss := models.SessionSummary{
			ID:        f["id"].GetStringValue(),
			Family:    f["family"].GetStringValue(),
			IPAddress: f["ipAddress"].GetStringValue(),
			UserAgent: f["userAgent"].GetStringValue(),
		}
		ss.CreatedAt, _ = time.Parse(time.RFC3339, f["createdAt"].GetStringValue())
		ss.ExpiresAt, _ = time.Parse(time.RFC3339, f["expiresAt"].GetStringValue())
		out = append(out, ss)
	}
	return out, nil
}

func (s *GRPCClient) RevokeSession(ctx context.Context, family string) error {
	if err := s.client.RevokeSession(ctx, family); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) RevokeAll(ctx context.Context) (int64, error) {
	n, err := s.client.RevokeAll(ctx)
	if err != nil {
		return 0, s.mapError(err)
	}
	return n, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return common.ErrorUnauthorized
	case codes.PermissionDenied:
		return common.ErrorForbidden
	case codes.InvalidArgument:
		return common.ErrorValidation
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.ResourceExhausted:
		return common.ErrorRateLimited
	}
	return err
}
