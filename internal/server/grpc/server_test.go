package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sqlitetest"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocation"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func newSessions(t *testing.T) *services.SessionService {
	t.Helper()
	db, m := sqlitetest.Open(t)
	registry := revocation.NewMemoryRegistry()

	issuer, err := auth.NewIssuer([]byte("grpc-secret"), "HS256", 15*time.Minute)
	require.NoError(t, err)
	verifier, err := auth.NewVerifier([]byte("grpc-secret"), "HS256", registry)
	require.NoError(t, err)

	svc, err := services.NewSessionService(db, m, issuer, verifier, registry, password.NewBcrypt(bcrypt.MinCost))
	require.NoError(t, err)

	_, err = svc.EnsureAccount(context.Background(), "alice", "correct")
	require.NoError(t, err)
	return svc
}

// dial serves s over an in-memory listener and returns a connected client.
func dial(t *testing.T, s *GRPCServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func withBearer(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func TestSessionService_EndToEnd(t *testing.T) {
	conn := dial(t, NewGRPCServer("", logging.Nop{}, newSessions(t)))
	client := NewSessionServiceClient(conn)
	ctx := context.Background()

	creds, err := structpb.NewStruct(map[string]any{"login": "alice", "password": "correct"})
	require.NoError(t, err)
	var header metadata.MD
	pair, err := client.Login(ctx, creds, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.Fields["token_type"].GetStringValue())
	assert.NotEmpty(t, header.Get("x-request-id"))

	access := pair.Fields["access_token"].GetStringValue()
	refresh := pair.Fields["refresh_token"].GetStringValue()

	who, err := client.WhoAmI(withBearer(ctx, access), &emptypb.Empty{})
	require.NoError(t, err)
	assert.NotEmpty(t, who.GetValue())

	rotated, err := client.Refresh(ctx, wrapperspb.String(refresh))
	require.NoError(t, err)
	assert.NotEqual(t, refresh, rotated.Fields["refresh_token"].GetStringValue())

	_, err = client.Refresh(ctx, wrapperspb.String(refresh))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	out, err := client.Logout(withBearer(ctx, access), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "Successfully logged out", out.Fields["detail"].GetStringValue())

	_, err = client.WhoAmI(withBearer(ctx, access), &emptypb.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestLogin_Errors(t *testing.T) {
	conn := dial(t, NewGRPCServer("", logging.Nop{}, newSessions(t)))
	client := NewSessionServiceClient(conn)

	wrong, _ := structpb.NewStruct(map[string]any{"login": "alice", "password": "nope"})
	_, err := client.Login(context.Background(), wrong)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "invalid credentials", status.Convert(err).Message())

	empty, _ := structpb.NewStruct(map[string]any{"login": "alice"})
	_, err = client.Login(context.Background(), empty)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestProtectedWithoutToken(t *testing.T) {
	conn := dial(t, NewGRPCServer("", logging.Nop{}, newSessions(t)))
	client := NewSessionServiceClient(conn)

	_, err := client.WhoAmI(context.Background(), &emptypb.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Basic abc")
	_, err = client.Logout(ctx, &emptypb.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHealth(t *testing.T) {
	conn := dial(t, NewGRPCServer("", logging.Nop{}, newSessions(t)))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, &stubSessions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &stubSessions{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, srv.Run(ctx))
}
