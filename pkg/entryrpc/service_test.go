package entryrpc_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/benchboard/benchboard/pkg/entryrpc"
	"github.com/benchboard/benchboard/pkg/types"
)

type echoServer struct {
	got *entryrpc.AppendRequest
}

func (s *echoServer) Append(_ context.Context, req *entryrpc.AppendRequest) (*entryrpc.AppendResponse, error) {
	s.got = req
	return &entryrpc.AppendResponse{Ok: true, Message: "stored " + req.Suite}, nil
}

func dial(t *testing.T, srv entryrpc.EntryServiceServer, opts ...grpc.ServerOption) entryrpc.EntryServiceClient {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := grpc.NewServer(opts...)
	entryrpc.RegisterEntryServiceServer(gs, srv)
	go gs.Serve(lis) //nolint:errcheck
	t.Cleanup(gs.Stop)

	conn, err := grpc.Dial(lis.Addr().String(), //nolint:staticcheck
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return entryrpc.NewEntryServiceClient(conn)
}

func TestAppend_RoundTripsJSON(t *testing.T) {
	srv := &echoServer{}
	client := dial(t, srv)

	req := &entryrpc.AppendRequest{
		Suite:   "Benchmark",
		RepoURL: "https://github.com/paritytech/jsonrpsee",
		Entry: types.Entry{
			Commit:  types.Commit{ID: "abc", Author: types.Person{Name: "Dev", Username: "dev"}},
			Date:    1620041529000,
			Tool:    "cargo",
			Benches: []types.Bench{{Name: "synchronous_http_round_trip", Value: 50361, Range: "± 6279", Unit: "ns/iter"}},
		},
	}

	resp, err := client.Append(context.Background(), req)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !resp.Ok || resp.Message != "stored Benchmark" {
		t.Errorf("response: got %+v", resp)
	}
	if srv.got == nil {
		t.Fatal("server did not receive request")
	}
	if srv.got.Entry.Benches[0].Range != "± 6279" {
		t.Errorf("range: got %q", srv.got.Entry.Benches[0].Range)
	}
	if srv.got.Entry.Commit.Author.Username != "dev" {
		t.Errorf("author username: got %q", srv.got.Entry.Commit.Author.Username)
	}
}

func TestAppend_InterceptorSeesFullMethod(t *testing.T) {
	var method string
	icpt := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (interface{}, error) {
		method = info.FullMethod
		return h(ctx, req)
	}
	client := dial(t, &echoServer{}, grpc.UnaryInterceptor(icpt))

	if _, err := client.Append(context.Background(), &entryrpc.AppendRequest{Suite: "s"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if method != entryrpc.AppendMethod {
		t.Errorf("FullMethod: got %q, want %q", method, entryrpc.AppendMethod)
	}
}

func TestAppend_Unimplemented(t *testing.T) {
	type bare struct{ entryrpc.UnimplementedEntryServiceServer }
	client := dial(t, bare{})

	_, err := client.Append(context.Background(), &entryrpc.AppendRequest{})
	if code := status.Code(err); code != codes.Unimplemented {
		t.Errorf("code: got %v, want Unimplemented", code)
	}
}
