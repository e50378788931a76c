package dirrpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// CredentialsInterceptor attaches the §6.2 auth identity (auth type "none",
// username, group) and a per-call correlation ID as outgoing gRPC metadata,
// adapted from the teacher's linktrace.go WithGrpcCtx (which attached a
// single FIT-TRACE-ID header the same way).
func CredentialsInterceptor(authType, username, group string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		md := metadata.Pairs(
			"x-dir-auth-type", authType,
			"x-dir-username", username,
			"x-dir-group", group,
			"x-dir-correlation-id", uuid.New().String(),
		)
		ctx = metadata.NewOutgoingContext(ctx, md)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
