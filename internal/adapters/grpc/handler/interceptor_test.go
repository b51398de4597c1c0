package handler

import (
	"context"
	"testing"

	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: fullMethod(MethodSubmitResignation)}

func TestIdentityUnaryInterceptor(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		MetadataActorID, " emp-1 ",
		MetadataActorName, "alice",
		MetadataActorRole, "employee",
		MetadataActorCountry, "ind",
	))

	var got resignation.Actor
	var found bool
	_, err := IdentityUnaryInterceptor()(ctx, nil, testInfo, func(ctx context.Context, req any) (any, error) {
		got, found = ActorFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}

	want := resignation.Actor{ID: "emp-1", Username: "alice", Role: resignation.RoleEmployee, CountryCode: "IND"}
	if !found || got != want {
		t.Fatalf("unexpected actor: %+v (found=%t)", got, found)
	}
}

func TestIdentityUnaryInterceptor_NoMetadata(t *testing.T) {
	t.Parallel()

	_, _ = IdentityUnaryInterceptor()(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
		if _, ok := ActorFromContext(ctx); ok {
			t.Fatalf("actor should not be set without metadata")
		}
		return nil, nil
	})
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	if parseRole("HR") != resignation.RoleHR || parseRole("hr") != resignation.RoleHR {
		t.Fatalf("expected HR role")
	}
	if parseRole("Admin") != resignation.Role("Admin") {
		t.Fatalf("unknown roles should pass through for the service to reject")
	}
}

func TestOutgoingActorContext(t *testing.T) {
	t.Parallel()

	ctx := OutgoingActorContext(context.Background(), testHR)
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	if md.Get(MetadataActorID)[0] != "hr-1" || md.Get(MetadataActorRole)[0] != "HR" {
		t.Fatalf("unexpected metadata: %v", md)
	}
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := LoggingUnaryInterceptor(zap.New(core))
	ctx := ContextWithActor(context.Background(), testEmployee)

	_, _ = interceptor(ctx, nil, testInfo, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	_, _ = interceptor(ctx, nil, testInfo, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "weekend")
	})
	_, _ = interceptor(ctx, nil, testInfo, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.Internal, "db down")
	})

	entries := logs.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range entries {
		if entry.Level != wantLevels[i] {
			t.Errorf("entry %d: expected level %s, got %s", i, wantLevels[i], entry.Level)
		}
		if entry.ContextMap()["method"] != testInfo.FullMethod {
			t.Errorf("entry %d: missing method field: %v", i, entry.ContextMap())
		}
		if entry.ContextMap()["actor_id"] != "emp-1" {
			t.Errorf("entry %d: missing actor field: %v", i, entry.ContextMap())
		}
	}
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	t.Parallel()

	_, err := RecoveryUnaryInterceptor(zap.NewNop())(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
		panic("nil map")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal after panic, got %v", err)
	}
}
