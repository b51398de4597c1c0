package handler

import (
	"context"
	"strings"

	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// 認証済みの呼び出し元を伝えるメタデータキー。検証は前段のゲートウェイが行う。
const (
	MetadataActorID      = "x-actor-id"
	MetadataActorName    = "x-actor-name"
	MetadataActorRole    = "x-actor-role"
	MetadataActorCountry = "x-actor-country"
)

type actorContextKey struct{}

// ContextWithActor は ctx に呼び出し元を格納します。
func ContextWithActor(ctx context.Context, actor resignation.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext は ctx に格納された呼び出し元を返します。
func ActorFromContext(ctx context.Context) (resignation.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(resignation.Actor)
	return actor, ok
}

// IdentityUnaryInterceptor はメタデータから呼び出し元を取り出してコンテキストに格納します。
// メタデータに x-actor-id が無い場合は何も格納しません。
func IdentityUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if actor, ok := actorFromMetadata(ctx); ok {
			ctx = ContextWithActor(ctx, actor)
		}
		return handler(ctx, req)
	}
}

func actorFromMetadata(ctx context.Context) (resignation.Actor, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return resignation.Actor{}, false
	}

	id := firstValue(md, MetadataActorID)
	if id == "" {
		return resignation.Actor{}, false
	}

	return resignation.Actor{
		ID:          id,
		Username:    firstValue(md, MetadataActorName),
		Role:        parseRole(firstValue(md, MetadataActorRole)),
		CountryCode: strings.ToUpper(firstValue(md, MetadataActorCountry)),
	}, true
}

func firstValue(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func parseRole(raw string) resignation.Role {
	switch strings.ToLower(raw) {
	case "employee":
		return resignation.RoleEmployee
	case "hr":
		return resignation.RoleHR
	default:
		return resignation.Role(raw)
	}
}

// OutgoingActorContext はクライアントから呼び出す際に actor をメタデータへ設定します。
func OutgoingActorContext(ctx context.Context, actor resignation.Actor) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		MetadataActorID, actor.ID,
		MetadataActorName, actor.Username,
		MetadataActorRole, string(actor.Role),
		MetadataActorCountry, actor.CountryCode,
	)
}
