package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// RequestData carries the authenticated actor through the request context.
type RequestData struct {
	UserID      uuid.UUID
	Email       string
	TokenString string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, ctxKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(ctxKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// ActorID returns the authenticated user id, or uuid.Nil when absent.
func ActorID(ctx context.Context) uuid.UUID {
	rd := GetRequestData(ctx)
	if rd == nil {
		return uuid.Nil
	}
	return rd.UserID
}
