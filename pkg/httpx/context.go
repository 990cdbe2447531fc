package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
)

// ContextWithUserID records the authenticated account id for per-user
// concerns such as rate limiting.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}

func userIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}
