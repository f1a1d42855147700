package middleware

import "context"

type contextKey string

const (
	ctxTenantID   contextKey = "tenant_id"
	ctxTenantName contextKey = "tenant_name"
	ctxEmail      contextKey = "email"
	ctxRequestID  contextKey = "request_id"
)

// TenantIDFromContext returns the authenticated tenant id, or "" when
// the request was not authenticated.
func TenantIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxTenantID).(string)
	return v
}

func TenantNameFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxTenantName).(string)
	return v
}

func EmailFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxEmail).(string)
	return v
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxTenantID, tenantID)
}

func WithTenantName(ctx context.Context, tenantName string) context.Context {
	return context.WithValue(ctx, ctxTenantName, tenantName)
}

func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxEmail, email)
}

func WithRequestIDValue(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestID, requestID)
}
