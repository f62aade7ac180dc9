package services

import (
	"context"
	"fmt"
)

// Caller is the authenticated user a request acts for
type Caller struct {
	UserID string
	Admin  bool
}

const callerContextKey contextKey = "caller"

// WithCaller attaches the authenticated user to ctx. Requests without a
// caller come from an unauthenticated deployment and are not restricted.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFrom returns the caller attached by WithCaller
func CallerFrom(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(Caller)
	return caller, ok && caller.UserID != ""
}

// authorizeSubject lets test-takers reach only their own sessions and
// results. Admins reach every subject.
func authorizeSubject(ctx context.Context, subjectID string) error {
	caller, ok := CallerFrom(ctx)
	if !ok || caller.Admin || caller.UserID == subjectID {
		return nil
	}
	return fmt.Errorf("%w: user %s cannot access subject %s", ErrForbidden, caller.UserID, subjectID)
}
