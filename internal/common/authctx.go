package common

import "context"

type ctxKey string

const staffKey ctxKey = "auth/staff"

// WithStaffUser stores the authenticated staff username on the context.
func WithStaffUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, staffKey, username)
}

// StaffUser returns the authenticated staff username, if any.
func StaffUser(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(staffKey).(string)
	return username, ok && username != ""
}
