package utils

import "context"

// GetString pulls a string value out of the request context. Used for the
// session identity fields stashed by the auth middleware.
func GetString(ctx context.Context, key any) (string, bool) {
	s, ok := ctx.Value(key).(string)
	return s, ok
}
