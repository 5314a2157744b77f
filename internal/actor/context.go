/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package actor

import "context"

type contextKey string

const userContextKey contextKey = "shellffActor"

// WithUserID attaches the acting user id to the context so the data-access
// layer can attribute writes.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// UserIDFromContext retrieves the acting user id from context if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userContextKey).(string)
	return userID, ok && userID != ""
}
