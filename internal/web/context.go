package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/staffdesk/internal/logging"
)

// withRequestMetadata attaches the client IP and User-Agent to the request
// logger so writes can be traced back to a caller.
func withRequestMetadata(r *http.Request) context.Context {
	ctx, _ := logging.WithFields(r.Context(),
		"ip", r.RemoteAddr, // already resolved by TrustedRealIP
		"user_agent", r.UserAgent(),
	)
	return ctx
}
