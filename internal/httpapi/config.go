package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// chatTimeout bounds a single POST /chat request. Zero means no timeout
// beyond server and connection timeouts.
var chatTimeout time.Duration

// SetChatTimeout sets the /chat timeout (0 disables).
func SetChatTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	chatTimeout = d
}

// eventsKeepAlive is the interval between SSE comment frames on /events.
var eventsKeepAlive = 15 * time.Second

// SetEventsKeepAlive sets the SSE keep-alive interval. Non-positive values
// restore the default.
func SetEventsKeepAlive(d time.Duration) {
	if d <= 0 {
		d = 15 * time.Second
	}
	eventsKeepAlive = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
