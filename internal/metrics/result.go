package metrics

// RequestResult is the outcome of one executor call, retries included.
// StatusCode is 0 when no HTTP response was received.
type RequestResult struct {
	StatusCode     int     `json:"status_code"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	ContentLength  int64   `json:"content_length"`
	Success        bool    `json:"success"`
	Error          string  `json:"error,omitempty"`
	ErrorKind      string  `json:"error_kind,omitempty"`
}

// IsSuccessStatus reports whether code is a 2xx status.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
