package trace

import (
	"encoding/json"
	"net/http"
	"strings"
)

// TraceparentHeader is the W3C Trace Context request header.
const TraceparentHeader = "traceparent"

// Middleware starts a server span for each control request. A caller trace is
// taken from x-trace-id/x-span-id, then from traceparent. The server span is
// echoed in both forms so clients can correlate logs.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := fromRequest(r)
		w.Header().Set(TraceIDKey, tc.TraceID)
		w.Header().Set(TraceparentHeader, tc.Traceparent())
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

func fromRequest(r *http.Request) Context {
	if id := r.Header.Get(TraceIDKey); id != "" {
		return Context{TraceID: id, SpanID: generateSpanID(), ParentSpanID: r.Header.Get(SpanIDKey)}
	}
	if parent, ok := ParseTraceparent(r.Header.Get(TraceparentHeader)); ok {
		return NewChild(parent)
	}
	return New()
}

// ParseTraceparent reads a version 00 traceparent value
// ("00-<32 hex trace>-<16 hex span>-<2 hex flags>"). All-zero IDs are invalid.
func ParseTraceparent(v string) (Context, bool) {
	parts := strings.Split(strings.TrimSpace(v), "-")
	if len(parts) != 4 || parts[0] != "00" || len(parts[3]) != 2 {
		return Context{}, false
	}
	traceID, spanID := strings.ToLower(parts[1]), strings.ToLower(parts[2])
	if !isHexID(traceID, 32) || !isHexID(spanID, 16) {
		return Context{}, false
	}
	return Context{TraceID: traceID, SpanID: spanID}, true
}

// Traceparent formats c as a sampled version 00 traceparent value.
func (c Context) Traceparent() string {
	return "00-" + c.TraceID + "-" + c.SpanID + "-01"
}

func isHexID(s string, n int) bool {
	if len(s) != n || strings.Trim(s, "0") == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// ExtractFromJSON reads trace_id from a WebSocket command. The second result
// reports whether one was present.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.TraceID == "" {
		return New(), false
	}
	return Context{TraceID: msg.TraceID, SpanID: generateSpanID()}, true
}
