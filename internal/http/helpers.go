package http

import (
	"context"
	"html"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type requestIDKey struct{}

// withRequestID assigns each request an id, reusing a well-formed incoming
// X-Request-ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 || sanitizeInput(id) != id {
			id = generateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText is sanitizeInput plus removal of any HTML markup. Notes end
// up in a shared spreadsheet, so only plain text is kept.
func sanitizeText(s string) string {
	return sanitizeInput(html.UnescapeString(textPolicy.Sanitize(sanitizeInput(s))))
}

func generateRequestID() string {
	return "req_" + uuid.NewString()
}
