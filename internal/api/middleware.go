package api

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"hushpay/internal/observability/metrics"
)

// instrument records request counts and latency per route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveHTTPRequest(route, r.Method, status, time.Since(start))
	})
}

func (s *Server) requireWebhookSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secret == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			s.deny(w, r, "invalid webhook secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireTwilioSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.signer == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed form", http.StatusBadRequest)
			return
		}
		if !s.signer.valid(r) {
			s.deny(w, r, "invalid twilio signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) deny(w http.ResponseWriter, r *http.Request, reason string) {
	status := http.StatusForbidden
	http.Error(w, http.StatusText(status), status)
	s.audit.Warn("access_denied",
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status", status),
		slog.String("reason", reason),
		slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
	)
}

// twilioSigner checks the X-Twilio-Signature scheme: base64 HMAC-SHA1 over
// the full URL followed by every POST parameter name and value in name order.
type twilioSigner struct {
	authToken string
	baseURL   string
}

func (t *twilioSigner) sign(url string, form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}
	mac := hmac.New(sha1.New, []byte(t.authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (t *twilioSigner) valid(r *http.Request) bool {
	got := r.Header.Get("X-Twilio-Signature")
	if got == "" {
		return false
	}
	url := strings.TrimRight(t.baseURL, "/") + r.URL.RequestURI()
	want := t.sign(url, r.PostForm)
	return hmac.Equal([]byte(got), []byte(want))
}
