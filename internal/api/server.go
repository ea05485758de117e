package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"hushpay/internal/conversation"
	"hushpay/internal/money"
	"hushpay/internal/observability/metrics"
	"hushpay/internal/provider"
	"hushpay/internal/stepup"
	"hushpay/pkg/logger"
)

// Conversations is the slice of the conversation engine the webhooks drive.
type Conversations interface {
	HandleInboundMessage(ctx context.Context, identifier, text string, channel provider.Channel) (string, error)
	ResumeWithPIN(ctx context.Context, token, pin string) (conversation.StepUpResult, error)
	SetPINWithToken(ctx context.Context, token, pin string) (conversation.StepUpResult, error)
	HandleIncomingTransfer(ctx context.Context, address string, amount money.Amount, token, from string) error
}

// Links resolves step-up tokens for the confirmation page.
type Links interface {
	Lookup(ctx context.Context, token string) (stepup.Token, bool, error)
}

// Server serves the webhooks until its context is cancelled.
type Server struct {
	addr     string
	conv     Conversations
	links    Links
	replies  provider.Notifier
	log      *slog.Logger
	audit    *slog.Logger
	secret   string
	signer   *twilioSigner
	native   string
	async    func(func())
	shutdown time.Duration
}

// Option customises a Server.
type Option func(*Server)

// WithWebhookSecret requires secret in the Authorization header of transfer
// webhooks.
func WithWebhookSecret(secret string) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithTwilioSignatures validates X-Twilio-Signature on message webhooks.
// publicURL is the externally visible base URL Twilio signs against.
func WithTwilioSignatures(authToken, publicURL string) Option {
	return func(s *Server) {
		if authToken != "" {
			s.signer = &twilioSigner{authToken: authToken, baseURL: publicURL}
		}
	}
}

// WithNativeToken names the token of native transfer notifications.
func WithNativeToken(symbol string) Option {
	return func(s *Server) {
		if symbol != "" {
			s.native = symbol
		}
	}
}

// WithAsync replaces the goroutine launcher used for WhatsApp replies.
func WithAsync(run func(func())) Option {
	return func(s *Server) {
		if run != nil {
			s.async = run
		}
	}
}

// NewServer builds the webhook server. replies delivers asynchronous
// WhatsApp answers.
func NewServer(addr string, conv Conversations, links Links, replies provider.Notifier, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		conv:     conv,
		links:    links,
		replies:  replies,
		log:      logger.Named("api"),
		audit:    logger.Audit(),
		native:   "ETH",
		async:    func(fn func()) { go fn() },
		shutdown: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireTwilioSignature)
		r.Post("/sms", s.handleSMS)
		r.Post("/whatsapp", s.handleWhatsApp)
	})
	r.Get("/confirm/{token}", s.handleConfirmPage)
	r.Post("/confirm/{token}", s.handleConfirmSubmit)
	r.With(s.requireWebhookSecret).Post("/webhook/transfers", s.handleTransfers)
	return r
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("webhook server listening", slog.String("addr", s.addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("HushPay running"))
}

// withContext rejects requests once the root context is done.
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
