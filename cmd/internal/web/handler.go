// Package web is the HTTP surface: subscription, confirmation, publishing
// and the login form.
//
// Handlers decode the request, call one workflow, and map its fault kind to a
// status code. Full error chains go to the log; bodies carry the public message only.
package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"newsletter/cmd/identity"
	"newsletter/cmd/internal/fault"
	"newsletter/cmd/internal/metrics"
	"newsletter/cmd/internal/newsletter"
	"newsletter/cmd/internal/subscription"
)

// DefaultMaxBodyBytes bounds form and JSON bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Route paths.
const (
	PathSubscriptions = "/newsletters/subscriptions"
	PathConfirm       = subscription.ConfirmPath
	PathNewsletters   = "/newsletters"
	PathLogin         = "/login"
	PathHealthCheck   = "/health_check"
)

// Handler serves the public routes.
type Handler struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	subscriptions *subscription.Service
	dispatcher    *newsletter.Dispatcher
	verifier      *identity.Verifier
	hmacKey       []byte

	maxBodyBytes int64
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithLogger overrides slog.Default.
func WithLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMetrics records workflow outcomes on m.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes. Non-positive values are ignored.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler wires a Handler. hmacKey signs login redirect messages.
func NewHandler(
	subs *subscription.Service,
	dispatcher *newsletter.Dispatcher,
	verifier *identity.Verifier,
	hmacKey []byte,
	opts ...HandlerOption,
) (*Handler, error) {
	switch {
	case subs == nil:
		return nil, errors.New("web: nil subscription service")
	case dispatcher == nil:
		return nil, errors.New("web: nil dispatcher")
	case verifier == nil:
		return nil, errors.New("web: nil verifier")
	case len(hmacKey) == 0:
		return nil, errors.New("web: empty hmac key")
	}

	h := &Handler{
		log:           slog.Default(),
		subscriptions: subs,
		dispatcher:    dispatcher,
		verifier:      verifier,
		hmacKey:       append([]byte(nil), hmacKey...),
		maxBodyBytes:  DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}
	return h, nil
}

// Register wires the routes onto r.
func (h *Handler) Register(r chi.Router) {
	r.Get(PathHealthCheck, handleHealthCheck)
	r.Post(PathSubscriptions, h.handleSubscribe)
	r.Get(PathConfirm, h.handleConfirm)
	r.Post(PathNewsletters, h.handlePublish)
	r.Get(PathLogin, h.handleLoginForm)
	r.Post(PathLogin, h.handleLogin)
}

func handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// result maps an outcome to its metrics label.
func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case fault.Is(err, fault.KindValidation):
		return metrics.ResultInvalid
	case fault.Is(err, fault.KindAuthentication):
		return metrics.ResultDenied
	default:
		return metrics.ResultError
	}
}

// logFault logs err at a level matching its kind.
func (h *Handler) logFault(r *http.Request, event string, err error, args ...any) {
	args = append(args, "kind", fault.KindOf(err).String(), "err", err)
	if fault.Is(err, fault.KindUnexpected) {
		h.log.ErrorContext(r.Context(), event, args...)
		return
	}
	h.log.InfoContext(r.Context(), event, args...)
}
