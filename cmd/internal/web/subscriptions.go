package web

import (
	"net/http"

	"newsletter/cmd/domain"
	"newsletter/cmd/internal/fault"
	"newsletter/cmd/internal/metrics"
	"newsletter/cmd/internal/subscription"
)

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxBodyBytes); err != nil {
		h.metrics.Subscriptions.WithLabelValues(metrics.ResultInvalid).Inc()
		writeError(w, http.StatusBadRequest, "invalid_form", "invalid request body")
		return
	}

	rawEmail := r.PostForm.Get("email")
	id, err := h.subscriptions.Subscribe(r.Context(), r.PostForm.Get("name"), rawEmail)
	h.metrics.Subscriptions.WithLabelValues(result(err)).Inc()
	if err != nil {
		if fault.Is(err, fault.KindValidation) {
			// Validation messages echo the submitted address.
			h.log.InfoContext(r.Context(), "subscription.create.fail",
				"kind", fault.KindValidation.String(),
				"reason", "invalid subscriber details",
				"email", domain.RedactEmail(rawEmail),
			)
		} else {
			h.logFault(r, "subscription.create.fail", err, "subscriber_id", id)
		}
		writeFault(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "subscription.create.ok", "subscriber_id", id)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	err := h.subscriptions.Confirm(r.Context(), r.URL.Query().Get(subscription.TokenQueryKey))
	h.metrics.Confirmations.WithLabelValues(result(err)).Inc()
	if err != nil {
		h.logFault(r, "subscription.confirm.fail", err)
		writeFault(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
