package web

import (
	"net/http"

	"newsletter/cmd/identity"
	"newsletter/cmd/internal/fault"
	"newsletter/cmd/internal/metrics"
	"newsletter/cmd/internal/newsletter"
)

// publishRealm is advertised on every authentication failure of the publish route.
const publishRealm = `Basic realm="publish"`

type publishRequest struct {
	Title   string         `json:"title"`
	Content publishContent `json:"content"`
}

type publishContent struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// handlePublish authenticates the caller before reading the body or
// touching subscribers.
func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, err := identity.ParseBasicAuth(r.Header.Get("Authorization"))
	if err == nil {
		var userID string
		userID, err = h.verifier.Validate(ctx, creds)
		if err == nil {
			h.log.InfoContext(ctx, "newsletter.publish.authenticated", "user_id", userID, "username", creds.Username)
		}
	}
	if err != nil {
		h.metrics.Publishes.WithLabelValues(result(err)).Inc()
		h.logFault(r, "newsletter.publish.auth.fail", err)
		if fault.Is(err, fault.KindAuthentication) {
			w.Header().Set("WWW-Authenticate", publishRealm)
		}
		writeFault(w, err)
		return
	}

	var req publishRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		h.metrics.Publishes.WithLabelValues(metrics.ResultInvalid).Inc()
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	rep, err := h.dispatcher.Publish(ctx, newsletter.Issue{
		Title: req.Title,
		HTML:  req.Content.HTML,
		Text:  req.Content.Text,
	})
	h.metrics.IssuesSent.Add(float64(rep.Sent))
	h.metrics.IssuesSkipped.Add(float64(rep.Skipped))
	h.metrics.Publishes.WithLabelValues(result(err)).Inc()
	if err != nil {
		h.logFault(r, "newsletter.publish.fail", err, "sent", rep.Sent, "skipped", rep.Skipped)
		writeFault(w, err)
		return
	}

	h.log.InfoContext(ctx, "newsletter.publish.ok", "sent", rep.Sent, "skipped", rep.Skipped)
	w.WriteHeader(http.StatusOK)
}
