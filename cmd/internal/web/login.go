package web

import (
	"html/template"
	"net/http"
	"net/url"

	"newsletter/cmd/identity"
	"newsletter/cmd/internal/fault"
	"newsletter/cmd/security/token"
)

// tagQueryKey carries the hex HMAC of the error query.
const tagQueryKey = "tag"

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Login</title>
</head>
<body>
{{- if .Error }}
<p><i>{{ .Error }}</i></p>
{{- end }}
<form action="/login" method="post">
    <label>Username&nbsp;<input type="text" placeholder="Enter Username" name="username"></label>
    <label>Password&nbsp;<input type="password" placeholder="Enter Password" name="password"></label>
    <button type="submit">Login</button>
</form>
</body>
</html>
`))

type loginView struct {
	Error string
}

// handleLoginForm renders the form. A message is shown only when its tag verifies.
func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	var view loginView

	q := r.URL.Query()
	if q.Has(token.ErrorQueryKey) || q.Has(tagQueryKey) {
		msg, err := token.VerifyMessage(q.Get(token.ErrorQueryKey), q.Get(tagQueryKey), h.hmacKey)
		if err != nil {
			h.log.WarnContext(r.Context(), "login.form.verify_tag.fail", "err", err)
		} else {
			view.Error = msg
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := loginPage.Execute(w, view); err != nil {
		h.log.ErrorContext(r.Context(), "login.form.render.fail", "err", err)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var err error
	if perr := parseForm(w, r, h.maxBodyBytes); perr != nil {
		err = fault.Validation("web.login", "invalid form")
	} else {
		creds := identity.Credentials{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		}
		var userID string
		userID, err = h.verifier.Validate(ctx, creds)
		if err == nil {
			h.metrics.Logins.WithLabelValues(result(nil)).Inc()
			h.log.InfoContext(ctx, "login.ok", "user_id", userID, "username", creds.Username)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	h.metrics.Logins.WithLabelValues(result(err)).Inc()
	h.logFault(r, "login.fail", err)

	msg := fault.PublicMessage(err)
	http.Redirect(w, r, loginErrorLocation(msg, h.hmacKey), http.StatusSeeOther)
}

// loginErrorLocation builds "/login?error=<msg>&tag=<hex>".
func loginErrorLocation(msg string, key []byte) string {
	return PathLogin + "?" + token.EncodeErrorQuery(msg) + "&" +
		url.Values{tagQueryKey: []string{token.SignMessage(msg, key)}}.Encode()
}
