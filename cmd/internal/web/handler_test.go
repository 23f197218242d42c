package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/cmd/domain"
	"newsletter/cmd/identity"
	"newsletter/cmd/internal/email"
	"newsletter/cmd/internal/metrics"
	"newsletter/cmd/internal/newsletter"
	"newsletter/cmd/internal/subscription"
	"newsletter/cmd/security/password"
)

const (
	testUsername = "publisher"
	testPassword = "correct horse battery staple"
)

var testHMACKey = []byte("0123456789abcdef0123456789abcdef")

type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg email.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingSender) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recordingSender) messages() []email.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]email.Message(nil), r.sent...)
}

type harness struct {
	router  http.Handler
	subs    *subscription.MemoryStore
	sender  *recordingSender
	metrics *metrics.Metrics
	logs    *bytes.Buffer
}

func fastPasswordConfig() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	creds := identity.NewMemoryStore()
	_, err := identity.Provision(context.Background(), creds, fastPasswordConfig(), identity.ProvisionInput{
		Username: testUsername,
		Password: testPassword,
	})
	require.NoError(t, err)
	return newHarnessWith(t, creds)
}

// brokenCredentials fails every lookup.
type brokenCredentials struct{}

func (brokenCredentials) InsertCredential(context.Context, identity.Credential) error {
	return errors.New("connection refused")
}

func (brokenCredentials) CredentialByUsername(context.Context, string) (identity.Credential, error) {
	return identity.Credential{}, errors.New("connection refused")
}

func newHarnessWith(t *testing.T, creds identity.Store) *harness {
	t.Helper()

	verifier, err := identity.NewVerifier(creds, password.NewPool(fastPasswordConfig(), 2))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(logs, nil))
	subs := subscription.NewMemoryStore()
	sender := &recordingSender{}

	svc, err := subscription.NewService(subs, sender, "http://127.0.0.1:8000", subscription.WithLogger(log))
	require.NoError(t, err)
	dispatcher, err := newsletter.NewDispatcher(subs, sender, log)
	require.NoError(t, err)

	m := metrics.New()
	h, err := NewHandler(svc, dispatcher, verifier, testHMACKey, WithLogger(log), WithMetrics(m))
	require.NoError(t, err)

	r := chi.NewRouter()
	h.Register(r)
	return &harness{router: r, subs: subs, sender: sender, metrics: m, logs: logs}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func publishRequestWith(body string, user, pass string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, PathNewsletters, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}
	return req
}

const validIssue = `{"title":"Newsletter title","content":{"html":"<p>Newsletter body as HTML</p>","text":"Newsletter body as plain text"}}`

func confirmedSubscriber(id, addr string) domain.Subscriber {
	return domain.Subscriber{
		ID:           id,
		Email:        addr,
		Name:         "reader",
		Status:       domain.StatusConfirmed,
		SubscribedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apiError {
	t.Helper()

	var body errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), "body: %s", rr.Body.String())
	return body.Error
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, PathHealthCheck, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, rr.Body.Len())
}

func TestSubscribe_ValidFormReturns200(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rr := h.do(formRequest(http.MethodPost, PathSubscriptions, url.Values{
		"name":  {"le guin"},
		"email": {"ursula_le_guin@gmail.com"},
	}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	subs := h.subs.Subscribers()
	require.Len(t, subs, 1)
	assert.Equal(t, "ursula_le_guin@gmail.com", subs[0].Email)
	assert.Equal(t, domain.StatusPendingConfirmation, subs[0].Status)
	assert.Len(t, h.sender.messages(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Subscriptions.WithLabelValues(metrics.ResultOK)))
}

func TestSubscribe_InvalidFormReturns400(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		form url.Values
	}{
		{name: "missing email", form: url.Values{"name": {"le guin"}}},
		{name: "missing name", form: url.Values{"email": {"ursula_le_guin@gmail.com"}}},
		{name: "missing both", form: url.Values{}},
		{name: "blank name", form: url.Values{"name": {"   "}, "email": {"ursula_le_guin@gmail.com"}}},
		{name: "invalid email", form: url.Values{"name": {"Ursula"}, "email": {"definitely-not-an-email"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			rr := h.do(formRequest(http.MethodPost, PathSubscriptions, tc.form))
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "invalid_request", decodeError(t, rr).Code)
			assert.Empty(t, h.subs.Subscribers())
			assert.Empty(t, h.sender.messages())
		})
	}
}

func TestSubscribe_InvalidEmailIsRedactedInLogs(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rr := h.do(formRequest(http.MethodPost, PathSubscriptions, url.Values{
		"name":  {"Ursula"},
		"email": {"ursula.le.guin.example.com"},
	}))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	logs := h.logs.String()
	assert.Contains(t, logs, `"msg":"subscription.create.fail"`)
	assert.Contains(t, logs, `"email":"***@***"`)
	assert.NotContains(t, logs, "ursula.le.guin.example.com")
}

func TestSubscribe_EmailFailureReturns500(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.sender.fail(errors.New("provider down"))

	rr := h.do(formRequest(http.MethodPost, PathSubscriptions, url.Values{
		"name":  {"le guin"},
		"email": {"ursula_le_guin@gmail.com"},
	}))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "Something went wrong.", body.Message)
	assert.NotContains(t, rr.Body.String(), "provider down")
}

func TestSubscribe_StoreFailureReturns500(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.subs.FailOn(subscription.StepInsertToken, errors.New("disk full"))

	rr := h.do(formRequest(http.MethodPost, PathSubscriptions, url.Values{
		"name":  {"le guin"},
		"email": {"ursula_le_guin@gmail.com"},
	}))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, h.subs.Subscribers())
	assert.Empty(t, h.sender.messages())
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	t.Run("missing token is 400", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		rr := h.do(httptest.NewRequest(http.MethodGet, PathConfirm, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown token is 401", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		rr := h.do(httptest.NewRequest(http.MethodGet, PathConfirm+"?subscription_token=AAAAAAAAAAAAAAAAAAAAAAAAA", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rr).Code)
	})

	t.Run("issued token confirms", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		rr := h.do(formRequest(http.MethodPost, PathSubscriptions, url.Values{
			"name":  {"le guin"},
			"email": {"ursula_le_guin@gmail.com"},
		}))
		require.Equal(t, http.StatusOK, rr.Code)

		subs := h.subs.Subscribers()
		require.Len(t, subs, 1)
		toks := h.subs.TokensFor(subs[0].ID)
		require.Len(t, toks, 1)

		rr = h.do(httptest.NewRequest(http.MethodGet, PathConfirm+"?subscription_token="+toks[0], nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.StatusConfirmed, h.subs.Subscribers()[0].Status)

		// Confirming again stays confirmed.
		rr = h.do(httptest.NewRequest(http.MethodGet, PathConfirm+"?subscription_token="+toks[0], nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.StatusConfirmed, h.subs.Subscribers()[0].Status)
	})
}

func TestPublish_RejectsMissingOrBadCredentialsBeforeListing(t *testing.T) {
	t.Parallel()

	encoded := func(s string) string { return "Basic " + base64.StdEncoding.EncodeToString([]byte(s)) }

	cases := []struct {
		name   string
		header string
	}{
		{name: "no header"},
		{name: "bearer scheme", header: "Bearer abc"},
		{name: "bad base64", header: "Basic !!!"},
		{name: "no password", header: encoded("publisher")},
		{name: "unknown user", header: encoded("someone-else:" + testPassword)},
		{name: "wrong password", header: encoded(testUsername + ":not-the-password")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.subs.Put(confirmedSubscriber("01HZX3J6V4Q1M0W2Y8R5T7N9KD", "reader@example.com"))
			// A listing attempt would surface as 500; 401 shows it never happened.
			h.subs.FailOn(subscription.StepListConfirmed, errors.New("must not be called"))

			req := httptest.NewRequest(http.MethodPost, PathNewsletters, strings.NewReader(validIssue))
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := h.do(req)

			require.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, `Basic realm="publish"`, rr.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "Authentication failed.", decodeError(t, rr).Message)
			assert.Empty(t, h.sender.messages())
		})
	}
}

func TestPublish_CredentialStoreFaultIsNotAChallenge(t *testing.T) {
	t.Parallel()

	h := newHarnessWith(t, brokenCredentials{})
	rr := h.do(publishRequestWith(validIssue, testUsername, testPassword))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Header().Get("WWW-Authenticate"))
	assert.Empty(t, h.sender.messages())
}

func TestPublish_InvalidBodyReturns400(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{name: "not json", body: "title=hello"},
		{name: "unknown field", body: `{"title":"t","content":{"html":"h","text":"t"},"extra":1}`},
		{name: "missing content", body: `{"title":"Newsletter!"}`},
		{name: "missing title", body: `{"content":{"html":"<p>body</p>","text":"body"}}`},
		{name: "trailing data", body: validIssue + `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.subs.Put(confirmedSubscriber("01HZX3J6V4Q1M0W2Y8R5T7N9KD", "reader@example.com"))

			rr := h.do(publishRequestWith(tc.body, testUsername, testPassword))
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Empty(t, h.sender.messages())
		})
	}
}

func TestPublish_SendsOnlyToConfirmedSubscribers(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.subs.Put(confirmedSubscriber("01HZX3J6V4Q1M0W2Y8R5T7N9KD", "reader@example.com"))
	pending := confirmedSubscriber("01HZX3J6V4Q1M0W2Y8R5T7N9KE", "pending@example.com")
	pending.Status = domain.StatusPendingConfirmation
	h.subs.Put(pending)
	h.subs.Put(confirmedSubscriber("01HZX3J6V4Q1M0W2Y8R5T7N9KF", "not an email"))

	rr := h.do(publishRequestWith(validIssue, testUsername, testPassword))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Zero(t, rr.Body.Len())

	sent := h.sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "reader@example.com", sent[0].To.String())
	assert.Equal(t, "Newsletter title", sent[0].Subject)
	assert.Equal(t, "<p>Newsletter body as HTML</p>", sent[0].HTML)
	assert.Equal(t, "Newsletter body as plain text", sent[0].Text)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.IssuesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.IssuesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Publishes.WithLabelValues(metrics.ResultOK)))
}

func TestPublish_SendFailureReturns500(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.subs.Put(confirmedSubscriber("01HZX3J6V4Q1M0W2Y8R5T7N9KD", "reader@example.com"))
	h.sender.fail(errors.New("provider down"))

	rr := h.do(publishRequestWith(validIssue, testUsername, testPassword))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "reader@example.com")
}

func TestLogin_SuccessRedirectsHome(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rr := h.do(formRequest(http.MethodPost, PathLogin, url.Values{
		"username": {testUsername},
		"password": {testPassword},
	}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestLogin_FailureRedirectCarriesSignedMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rr := h.do(formRequest(http.MethodPost, PathLogin, url.Values{
		"username": {testUsername},
		"password": {"wrong"},
	}))
	require.Equal(t, http.StatusSeeOther, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, PathLogin, loc.Path)
	assert.Equal(t, "Authentication failed.", loc.Query().Get("error"))
	assert.True(t, strings.HasPrefix(loc.RawQuery, "error=Authentication%20failed.&tag="), loc.RawQuery)
	assert.Len(t, loc.Query().Get("tag"), 64)

	rr = h.do(httptest.NewRequest(http.MethodGet, loc.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "<p><i>Authentication failed.</i></p>")
}

func TestLoginForm_RejectsTamperedMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	loc := loginErrorLocation("Authentication failed.", testHMACKey)

	u, err := url.Parse(loc)
	require.NoError(t, err)
	q := u.Query()
	q.Set("error", "Your account is locked, call 555-0100")
	u.RawQuery = q.Encode()

	rr := h.do(httptest.NewRequest(http.MethodGet, u.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "555-0100")
	assert.NotContains(t, rr.Body.String(), "<i>")
}

func TestLoginForm_EscapesVerifiedMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	loc := loginErrorLocation(`<script>alert("x")</script>`, testHMACKey)

	rr := h.do(httptest.NewRequest(http.MethodGet, loc, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "<script>")
	assert.Contains(t, rr.Body.String(), "&lt;script&gt;")
}

func TestLoginForm_NoQueryShowsNoMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, PathLogin, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<form action="/login" method="post">`)
	assert.NotContains(t, rr.Body.String(), "<i>")
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewHandler(nil, nil, nil, testHMACKey)
	require.Error(t, err)
}
