package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/adconsole/gateway"
	"github.com/jmcleod/adconsole/notify"
	"github.com/jmcleod/adconsole/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(v))
}

// fakeBackend mimics the admin REST backend closely enough for the client.
func fakeBackend(t *testing.T) chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			var body loginRequest
			decodeJSON(t, req, &body)
			switch {
			case body.Username == "admin" && body.Password == "secret":
				writeJSON(w, http.StatusOK, map[string]any{
					"access_token": "t-admin",
					"csrf_token":   "c-admin",
					"user":         map[string]any{"id": 1, "username": "admin", "is_superuser": true, "advertiser_id": nil},
				})
			case body.Username == "ops" && body.Password == "secret":
				writeJSON(w, http.StatusOK, map[string]any{
					"access_token": "t-ops",
					"csrf_token":   "c-ops",
					"user":         map[string]any{"id": 2, "username": "ops", "full_name": "Ops", "advertiser_id": 5},
					"permissions":  []string{"campaigns.read"},
				})
			case body.Username == "inactive":
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "User account is inactive"})
			default:
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			}
		})
		r.Get("/auth/verify", func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Missing Authorization Header"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": 2, "username": "ops", "email": "ops@example.com"}})
		})
		r.Get("/auth/csrf-token", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "c-fresh"})
		})

		r.Get("/v1/advertisers", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			page, _ := strconv.Atoi(q.Get("page"))
			perPage, _ := strconv.Atoi(q.Get("per_page"))
			writeJSON(w, http.StatusOK, map[string]any{
				"items":    []map[string]any{{"id": 5, "name": "Acme", "status": q.Get("status")}},
				"total":    41,
				"page":     page,
				"per_page": perPage,
				"pages":    3,
			})
		})
		r.Get("/v1/advertisers/{id}", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "id") != "5" {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "Advertiser not found"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"advertiser": map[string]any{"id": 5, "name": "Acme", "balance": 10.5}})
		})
		r.Post("/v1/advertisers/{id}/deposit", func(w http.ResponseWriter, req *http.Request) {
			var tx Transaction
			decodeJSON(t, req, &tx)
			if req.Header.Get(gateway.HeaderCSRF) == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "CSRF token missing"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "balance": 10.5 + tx.Amount})
		})
		r.Post("/v1/advertisers/{id}/upload", func(w http.ResponseWriter, req *http.Request) {
			_, hdr, err := req.FormFile("file")
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file part"})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{
				"message": "File uploaded successfully",
				"file":    map[string]any{"id": 9, "advertiser_id": 5, "original_name": hdr.Filename, "file_type": req.FormValue("file_type")},
			})
		})
		r.Put("/v1/campaigns/{id}/status", func(w http.ResponseWriter, req *http.Request) {
			var change StatusChange
			decodeJSON(t, req, &change)
			if change.Status == "bogus" {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "Invalid status", "details": map[string]any{"status": []string{"Not a valid choice."}}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"campaign": map[string]any{"id": 3, "status": change.Status}})
		})
		r.Get("/v1/campaigns/{id}/statistics", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"items":   []map[string]any{{"date": req.URL.Query().Get("start_date"), "impressions": 100, "clicks": 4}},
				"summary": map[string]any{"impressions": 100, "clicks": 4, "ctr": 0.04},
			})
		})
		r.Post("/v1/reports/jobs", func(w http.ResponseWriter, req *http.Request) {
			var in ReportJobRequest
			decodeJSON(t, req, &in)
			writeJSON(w, http.StatusCreated, map[string]any{"message": "Report generation started", "report": map[string]any{"id": 11, "name": in.Name, "status": "pending"}})
		})
		r.Get("/v1/users/roles", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"roles": []map[string]any{{"id": 1, "name": "admin"}}})
		})
		r.Get("/v1/users", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Permission denied"})
		})
	})
	return r
}

type stack struct {
	client   *Client
	ctrl     *session.Controller
	recorder *notify.Recorder
}

func newStack(t *testing.T) *stack {
	t.Helper()
	srv := httptest.NewServer(fakeBackend(t))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &notify.Recorder{}
	store, err := session.NewStore(nil)
	require.NoError(t, err)
	gw, err := gateway.New(srv.URL+"/api", store, gateway.WithNotifier(rec), gateway.WithLogger(logger))
	require.NoError(t, err)
	client := NewClient(gw)
	ctrl := session.NewController(store, client.Auth, session.WithNotifier(rec), session.WithLogger(logger))
	gw.BindTeardown(ctrl)
	return &stack{client: client, ctrl: ctrl, recorder: rec}
}

func (s *stack) login(t *testing.T, user string) {
	t.Helper()
	_, err := s.ctrl.Login(context.Background(), user, "secret")
	require.NoError(t, err)
}

func TestLoginThroughBackend(t *testing.T) {
	t.Run("Superuser", func(t *testing.T) {
		s := newStack(t)
		s.login(t, "admin")
		snap := s.ctrl.Snapshot()
		assert.Equal(t, []string{"*"}, snap.Permissions)
		assert.Nil(t, snap.Identity.AdvertiserScopeID)
		assert.True(t, snap.Can("users.write"))
	})

	t.Run("Regular", func(t *testing.T) {
		s := newStack(t)
		s.login(t, "ops")
		snap := s.ctrl.Snapshot()
		assert.Equal(t, "t-ops", snap.BearerToken)
		assert.Equal(t, "c-ops", snap.AntiForgeryToken)
		assert.Equal(t, "Ops", snap.Identity.DisplayName)
		require.NotNil(t, snap.Identity.AdvertiserScopeID)
		assert.Equal(t, int64(5), *snap.Identity.AdvertiserScopeID)
		assert.True(t, snap.Can("campaigns.read"))
		assert.False(t, snap.Can("users.write"))
	})

	t.Run("InvalidCredentialsReportedOnce", func(t *testing.T) {
		s := newStack(t)
		_, err := s.ctrl.Login(context.Background(), "ops", "wrong")
		require.ErrorIs(t, err, gateway.ErrAuthorizationExpired)

		entries := s.recorder.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, notify.MsgLoginFailed, entries[0].Key)
		assert.Equal(t, "Invalid credentials", entries[0].Text)
		assert.Equal(t, session.StateAnonymous, s.ctrl.State())
	})

	t.Run("Inactive", func(t *testing.T) {
		s := newStack(t)
		_, err := s.ctrl.Login(context.Background(), "inactive", "secret")
		require.ErrorIs(t, err, gateway.ErrAuthorizationDenied)
		entries := s.recorder.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "User account is inactive", entries[0].Text)
	})
}

func TestVerifyAndCSRF(t *testing.T) {
	s := newStack(t)
	s.login(t, "ops")

	id, err := s.ctrl.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", id.Email)

	tok, err := s.ctrl.RefreshAntiForgeryToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c-fresh", tok)
	assert.Equal(t, "c-fresh", s.ctrl.Snapshot().AntiForgeryToken)
}

func TestAdvertisers(t *testing.T) {
	s := newStack(t)
	s.login(t, "ops")
	ctx := context.Background()

	page, err := s.client.Advertisers.List(ctx, ListParams{Page: 2, PerPage: 500, Filters: map[string]string{"status": "approved"}})
	require.NoError(t, err)
	assert.Equal(t, 41, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 100, page.PerPage)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "approved", page.Items[0].Status)
	assert.True(t, page.HasMore())

	adv, err := s.client.Advertisers.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Acme", adv.Name)
	assert.InDelta(t, 10.5, adv.Balance, 1e-9)

	_, err = s.client.Advertisers.Get(ctx, 6)
	require.ErrorIs(t, err, gateway.ErrServer)
	assert.Equal(t, 1, s.recorder.Count(notify.MsgServerError))

	bal, err := s.client.Advertisers.Deposit(ctx, 5, Transaction{Amount: 4.5, TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.InDelta(t, 15.0, bal.Balance, 1e-9)

	file, err := s.client.Advertisers.UploadFile(ctx, 5, "license.pdf", strings.NewReader("pdf"), "business_license")
	require.NoError(t, err)
	assert.Equal(t, "license.pdf", file.OriginalName)
	assert.Equal(t, "business_license", file.FileType)
}

func TestCampaignsAndReports(t *testing.T) {
	s := newStack(t)
	s.login(t, "ops")
	ctx := context.Background()

	c, err := s.client.Campaigns.ChangeStatus(ctx, 3, "paused")
	require.NoError(t, err)
	assert.Equal(t, "paused", c.Status)

	before := s.ctrl.Snapshot()
	_, err = s.client.Campaigns.ChangeStatus(ctx, 3, "bogus")
	require.ErrorIs(t, err, gateway.ErrValidation)
	assert.True(t, before.Equal(s.ctrl.Snapshot()))
	entries := s.recorder.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, notify.MsgInvalidParameters, entries[len(entries)-1].Key)
	assert.Equal(t, "Invalid status", entries[len(entries)-1].Text)

	stats, err := s.client.Campaigns.Statistics(ctx, 3, url.Values{"start_date": {"2024-01-01"}})
	require.NoError(t, err)
	require.Len(t, stats.Items, 1)
	assert.Equal(t, "2024-01-01", stats.Items[0].Date)
	assert.InDelta(t, 0.04, stats.Summary.CTR, 1e-9)

	job, err := s.client.Reports.CreateJob(ctx, ReportJobRequest{Name: "weekly", ReportType: "campaign"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), job.ID)
	assert.Equal(t, "pending", job.Status)
}

func TestUsers(t *testing.T) {
	s := newStack(t)
	s.login(t, "ops")
	ctx := context.Background()

	roles, err := s.client.Users.Roles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "admin", roles[0].Name)

	before := s.ctrl.Snapshot()
	_, err = s.client.Users.List(ctx, ListParams{})
	require.ErrorIs(t, err, gateway.ErrAuthorizationDenied)
	assert.True(t, before.Equal(s.ctrl.Snapshot()))
	assert.Equal(t, 1, s.recorder.Count(notify.MsgNotAuthorized))
}

func TestUnwrapMissingKey(t *testing.T) {
	_, err := unwrap[Campaign](map[string]json.RawMessage{"other": json.RawMessage(`{}`)}, "campaign")
	assert.Error(t, err)
}
