package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanathkumar-crypto/issue-tracker/internal/config"
	"github.com/sanathkumar-crypto/issue-tracker/internal/middleware"
	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository/csvstore"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

func testConfig() config.Config {
	return config.Config{
		Env:           "dev",
		Port:          "0",
		Origin:        "http://localhost:3000",
		SessionSecret: "test-secret",
		AllowedDomain: "cloudphysician.net",
		AdminEmails:   []string{"sanath.kumar@cloudphysician.net"},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *csvstore.Store, config.Config) {
	t.Helper()
	cfg := testConfig()
	store, err := csvstore.Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.InitFiles())
	srv := httptest.NewServer(New(zerolog.Nop(), store, cfg))
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return srv, store, cfg
}

func sessionCookie(t *testing.T, cfg config.Config, id, email, name, role string) *http.Cookie {
	t.Helper()
	tok, err := utils.SignJWT(cfg.SessionSecret, id, email, name, role, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: tok}
}

func doJSON(t *testing.T, method, url string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, path := range []string{"/api/issues", "/api/dashboard/stats", "/api/settings/hospitals", "/api/profile"} {
		resp := doJSON(t, http.MethodGet, srv.URL+path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestEmailLogin(t *testing.T) {
	srv, _, _ := newTestServer(t)

	t.Run("wrong domain is rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", map[string]string{"email": "mallory@gmail.com"}, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("allowed domain gets a session", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", map[string]string{"email": "asha.rao@cloudphysician.net"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var u map[string]any
		decode(t, resp, &u)
		assert.Equal(t, "asha.rao@cloudphysician.net", u["email"])
		assert.Equal(t, models.RoleMember, u["role"])

		var session string
		for _, c := range resp.Cookies() {
			if c.Name == middleware.SessionCookie {
				session = c.Value
			}
		}
		require.NotEmpty(t, session)
		claims, err := utils.ParseJWT("test-secret", session)
		require.NoError(t, err)
		assert.Equal(t, "asha.rao@cloudphysician.net", claims.Email)
	})

	t.Run("allowlisted email is admin", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", map[string]string{"email": "sanath.kumar@cloudphysician.net"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var u map[string]any
		decode(t, resp, &u)
		assert.Equal(t, models.RoleAdmin, u["role"])
	})
}

func TestIssueLifecycle(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	member := sessionCookie(t, cfg, "1", "asha.rao@cloudphysician.net", "Asha Rao", models.RoleMember)

	// create
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/issues", map[string]string{
		"taskName":     "Ventilator alarm",
		"hospitalUnit": "Apollo",
		"priority":     "High",
		"mainCategory": "Clinical",
		"subCategory":  "Equipment",
		"mainOwner":    "Asha Rao",
	}, member)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Issue
	decode(t, resp, &created)
	assert.Equal(t, "1", created.ID)
	assert.Equal(t, "Clinical: Equipment", created.Category)
	assert.Equal(t, models.StatusOpen, created.Status)
	assert.Equal(t, "Asha Rao", created.CreatedBy)
	assert.NotEmpty(t, created.DateLogged)

	// list
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/issues?my_tasks=true", nil, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-Total-Count"))
	var page struct {
		Items []models.Issue `json:"items"`
		Total int            `json:"total"`
	}
	decode(t, resp, &page)
	require.Len(t, page.Items, 1)

	// comment
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/issues/1/comments", map[string]string{"text": "checked on site"}, member)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// patch
	resp = doJSON(t, http.MethodPatch, srv.URL+"/api/issues/1", map[string]string{"priority": "Critical"}, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var patched models.Issue
	decode(t, resp, &patched)
	assert.Equal(t, models.PriorityCritical, patched.Priority)
	assert.Equal(t, "Asha Rao", patched.LastModifiedBy)

	// detail carries comments and history
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/issues/1", nil, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		models.Issue
		Comments []models.Comment      `json:"comments"`
		History  []models.HistoryEntry `json:"history"`
	}
	decode(t, resp, &detail)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "checked on site", detail.Comments[0].Text)
	require.NotEmpty(t, detail.History)
	assert.Contains(t, detail.History[0].Action, "created the task")

	// close
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/issues/1/close", map[string]string{"stepsTaken": "replaced sensor"}, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var closed models.Issue
	decode(t, resp, &closed)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.NotEmpty(t, closed.DateClosed)
	assert.Equal(t, "Asha Rao", closed.ResolvedBy)
	assert.Equal(t, "replaced sensor", closed.StepsTaken)

	// closing twice conflicts
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/issues/1/close", nil, member)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// closed issues leave my_tasks
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/issues?my_tasks=true", nil, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-Total-Count"))

	// export
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/issues/export", nil, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Ventilator alarm")
}

func TestIssueValidation(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	member := sessionCookie(t, cfg, "1", "asha.rao@cloudphysician.net", "Asha Rao", models.RoleMember)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/issues", map[string]string{"taskName": "no hospital"}, member)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/issues", map[string]string{
		"taskName": "x", "hospitalUnit": "Apollo", "priority": "Urgent",
	}, member)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/issues/404", nil, member)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	member := sessionCookie(t, cfg, "1", "asha.rao@cloudphysician.net", "Asha Rao", models.RoleMember)
	admin := sessionCookie(t, cfg, "2", "sanath.kumar@cloudphysician.net", "Sanath Kumar", models.RoleAdmin)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/issues", map[string]string{
		"taskName": "With file", "hospitalUnit": "Apollo",
	}, member)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	upload := func(fileName string, cookie *http.Cookie) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte("file-contents"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/issues/1/attachments", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(cookie)
		out, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { out.Body.Close() })
		return out
	}

	t.Run("disallowed extension", func(t *testing.T) {
		resp := upload("malware.exe", member)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	var att models.Attachment
	t.Run("upload", func(t *testing.T) {
		resp := upload("scan report.pdf", member)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		decode(t, resp, &att)
		assert.Equal(t, "scan_report.pdf", att.FileName, "name is sanitized")
		assert.Equal(t, "/attachments/1/scan_report.pdf", att.DownloadURL)
	})

	t.Run("download", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+att.DownloadURL, nil, member)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "file-contents", string(raw))
	})

	t.Run("delete requires admin", func(t *testing.T) {
		url := fmt.Sprintf("%s/api/issues/1/attachments/%s", srv.URL, att.ID)
		resp := doJSON(t, http.MethodDelete, url, nil, member)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = doJSON(t, http.MethodDelete, url, nil, admin)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestSettingsAuthorization(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	member := sessionCookie(t, cfg, "1", "asha.rao@cloudphysician.net", "Asha Rao", models.RoleMember)
	admin := sessionCookie(t, cfg, "2", "sanath.kumar@cloudphysician.net", "Sanath Kumar", models.RoleAdmin)

	t.Run("members can read hospitals", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/settings/hospitals", nil, member)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("members cannot mutate", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/settings/hospitals", models.Hospital{Name: "Apollo"}, member)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin hospital crud", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/settings/hospitals", models.Hospital{Name: "Apollo", Zone: "South"}, admin)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = doJSON(t, http.MethodPost, srv.URL+"/api/settings/hospitals", models.Hospital{Name: "apollo"}, admin)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, "duplicate check ignores case")

		resp = doJSON(t, http.MethodPost, srv.URL+"/api/settings/hospitals/bulk",
			map[string]string{"text": "Fortis, North\nApollo\n\nManipal, West"}, admin)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var counts map[string]int
		decode(t, resp, &counts)
		assert.Equal(t, 2, counts["added"])
		assert.Equal(t, 1, counts["skipped"])

		resp = doJSON(t, http.MethodDelete, srv.URL+"/api/settings/hospitals/Fortis", nil, admin)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("category and subcategory crud", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/settings/categories", map[string]string{"name": "Clinical"}, admin)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = doJSON(t, http.MethodPost, srv.URL+"/api/settings/categories/Clinical/subcategories", map[string]string{"name": "Equipment"}, admin)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/settings/categories", nil, member)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var cats models.CategoryMap
		decode(t, resp, &cats)
		assert.Equal(t, []string{"Equipment"}, cats["Clinical"])

		resp = doJSON(t, http.MethodPut, srv.URL+"/api/settings/categories/Clinical", map[string]string{"name": "Operations"}, admin)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decode(t, resp, &cats)
		assert.Equal(t, []string{"Equipment"}, cats["Operations"], "rename keeps subcategories")

		resp = doJSON(t, http.MethodPut, srv.URL+"/api/settings/categories/Operations/subcategories/Equipment",
			map[string]string{"name": "Devices"}, admin)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, http.MethodDelete, srv.URL+"/api/settings/categories/Operations/subcategories/Devices", nil, admin)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("role management creates unseen users", func(t *testing.T) {
		resp := doJSON(t, http.MethodPut, srv.URL+"/api/settings/users/role",
			map[string]string{"email": "ravi.k@cloudphysician.net", "role": models.RoleAdmin}, admin)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var u map[string]any
		decode(t, resp, &u)
		assert.Equal(t, models.RoleAdmin, u["role"])
		assert.Equal(t, "Ravi K", u["name"])
	})
}

func TestProfile(t *testing.T) {
	srv, store, cfg := newTestServer(t)
	require.NoError(t, store.WriteUsersRaw([]models.User{
		{ID: "1", Email: "asha.rao@cloudphysician.net", Name: "Asha Rao", Role: models.RoleMember},
	}))
	member := sessionCookie(t, cfg, "1", "asha.rao@cloudphysician.net", "Asha Rao", models.RoleMember)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/profile",
		map[string]string{"googleChatWebhookUrl": "https://chat.googleapis.com/v1/spaces/x"}, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", nil, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]any
	decode(t, resp, &got)
	assert.Equal(t, "https://chat.googleapis.com/v1/spaces/x", got["googleChatWebhookUrl"])
}

func TestDashboardEndpoint(t *testing.T) {
	srv, store, cfg := newTestServer(t)
	now := time.Now().UTC()
	require.NoError(t, store.WriteIssuesRaw([]models.Issue{
		{ID: "1", Category: "IT", HospitalUnit: "Apollo", Status: models.StatusOpen,
			DateLogged: now.Format(time.RFC3339)},
		{ID: "2", Category: "IT", HospitalUnit: "Apollo", Status: models.StatusClosed,
			DateLogged: now.AddDate(0, 0, -3).Format(time.RFC3339),
			DateClosed: now.Format(time.RFC3339)},
	}))
	member := sessionCookie(t, cfg, "1", "asha.rao@cloudphysician.net", "Asha Rao", models.RoleMember)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/dashboard/stats", nil, member)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		TotalTasks     int            `json:"totalTasks"`
		OpenTasks      int            `json:"openTasks"`
		ClosedTasks    int            `json:"closedTasks"`
		HospitalCounts map[string]int `json:"hospitalCounts"`
	}
	decode(t, resp, &stats)
	assert.Equal(t, 2, stats.TotalTasks)
	assert.Equal(t, 1, stats.OpenTasks)
	assert.Equal(t, 1, stats.ClosedTasks)
	assert.Equal(t, 2, stats.HospitalCounts["Apollo"])
}

func TestGoogleStartWithoutConfig(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/api/auth/google")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestBearerTokenFallback(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	tok, err := utils.SignJWT(cfg.SessionSecret, "1", "asha.rao@cloudphysician.net", "Asha Rao", models.RoleMember, time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/issues", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer not-a-token")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}
