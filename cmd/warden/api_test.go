package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phantomguard/warden/automod/engine"
	"github.com/phantomguard/warden/automod/platform"
	"github.com/phantomguard/warden/automod/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() (*Server, *engine.Engine, *platform.MockPlatform) {
	eng, mock := engine.EngineTestFixture()
	srv := &Server{
		logger:     slog.Default(),
		engine:     eng,
		adminToken: "secret",
	}
	return srv, eng, mock
}

func doRequest(srv *Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.newEcho().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	assert := assert.New(t)
	srv, _, _ := testServer()

	rec := doRequest(srv, http.MethodGet, "/_health", "")
	assert.Equal(http.StatusOK, rec.Code)
	var status GenericStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("ok", status.Status)
}

func TestAdminTokenRequired(t *testing.T) {
	assert := assert.New(t)
	srv, _, mock := testServer()

	assert.Equal(http.StatusUnauthorized, doRequest(srv, http.MethodPost, "/admin/tenants/tenant-1/lockdown", "").Code)
	assert.Equal(http.StatusUnauthorized, doRequest(srv, http.MethodPost, "/admin/tenants/tenant-1/lockdown", "wrong").Code)
	assert.Equal(0, mock.CountCalls("set-permissions", "tenant-1"))
}

func TestAdminLockdownUnlock(t *testing.T) {
	assert := assert.New(t)
	srv, _, mock := testServer()

	rec := doRequest(srv, http.MethodPost, "/admin/tenants/tenant-1/lockdown", "secret")
	assert.Equal(http.StatusOK, rec.Code)
	var lock LockdownResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lock))
	assert.True(lock.Locked)
	assert.Empty(lock.Report.Failures)
	assert.Equal(lock.Report.Attempted, lock.Report.Succeeded)
	assert.True(mock.ChannelOverwrite("tenant-1", "general", platform.EveryoneTarget).Deny.Has(platform.PermSend))

	// second lockdown is a no-op
	rec = doRequest(srv, http.MethodPost, "/admin/tenants/tenant-1/lockdown", "secret")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lock))
	assert.False(lock.Locked)

	rec = doRequest(srv, http.MethodPost, "/admin/tenants/tenant-1/unlock", "secret")
	var unlock UnlockResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unlock))
	assert.True(unlock.WasLocked)
	assert.Empty(unlock.Report.Failures)
	assert.True(mock.ChannelOverwrite("tenant-1", "general", platform.EveryoneTarget).Allow.Has(platform.PermSend))

	rec = doRequest(srv, http.MethodPost, "/admin/tenants/tenant-1/unlock", "secret")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unlock))
	assert.False(unlock.WasLocked)
}

func TestAdminMemberInfoAndResets(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	srv, eng, mock := testServer()

	for i := 0; i < 2; i++ {
		_, err := eng.ProcessMessage(ctx, engine.MessageEvent{
			Tenant:    "tenant-1",
			User:      "u1",
			Channel:   "general",
			MessageID: "m1",
			Content:   "spam spam",
			Time:      engine.FixtureTime.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	assert.True(mock.MemberHasRole("tenant-1", "u1", "Muted"))

	rec := doRequest(srv, http.MethodGet, "/admin/tenants/tenant-1/members/u1", "secret")
	assert.Equal(http.StatusOK, rec.Code)
	var sum profile.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(80, sum.Score)
	assert.True(sum.Muted)

	rec = doRequest(srv, http.MethodGet, "/admin/tenants/tenant-1/members/u9", "secret")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/admin/tenants/tenant-1/reset-mute", "secret")
	var rm ResetMuteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rm))
	assert.Equal(1, rm.Unmuted)
	assert.Equal(1, rm.ProfilesReset)
	assert.False(mock.MemberHasRole("tenant-1", "u1", "Muted"))

	rec = doRequest(srv, http.MethodPost, "/admin/tenants/tenant-1/reset-spam", "secret")
	var rs ResetSpamResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rs))
	assert.Equal(1, rs.ProfilesReset)

	rec = doRequest(srv, http.MethodGet, "/admin/tenants/tenant-1/stats", "secret")
	assert.Equal(http.StatusOK, rec.Code)
	var stats engine.TenantStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(1, stats.Profiles)
	assert.Equal(2, stats.Total["message"])
	assert.Equal(1, stats.Total["mute"])
}
