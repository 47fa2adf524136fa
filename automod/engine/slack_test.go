package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlackNotifier(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var lk sync.Mutex
	var bodies []SlackWebhookBody
	received := func() []SlackWebhookBody {
		lk.Lock()
		defer lk.Unlock()
		return append([]SlackWebhookBody{}, bodies...)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body SlackWebhookBody
		if err := json.Unmarshal(raw, &body); err == nil {
			lk.Lock()
			bodies = append(bodies, body)
			lk.Unlock()
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	eng, _ := EngineTestFixture()
	eng.Notifier = &SlackNotifier{SlackWebhookURL: srv.URL}

	eng.ProcessMessage(ctx, testMessage("u1", "spam", FixtureTime))
	v, err := eng.ProcessMessage(ctx, testMessage("u1", "spam", FixtureTime.Add(time.Second)))
	assert.NoError(err)
	assert.Equal(VerdictMuted, v.Action)
	got := received()
	assert.Equal(1, len(got))
	assert.Contains(got[0].Text, "`muted`")
	assert.Contains(got[0].Text, FlagAutoMuted)

	eng.Lockdown(ctx, "tenant-1")
	got = received()
	assert.Equal(2, len(got))
	assert.Contains(got[1].Text, "tenant-1")
}

func TestSlackNotifierError(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := SlackNotifier{SlackWebhookURL: srv.URL}
	assert.Error(n.SendLockdown(context.Background(), "tenant-1", 5))
}
