package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/scheduler"
	"github.com/umputun/newsdigest/pkg/setup"
	setupmocks "github.com/umputun/newsdigest/pkg/setup/mocks"
	"github.com/umputun/newsdigest/server/mocks"
)

type testEnv struct {
	srv      *Server
	ts       *httptest.Server
	saver    *setupmocks.SaverMock
	launcher *setupmocks.LauncherMock
	sched    *mocks.SchedulerMock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &mocks.ConfigProviderMock{GetServerConfigFunc: func() (string, time.Duration) { return ":8080", 30 * time.Second }}
	saver := &setupmocks.SaverMock{SaveFunc: func(domain.Settings) error { return nil }}
	launcher := &setupmocks.LauncherMock{LaunchFunc: func(domain.Settings) {}}
	sched := &mocks.SchedulerMock{StatsFunc: func() (scheduler.Stats, bool) { return scheduler.Stats{}, false }}
	conv := setup.NewConversation(setup.Params{Saver: saver, Launcher: launcher})

	srv := New(cfg, conv, sched, "1.2.3", false)
	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, ts: ts, saver: saver, launcher: launcher, sched: sched}
}

func (e *testEnv) createSession(t *testing.T) sessionResponse {
	t.Helper()
	resp, err := http.Post(e.ts.URL+"/api/v1/sessions", "application/json", http.NoBody)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var res sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func (e *testEnv) send(t *testing.T, id, text string) (sessionResponse, int) {
	t.Helper()
	body, err := json.Marshal(messageRequest{Text: text})
	require.NoError(t, err)
	resp, err := http.Post(e.ts.URL+"/api/v1/sessions/"+id+"/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var res sessionResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	}
	return res, resp.StatusCode
}

func TestServer_New(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "1.2.3", env.srv.version)
	assert.False(t, env.srv.debug)
	assert.NotNil(t, env.srv.sessions)
}

func TestServer_Run(t *testing.T) {
	// find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	cfg := &mocks.ConfigProviderMock{
		GetServerConfigFunc: func() (string, time.Duration) {
			return fmt.Sprintf("127.0.0.1:%d", port), 30 * time.Second
		},
	}
	conv := setup.NewConversation(setup.Params{Saver: &setupmocks.SaverMock{}})
	srv := New(cfg, conv, &mocks.SchedulerMock{}, "1.0.0", true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		return err == nil
	}, time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, "newsdigest", resp.Header.Get("App-Name"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server didn't stop")
	}
}

func TestServer_ChatScenario(t *testing.T) {
	env := newTestEnv(t)

	created := env.createSession(t)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, setup.StageCollectKeywords, created.Stage)
	assert.Contains(t, created.Reply, "Which topics or keywords")

	inputs := []string{"go lang performance", "go lang performance, golang profiling", "soon", "30", "a@x.com", "pw",
		"b@x.com", "smtp.gmail.com", "587"}
	var res sessionResponse
	for _, in := range inputs {
		var code int
		res, code = env.send(t, created.ID, in)
		require.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, setup.StageConfirm, res.Stage)
	assert.Equal(t, 8, res.Step)
	assert.Contains(t, res.Reply, "Confirm the following settings")
	assert.Len(t, res.History, len(inputs)+1)
	for _, turn := range res.History {
		assert.NotEqual(t, "pw", turn.User, "password not echoed back")
	}
	assert.Empty(t, env.saver.SaveCalls())

	res, code := env.send(t, created.ID, "yes")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, setup.StageDone, res.Stage)
	assert.True(t, res.Confirmed)

	require.Len(t, env.saver.SaveCalls(), 1)
	assert.Equal(t, domain.Settings{Keywords: "go lang performance, golang profiling", CadenceMinutes: 30,
		SenderEmail: "a@x.com", SenderPassword: "pw", RecipientEmail: "b@x.com", SMTPServer: "smtp.gmail.com",
		SMTPPort: 587}, env.saver.SaveCalls()[0].S)
	assert.Len(t, env.launcher.LaunchCalls(), 1)

	res, _ = env.send(t, created.ID, "anything")
	assert.Equal(t, "Setup is complete.", res.Reply)
	assert.Len(t, env.launcher.LaunchCalls(), 1)
}

func TestServer_SessionsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	s1 := env.createSession(t)
	s2 := env.createSession(t)
	assert.NotEqual(t, s1.ID, s2.ID)

	res1, _ := env.send(t, s1.ID, "go")
	assert.Equal(t, setup.StageRefineKeywords, res1.Stage)

	resp, err := http.Get(env.ts.URL + "/api/v1/sessions/" + s2.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res2 sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res2))
	assert.Equal(t, setup.StageCollectKeywords, res2.Stage)
	assert.Len(t, res2.History, 1)
}

func TestServer_ConcurrentMessages(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t)
	env.send(t, s.ID, "go")
	env.send(t, s.ID, "yes")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := strings.NewReader(`{"text":"soon"}`)
			resp, err := http.Post(env.ts.URL+"/api/v1/sessions/"+s.ID+"/messages", "application/json", body)
			if assert.NoError(t, err) {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	st, ok := env.srv.sessions.get(s.ID)
	require.True(t, ok)
	assert.Len(t, st.snapshot().History, 13, "greeting, two answers and ten serialized steps")
}

func TestServer_MessageErrors(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t)

	t.Run("unknown session", func(t *testing.T) {
		_, code := env.send(t, "nope", "hi")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("bad json", func(t *testing.T) {
		resp, err := http.Post(env.ts.URL+"/api/v1/sessions/"+s.ID+"/messages", "application/json",
			strings.NewReader(`{"text":`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var res map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Contains(t, res["error"], "invalid request")
	})

	t.Run("unknown field", func(t *testing.T) {
		resp, err := http.Post(env.ts.URL+"/api/v1/sessions/"+s.ID+"/messages", "application/json",
			strings.NewReader(`{"message":"hi"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_DeleteSession(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t)

	del := func(id string) int {
		req, err := http.NewRequest(http.MethodDelete, env.ts.URL+"/api/v1/sessions/"+id, http.NoBody)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusNoContent, del(s.ID))
	assert.Equal(t, http.StatusNotFound, del(s.ID))
	_, code := env.send(t, s.ID, "go")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_statusHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t)
	s := env.createSession(t)
	env.send(t, s.ID, "go")

	req := httptest.NewRequest("GET", "/api/v1/status", http.NoBody)
	w := httptest.NewRecorder()
	env.srv.statusHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "1.2.3", status["version"])
	assert.NotEmpty(t, status["time"])
	assert.Equal(t, map[string]any{"collect_keywords": 1.0, "refine_keywords": 1.0}, status["sessions"])
	assert.NotContains(t, status, "scheduler")

	env.sched.StatsFunc = func() (scheduler.Stats, bool) {
		return scheduler.Stats{Keywords: "go", Interval: 30 * time.Minute, Runs: 2, Failures: 1, LastError: "boom"}, true
	}
	w = httptest.NewRecorder()
	env.srv.statusHandler(w, req)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	sched, ok := status["scheduler"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "go", sched["keywords"])
	assert.Equal(t, "30m0s", sched["every"])
	assert.InDelta(t, 2, sched["runs"], 0.001)
	assert.Equal(t, "boom", sched["last_error"])
}

func TestSessionStore_Expiry(t *testing.T) {
	store := newSessionStore(time.Hour)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	old := store.add(setup.State{})
	now = now.Add(2 * time.Hour)
	fresh := store.add(setup.State{})

	_, ok := store.get(old)
	assert.False(t, ok, "idle session dropped")
	_, ok = store.get(fresh)
	assert.True(t, ok)
}

func TestRenderError(t *testing.T) {
	w := httptest.NewRecorder()
	RenderError(w, httptest.NewRequest("GET", "/", http.NoBody), nil, http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.JSONEq(t, `{"error":"unknown error"}`, w.Body.String())
}
