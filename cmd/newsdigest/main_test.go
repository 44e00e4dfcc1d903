package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newsdigest/pkg/config"
	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/repository"
)

func testOpts(t *testing.T) Opts {
	t.Helper()
	dir := t.TempDir()
	return Opts{
		Config:        filepath.Join(dir, "newsdigest.yml"),
		Settings:      filepath.Join(dir, "config.json"),
		OpenAIKeyFile: filepath.Join(dir, "openai_key.txt"),
	}
}

func testSettings() domain.Settings {
	return domain.Settings{Keywords: "go", CadenceMinutes: 60, SenderEmail: "a@x.com", SenderPassword: "pw",
		RecipientEmail: "b@x.com", SMTPServer: "smtp.x.com", SMTPPort: 587}
}

func TestRun_InvalidConfig(t *testing.T) {
	opts := testOpts(t)
	require.NoError(t, os.WriteFile(opts.Config, []byte("invalid: yaml: content: ["), 0o600))

	err := run(context.Background(), opts, "run", strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), testOpts(t), "bogus", strings.NewReader(""), io.Discard)
	require.EqualError(t, err, `unknown command "bogus"`)
}

func TestRun_Setup(t *testing.T) {
	opts := testOpts(t)
	in := strings.NewReader("go\nyes\n60\na@x.com\npw\nb@x.com\nsmtp.x.com\n587\nyes\n")
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), opts, "setup", in, &out))
	assert.Contains(t, out.String(), "Settings saved.")

	s, err := repository.NewSettingsRepository(opts.Settings).Load()
	require.NoError(t, err)
	assert.Equal(t, testSettings(), s)
}

func TestRun_SetupCanceled(t *testing.T) {
	opts := testOpts(t)
	in := strings.NewReader("go\nyes\n60\na@x.com\npw\nb@x.com\nsmtp.x.com\n587\nno\n")

	err := run(context.Background(), opts, "setup", in, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup canceled")

	_, err = repository.NewSettingsRepository(opts.Settings).Load()
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRun_ChatCanceled(t *testing.T) {
	opts := testOpts(t)
	in := strings.NewReader("go\nyes\n60\na@x.com\npw\nb@x.com\nsmtp.x.com\n587\nnope\n")
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), opts, "chat", in, &out))
	assert.Contains(t, out.String(), "Setup canceled, nothing was saved.")
}

func TestRun_ChatConfirmed(t *testing.T) {
	opts := testOpts(t)
	in := strings.NewReader("go\nyes\n60\na@x.com\npw\nb@x.com\nsmtp.x.com\n587\ny\n")
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, opts, "chat", in, &out) }()

	repo := repository.NewSettingsRepository(opts.Settings)
	require.Eventually(t, func() bool {
		_, err := repo.Load()
		return err == nil
	}, time.Second, 10*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("chat returned before termination: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("chat didn't stop")
	}
}

func TestRun_ExistingSettings(t *testing.T) {
	opts := testOpts(t)
	require.NoError(t, repository.NewSettingsRepository(opts.Settings).Save(testSettings()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var out bytes.Buffer

	require.NoError(t, run(ctx, opts, "run", strings.NewReader(""), &out))
	assert.Equal(t, "Agent started. Press Ctrl+C to stop.\n", out.String(), "no setup questions")
}

func TestRun_BrokenSettings(t *testing.T) {
	opts := testOpts(t)
	require.NoError(t, os.WriteFile(opts.Settings, []byte(`{"keywords": "go"`), 0o600))

	err := run(context.Background(), opts, "run", strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load settings")
}

func TestRun_Serve(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	opts := testOpts(t)
	opts.Listen = fmt.Sprintf("127.0.0.1:%d", port)
	require.NoError(t, repository.NewSettingsRepository(opts.Settings).Save(testSettings()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, opts, "serve", strings.NewReader(""), io.Discard) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/v1/status", port))
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"keywords":"go"`, "scheduler started for saved settings")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve didn't stop")
	}
}

func TestAPIKey(t *testing.T) {
	opts := testOpts(t)
	assert.Equal(t, "cfg-key", apiKey(opts, "cfg-key"))

	opts.OpenAIKey = "env-key"
	assert.Equal(t, "env-key", apiKey(opts, "cfg-key"))

	require.NoError(t, os.WriteFile(opts.OpenAIKeyFile, []byte("  file-key\n"), 0o600))
	assert.Equal(t, "file-key", apiKey(opts, "cfg-key"))

	require.NoError(t, os.WriteFile(opts.OpenAIKeyFile, []byte("\n"), 0o600))
	assert.Equal(t, "env-key", apiKey(opts, "cfg-key"), "empty key file ignored")
}

func TestNewAssistant(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, newAssistant(cfg))

	cfg.LLM.Enabled = true
	assert.NotNil(t, newAssistant(cfg))
}

func TestNewJob(t *testing.T) {
	cfg := &config.Config{}
	cfg.News.MaxItems = 5
	cfg.Papers.MaxItems = 5

	job := newJob(cfg)
	assert.Nil(t, job.Extractor)

	cfg.Extraction.Enabled = true
	job = newJob(cfg)
	assert.NotNil(t, job.Extractor)
}

func TestSecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.APIKey = "sk-1"
	assert.Equal(t, []string{"sk-1", "pw"}, secrets(cfg, testSettings()))
	assert.Equal(t, []string{"sk-1"}, nonEmpty(secrets(cfg, domain.Settings{})))
}
