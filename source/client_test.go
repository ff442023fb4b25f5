package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_lua_tasks", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchParsesTasks(t *testing.T) {
	srv := serve(t, http.StatusOK, `{
		"k2": {"key": "k2", "task_name": "Lua Script", "username": "bob@example.com", "lua_script": "x"},
		"k1": {"key": "k1", "task_name": "Lua Script", "username": "alice@example.com", "lua_script": "print(1)"}
	}`)
	client := NewHTTPClient(Config{URL: srv.URL + "/", Timeout: time.Second})

	batch, err := client.Fetch(context.Background(), "/get_lua_tasks")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, "alice@example.com", batch["k1"].Username)
	require.Equal(t, "print(1)", batch["k1"].LuaScript)
}

func TestFetchToleratesRawCRLF(t *testing.T) {
	srv := serve(t, http.StatusOK, "{\"k1\": {\"key\": \"k1\", \"task_name\": \"Lua Script\", \"username\": \"a\", \"lua_script\": \"print(1)\r\nprint(2)\"}}")
	client := NewHTTPClient(Config{URL: srv.URL, Timeout: time.Second})

	batch, err := client.Fetch(context.Background(), "/get_lua_tasks")
	require.NoError(t, err)
	require.Equal(t, "print(1)\r\nprint(2)", batch["k1"].LuaScript)
}

func TestFetchEmptyBodies(t *testing.T) {
	for _, body := range []string{"", "{}", "null", "  \n"} {
		srv := serve(t, http.StatusOK, body)
		client := NewHTTPClient(Config{URL: srv.URL, Timeout: time.Second})

		batch, err := client.Fetch(context.Background(), "/get_lua_tasks")
		require.NoError(t, err, "body %q", body)
		require.NotNil(t, batch)
		require.Empty(t, batch)
	}
}

func TestFetchMalformedResponse(t *testing.T) {
	for _, body := range []string{"<html>", `["k1"]`, `{"k1": "not a task"}`} {
		srv := serve(t, http.StatusOK, body)
		client := NewHTTPClient(Config{URL: srv.URL, Timeout: time.Second})

		_, err := client.Fetch(context.Background(), "/get_lua_tasks")
		require.ErrorIs(t, err, ErrMalformedResponse, "body %q", body)
	}
}

func TestFetchErrorStatusIsUnavailable(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "down")
	client := NewHTTPClient(Config{URL: srv.URL, Timeout: time.Second})

	_, err := client.Fetch(context.Background(), "/get_lua_tasks")
	require.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFetchUnreachableSource(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := NewHTTPClient(Config{URL: url, Timeout: time.Second})

	_, err := client.Fetch(context.Background(), "/get_lua_tasks")
	require.ErrorIs(t, err, ErrSourceUnavailable)
}
