package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeFeed(t *testing.T, opts options, args ...string) (string, error) {
	t.Helper()
	cmd := newFeedCommand(&opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFeedLike(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/like", r.URL.Path)
		assert.Equal(t, "5", r.FormValue("post_id"))
		_, _ = w.Write([]byte("2"))
	}))
	defer server.Close()

	out, err := executeFeed(t, options{origin: server.URL, logLevel: "error"}, "like", "--post", "5")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestFeedLike_RequiresOneTarget(t *testing.T) {
	_, err := executeFeed(t, options{origin: "http://localhost:1"}, "like")
	require.Error(t, err)

	_, err = executeFeed(t, options{origin: "http://localhost:1"}, "like", "--post", "1", "--comment", "2")
	require.Error(t, err)
}

func TestFeedCheck(t *testing.T) {
	out, err := executeFeed(t, options{}, "check", "--tag", "Music", "new song")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = executeFeed(t, options{}, "check", "new song")
	require.Error(t, err)
}
