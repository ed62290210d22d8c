package clientpool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCreds struct {
	baseURL  string
	password string
	logins   *int
}

func (s staticCreds) AdminCredentials(ctx context.Context, key Key) (string, string, string, error) {
	return s.baseURL, "admin", s.password, nil
}

func newAuthServer(t *testing.T, logins *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		*logins++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"state":{"success":"tok"}}`))
	}))
}

func TestGetReusesClientForSamePassword(t *testing.T) {
	logins := 0
	server := newAuthServer(t, &logins)
	defer server.Close()

	pool := New(staticCreds{baseURL: server.URL, password: "pw1", logins: &logins})
	key := Key{Namespace: "default", Name: "idm"}

	_, err := pool.Get(context.Background(), key)
	require.NoError(t, err)
	_, err = pool.Get(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, 1, logins)
}

func TestGetReauthenticatesOnPasswordRotation(t *testing.T) {
	logins := 0
	server := newAuthServer(t, &logins)
	defer server.Close()

	creds := &rotatingCreds{baseURL: server.URL, password: "pw1"}
	pool := New(creds)
	key := Key{Namespace: "default", Name: "idm"}

	_, err := pool.Get(context.Background(), key)
	require.NoError(t, err)

	creds.password = "pw2"
	_, err = pool.Get(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, 2, logins)
}

type rotatingCreds struct {
	baseURL  string
	password string
}

func (r *rotatingCreds) AdminCredentials(ctx context.Context, key Key) (string, string, string, error) {
	return r.baseURL, "admin", r.password, nil
}
