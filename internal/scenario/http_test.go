package scenario

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsr-ph/dsr-loadtest/pkg/config"
	apperrors "github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

func testTarget(serverURL string) config.TargetConfig {
	return config.TargetConfig{
		BaseURL:        serverURL,
		AuthPath:       "/auth/token",
		ClientID:       "loadtest",
		ClientSecret:   "secret",
		Paths:          map[string]string{config.ServiceRegistration: "/registrations"},
		RequestTimeout: 2 * time.Second,
	}
}

func TestClient_Do_Success(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tokens := &TokenSource{}
	tokens.Set("test-token")
	client := NewClient(testTarget(server.URL), tokens)

	outcome, err := client.Do(context.Background(), http.MethodPost, "/registrations", map[string]string{"x": "y"}, 0)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, http.StatusCreated, outcome.StatusCode)
	assert.Greater(t, outcome.Duration, time.Duration(0))
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestClient_Do_Server5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testTarget(server.URL), &TokenSource{})

	outcome, err := client.Do(context.Background(), http.MethodGet, "/registrations", nil, 0)
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, ErrorKindServer5xx, outcome.ErrorKind)
	assert.Equal(t, http.StatusInternalServerError, outcome.StatusCode)
}

func TestClient_Do_AssertionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testTarget(server.URL), &TokenSource{})

	outcome, err := client.Do(context.Background(), http.MethodGet, "/registrations", nil, 0)
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, ErrorKindAssertion, outcome.ErrorKind)
}

func TestClient_Do_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	target := testTarget(server.URL)
	target.RequestTimeout = 50 * time.Millisecond
	client := NewClient(target, &TokenSource{})

	outcome, err := client.Do(context.Background(), http.MethodGet, "/registrations", nil, 0)
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, ErrorKindTimeout, outcome.ErrorKind)
}

func TestClient_Do_NetworkError(t *testing.T) {
	target := testTarget("http://127.0.0.1:1") // nothing listens here
	client := NewClient(target, &TokenSource{})

	outcome, err := client.Do(context.Background(), http.MethodGet, "/registrations", nil, 0)
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, ErrorKindNetwork, outcome.ErrorKind)
}

func TestBuiltin_ScenarioSet(t *testing.T) {
	client := NewClient(testTarget("http://localhost:1"), &TokenSource{})

	defs := Builtin(client, map[string]float64{"household_registration": 10})

	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
		assert.Greater(t, def.Weight, 0.0, "scenario %s", def.Name)
		assert.NotNil(t, def.Execute, "scenario %s", def.Name)
	}

	assert.Equal(t, []string{
		"household_registration",
		"eligibility_check",
		"payment_disbursement",
		"grievance_filing",
		"analytics_query",
	}, names)
	assert.Equal(t, 10.0, defs[0].Weight, "weight override applies")
}

func TestAuthenticate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/token", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"abc123"}`))
	}))
	defer server.Close()

	token, err := Authenticate(context.Background(), testTarget(server.URL))
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestAuthenticate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := Authenticate(context.Background(), testTarget(server.URL))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSetup))
}

func TestAuthenticate_Unreachable(t *testing.T) {
	_, err := Authenticate(context.Background(), testTarget("http://127.0.0.1:1"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSetup))
}

func TestAuthenticate_EmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := Authenticate(context.Background(), testTarget(server.URL))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSetup))
}
