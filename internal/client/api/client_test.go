package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/api/v1/auth/")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"login": "alice", "password": "correct"}, body)

		writeJSON(w, http.StatusOK, TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"})
	})

	pair, err := c.Login(context.Background(), "alice", "correct")
	require.NoError(t, err)
	assert.Equal(t, &TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"}, pair)
}

func TestRefreshAndBearerCalls(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "old", body["refresh_token"])
			writeJSON(w, http.StatusOK, TokenPair{AccessToken: "a2", RefreshToken: "r2", TokenType: "bearer"})
		case "/api/v1/auth/me":
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]string{"user_id": "u1"})
		case "/api/v1/auth/logout":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]string{"detail": "Successfully logged out"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	pair, err := c.Refresh(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "r2", pair.RefreshToken)

	id, err := c.WhoAmI(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	require.NoError(t, c.Logout(ctx, "tok"))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		detail string
		want   error
	}{
		{"bad request", http.StatusBadRequest, "Login and password are required", ErrBadRequest},
		{"wrong password", http.StatusUnauthorized, "Invalid credentials", ErrInvalidCredentials},
		{"bad refresh", http.StatusUnauthorized, "Invalid refresh token", ErrUnauthorized},
		{"throttled", http.StatusTooManyRequests, "Too many requests", ErrRateLimited},
		{"store down", http.StatusServiceUnavailable, "Service unavailable", ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.code, map[string]string{"detail": tt.detail})
			})

			_, err := c.Login(context.Background(), "alice", "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
		})
	}
}

func TestUnexpectedStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	_, err := c.WhoAmI(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 418")
}

func TestServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Login(context.Background(), "alice", "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}
