package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukechats/retail-backend/pkg/config"
	pkgerrors "github.com/lukechats/retail-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(config.AssistantConfig{
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Model:    "model-router",
		Timeout:  2 * time.Second,
	}, srv.Client())
	require.NoError(t, err)
	return c
}

func TestCompleteReturnsFirstChoiceContent(t *testing.T) {
	var gotAuth, gotAPIKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"We have green tea in stock."}}]}`))
	})

	reply, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a helpful shop assistant."},
		{Role: RoleUser, Content: "Do you have tea?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "We have green tea in stock.", reply)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-key", gotAPIKey)
}

func TestCompleteNonSuccessStatusIsDependencyError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestCompleteUnreachableHostIsDependencyError(t *testing.T) {
	c, err := NewWithHTTPClient(config.AssistantConfig{
		Endpoint: "http://127.0.0.1:1",
		Model:    "model-router",
		Timeout:  500 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestCompleteMalformedBodies(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>gateway error</html>`},
		{name: "no choices", body: `{"choices":[]}`},
		{name: "blank content", body: `{"choices":[{"message":{"content":"   "}}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})

			_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
			require.Error(t, err)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeBadUpstream))
		})
	}
}

func TestCompleteRejectsEmptyExchange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called")
	})

	_, err := c.Complete(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
