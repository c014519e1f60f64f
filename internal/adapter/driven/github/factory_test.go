package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/ericfisherdev/promptvault/internal/adapter/driven/github"
	"github.com/ericfisherdev/promptvault/internal/domain/backuperr"
	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

// staticSource returns a fixed credential or error.
type staticSource struct {
	cred model.Credential
	err  error
}

func (s *staticSource) Token(_ context.Context) (model.Credential, error) {
	return s.cred, s.err
}

func TestFactory_CreateClient(t *testing.T) {
	source := &staticSource{cred: model.Credential{Token: "ghp_token"}}
	factory := ghAdapter.NewFactory(source, "1.0.0")

	client, err := factory.CreateClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestFactory_CreateClient_AuthErrorPassesThrough(t *testing.T) {
	source := &staticSource{err: &backuperr.AuthError{Reason: "token required"}}
	factory := ghAdapter.NewFactory(source, "1.0.0")

	_, err := factory.CreateClient(context.Background())

	var authErr *backuperr.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "token required")
}

func TestFactory_IsAvailable(t *testing.T) {
	ok := ghAdapter.NewFactory(&staticSource{cred: model.Credential{Token: "t"}}, "1.0.0")
	assert.True(t, ok.IsAvailable(context.Background()))

	failing := ghAdapter.NewFactory(&staticSource{err: &backuperr.AuthError{Reason: "token required"}}, "1.0.0")
	assert.False(t, failing.IsAvailable(context.Background()))
}

func TestFactory_IsConfigured_LiveProbe(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"alice"}`))
	}))
	t.Cleanup(server.Close)

	source := &staticSource{cred: model.Credential{Token: "t"}}
	factory := ghAdapter.NewFactoryWithEndpoint(source, "1.0.0", server.URL+"/", server.Client())

	assert.True(t, factory.IsConfigured(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestFactory_IsConfigured_FalseOnProbeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	t.Cleanup(server.Close)

	source := &staticSource{cred: model.Credential{Token: "bad"}}
	factory := ghAdapter.NewFactoryWithEndpoint(source, "1.0.0", server.URL+"/", server.Client())

	assert.False(t, factory.IsConfigured(context.Background()))
}

func TestFactory_IsConfigured_FalseWithoutCredential(t *testing.T) {
	source := &staticSource{err: &backuperr.AuthError{Reason: "token required"}}
	factory := ghAdapter.NewFactory(source, "1.0.0")

	assert.False(t, factory.IsConfigured(context.Background()))
}
