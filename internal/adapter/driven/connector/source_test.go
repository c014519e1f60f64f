package connector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/promptvault/internal/adapter/driven/connector"
	"github.com/ericfisherdev/promptvault/internal/config"
	"github.com/ericfisherdev/promptvault/internal/domain/backuperr"
	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// fakeCredStore is a minimal in-memory CredentialStore.
type fakeCredStore struct {
	values map[string]string
	err    error
}

func (f *fakeCredStore) Set(_ context.Context, service, key, value string) error {
	f.values[service+"/"+key] = value
	return nil
}

func (f *fakeCredStore) Get(_ context.Context, service, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.values[service+"/"+key], nil
}

func (f *fakeCredStore) List(_ context.Context) ([]model.StoredCredential, error) { return nil, nil }

func (f *fakeCredStore) Delete(_ context.Context, service, key string) error {
	delete(f.values, service+"/"+key)
	return nil
}

func connectorServer(t *testing.T, calls *int, expiresIn time.Duration) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "id-token", body["identity_token"])

		expiry := time.Now().Add(expiresIn).UTC()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "connector-token",
			"expires_at":   expiry.Format(time.RFC3339),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSource_ExchangesIdentityToken(t *testing.T) {
	var calls int
	server := connectorServer(t, &calls, time.Hour)

	source := connector.NewSource(server.URL, "id-token", server.Client())
	cred, err := source.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "connector-token", cred.Token)
	require.NotNil(t, cred.ExpiresAt)
}

func TestSource_CachesUntilExpiry(t *testing.T) {
	var calls int
	server := connectorServer(t, &calls, time.Hour)

	source := connector.NewSource(server.URL, "id-token", server.Client())
	ctx := context.Background()

	for range 3 {
		_, err := source.Token(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, calls, "valid cached credential must avoid network round-trips")
}

func TestSource_RefetchesExpiredCredential(t *testing.T) {
	var calls int
	// Expiry inside the refresh skew, so every call re-exchanges.
	server := connectorServer(t, &calls, time.Second)

	source := connector.NewSource(server.URL, "id-token", server.Client())
	ctx := context.Background()

	_, err := source.Token(ctx)
	require.NoError(t, err)
	_, err = source.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestSource_MissingPrerequisites(t *testing.T) {
	source := connector.NewSource("", "", nil)

	_, err := source.Token(context.Background())

	var authErr *backuperr.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "connector unavailable")
}

func TestSource_Non2xxResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	source := connector.NewSource(server.URL, "id-token", server.Client())
	_, err := source.Token(context.Background())

	var authErr *backuperr.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "connector unavailable")
}

func TestStoredTokenSource_PrefersStoreOverEnv(t *testing.T) {
	creds := &fakeCredStore{values: map[string]string{"github/token": "stored-token"}}
	source := connector.NewStoredTokenSource(creds, "env-token")

	cred, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored-token", cred.Token)
}

func TestStoredTokenSource_FallsBackToEnv(t *testing.T) {
	creds := &fakeCredStore{values: map[string]string{}}
	source := connector.NewStoredTokenSource(creds, "env-token")

	cred, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-token", cred.Token)
}

func TestStoredTokenSource_EncryptionDisabledUsesEnv(t *testing.T) {
	creds := &fakeCredStore{err: driven.ErrEncryptionKeyNotSet}
	source := connector.NewStoredTokenSource(creds, "env-token")

	cred, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-token", cred.Token)
}

func TestStoredTokenSource_TokenRequired(t *testing.T) {
	source := connector.NewStoredTokenSource(nil, "")

	_, err := source.Token(context.Background())

	var authErr *backuperr.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "token required")
}

func TestChain_FirstSuccessWins(t *testing.T) {
	var calls int
	server := connectorServer(t, &calls, time.Hour)

	chain := connector.NewChain(
		connector.NewSource("", "", nil), // Always fails.
		connector.NewSource(server.URL, "id-token", server.Client()),
	)

	cred, err := chain.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "connector-token", cred.Token)
}

func TestResolve_StrategySelection(t *testing.T) {
	t.Run("connector detected", func(t *testing.T) {
		cfg := &config.Config{ConnectorURL: "http://localhost:1/token", IdentityToken: "id", GitHubToken: "env-token"}
		source := connector.Resolve(cfg, nil, "")

		// The unreachable connector degrades to the stored-token path.
		cred, err := source.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "env-token", cred.Token)
	})

	t.Run("generic environment", func(t *testing.T) {
		cfg := &config.Config{GitHubToken: "env-token"}
		source := connector.Resolve(cfg, nil, "generic-host")

		cred, err := source.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "env-token", cred.Token)
	})
}
