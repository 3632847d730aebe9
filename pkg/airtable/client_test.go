package airtable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/airtable/pkg/config"
	"github.com/ajitpratap0/airtable/pkg/errors"
	"github.com/ajitpratap0/airtable/pkg/ratelimit"
	"github.com/ajitpratap0/airtable/pkg/testutil"
)

func newTokenServer(t *testing.T, status int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-2"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func oauthConfig(fake *testutil.FakeAirtable, tokenURL string) *config.Config {
	cfg := config.New(testBase, "")
	cfg.Endpoint = fake.URL()
	cfg.ContentEndpoint = fake.URL()
	cfg.RequestsPerSecond = 0
	cfg.OAuth = &config.OAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RefreshToken: "rt-1",
		TokenURL:     tokenURL,
	}
	return cfg
}

func TestOAuthBearerToken(t *testing.T) {
	var calls atomic.Int32
	tokens := newTokenServer(t, http.StatusOK, &calls)
	fake := testutil.NewFakeAirtable(t, testBase)
	fake.APIKey = "at-1"
	tasksTable(fake)

	client, err := NewFromConfig(oauthConfig(fake, tokens.URL), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	_, err = client.GetSchema(ctx)
	require.NoError(t, err)
	_, err = client.FetchAll(ctx, "Tasks", ListOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "token is reused until it expires")
	for _, r := range fake.Requests() {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
	}
}

func TestOAuthRefreshFailureIsAuthentication(t *testing.T) {
	var calls atomic.Int32
	tokens := newTokenServer(t, http.StatusBadRequest, &calls)
	fake := testutil.NewFakeAirtable(t, testBase)

	client, err := NewFromConfig(oauthConfig(fake, tokens.URL), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.GetSchema(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
	assert.Empty(t, fake.Requests())
}

func TestOAuthRejectsCustomHTTPClient(t *testing.T) {
	fake := testutil.NewFakeAirtable(t, testBase)
	_, err := NewFromConfig(oauthConfig(fake, "http://127.0.0.1:1/token"), WithHTTPClient(http.DefaultClient))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewFromConfigLeavesConfigUntouched(t *testing.T) {
	fake := testutil.NewFakeAirtable(t, testBase)
	cfg := config.New(testBase, testutil.FakeAPIKey)
	cfg.Endpoint = fake.URL()

	client, err := NewFromConfig(cfg, WithPageSize(25), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, config.MaxPageSize, cfg.PageSize)
	assert.Equal(t, 25, client.pageSize)
	assert.Equal(t, testBase, client.BaseID())
	assert.Equal(t, 5, client.Gate().Size())
}

func TestWithHTTPClient(t *testing.T) {
	fake := testutil.NewFakeAirtable(t, testBase)
	tasksTable(fake)

	var sent atomic.Int32
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		sent.Add(1)
		return http.DefaultClient.Do(req)
	})

	client, err := New(testBase, testutil.FakeAPIKey,
		WithEndpoint(fake.URL()), WithHTTPClient(doer), WithLogger(testutil.TestLogger(t)), WithRequestsPerSecond(0))
	require.NoError(t, err)

	_, err = client.GetSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), sent.Load())
	require.NoError(t, client.Close())
}

func TestPostCallDelay(t *testing.T) {
	client, fake := newTestClient(t, WithPostCallDelay(80*time.Millisecond))
	tasksTable(fake)

	ctx := context.Background()
	start := time.Now()
	_, err := client.GetSchema(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	fake.Override(http.MethodGet, "/v0/meta/", http.StatusInternalServerError, ``)
	start = time.Now()
	_, err = client.GetSchema(ctx)
	assert.True(t, errors.IsServer(err))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond, "failed calls are delayed too")
}

func TestRequestsPerSecond(t *testing.T) {
	client, fake := newTestClient(t, WithRequestsPerSecond(10))
	tasksTable(fake)

	ctx := context.Background()
	start := time.Now()
	// burst of 10, then 10/s
	for range 13 {
		_, err := client.GetSchema(ctx)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestWithLimiter(t *testing.T) {
	var acquired, released atomic.Int32
	limiter := limiterFunc(func(ctx context.Context) (ratelimit.Release, error) {
		acquired.Add(1)
		return func(context.Context) { released.Add(1) }, nil
	})

	client, fake := newTestClient(t, WithLimiter(limiter))
	table := tasksTable(fake)
	seedTasks(fake, table.ID, 25)

	_, err := client.FetchAll(context.Background(), "Tasks", ListOptions{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(3), acquired.Load())
	assert.Equal(t, int32(3), released.Load())
}

func TestLimiterRejectionIsTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, fake := newTestClient(t, WithMaxConcurrency(1))
	_, err := client.GetSchema(ctx)
	assert.True(t, errors.IsTransport(err))
	assert.Empty(t, fake.Requests())
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type limiterFunc func(context.Context) (ratelimit.Release, error)

func (f limiterFunc) Acquire(ctx context.Context) (ratelimit.Release, error) { return f(ctx) }
