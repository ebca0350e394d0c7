package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSecretClient struct {
	mu     sync.Mutex
	values map[string]string
	errors map[string]error
	calls  map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{values: map[string]string{}, errors: map[string]error{}, calls: map[string]int{}}
}

func (c *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[req.GetName()]++
	if err, ok := c.errors[req.GetName()]; ok {
		return nil, err
	}
	value, ok := c.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "missing")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)}}, nil
}

func (c *fakeSecretClient) Close() error { return nil }

func (c *fakeSecretClient) callCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func newTestFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	opts = append([]Option{WithMeter(noop.NewMeterProvider().Meter("test")), WithFallbackFile("")}, opts...)
	f, err := NewFetcher(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestResolveCachesRemoteSecret(t *testing.T) {
	client := newFakeSecretClient()
	resource := "projects/cbw/secrets/admin-jwt/versions/latest"
	client.values[resource] = "remote-secret"

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newTestFetcher(t, withClient(client), WithProject("cbw"), withClock(func() time.Time { return now }))

	for i := 0; i < 2; i++ {
		got, err := f.Resolve(context.Background(), "secret://admin-jwt")
		require.NoError(t, err)
		assert.Equal(t, "remote-secret", got)
	}
	assert.Equal(t, 1, client.callCount(resource))

	now = now.Add(time.Hour)
	_, err := f.Resolve(context.Background(), "secret://admin-jwt")
	require.NoError(t, err)
	assert.Equal(t, 2, client.callCount(resource), "expired entries are refetched")
}

func TestResolveHonoursVersionAndProjectOverride(t *testing.T) {
	client := newFakeSecretClient()
	client.values["projects/other/secrets/admin-jwt/versions/3"] = "pinned"
	f := newTestFetcher(t, withClient(client), WithProject("cbw"))

	got, err := f.ResolveSecret(context.Background(), "secret://admin-jwt?version=3&project=other")
	require.NoError(t, err)
	assert.Equal(t, "pinned", got)
}

func TestResolveFallsBackWhenSecretManagerDenies(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".secrets.local")
	require.NoError(t, os.WriteFile(path, []byte("admin_jwt=local-secret\nadmin_jwt.2=older\n"), 0o600))

	client := newFakeSecretClient()
	client.errors["projects/cbw/secrets/admin-jwt/versions/latest"] = status.Error(codes.PermissionDenied, "denied")
	client.errors["projects/cbw/secrets/admin-jwt/versions/2"] = status.Error(codes.PermissionDenied, "denied")

	f := newTestFetcher(t, withClient(client), WithProject("cbw"), WithFallbackFile(path))

	got, err := f.Resolve(context.Background(), "secret://admin-jwt")
	require.NoError(t, err)
	assert.Equal(t, "local-secret", got)

	got, err = f.Resolve(context.Background(), "secret://admin-jwt?version=2")
	require.NoError(t, err)
	assert.Equal(t, "older", got)
}

func TestResolveSurfacesNonFallbackErrors(t *testing.T) {
	client := newFakeSecretClient()
	client.errors["projects/cbw/secrets/admin-jwt/versions/latest"] = status.Error(codes.InvalidArgument, "bad")
	f := newTestFetcher(t, withClient(client), WithProject("cbw"))

	_, err := f.Resolve(context.Background(), "secret://admin-jwt")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(errors.Unwrap(err)))
}

func TestParseReferenceRejectsInvalidInput(t *testing.T) {
	for _, ref := range []string{"", "https://x", "secret://"} {
		_, err := parseReference(ref)
		assert.Error(t, err, ref)
	}
}
