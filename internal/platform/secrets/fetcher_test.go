package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeAccessClient struct {
	mu     sync.Mutex
	grants map[string]string
	faults map[string]error
	calls  map[string]int
}

func newFakeAccessClient() *fakeAccessClient {
	return &fakeAccessClient{
		grants: make(map[string]string),
		faults: make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (c *fakeAccessClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resource := req.GetName()
	c.calls[resource]++
	if err, ok := c.faults[resource]; ok {
		return nil, err
	}
	if value, ok := c.grants[resource]; ok {
		return &secretmanagerpb.AccessSecretVersionResponse{
			Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
		}, nil
	}
	return nil, status.Error(codes.NotFound, "not found")
}

func (c *fakeAccessClient) Close() error { return nil }

func (c *fakeAccessClient) callsFor(resource string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[resource]
}

func writeFallbackFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".secrets.local")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}
	return path
}

func TestResolveCachesRemoteSecret(t *testing.T) {
	ctx := context.Background()
	client := newFakeAccessClient()
	resource := "projects/test/secrets/storage_signer_key/versions/latest"
	client.grants[resource] = "remote-secret"

	fetcher, err := NewFetcher(ctx, WithAccessClient(client), WithDefaultProject("test"))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	for i := 0; i < 2; i++ {
		got, err := fetcher.Resolve(ctx, "secret://storage_signer_key")
		if err != nil {
			t.Fatalf("Resolve call %d: %v", i+1, err)
		}
		if got != "remote-secret" {
			t.Fatalf("expected remote-secret, got %q", got)
		}
	}
	if calls := client.callsFor(resource); calls != 1 {
		t.Fatalf("expected one remote fetch, got %d", calls)
	}
}

func TestResolveHonoursVersionQuery(t *testing.T) {
	ctx := context.Background()
	client := newFakeAccessClient()
	resource := "projects/test/secrets/storage_signer_key/versions/5"
	client.grants[resource] = "version-5"

	fetcher, err := NewFetcher(ctx, WithAccessClient(client), WithDefaultProject("test"))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	got, err := fetcher.Resolve(ctx, "secret://storage_signer_key?version=5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "version-5" {
		t.Fatalf("expected version-5, got %q", got)
	}
	if calls := client.callsFor(resource); calls != 1 {
		t.Fatalf("expected fetch of pinned version, got %d calls", calls)
	}
}

func TestResolveFallsBackWhenAccessDenied(t *testing.T) {
	ctx := context.Background()
	fallbackPath := writeFallbackFile(t, "secret://storage_signer_key=local-secret\n")

	client := newFakeAccessClient()
	client.faults["projects/test/secrets/storage_signer_key/versions/latest"] = status.Error(codes.PermissionDenied, "denied")

	fetcher, err := NewFetcher(ctx,
		WithAccessClient(client),
		WithDefaultProject("test"),
		WithFallbackFile(fallbackPath),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	got, err := fetcher.Resolve(ctx, "secret://storage_signer_key")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "local-secret" {
		t.Fatalf("expected local-secret, got %q", got)
	}
}

func TestResolveDoesNotFallBackOnNotFound(t *testing.T) {
	ctx := context.Background()
	fallbackPath := writeFallbackFile(t, "secret://storage_signer_key=local-secret\n")

	client := newFakeAccessClient()
	client.faults["projects/test/secrets/storage_signer_key/versions/latest"] = status.Error(codes.NotFound, "missing")

	fetcher, err := NewFetcher(ctx,
		WithAccessClient(client),
		WithDefaultProject("test"),
		WithFallbackFile(fallbackPath),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	if _, err := fetcher.Resolve(ctx, "secret://storage_signer_key"); err == nil {
		t.Fatal("expected error when the secret is missing upstream")
	}
}

func TestNewFetcherWithoutCredentialsServesFallback(t *testing.T) {
	ctx := context.Background()

	original := newManagerClient
	newManagerClient = func(context.Context, ...option.ClientOption) (*secretmanager.Client, error) {
		return nil, errors.New("no credentials")
	}
	t.Cleanup(func() { newManagerClient = original })

	fallbackPath := writeFallbackFile(t, "# dev values\nsecret://storage_signer_key=local-secret\nplain_key=plain-value\n")

	fetcher, err := NewFetcher(ctx, WithFallbackFile(fallbackPath))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	got, err := fetcher.Resolve(ctx, "secret://storage_signer_key")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "local-secret" {
		t.Fatalf("expected local-secret, got %q", got)
	}

	got, err = fetcher.Resolve(ctx, "secret://plain_key")
	if err != nil {
		t.Fatalf("Resolve plain key: %v", err)
	}
	if got != "plain-value" {
		t.Fatalf("expected plain-value, got %q", got)
	}
}

func TestParseRefRejectsMalformedReferences(t *testing.T) {
	for _, raw := range []string{"", "vault://key", "secret://", "secret:///"} {
		if _, err := parseRef(raw); err == nil {
			t.Fatalf("expected parse error for %q", raw)
		}
	}
}
