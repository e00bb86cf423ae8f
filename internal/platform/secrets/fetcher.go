package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultEnvironment  = "local"
	defaultFallbackPath = ".secrets.local"
	defaultVersion      = "latest"
	meterName           = "github.com/qravy/storefront-api/internal/platform/secrets"
)

// accessClient is the slice of the Secret Manager client the fetcher needs.
type accessClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

var newManagerClient = func(ctx context.Context, opts ...option.ClientOption) (*secretmanager.Client, error) {
	return secretmanager.NewClient(ctx, opts...)
}

// Fetcher resolves secret:// references against Google Secret Manager.
// Values are memoised for the process lifetime; when the manager is
// unreachable or access is denied, a local fallback file is consulted so
// the service still starts in development environments.
type Fetcher struct {
	client     accessClient
	ownsClient bool
	clientOpts []option.ClientOption
	logger     *zap.Logger

	env            string
	defaultProject string
	projects       map[string]string

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string
	fallbackErr  error

	mu    sync.Mutex
	cache map[string]string

	resolves       metric.Int64Counter
	resolvesUsable bool
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithEnvironment selects the environment key used against the project map.
func WithEnvironment(env string) Option {
	return func(f *Fetcher) {
		f.env = strings.ToLower(strings.TrimSpace(env))
	}
}

// WithDefaultProject sets the project used when the environment has no mapping.
func WithDefaultProject(projectID string) Option {
	return func(f *Fetcher) {
		f.defaultProject = strings.TrimSpace(projectID)
	}
}

// WithProjectMap supplies per-environment Secret Manager project IDs.
func WithProjectMap(m map[string]string) Option {
	return func(f *Fetcher) {
		for env, project := range m {
			f.projects[strings.ToLower(strings.TrimSpace(env))] = strings.TrimSpace(project)
		}
	}
}

// WithFallbackFile overrides the path of the local fallback secrets file.
func WithFallbackFile(path string) Option {
	return func(f *Fetcher) {
		f.fallbackPath = strings.TrimSpace(path)
	}
}

// WithAccessClient injects a preconfigured client, used by tests.
func WithAccessClient(client accessClient) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithClientOptions forwards Cloud client options when the fetcher constructs
// its own Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(f *Fetcher) {
		f.clientOpts = append(f.clientOpts, opts...)
	}
}

// NewFetcher builds a Fetcher. A missing Secret Manager client is not fatal:
// the fetcher then serves exclusively from the fallback file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		logger:       zap.NewNop(),
		env:          defaultEnvironment,
		projects:     make(map[string]string),
		fallbackPath: defaultFallbackPath,
		cache:        make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	counter, err := otel.GetMeterProvider().Meter(meterName).Int64Counter(
		"secrets.resolve",
		metric.WithDescription("Secret resolutions by source"),
	)
	if err != nil {
		f.logger.Warn("secrets: metric registration failed", zap.Error(err))
	} else {
		f.resolves = counter
		f.resolvesUsable = true
	}

	if f.client == nil {
		client, err := newManagerClient(ctx, f.clientOpts...)
		if err != nil {
			f.logger.Warn("secrets: secret manager unavailable, using fallback file only", zap.Error(err))
		} else {
			f.client = client
			f.ownsClient = true
		}
	}
	return f, nil
}

// Close releases the underlying client when the fetcher owns it.
func (f *Fetcher) Close() error {
	if f.ownsClient && f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Resolve returns the secret value for a secret://name[?version=&project=]
// reference.
func (f *Fetcher) Resolve(ctx context.Context, raw string) (string, error) {
	ref, err := parseRef(raw)
	if err != nil {
		return "", err
	}

	project := f.projectFor(ref)
	key := ref.name + "@" + ref.version + "@" + project

	if value, ok := f.cached(key); ok {
		f.count(ctx, "cache")
		return value, nil
	}

	if f.client != nil && project != "" {
		resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, ref.name, ref.version)
		resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
		if err == nil {
			value := string(resp.GetPayload().GetData())
			f.store(key, value)
			f.count(ctx, "remote")
			return value, nil
		}
		if !fallbackEligible(err) {
			f.count(ctx, "error")
			return "", fmt.Errorf("secrets: access %s: %w", ref.name, err)
		}
		f.logger.Debug("secrets: manager access failed, trying fallback file",
			zap.String("secret", ref.name), zap.Error(err))
	}

	value, ok := f.localValue(ref.name)
	if !ok {
		f.count(ctx, "error")
		return "", fmt.Errorf("secrets: no value available for %s", ref.name)
	}
	f.store(key, value)
	f.count(ctx, "fallback")
	return value, nil
}

func (f *Fetcher) projectFor(ref secretRef) string {
	if ref.project != "" {
		return ref.project
	}
	if project := f.projects[f.env]; project != "" {
		return project
	}
	return f.defaultProject
}

func (f *Fetcher) cached(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.cache[key]
	return value, ok
}

func (f *Fetcher) store(key, value string) {
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
}

// localValue reads the fallback file on first use. Lines are
// "secret://name=value" or "name=value"; blank lines and #-comments are
// skipped.
func (f *Fetcher) localValue(name string) (string, bool) {
	f.fallbackOnce.Do(f.loadFallbackFile)
	if f.fallbackErr != nil {
		f.logger.Debug("secrets: fallback file unusable", zap.Error(f.fallbackErr))
		return "", false
	}
	value, ok := f.fallback[name]
	return value, ok
}

func (f *Fetcher) loadFallbackFile() {
	f.fallback = make(map[string]string)
	if f.fallbackPath == "" {
		return
	}
	file, err := os.Open(f.fallbackPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.fallbackErr = fmt.Errorf("secrets: open %s: %w", f.fallbackPath, err)
		}
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if ref, err := parseRef(strings.TrimSpace(key)); err == nil {
			f.fallback[ref.name] = strings.TrimSpace(value)
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			f.fallback[key] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		f.fallbackErr = fmt.Errorf("secrets: read %s: %w", f.fallbackPath, err)
	}
}

func (f *Fetcher) count(ctx context.Context, source string) {
	if !f.resolvesUsable {
		return
	}
	f.resolves.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

type secretRef struct {
	name    string
	version string
	project string
}

func parseRef(raw string) (secretRef, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return secretRef{}, errors.New("secrets: empty reference")
	}
	rest, found := strings.CutPrefix(trimmed, "secret://")
	if !found {
		return secretRef{}, fmt.Errorf("secrets: unsupported reference %q", trimmed)
	}

	ref := secretRef{version: defaultVersion}
	if name, query, hasQuery := strings.Cut(rest, "?"); hasQuery {
		rest = name
		values, err := url.ParseQuery(query)
		if err != nil {
			return secretRef{}, fmt.Errorf("secrets: invalid reference %q: %w", trimmed, err)
		}
		if v := strings.TrimSpace(values.Get("version")); v != "" {
			ref.version = v
		}
		ref.project = strings.TrimSpace(values.Get("project"))
	}
	ref.name = strings.Trim(rest, "/")
	if ref.name == "" {
		return secretRef{}, fmt.Errorf("secrets: missing secret name in %q", trimmed)
	}
	return ref, nil
}

// fallbackEligible reports whether the manager error is one where a local
// development value should be tried. NotFound is deliberately excluded: a
// missing secret is a configuration bug, not an availability problem.
func fallbackEligible(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
