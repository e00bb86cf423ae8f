package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultRateLimitStorefront = 240
	defaultRateLimitWindow     = time.Minute
	defaultSecurityEnvironment = "local"
	defaultCatalogPageSize     = 50
	defaultCatalogMaxPageSize  = 200
	defaultCatalogCacheMaxAge  = time.Minute
	defaultSignedURLTTL        = 15 * time.Minute
	defaultMenuEventsTopic     = "storefront-menu-events"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Google     GoogleConfig
	Firestore  FirestoreConfig
	Storage    StorageConfig
	PubSub     PubSubConfig
	Catalog    CatalogConfig
	RateLimits RateLimitConfig
	Features   FeatureFlags
	Security   SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// GoogleConfig stores shared Google Cloud project settings.
type GoogleConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig controls signed URL generation for menu media.
type StorageConfig struct {
	MenuMediaBucket    string
	ServiceAccountJSON string
	SignedURLTTL       time.Duration
}

// PubSubConfig names the analytics event topic.
type PubSubConfig struct {
	ProjectID       string
	MenuEventsTopic string
}

// CatalogConfig tunes the public storefront listings.
type CatalogConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	CacheMaxAge     time.Duration
}

// RateLimitConfig controls request throttling on the public surface.
type RateLimitConfig struct {
	StorefrontPerWindow int
	Window              time.Duration
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnableMenuEvents bool
	EnableSignedURLs bool
}

// SecurityConfig groups environment identification settings.
type SecurityConfig struct {
	Environment string
}

// SecretResolver resolves references to external secrets (Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists configuration fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError describes a failure while resolving one secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError reports required secrets that resolved to nothing.
// Error output carries only hashed identifiers so secret names stay out of
// logs.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.names) == 0 {
		return "missing required secrets"
	}
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// Names returns the sorted field identifiers of the missing secrets.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

// RedactedNames returns the sorted hashed identifiers used in Error output.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		sum := sha256.Sum256([]byte(name))
		out = append(out, hex.EncodeToString(sum[:8]))
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects explicit key/value pairs that take precedence over the
// system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv restricts lookups to provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithRequiredSecrets marks secret identifiers as mandatory. Identifiers
// match the config field names recorded by the loader
// (e.g. "Storage.ServiceAccountJSON").
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

func defaultLoaderOptions() loaderOptions {
	return loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
}

// env is the merged key/value view the loader reads from. Precedence when
// merging: .env file < system environment < explicit map.
type env map[string]string

func environmentFor(options loaderOptions) (env, error) {
	dotenv, err := parseDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	merged := make(env, len(dotenv)+len(options.envMap))
	for key, value := range dotenv {
		merged[key] = value
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			merged[strings.TrimSpace(key)] = value
		}
	}
	for key, value := range options.envMap {
		merged[key] = value
	}
	return merged, nil
}

// EnvironmentValues returns the merged environment map Load would read,
// letting callers initialise dependencies (like the secret fetcher) before
// loading the full configuration.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := defaultLoaderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return environmentFor(options)
}

func (e env) str(key, fallback string) string {
	if value := e[key]; value != "" {
		return value
	}
	return fallback
}

func (e env) integer(key string, fallback int) int {
	if parsed, err := strconv.Atoi(e[key]); err == nil {
		return parsed
	}
	return fallback
}

func (e env) duration(key string, fallback time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(e[key]); err == nil {
		return parsed
	}
	return fallback
}

func (e env) boolean(key string, fallback bool) bool {
	switch strings.ToLower(e[key]) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

// Load assembles the configuration from defaults, .env overrides, environment
// variables, and secret resolution, then validates it.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultLoaderOptions()
	for _, opt := range opts {
		opt(&options)
	}

	values, err := environmentFor(options)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         values.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:  values.duration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: values.duration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  values.duration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Google: GoogleConfig{
			ProjectID:       values.str("API_GOOGLE_PROJECT_ID", ""),
			CredentialsFile: values.str("API_GOOGLE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    values.str("API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: values.str("API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			MenuMediaBucket:    values.str("API_STORAGE_MENU_MEDIA_BUCKET", ""),
			ServiceAccountJSON: values.str("API_STORAGE_SERVICE_ACCOUNT_JSON", ""),
			SignedURLTTL:       values.duration("API_STORAGE_SIGNED_URL_TTL", defaultSignedURLTTL),
		},
		PubSub: PubSubConfig{
			ProjectID:       values.str("API_PUBSUB_PROJECT_ID", ""),
			MenuEventsTopic: values.str("API_PUBSUB_MENU_EVENTS_TOPIC", defaultMenuEventsTopic),
		},
		Catalog: CatalogConfig{
			DefaultPageSize: values.integer("API_CATALOG_DEFAULT_PAGE_SIZE", defaultCatalogPageSize),
			MaxPageSize:     values.integer("API_CATALOG_MAX_PAGE_SIZE", defaultCatalogMaxPageSize),
			CacheMaxAge:     values.duration("API_CATALOG_CACHE_MAX_AGE", defaultCatalogCacheMaxAge),
		},
		RateLimits: RateLimitConfig{
			StorefrontPerWindow: values.integer("API_RATELIMIT_STOREFRONT_PER_WINDOW", defaultRateLimitStorefront),
			Window:              values.duration("API_RATELIMIT_WINDOW", defaultRateLimitWindow),
		},
		Features: FeatureFlags{
			EnableMenuEvents: values.boolean("API_FEATURE_MENU_EVENTS", false),
			EnableSignedURLs: values.boolean("API_FEATURE_SIGNED_URLS", false),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(values.str("API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
		},
	}

	// Firestore and Pub/Sub projects default to the shared Google project.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Google.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Google.ProjectID
	}

	resolved := map[string]*string{
		"Storage.ServiceAccountJSON": &cfg.Storage.ServiceAccountJSON,
	}
	for _, field := range resolved {
		value, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = value
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if missing := missingRequiredSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	ref := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(ref, "sm://"):
		ref = "secret://" + strings.TrimPrefix(ref, "sm://")
	case strings.HasPrefix(ref, "secret://"):
	default:
		return value, nil
	}

	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func (cfg Config) validate() error {
	var missing []string
	require := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}

	require(cfg.Server.Port != "", "Server.Port")
	require(cfg.Google.ProjectID != "", "Google.ProjectID")
	require(cfg.Firestore.ProjectID != "", "Firestore.ProjectID")
	require(cfg.Catalog.DefaultPageSize > 0, "Catalog.DefaultPageSize")
	require(cfg.Catalog.MaxPageSize >= cfg.Catalog.DefaultPageSize, "Catalog.MaxPageSize")
	if cfg.Features.EnableSignedURLs {
		require(cfg.Storage.MenuMediaBucket != "", "Storage.MenuMediaBucket")
	}
	if cfg.Features.EnableMenuEvents {
		require(cfg.PubSub.MenuEventsTopic != "", "PubSub.MenuEventsTopic")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func missingRequiredSecrets(required []string, resolved map[string]*string) *MissingSecretsError {
	seen := make(map[string]struct{}, len(required))
	var missing []string
	for _, name := range required {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		value := resolved[name]
		if value == nil || strings.TrimSpace(*value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

func parseDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return values, nil
}
