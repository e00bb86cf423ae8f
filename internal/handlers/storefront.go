package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	domain "github.com/qravy/storefront-api/internal/domain"
	"github.com/qravy/storefront-api/internal/platform/httpx"
	"github.com/qravy/storefront-api/internal/platform/pagination"
	"github.com/qravy/storefront-api/internal/repositories"
	"github.com/qravy/storefront-api/internal/services"
)

const (
	defaultItemPageSize     = 50
	maxItemPageSize         = 200
	defaultCatalogCacheSecs = 60
)

var itemDescriptionPolicy = bluemonday.StrictPolicy()

// AssetURLResolver resolves storage paths to externally accessible URLs (e.g. CDN or signed links).
type AssetURLResolver interface {
	ResolveURL(ctx context.Context, path string) (string, error)
}

// AssetURLResolverFunc adapts a function to the AssetURLResolver interface.
type AssetURLResolverFunc func(ctx context.Context, path string) (string, error)

// ResolveURL implements AssetURLResolver.
func (fn AssetURLResolverFunc) ResolveURL(ctx context.Context, path string) (string, error) {
	if fn == nil {
		return path, nil
	}
	return fn(ctx, path)
}

// StorefrontHandlers exposes the unauthenticated storefront catalog endpoints.
type StorefrontHandlers struct {
	catalog       services.CatalogService
	imageResolver AssetURLResolver
	limiter       rateLimiter
	pager         pagination.Options
	cacheControl  string
}

// StorefrontOption customises construction of StorefrontHandlers.
type StorefrontOption func(*StorefrontHandlers)

// WithStorefrontCatalogService injects the catalog service dependency.
func WithStorefrontCatalogService(svc services.CatalogService) StorefrontOption {
	return func(h *StorefrontHandlers) {
		h.catalog = svc
	}
}

// WithStorefrontImageResolver sets the resolver used for item image URLs.
func WithStorefrontImageResolver(resolver AssetURLResolver) StorefrontOption {
	return func(h *StorefrontHandlers) {
		if resolver != nil {
			h.imageResolver = resolver
		}
	}
}

// WithStorefrontRateLimit enables per-client request limiting on the
// storefront endpoints. Non-positive inputs disable the limiter.
func WithStorefrontRateLimit(limit int, window time.Duration) StorefrontOption {
	return func(h *StorefrontHandlers) {
		h.limiter = newFixedWindowLimiter(limit, window, nil)
	}
}

// WithStorefrontPagination overrides the item listing page size bounds.
func WithStorefrontPagination(opts pagination.Options) StorefrontOption {
	return func(h *StorefrontHandlers) {
		h.pager = opts
	}
}

// WithStorefrontCacheMaxAge sets the Cache-Control max-age applied to
// storefront responses. A non-positive value disables the header.
func WithStorefrontCacheMaxAge(maxAge time.Duration) StorefrontOption {
	return func(h *StorefrontHandlers) {
		if maxAge <= 0 {
			h.cacheControl = ""
			return
		}
		h.cacheControl = fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	}
}

// NewStorefrontHandlers constructs handlers for the storefront endpoints.
func NewStorefrontHandlers(opts ...StorefrontOption) *StorefrontHandlers {
	handler := &StorefrontHandlers{
		imageResolver: AssetURLResolverFunc(func(_ context.Context, path string) (string, error) {
			return path, nil
		}),
		pager:        pagination.Options{DefaultPageSize: defaultItemPageSize, MaxPageSize: maxItemPageSize},
		cacheControl: fmt.Sprintf("public, max-age=%d", defaultCatalogCacheSecs),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Routes registers the storefront endpoints against the provided router.
func (h *StorefrontHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/categories", h.listCategories)
	r.Get("/items", h.listItems)
}

func (h *StorefrontHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r) {
		httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
		return
	}
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	listing, err := h.catalog.Categories(r.Context(), catalogQueryFromRequest(r))
	if err != nil {
		writeStorefrontError(r.Context(), w, err)
		return
	}

	categories := make([]categoryPayload, 0, len(listing.Categories))
	for _, resolved := range listing.Categories {
		categories = append(categories, categoryPayload{
			ID:           resolved.Category.ID,
			Name:         resolved.Category.Name,
			ChannelScope: string(resolved.Category.ChannelScope),
			Hidden:       resolved.Hidden,
		})
	}

	h.setCacheControl(w)
	writeJSON(w, http.StatusOK, categoryListResponse{
		Tenant:     listing.Tenant.Slug,
		Location:   buildLocationPayload(listing.Location),
		Channels:   channelStrings(listing.Channels),
		Categories: categories,
	})
}

func (h *StorefrontHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r) {
		httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
		return
	}
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, h.pager)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	listing, err := h.catalog.Items(r.Context(), catalogQueryFromRequest(r))
	if err != nil {
		writeStorefrontError(r.Context(), w, err)
		return
	}

	page, nextToken, err := pagination.Page(listing.Items, params)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	items := make([]itemPayload, 0, len(page))
	for _, resolved := range page {
		payload, err := h.buildItemPayload(r.Context(), resolved)
		if err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("asset_resolution_failed", err.Error(), http.StatusInternalServerError))
			return
		}
		items = append(items, payload)
	}

	h.setCacheControl(w)
	writeJSON(w, http.StatusOK, itemListResponse{
		Tenant:        listing.Tenant.Slug,
		Location:      buildLocationPayload(listing.Location),
		Channels:      channelStrings(listing.Channels),
		Items:         items,
		NextPageToken: nextToken,
	})
}

func (h *StorefrontHandlers) buildItemPayload(ctx context.Context, resolved domain.ResolvedItem) (itemPayload, error) {
	item := resolved.Item
	imageURL, err := h.resolveAsset(ctx, item.ImagePath)
	if err != nil {
		return itemPayload{}, err
	}
	return itemPayload{
		ID:           item.ID,
		CategoryID:   item.CategoryID,
		Name:         strings.TrimSpace(item.Name),
		Description:  sanitizeItemDescription(item.Description),
		PriceMinor:   item.PriceMinor,
		Currency:     strings.TrimSpace(item.Currency),
		ImageURL:     imageURL,
		Labels:       item.Labels,
		Hidden:       resolved.Hidden,
		Status:       string(resolved.Status),
		LastModified: formatTimestamp(item.UpdatedAt),
	}, nil
}

func (h *StorefrontHandlers) resolveAsset(ctx context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if isAbsoluteURL(path) {
		return path, nil
	}
	if h.imageResolver == nil {
		return path, nil
	}
	return h.imageResolver.ResolveURL(ctx, path)
}

func (h *StorefrontHandlers) allow(r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(clientKey(r))
}

func (h *StorefrontHandlers) setCacheControl(w http.ResponseWriter) {
	if h.cacheControl != "" {
		w.Header().Set("Cache-Control", h.cacheControl)
	}
}

func catalogQueryFromRequest(r *http.Request) services.CatalogQuery {
	values := r.URL.Query()
	return services.CatalogQuery{
		TenantSlug: values.Get("tenantSlug"),
		Branch:     values.Get("branch"),
		Channel:    values.Get("channel"),
	}
}

// clientKey identifies the caller for rate limiting. RealIP middleware has
// already rewritten RemoteAddr when the request passed through the router.
func clientKey(r *http.Request) string {
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func sanitizeItemDescription(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(itemDescriptionPolicy.Sanitize(trimmed))
}

func writeStorefrontError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrTenantSlugRequired):
		httpx.WriteError(ctx, w, httpx.NewError("tenant_slug_required", "tenantSlug query parameter is required", http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrUnknownChannel):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_channel", "channel must be one of dine-in, online", http.StatusBadRequest))
		return
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			httpx.WriteError(ctx, w, httpx.NewError("tenant_not_found", "tenant not found", http.StatusNotFound))
			return
		case repoErr.IsUnavailable():
			httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog store unavailable", http.StatusServiceUnavailable))
			return
		}
	}

	httpx.WriteError(ctx, w, httpx.NewError("catalog_error", err.Error(), http.StatusInternalServerError))
}

func buildLocationPayload(location *domain.Location) *locationPayload {
	if location == nil {
		return nil
	}
	return &locationPayload{
		ID:   location.ID,
		Name: location.Name,
	}
}

func channelStrings(channels []domain.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		out = append(out, string(ch))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type categoryListResponse struct {
	Tenant     string            `json:"tenant"`
	Location   *locationPayload  `json:"location,omitempty"`
	Channels   []string          `json:"channels"`
	Categories []categoryPayload `json:"categories"`
}

type categoryPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ChannelScope string `json:"channel_scope"`
	Hidden       bool   `json:"hidden"`
}

type itemListResponse struct {
	Tenant        string           `json:"tenant"`
	Location      *locationPayload `json:"location,omitempty"`
	Channels      []string         `json:"channels"`
	Items         []itemPayload    `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type itemPayload struct {
	ID           string            `json:"id"`
	CategoryID   string            `json:"category_id,omitempty"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	PriceMinor   int64             `json:"price_minor"`
	Currency     string            `json:"currency,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	Hidden       bool              `json:"hidden"`
	Status       string            `json:"status"`
	LastModified string            `json:"last_modified,omitempty"`
}

type locationPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func isAbsoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
