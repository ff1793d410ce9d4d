package tariffapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-onboard/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const directoryCacheKeyPrefix = "go-onboard::directory::v1"

// CachedDirectory fronts a context directory with a read-through cache. The
// guard hits the account and provider lookups on every single flow hop, and
// both records change rarely.
type CachedDirectory struct {
	base  core.ContextDirectory
	cache repositorycache.CacheService
}

func NewCachedDirectory(
	base core.ContextDirectory,
	cacheService repositorycache.CacheService,
) (*CachedDirectory, error) {
	if base == nil {
		return nil, fmt.Errorf("tariffapi: a base directory is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("tariffapi: a cache service is required")
	}
	return &CachedDirectory{base: base, cache: cacheService}, nil
}

// AccountCacheKey returns the deterministic cache key for account reads:
// go-onboard::directory::v1::account::<public_key> with segments URL-path
// escaped.
func AccountCacheKey(publicKey string) (string, error) {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return "", fmt.Errorf("tariffapi: a publishable key is required")
	}
	return strings.Join([]string{
		directoryCacheKeyPrefix,
		"account",
		url.PathEscape(publicKey),
	}, "::"), nil
}

// ProviderCacheKey returns the deterministic cache key for provider reads:
// go-onboard::directory::v1::provider::<public_key>::<provider_id>.
func ProviderCacheKey(publicKey string, providerID string) (string, error) {
	publicKey = strings.TrimSpace(publicKey)
	providerID = strings.TrimSpace(providerID)
	if publicKey == "" {
		return "", fmt.Errorf("tariffapi: a publishable key is required")
	}
	if providerID == "" {
		return "", fmt.Errorf("tariffapi: a provider id is required")
	}
	return strings.Join([]string{
		directoryCacheKeyPrefix,
		"provider",
		url.PathEscape(publicKey),
		url.PathEscape(providerID),
	}, "::"), nil
}

func (d *CachedDirectory) CurrentAccount(ctx context.Context, publicKey string) (core.Account, error) {
	if d == nil || d.base == nil || d.cache == nil {
		return core.Account{}, fmt.Errorf("tariffapi: cached directory is not configured")
	}
	cacheKey, err := AccountCacheKey(publicKey)
	if err != nil {
		return core.Account{}, err
	}
	return repositorycache.GetOrFetch(ctx, d.cache, cacheKey, func(ctx context.Context) (core.Account, error) {
		return d.base.CurrentAccount(ctx, publicKey)
	})
}

func (d *CachedDirectory) RetrieveProvider(ctx context.Context, publicKey string, providerID string) (core.Provider, error) {
	if d == nil || d.base == nil || d.cache == nil {
		return core.Provider{}, fmt.Errorf("tariffapi: cached directory is not configured")
	}
	cacheKey, err := ProviderCacheKey(publicKey, providerID)
	if err != nil {
		return core.Provider{}, err
	}
	return repositorycache.GetOrFetch(ctx, d.cache, cacheKey, func(ctx context.Context) (core.Provider, error) {
		return d.base.RetrieveProvider(ctx, publicKey, providerID)
	})
}

// Invalidate drops the cached account and provider entries for one key pair,
// typically after an upstream settings change.
func (d *CachedDirectory) Invalidate(ctx context.Context, publicKey string, providerID string) error {
	if d == nil || d.cache == nil {
		return fmt.Errorf("tariffapi: cached directory is not configured")
	}
	accountKey, err := AccountCacheKey(publicKey)
	if err != nil {
		return err
	}
	if err := d.cache.Delete(ctx, accountKey); err != nil {
		return err
	}
	if strings.TrimSpace(providerID) == "" {
		return nil
	}
	providerKey, err := ProviderCacheKey(publicKey, providerID)
	if err != nil {
		return err
	}
	return d.cache.Delete(ctx, providerKey)
}

var _ core.ContextDirectory = (*CachedDirectory)(nil)
