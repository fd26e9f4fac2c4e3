package geo

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rentflow/leasesign/pkg/config"
	"github.com/rentflow/leasesign/pkg/logger"
)

// Resolver turns a client IP address into a coarse human-readable location
// string for the signing evidence record. The result is untrusted metadata;
// any failure degrades to an empty string and never blocks a signature.
type Resolver interface {
	Resolve(ctx context.Context, ip string) string
}

// HTTPResolver queries an ip-api.com style JSON endpoint.
type HTTPResolver struct {
	client   *resty.Client
	endpoint string
}

type geoResponse struct {
	Status      string `json:"status"`
	City        string `json:"city"`
	Region      string `json:"region"`
	CountryCode string `json:"countryCode"`
}

// NewHTTPResolver creates a resolver against the configured endpoint
func NewHTTPResolver(cfg *config.GeoConfig) *HTTPResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1)

	return &HTTPResolver{
		client:   client,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}
}

// Resolve looks up a coarse "City, Region, CC" location for the IP. Private
// and unparseable addresses resolve to empty.
func (r *HTTPResolver) Resolve(ctx context.Context, ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return ""
	}

	var result geoResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("%s/%s", r.endpoint, ip))
	if err != nil {
		logger.Debug("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		return ""
	}
	if resp.StatusCode() != 200 || result.Status != "success" {
		return ""
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{result.City, result.Region, result.CountryCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// NoopResolver always resolves to empty. Used when lookups are disabled.
type NoopResolver struct{}

// Resolve returns an empty location
func (NoopResolver) Resolve(_ context.Context, _ string) string {
	return ""
}

// NewResolver returns an HTTPResolver or a NoopResolver per config
func NewResolver(cfg *config.GeoConfig) Resolver {
	if !cfg.Enabled {
		return NoopResolver{}
	}
	return NewHTTPResolver(cfg)
}
