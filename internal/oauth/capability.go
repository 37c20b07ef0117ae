package oauth

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"smartlaunch/internal/metrics"
	"smartlaunch/pkg/logging"
)

const (
	// DefaultFallbackAuthorizeURL is used whenever the capability document
	// cannot provide an authorization endpoint.
	DefaultFallbackAuthorizeURL = "https://fhir.epic.com/interconnect-fhir-oauth/oauth2/authorize"

	// OAuthURIsExtension identifies the SMART security extension listing OAuth endpoints.
	OAuthURIsExtension = "http://fhir-registry.smarthealthit.org/StructureDefinition/oauth-uris"

	// DefaultRequestTimeout bounds outbound capability and token requests.
	DefaultRequestTimeout = 10 * time.Second

	authorizeSubExtension = "authorize"
	metadataPath          = "/metadata"
	capabilityAccept      = "application/fhir+json, application/fhir+xml;q=0.9"

	// maxCapabilityDocumentSize caps how much of a capability document is read.
	maxCapabilityDocumentSize = 5 << 20
)

var (
	errEmptyDocument       = errors.New("capability document is empty")
	errMalformedDocument   = errors.New("capability document is malformed")
	errNoSecurity          = errors.New("capability document has no rest security section")
	errMissingExtension    = errors.New("oauth-uris extension not found")
	errMissingSubExtension = errors.New("authorize sub-extension not found")
	errInvalidAuthorizeURL = errors.New("authorize value is not an absolute URL")
	errEmptyBaseURL        = errors.New("FHIR base URL is empty")
)

// Resolution is the outcome of an endpoint lookup. URL is never empty.
// When Fallback is true, URL is the configured fallback and Err records why
// the document could not be used.
type Resolution struct {
	URL      string
	Fallback bool
	Err      error
}

// CapabilityResolverOptions configures a CapabilityResolver.
type CapabilityResolverOptions struct {
	// HTTPClient used for metadata requests (nil uses a default client).
	HTTPClient *http.Client

	// FallbackURL replaces DefaultFallbackAuthorizeURL when set.
	FallbackURL string

	// RequestTimeout bounds a single metadata request (0 = DefaultRequestTimeout).
	RequestTimeout time.Duration

	Metrics *metrics.Metrics
}

// CapabilityResolver reads the authorization endpoint from a FHIR server's
// capability statement. Results are not cached; concurrent lookups for the
// same base URL share one request.
type CapabilityResolver struct {
	httpClient     *http.Client
	fallbackURL    string
	requestTimeout time.Duration
	metrics        *metrics.Metrics

	group singleflight.Group
}

// NewCapabilityResolver creates a resolver.
func NewCapabilityResolver(opts CapabilityResolverOptions) *CapabilityResolver {
	r := &CapabilityResolver{
		httpClient:     opts.HTTPClient,
		fallbackURL:    opts.FallbackURL,
		requestTimeout: opts.RequestTimeout,
		metrics:        opts.Metrics,
	}
	if r.fallbackURL == "" {
		r.fallbackURL = DefaultFallbackAuthorizeURL
	}
	if r.requestTimeout <= 0 {
		r.requestTimeout = DefaultRequestTimeout
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: r.requestTimeout}
	}
	return r
}

// FallbackURL returns the endpoint used when resolution fails.
func (r *CapabilityResolver) FallbackURL() string {
	return r.fallbackURL
}

// ResolveAuthorizationEndpoint returns the authorization endpoint for baseURL,
// or the fallback endpoint if it cannot be determined.
func (r *CapabilityResolver) ResolveAuthorizationEndpoint(ctx context.Context, baseURL string) string {
	return r.Resolve(ctx, baseURL).URL
}

// Resolve looks up the authorization endpoint for baseURL. Failures are
// logged and reported in the returned Resolution, never as an error.
func (r *CapabilityResolver) Resolve(ctx context.Context, baseURL string) Resolution {
	key := strings.TrimRight(baseURL, "/")

	// The shared fetch must outlive any single caller; it is bounded by
	// requestTimeout instead.
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return r.fetchAuthorizeURL(fetchCtx, key)
	})

	var (
		result interface{}
		err    error
		shared bool
	)
	select {
	case res := <-ch:
		result, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		resErr := &EndpointResolutionError{BaseURL: baseURL, Err: err}
		logging.Warn("Capability", "Could not read authorization endpoint from %s, using fallback %s: %v",
			baseURL, r.fallbackURL, err)
		r.metrics.EndpointResolution(metrics.OutcomeFallback)
		return Resolution{URL: r.fallbackURL, Fallback: true, Err: resErr}
	}

	endpoint := result.(string)
	logging.Debug("Capability", "Resolved authorization endpoint for %s: %s (shared=%t)", baseURL, endpoint, shared)
	r.metrics.EndpointResolution(metrics.OutcomeResolved)
	return Resolution{URL: endpoint}
}

func (r *CapabilityResolver) fetchAuthorizeURL(ctx context.Context, baseURL string) (string, error) {
	if baseURL == "" {
		return "", errEmptyBaseURL
	}

	ctx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+metadataPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata request: %w", err)
	}
	req.Header.Set("Accept", capabilityAccept)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("metadata request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCapabilityDocumentSize))
	if err != nil {
		return "", fmt.Errorf("failed to read metadata response: %w", err)
	}

	return authorizeURLFromDocument(resp.Header.Get("Content-Type"), body)
}

// authorizeURLFromDocument extracts and validates the authorize value from a
// JSON or XML capability statement.
func authorizeURLFromDocument(contentType string, body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", errEmptyDocument
	}

	var (
		value string
		err   error
	)
	if strings.Contains(strings.ToLower(contentType), "xml") || body[0] == '<' {
		value, err = authorizeURLFromXML(body)
	} else {
		value, err = authorizeURLFromJSON(body)
	}
	if err != nil {
		return "", err
	}

	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q", errInvalidAuthorizeURL, value)
	}
	return value, nil
}

func authorizeURLFromJSON(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errMalformedDocument
	}

	security := gjson.GetBytes(body, "rest.0.security")
	if !security.Exists() {
		return "", errNoSecurity
	}

	var (
		foundExtension bool
		value          string
	)
	security.Get("extension").ForEach(func(_, ext gjson.Result) bool {
		if ext.Get("url").String() != OAuthURIsExtension {
			return true
		}
		foundExtension = true
		ext.Get("extension").ForEach(func(_, sub gjson.Result) bool {
			if sub.Get("url").String() != authorizeSubExtension {
				return true
			}
			value = sub.Get("valueUri").String()
			if value == "" {
				value = sub.Get("valueUrl").String()
			}
			return false
		})
		return false
	})

	if !foundExtension {
		return "", errMissingExtension
	}
	if value == "" {
		return "", errMissingSubExtension
	}
	return value, nil
}

// FHIR XML carries values in "value" attributes and extension identifiers
// in "url" attributes.
type xmlCapabilityStatement struct {
	Rest []struct {
		Security *struct {
			Extensions []xmlExtension `xml:"extension"`
		} `xml:"security"`
	} `xml:"rest"`
}

type xmlExtension struct {
	URL        string         `xml:"url,attr"`
	Extensions []xmlExtension `xml:"extension"`
	ValueURI   *xmlValue      `xml:"valueUri"`
	ValueURL   *xmlValue      `xml:"valueUrl"`
}

type xmlValue struct {
	Value string `xml:"value,attr"`
}

func authorizeURLFromXML(body []byte) (string, error) {
	var doc xmlCapabilityStatement
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformedDocument, err)
	}
	if len(doc.Rest) == 0 || doc.Rest[0].Security == nil {
		return "", errNoSecurity
	}

	for _, ext := range doc.Rest[0].Security.Extensions {
		if ext.URL != OAuthURIsExtension {
			continue
		}
		for _, sub := range ext.Extensions {
			if sub.URL != authorizeSubExtension {
				continue
			}
			if sub.ValueURI != nil && sub.ValueURI.Value != "" {
				return sub.ValueURI.Value, nil
			}
			if sub.ValueURL != nil && sub.ValueURL.Value != "" {
				return sub.ValueURL.Value, nil
			}
			return "", errMissingSubExtension
		}
		return "", errMissingSubExtension
	}
	return "", errMissingExtension
}
