package fhir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"smartlaunch/pkg/logging"
)

// UnknownPatientName is the display name of a Patient without usable name data.
const UnknownPatientName = "Unknown Patient"

const (
	defaultRequestTimeout = 10 * time.Second
	maxResourceSize       = 5 << 20
	fhirJSON              = "application/fhir+json"
)

// Patient is the subset of a FHIR Patient resource this service reads.
type Patient struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	BirthDate   string `json:"birthDate,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

// ResourceError reports a non-2xx answer from the FHIR server.
type ResourceError struct {
	Resource   string
	StatusCode int
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("fetch %s: FHIR server returned status %d", e.Resource, e.StatusCode)
}

// Client reads clinical resources with a bearer token.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
}

// NewClient creates a client for the FHIR server at baseURL. A nil transport
// uses http.DefaultTransport; a non-positive timeout uses 10 seconds.
func NewClient(baseURL string, transport http.RoundTripper, timeout time.Duration) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
		timeout:   timeout,
	}
}

// GetPatient reads Patient/<patientID> on behalf of accessToken.
func (c *Client) GetPatient(ctx context.Context, patientID, accessToken string) (*Patient, error) {
	if patientID == "" {
		return nil, errors.New("patient id is empty")
	}
	if accessToken == "" {
		return nil, errors.New("access token is empty")
	}

	resource := "Patient/" + url.PathEscape(patientID)
	body, err := c.read(ctx, resource, accessToken)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("fetch %s: response is not valid JSON", resource)
	}
	doc := gjson.ParseBytes(body)
	if rt := doc.Get("resourceType").String(); rt != "Patient" {
		return nil, fmt.Errorf("fetch %s: unexpected resourceType %q", resource, rt)
	}

	patient := &Patient{
		ID:          doc.Get("id").String(),
		DisplayName: DisplayName(doc.Get("name")),
		BirthDate:   doc.Get("birthDate").String(),
		Gender:      doc.Get("gender").String(),
	}
	if patient.ID == "" {
		patient.ID = patientID
	}

	logging.Debug("FHIR", "Fetched Patient/%s", patient.ID)
	return patient, nil
}

// DisplayName builds "given given family" from the first HumanName of a
// FHIR name array, or UnknownPatientName when nothing is set.
func DisplayName(names gjson.Result) string {
	first := names.Get("0")
	if !first.Exists() {
		return UnknownPatientName
	}

	var parts []string
	first.Get("given").ForEach(func(_, given gjson.Result) bool {
		if s := strings.TrimSpace(given.String()); s != "" {
			parts = append(parts, s)
		}
		return true
	})
	if family := strings.TrimSpace(first.Get("family").String()); family != "" {
		parts = append(parts, family)
	}

	if len(parts) == 0 {
		if text := strings.TrimSpace(first.Get("text").String()); text != "" {
			return text
		}
		return UnknownPatientName
	}
	return strings.Join(parts, " ")
}

func (c *Client) read(ctx context.Context, resource, accessToken string) ([]byte, error) {
	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+resource, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", resource, err)
	}
	req.Header.Set("Accept", fhirJSON)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", resource, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Debug("FHIR", "Read of %s failed: status=%d body=%s", resource, resp.StatusCode, string(body))
		return nil, &ResourceError{Resource: resource, StatusCode: resp.StatusCode}
	}
	return body, nil
}
