package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	sdk "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/everstacklabs/taskrelay/internal/httpclient"
	"github.com/everstacklabs/taskrelay/internal/metrics"
	"github.com/everstacklabs/taskrelay/internal/model"
	"github.com/everstacklabs/taskrelay/internal/secrets"
)

const (
	// APIKeyName is the environment variable or secret holding the API key.
	APIKeyName = "OPENAI_API_KEY"

	DefaultBaseURL = "https://api.openai.com/v1"

	// Catalog TTLs: the visible list is short-lived so a key set while the
	// process runs is noticed quickly; the raw listing is kept for hours.
	DefaultListTTL = 2 * time.Minute
	DefaultRawTTL  = 6 * time.Hour

	uploadPurpose = "assistants"
)

var betaHeaders = map[string]string{"OpenAI-Beta": "assistants=v2"}

// Provider holds the transport and catalog shared by all OpenAI models.
type Provider struct {
	baseURL  string
	org      string
	secrets  secrets.Store
	httpOpts []httpclient.Option
	listTTL  time.Duration
	rawTTL   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Collector

	http    *httpclient.Client
	sdk     *sdk.Client
	catalog *Catalog
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL (e.g., for a proxy or test server).
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithOrganization sends the OpenAI-Organization header.
func WithOrganization(org string) Option {
	return func(p *Provider) { p.org = org }
}

// WithSecrets sets where the API key is looked up. Defaults to the environment.
func WithSecrets(s secrets.Store) Option {
	return func(p *Provider) { p.secrets = s }
}

// WithHTTPOptions passes options to the underlying HTTP client.
func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(p *Provider) { p.httpOpts = append(p.httpOpts, opts...) }
}

// WithCatalogTTL sets the TTLs of the visible model list and the raw listing.
func WithCatalogTTL(list, raw time.Duration) Option {
	return func(p *Provider) {
		p.listTTL = list
		p.rawTTL = raw
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records counters into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Provider) { p.metrics = c }
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL: DefaultBaseURL,
		secrets: secrets.Env{},
		listTTL: DefaultListTTL,
		rawTTL:  DefaultRawTTL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	httpOpts := append([]httpclient.Option{}, p.httpOpts...)
	httpOpts = append(httpOpts,
		httpclient.WithHeader("OpenAI-Organization", p.org),
		httpclient.WithTokenSource(keySource{p}),
	)
	p.http = httpclient.New(httpOpts...)

	// The bearer header is set by the token source, so the SDK gets no key.
	cfg := sdk.DefaultConfig("")
	cfg.BaseURL = p.baseURL
	cfg.OrgID = p.org
	cfg.HTTPClient = p.http
	p.sdk = sdk.NewClientWithConfig(cfg)

	p.catalog = newCatalog(p)
	return p
}

var _ model.Lister = (*Provider)(nil)

func (p *Provider) Name() string { return "openai" }

// List returns the visible catalog as generic models.
func (p *Provider) List(ctx context.Context) ([]model.Model, error) {
	models, err := p.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Model, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	return out, nil
}

// Catalog returns the provider's model catalog.
func (p *Provider) Catalog() *Catalog { return p.catalog }

// Model returns a model for the given OpenAI model name, with context length
// and modalities inferred from the name. It does not consult the catalog.
func (p *Provider) Model(name string) *Model {
	name = strings.TrimPrefix(name, "openai/")
	inputs, outputs := inferIO(name)
	return &Model{
		provider:      p,
		model:         name,
		contextLength: inferContextLength(name),
		inputs:        inputs,
		outputs:       outputs,
	}
}

// apiKey resolves the credential on every call; nothing is cached.
func (p *Provider) apiKey() (string, error) {
	key, err := p.secrets.Get(APIKeyName)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return "", newError(ErrConfig, "the environment variable or secret `%s` is not available", APIKeyName)
		}
		return "", wrapError(ErrConfig, err, "resolving `%s`", APIKeyName)
	}
	return key, nil
}

// keySource feeds the API key to the bearer transport.
type keySource struct{ p *Provider }

func (s keySource) Token() (*oauth2.Token, error) {
	key, err := s.p.apiKey()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: key, TokenType: "Bearer"}, nil
}

func (p *Provider) endpoint(path string) string {
	return p.baseURL + path
}

// sdkError classifies an error from the go-openai client.
func sdkError(endpoint string, err error) error {
	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Kind:    ErrProvider,
			Message: "OpenAI " + endpoint + " API returned " + statusText(apiErr.HTTPStatusCode) + ": " + apiErr.Message,
			Status:  apiErr.HTTPStatusCode,
			Body:    apiErr.Message,
		}
	}
	var reqErr *sdk.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &Error{
			Kind:    ErrProvider,
			Message: "OpenAI " + endpoint + " API returned " + statusText(reqErr.HTTPStatusCode),
			Status:  reqErr.HTTPStatusCode,
			Cause:   reqErr.Err,
		}
	}
	return transportError(endpoint, err)
}

// providerMessage pulls error.message out of a JSON error body for logging.
func providerMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	return string(body)
}
