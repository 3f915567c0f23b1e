package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Provider names
const (
	ProviderLocal  = "local"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"
	ProviderGemini = "gemini"

	// Default models
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultGeminiModel = "gemini-embedding-001"

	// Default endpoints
	DefaultOllamaEndpoint = "http://localhost:11434"
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
	DefaultJinaBaseURL    = "https://api.jina.ai/v1"

	// Dimensions
	LocalDimension  = 384
	OllamaDimension = 768
	OpenAIDimension = 1536
	JinaDimension   = 1024
	GeminiDimension = 3072

	defaultHTTPTimeout = 30 * time.Second
)

// RESTProvider implements Embedder for OpenAI-compatible /embeddings APIs.
// OpenAI and Jina share the same request and response shape.
type RESTProvider struct {
	name       string
	apiKey     string
	model      string
	baseURL    string
	dimension  int
	httpClient *http.Client
}

// RESTOptions configures a RESTProvider
type RESTOptions struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
	Timeout   time.Duration
}

// NewOpenAIProvider creates an OpenAI embedder
func NewOpenAIProvider(opts RESTOptions) *RESTProvider {
	return newRESTProvider(ProviderOpenAI, opts, DefaultOpenAIModel, DefaultOpenAIBaseURL, OpenAIDimension)
}

// NewJinaProvider creates a Jina AI embedder
func NewJinaProvider(opts RESTOptions) *RESTProvider {
	return newRESTProvider(ProviderJina, opts, DefaultJinaModel, DefaultJinaBaseURL, JinaDimension)
}

func newRESTProvider(name string, opts RESTOptions, model, baseURL string, dimension int) *RESTProvider {
	if opts.Model != "" {
		model = opts.Model
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	if opts.Dimension > 0 {
		dimension = opts.Dimension
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &RESTProvider{
		name:      name,
		apiKey:    opts.APIKey,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *RESTProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateOne(ctx, p, req)
}

func (p *RESTProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings, err := p.callAPI(ctx, req.Texts)
	if err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      p.model,
	}, nil
}

func (p *RESTProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": p.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrMalformedResponse, err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrMalformedResponse, len(apiResp.Data), len(texts))
	}

	// Responses carry an index; don't trust array order
	sort.SliceStable(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	model := apiResp.Model
	if model == "" {
		model = p.model
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		if len(data.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrMalformedResponse, i)
		}
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     model,
			Hash:      ComputeHash(NormalizeText(texts[i])),
		}
	}

	return embeddings, nil
}

// IsAvailable reports whether an API key is configured. It makes no network call.
func (p *RESTProvider) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}

func (p *RESTProvider) Dimension() int {
	return p.dimension
}

func (p *RESTProvider) Provider() string {
	return p.name
}

func (p *RESTProvider) Model() string {
	return p.model
}

func (p *RESTProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
