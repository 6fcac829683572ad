package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/internal/storage"
)

// Classifier providers
const (
	ClassifierEmbedding   = "embedding"
	ClassifierHuggingFace = "huggingface"

	EnvClassifierProvider = "MAILSEARCH_CLASSIFIER_PROVIDER"
	EnvHuggingFaceToken   = "HF_API_TOKEN"

	HuggingFaceEndpoint     = "https://api-inference.huggingface.co/models/"
	DefaultZeroShotModel    = "facebook/bart-large-mnli"
	defaultClassifyTimeout  = 60 * time.Second
	maxClassifierErrorBytes = 512
)

// DefaultLabels is the category set assigned by zero-shot classification.
// The last label doubles as the fallback for items with no text.
var DefaultLabels = []string{
	"legal",
	"financial",
	"project discussion",
	"human resources",
	"operations",
	"general",
}

// DefaultLabelDescriptions adds topic words to each default label so that
// embedding classification has vocabulary to match beyond the label itself
var DefaultLabelDescriptions = map[string]string{
	"legal":              "contract agreement law lawyer attorney counsel compliance court litigation clause liability lawsuit regulation",
	"financial":          "finance budget invoice payment funds wire accounting expense revenue cost tax quarterly",
	"project discussion": "project sprint planning milestone roadmap deadline design redesign feature release website",
	"human resources":    "hr hiring recruiting interview onboarding benefits payroll vacation leave employee candidate",
	"operations":         "logistics shipping warehouse inventory supply vendor maintenance outage infrastructure facilities delivery",
	"general":            "lunch team social announcement reminder news event tomorrow noon party",
}

var (
	// ErrClassifierFailed wraps errors from a classification backend
	ErrClassifierFailed = errors.New("classification failed")

	// ErrUnknownLabel is returned when a backend answers outside the label set
	ErrUnknownLabel = errors.New("label not in candidate set")

	// ErrNoLabels is returned when classification is asked with no candidates
	ErrNoLabels = errors.New("no candidate labels")
)

// Classifier assigns text to the best matching label of a candidate set.
// The returned label is always a member of labels.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (string, error)
}

// ClassifierConfig selects and configures a classifier backend
type ClassifierConfig struct {
	Provider string
	APIKey   string
	Model    string
}

// NewClassifier builds the configured classifier. The embedding provider
// reuses emb, so it needs no extra credentials.
func NewClassifier(cfg ClassifierConfig, emb embedder.Embedder) (Classifier, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = os.Getenv(EnvClassifierProvider)
	}

	switch strings.ToLower(provider) {
	case "", ClassifierEmbedding:
		if emb == nil {
			return nil, fmt.Errorf("%w: embedding classifier needs an embedder", ErrClassifierFailed)
		}
		return NewEmbeddingClassifier(emb, DefaultLabelDescriptions), nil
	case ClassifierHuggingFace:
		return NewHuggingFaceClassifier(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: unknown classifier provider %s", ErrClassifierFailed, provider)
	}
}

// EmbeddingClassifier picks the label whose embedding is closest to the text.
// Label embeddings are computed once per label and reused.
type EmbeddingClassifier struct {
	embedder     embedder.Embedder
	descriptions map[string]string

	mu     sync.Mutex
	labels map[string][]float32
}

// NewEmbeddingClassifier creates a classifier backed by emb. A label found in
// descriptions is embedded together with its description; others alone.
func NewEmbeddingClassifier(emb embedder.Embedder, descriptions map[string]string) *EmbeddingClassifier {
	return &EmbeddingClassifier{
		embedder:     emb,
		descriptions: descriptions,
		labels:       make(map[string][]float32),
	}
}

// Classify returns the label with the highest cosine similarity to text.
// Ties go to the earlier label. When no label scores above zero the last
// label is returned, matching the fallback for items without text.
func (c *EmbeddingClassifier) Classify(ctx context.Context, text string, labels []string) (string, error) {
	if len(labels) == 0 {
		return "", ErrNoLabels
	}

	vectors, err := c.labelVectors(ctx, labels)
	if err != nil {
		return "", err
	}

	emb, err := c.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to embed text for classification: %w", err)
	}

	best, bestScore := 0, storage.CosineSimilarity(emb.Vector, vectors[0])
	for i := 1; i < len(vectors); i++ {
		if score := storage.CosineSimilarity(emb.Vector, vectors[i]); score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore <= 0 {
		return labels[len(labels)-1], nil
	}
	return labels[best], nil
}

func (c *EmbeddingClassifier) labelVectors(ctx context.Context, labels []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	missing := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := c.labels[label]; !ok {
			missing = append(missing, label)
		}
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, label := range missing {
			texts[i] = c.labelText(label)
		}
		vectors, err := embedder.EmbedTexts(ctx, c.embedder, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed labels: %w", err)
		}
		for i, label := range missing {
			c.labels[label] = vectors[i]
		}
	}

	out := make([][]float32, len(labels))
	for i, label := range labels {
		out[i] = c.labels[label]
	}
	return out, nil
}

func (c *EmbeddingClassifier) labelText(label string) string {
	if desc, ok := c.descriptions[label]; ok && desc != "" {
		return label + " " + desc
	}
	return label
}

// HuggingFaceClassifier calls a hosted zero-shot classification model
type HuggingFaceClassifier struct {
	endpoint   string
	token      string
	httpClient *http.Client
	retry      embedder.RetryConfig
}

// NewHuggingFaceClassifier creates a classifier for the given inference model.
// An empty token falls back to HF_API_TOKEN; an empty model uses DefaultZeroShotModel.
func NewHuggingFaceClassifier(token, model string) (*HuggingFaceClassifier, error) {
	if token == "" {
		token = os.Getenv(EnvHuggingFaceToken)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrClassifierFailed, EnvHuggingFaceToken)
	}
	if model == "" {
		model = DefaultZeroShotModel
	}

	return &HuggingFaceClassifier{
		endpoint:   HuggingFaceEndpoint + model,
		token:      token,
		httpClient: &http.Client{Timeout: defaultClassifyTimeout},
		retry:      embedder.DefaultRetryConfig(),
	}, nil
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify returns the highest scoring label
func (c *HuggingFaceClassifier) Classify(ctx context.Context, text string, labels []string) (string, error) {
	if len(labels) == 0 {
		return "", ErrNoLabels
	}

	resp, err := embedder.RetryWithBackoff(ctx, c.retry, func() (*zeroShotResponse, error) {
		return c.call(ctx, text, labels)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassifierFailed, err)
	}

	label, err := topLabel(resp)
	if err != nil {
		return "", err
	}
	if !containsLabel(labels, label) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return label, nil
}

func (c *HuggingFaceClassifier) call(ctx context.Context, text string, labels []string) (*zeroShotResponse, error) {
	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: labels},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(raw) > maxClassifierErrorBytes {
			raw = raw[:maxClassifierErrorBytes]
		}
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(raw))
	}

	// Some deployments wrap a single result in a list
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []zeroShotResponse
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("empty response")
		}
		return &list[0], nil
	}

	var out zeroShotResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// topLabel picks the label with the highest score
func topLabel(resp *zeroShotResponse) (string, error) {
	if resp == nil || len(resp.Labels) == 0 {
		return "", fmt.Errorf("%w: no labels in response", ErrClassifierFailed)
	}
	if len(resp.Scores) != len(resp.Labels) {
		return resp.Labels[0], nil
	}

	best := 0
	for i := 1; i < len(resp.Scores); i++ {
		if resp.Scores[i] > resp.Scores[best] {
			best = i
		}
	}
	return resp.Labels[best], nil
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
