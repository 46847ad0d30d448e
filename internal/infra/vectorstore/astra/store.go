package astra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/infra/config"
)

const apiPath = "/api/json/v1"

// Config holds the Data API coordinates of one collection.
type Config struct {
	Endpoint   string
	Token      string
	Keyspace   string
	Collection string
	Timeout    time.Duration
}

// ConfigFromEnv reads the Astra credentials from the environment.
func ConfigFromEnv(collection string) (Config, error) {
	env, err := config.RequireEnv(config.EnvAstraEndpoint, config.EnvAstraToken, config.EnvAstraKeyspace)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Endpoint:   env[config.EnvAstraEndpoint],
		Token:      env[config.EnvAstraToken],
		Keyspace:   env[config.EnvAstraKeyspace],
		Collection: collection,
	}, nil
}

// Store talks to an Astra DB vector collection over the JSON Data API.
type Store struct {
	keyspaceURL   string
	collectionURL string
	collection    string
	token         string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewStore validates cfg and constructs the client.
func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("astra endpoint cannot be empty")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("astra token cannot be empty")
	}
	if strings.TrimSpace(cfg.Keyspace) == "" {
		return nil, errors.New("astra keyspace cannot be empty")
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, errors.New("astra collection name cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	keyspaceURL := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/") + apiPath + "/" + cfg.Keyspace
	return &Store{
		keyspaceURL:   keyspaceURL,
		collectionURL: keyspaceURL + "/" + cfg.Collection,
		collection:    cfg.Collection,
		token:         cfg.Token,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		logger:        logger.With("component", "vectorstore.astra", "collection", cfg.Collection),
	}, nil
}

type recordMetadata struct {
	ProductID   string  `json:"product_id,omitempty"`
	Name        string  `json:"product_name"`
	Price       float64 `json:"product_price"`
	Rating      float64 `json:"product_rating"`
	Summary     string  `json:"product_summary,omitempty"`
	Review      string  `json:"review"`
	ReviewCount int     `json:"review_count,omitempty"`
}

type record struct {
	ID         string         `json:"_id"`
	Content    string         `json:"content"`
	Metadata   recordMetadata `json:"metadata"`
	Vector     []float32      `json:"$vector,omitempty"`
	Similarity *float64       `json:"$similarity,omitempty"`
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

type apiResponse struct {
	Status json.RawMessage `json:"status,omitempty"`
	Data   struct {
		Documents []record `json:"documents"`
	} `json:"data"`
	Errors []apiError `json:"errors,omitempty"`
}

// EnsureCollection creates the vector collection with cosine similarity. Existing
// collections with the same settings are accepted by the API.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	cmd := map[string]any{
		"createCollection": map[string]any{
			"name": s.collection,
			"options": map[string]any{
				"vector": map[string]any{
					"dimension": dimension,
					"metric":    "cosine",
				},
			},
		},
	}
	if _, err := s.do(ctx, s.keyspaceURL, cmd); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	s.logger.Debug("collection ready", "dimension", dimension)
	return nil
}

// Upsert replaces the record with the document's ID, inserting it when absent.
func (s *Store) Upsert(ctx context.Context, doc catalog.Document, embedding []float32) error {
	if len(embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}
	rec := toRecord(doc)
	rec.Vector = embedding
	cmd := map[string]any{
		"findOneAndReplace": map[string]any{
			"filter":      map[string]any{"_id": rec.ID},
			"replacement": rec,
			"options":     map[string]any{"upsert": true},
		},
	}
	if _, err := s.do(ctx, s.collectionURL, cmd); err != nil {
		return fmt.Errorf("upsert document %s: %w", rec.ID, err)
	}
	return nil
}

// Search runs an ANN query sorted by vector similarity.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]catalog.ScoredDocument, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid k %d", k)
	}
	cmd := map[string]any{
		"find": map[string]any{
			"sort":       map[string]any{"$vector": embedding},
			"projection": map[string]any{"$vector": 0},
			"options": map[string]any{
				"limit":             k,
				"includeSimilarity": true,
			},
		},
	}
	resp, err := s.do(ctx, s.collectionURL, cmd)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", s.collection, err)
	}
	out := make([]catalog.ScoredDocument, 0, len(resp.Data.Documents))
	for _, rec := range resp.Data.Documents {
		doc, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		var score float64
		if rec.Similarity != nil {
			score = *rec.Similarity
		}
		out = append(out, catalog.ScoredDocument{Document: doc, Score: score})
	}
	return out, nil
}

func (s *Store) do(ctx context.Context, endpoint string, cmd any) (apiResponse, error) {
	var out apiResponse
	payload, err := json.Marshal(cmd)
	if err != nil {
		return out, fmt.Errorf("encode command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return out, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Token", s.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("request data api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return out, fmt.Errorf("astra request failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode data api response: %w", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			if e.ErrorCode != "" {
				msgs = append(msgs, e.ErrorCode+": "+e.Message)
				continue
			}
			msgs = append(msgs, e.Message)
		}
		return out, fmt.Errorf("astra data api error: %s", strings.Join(msgs, "; "))
	}
	return out, nil
}

func toRecord(doc catalog.Document) record {
	return record{
		ID:      doc.ID.String(),
		Content: doc.Content(),
		Metadata: recordMetadata{
			ProductID:   doc.ProductID,
			Name:        doc.Title,
			Price:       doc.Price,
			Rating:      doc.Rating,
			Summary:     doc.Summary,
			Review:      doc.Review,
			ReviewCount: doc.ReviewCount,
		},
	}
}

func fromRecord(rec record) (catalog.Document, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("parse document id %q: %w", rec.ID, err)
	}
	review := rec.Metadata.Review
	if review == "" {
		review = rec.Content
	}
	return catalog.Document{
		ID:          id,
		ProductID:   rec.Metadata.ProductID,
		Title:       rec.Metadata.Name,
		Review:      review,
		Summary:     rec.Metadata.Summary,
		Price:       rec.Metadata.Price,
		Rating:      rec.Metadata.Rating,
		ReviewCount: rec.Metadata.ReviewCount,
	}, nil
}

var _ catalog.VectorStore = (*Store)(nil)
