package astra

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/infra/config"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

type capturedRequest struct {
	path  string
	token string
	body  map[string]json.RawMessage
}

func newTestServer(t *testing.T, reply string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		captured = append(captured, capturedRequest{path: r.URL.Path, token: r.Header.Get("Token"), body: body})
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newTestStore(t *testing.T, endpoint string) *Store {
	t.Helper()
	store, err := NewStore(Config{
		Endpoint:   endpoint,
		Token:      "AstraCS:test",
		Keyspace:   "default_keyspace",
		Collection: "ecommercedata",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store
}

func TestEnsureCollectionSendsCreateCommand(t *testing.T) {
	srv, captured := newTestServer(t, `{"status":{"ok":1}}`)
	store := newTestStore(t, srv.URL+"/")

	require.NoError(t, store.EnsureCollection(context.Background(), 768))
	require.Len(t, *captured, 1)
	req := (*captured)[0]
	require.Equal(t, "/api/json/v1/default_keyspace", req.path)
	require.Equal(t, "AstraCS:test", req.token)
	require.JSONEq(t, `{"name":"ecommercedata","options":{"vector":{"dimension":768,"metric":"cosine"}}}`, string(req.body["createCollection"]))
}

func TestUpsertUsesFindOneAndReplace(t *testing.T) {
	srv, captured := newTestServer(t, `{"status":{"upsertedId":"x"}}`)
	store := newTestStore(t, srv.URL)
	doc := catalog.Document{
		ID:     catalog.StableID("P1", "BoAt Rockerz 255", "Great bass."),
		Title:  "BoAt Rockerz 255",
		Review: "Great bass.",
		Price:  1299,
		Rating: 4.1,
	}

	require.NoError(t, store.Upsert(context.Background(), doc, []float32{0.1, 0.2}))
	require.Len(t, *captured, 1)
	req := (*captured)[0]
	require.Equal(t, "/api/json/v1/default_keyspace/ecommercedata", req.path)

	var cmd struct {
		Filter      map[string]string `json:"filter"`
		Replacement record            `json:"replacement"`
		Options     map[string]bool   `json:"options"`
	}
	require.NoError(t, json.Unmarshal(req.body["findOneAndReplace"], &cmd))
	require.Equal(t, doc.ID.String(), cmd.Filter["_id"])
	require.True(t, cmd.Options["upsert"])
	require.Equal(t, []float32{0.1, 0.2}, cmd.Replacement.Vector)
	require.Equal(t, "BoAt Rockerz 255", cmd.Replacement.Metadata.Name)
	require.Equal(t, doc.Content(), cmd.Replacement.Content)
}

func TestSearchDecodesDocuments(t *testing.T) {
	id := catalog.StableID("P1", "BoAt Rockerz 255", "Great bass.")
	srv, captured := newTestServer(t, `{"data":{"documents":[{"_id":"`+id.String()+`","content":"BoAt Rockerz 255\nGreat bass.","metadata":{"product_name":"BoAt Rockerz 255","product_price":1299,"product_rating":4.1,"review":"Great bass."},"$similarity":0.93}]}}`)
	store := newTestStore(t, srv.URL)

	hits, err := store.Search(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, id, hits[0].Document.ID)
	require.Equal(t, "BoAt Rockerz 255", hits[0].Document.Title)
	require.Equal(t, "Great bass.", hits[0].Document.Review)
	require.InDelta(t, 0.93, hits[0].Score, 1e-9)

	var cmd struct {
		Options struct {
			Limit             int  `json:"limit"`
			IncludeSimilarity bool `json:"includeSimilarity"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal((*captured)[0].body["find"], &cmd))
	require.Equal(t, 3, cmd.Options.Limit)
	require.True(t, cmd.Options.IncludeSimilarity)
}

func TestDataAPIErrorsAreReturned(t *testing.T) {
	srv, _ := newTestServer(t, `{"errors":[{"message":"collection does not exist","errorCode":"COLLECTION_NOT_EXIST"}]}`)
	store := newTestStore(t, srv.URL)

	_, err := store.Search(context.Background(), []float32{0.1}, 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "COLLECTION_NOT_EXIST")
}

func TestHTTPFailureIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()
	store := newTestStore(t, srv.URL)

	err := store.EnsureCollection(context.Background(), 4)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=401")
}

func TestConfigFromEnvReportsMissingVariables(t *testing.T) {
	t.Setenv(config.EnvAstraEndpoint, "")
	t.Setenv(config.EnvAstraToken, "")
	t.Setenv(config.EnvAstraKeyspace, "default_keyspace")

	_, err := ConfigFromEnv("ecommercedata")
	require.True(t, apperrors.IsCode(err, apperrors.CodeCredential))
	require.Contains(t, err.Error(), config.EnvAstraEndpoint)
	require.Contains(t, err.Error(), config.EnvAstraToken)
	require.NotContains(t, err.Error(), config.EnvAstraKeyspace)
}
