package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Veraticus/kwisatz/internal/certs"
	"github.com/Veraticus/kwisatz/internal/engine"
	"github.com/Veraticus/kwisatz/internal/evaluation"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/storage"
	"github.com/Veraticus/kwisatz/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type memorySink struct {
	mu          sync.Mutex
	corrections []model.Correction
}

func (m *memorySink) RecordCorrection(_ context.Context, c model.Correction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrections = append(m.corrections, c)
	return nil
}

func newTestServer(t *testing.T, opts ...engine.Option) (*Server, *engine.Engine) {
	t.Helper()
	b := testutil.NewCorpusBuilder(t).WithStarbucksWalmart()
	settings := testutil.Settings(t)
	settings.TaxonomyPath = filepath.Join(t.TempDir(), "taxonomy.json")

	e, err := engine.New(b.Taxonomy(), b.Build(), settings, opts...)
	require.NoError(t, err)
	return New(e, WithVersion("test")), e
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, s *Server, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	resp := decode[errorResponse](t, w)
	assert.Equal(t, code, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}

func TestServer_Banner(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "kwisatz", resp["service"])
	assert.Equal(t, "test", resp["version"])
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 10, resp["examples"])
	assert.EqualValues(t, 10, resp["categories"])
}

func TestServer_Predict(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/predict", `{"description":"Starbucks Cafe 42"}`)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[model.PredictionResult](t, w)
	assert.Equal(t, "RESTAURANTS", result.PredictedCategoryID)
	assert.Equal(t, "Restaurants", result.PredictedCategoryName)
	assert.False(t, result.IsUnknown)
	assert.NotEmpty(t, result.Explanation.TopNeighbors)
	assert.Contains(t, w.Body.String(), `"predicted_category_id"`)
}

func TestServer_Predict_EmptyDescriptionAbstains(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/predict", `{"description":""}`)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[model.PredictionResult](t, w)
	assert.True(t, result.IsUnknown)
	assert.Equal(t, model.UnknownCategoryID, result.PredictedCategoryID)
}

func TestServer_Predict_BadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"description":`},
		{name: "missing description", body: `{}`},
		{name: "wrong type", body: `{"description":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/predict", tt.body)
			assertErrorCode(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestServer_PredictBatch(t *testing.T) {
	s, _ := newTestServer(t)

	csv := "id,description\n1,Starbucks cafe downtown\n2,Walmart grocery store\n3,\n"
	w := doUpload(t, s, "/predict_batch", "batch.csv", csv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	results := decode[[]model.PredictionResult](t, w)
	require.Len(t, results, 3)
	assert.Equal(t, "RESTAURANTS", results[0].PredictedCategoryID)
	assert.Equal(t, "GROCERIES", results[1].PredictedCategoryID)
	assert.True(t, results[2].IsUnknown)
}

func TestServer_PredictBatch_Rejections(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{name: "wrong extension", filename: "batch.txt", content: "description\nfoo\n"},
		{name: "missing description column", filename: "batch.csv", content: "memo\nfoo\n"},
		{name: "empty file", filename: "batch.csv", content: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doUpload(t, s, "/predict_batch", tt.filename, tt.content)
			assertErrorCode(t, w, http.StatusBadRequest, "bad_request")
		})
	}

	t.Run("no file field", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/predict_batch", "")
		assertErrorCode(t, w, http.StatusBadRequest, "bad_request")
	})
}

func TestServer_Taxonomy(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/taxonomy", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Categories []model.Category `json:"categories"`
	}](t, w)
	require.Len(t, resp.Categories, 10)
	assert.Equal(t, "GROCERIES", resp.Categories[0].ID)
}

func TestServer_UploadTaxonomy(t *testing.T) {
	s, e := newTestServer(t)

	doc := `categories:
  - id: GROCERIES
    name: Groceries
    keywords: [grocery]
  - id: RESTAURANTS
    name: Restaurants
  - id: PETS
    name: Pets
    keywords: [veterinary]
`
	w := doUpload(t, s, "/upload_taxonomy", "taxonomy.yaml", doc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "reloaded", resp["status"])
	assert.EqualValues(t, 3, resp["categories"])

	assert.Equal(t, 3, e.Taxonomy().Len())
	assert.True(t, e.Taxonomy().Contains("PETS"))
	assert.FileExists(t, e.Settings().TaxonomyPath)

	result := e.Predict("veterinary")
	assert.Contains(t, result.Explanation.KeywordMatches, "veterinary")
}

func TestServer_UploadTaxonomy_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{name: "wrong extension", filename: "taxonomy.txt", content: `{"categories":[{"id":"A"}]}`},
		{name: "malformed", filename: "taxonomy.json", content: `{"categories":`},
		{name: "no categories", filename: "taxonomy.json", content: `{"categories":[]}`},
		{name: "reserved id", filename: "taxonomy.json", content: `{"categories":[{"id":"UNKNOWN"}]}`},
		{
			name:     "does not cover corpus",
			filename: "taxonomy.json",
			content:  `{"categories":[{"id":"RESTAURANTS","name":"Restaurants"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e := newTestServer(t)
			w := doUpload(t, s, "/upload_taxonomy", tt.filename, tt.content)
			assertErrorCode(t, w, http.StatusBadRequest, "bad_request")

			assert.Equal(t, 10, e.Taxonomy().Len())
			assert.NoFileExists(t, e.Settings().TaxonomyPath)
		})
	}
}

func TestServer_UploadTaxonomy_SaveFailure(t *testing.T) {
	// A regular file where the parent directory should be makes the save fail.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	b := testutil.NewCorpusBuilder(t).WithStarbucksWalmart()
	settings := testutil.Settings(t)
	settings.TaxonomyPath = filepath.Join(blocker, "taxonomy.json")
	e, err := engine.New(b.Taxonomy(), b.Build(), settings)
	require.NoError(t, err)
	s := New(e, WithVersion("test"))

	doc := `{"categories":[
		{"id":"GROCERIES","name":"Groceries"},
		{"id":"RESTAURANTS","name":"Restaurants"}
	]}`
	w := doUpload(t, s, "/upload_taxonomy", "taxonomy.json", doc)
	assertErrorCode(t, w, http.StatusInternalServerError, "internal_error")

	assert.Equal(t, 10, e.Taxonomy().Len())
}

func TestServer_Corrections(t *testing.T) {
	sink := &memorySink{}
	s, _ := newTestServer(t, engine.WithCorrectionSink(sink))

	body := `{"description":"Blue Bottle","predicted_category_id":"UNKNOWN",` +
		`"corrected_category_id":"RESTAURANTS","metadata":{"source":"api"}}`
	w := doJSON(t, s, http.MethodPost, "/corrections", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[map[string]string](t, w)
	assert.Equal(t, "recorded", resp["status"])
	assert.NotEmpty(t, resp["id"])

	require.Len(t, sink.corrections, 1)
	got := sink.corrections[0]
	assert.Equal(t, resp["id"], got.ID)
	assert.Equal(t, "Blue Bottle", got.Description)
	assert.Equal(t, "RESTAURANTS", got.CorrectedCategoryID)
	assert.Equal(t, map[string]string{"source": "api"}, got.Metadata)
}

func TestServer_Corrections_PersistToLog(t *testing.T) {
	store := testutil.SetupTestDB(t)
	sink := engine.NewAsyncSink(store)
	s, _ := newTestServer(t, engine.WithCorrectionSink(sink))

	body := `{"description":"Blue Bottle","predicted_category_id":"UNKNOWN",` +
		`"corrected_category_id":"RESTAURANTS","metadata":{"source":"api"}}`
	w := doJSON(t, s, http.MethodPost, "/corrections", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]string](t, w)

	// Close drains the queue into the log.
	require.NoError(t, sink.Close())

	logged, err := store.ListCorrections(context.Background(), storage.CorrectionFilter{})
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, resp["id"], logged[0].ID)
	assert.Equal(t, "Blue Bottle", logged[0].Description)
	assert.Equal(t, model.UnknownCategoryID, logged[0].PredictedCategoryID)
	assert.Equal(t, "RESTAURANTS", logged[0].CorrectedCategoryID)
	assert.Equal(t, "api", logged[0].Metadata["source"])
}

func TestServer_Corrections_Errors(t *testing.T) {
	tests := []struct {
		name     string
		sink     engine.CorrectionSink
		body     string
		status   int
		wantCode string
	}{
		{
			name:     "unknown corrected category",
			sink:     &memorySink{},
			body:     `{"description":"x","predicted_category_id":"UNKNOWN","corrected_category_id":"PETS"}`,
			status:   http.StatusBadRequest,
			wantCode: "bad_request",
		},
		{
			name:     "blank description",
			sink:     &memorySink{},
			body:     `{"description":"  ","predicted_category_id":"UNKNOWN","corrected_category_id":"RENT"}`,
			status:   http.StatusBadRequest,
			wantCode: "bad_request",
		},
		{
			name:     "malformed body",
			sink:     &memorySink{},
			body:     `[`,
			status:   http.StatusBadRequest,
			wantCode: "bad_request",
		},
		{
			name:     "no sink",
			body:     `{"description":"x","predicted_category_id":"UNKNOWN","corrected_category_id":"RENT"}`,
			status:   http.StatusServiceUnavailable,
			wantCode: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []engine.Option
			if tt.sink != nil {
				opts = append(opts, engine.WithCorrectionSink(tt.sink))
			}
			s, _ := newTestServer(t, opts...)

			w := doJSON(t, s, http.MethodPost, "/corrections", tt.body)
			assertErrorCode(t, w, tt.status, tt.wantCode)
		})
	}
}

func TestServer_Config(t *testing.T) {
	s, e := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.InDelta(t, e.Settings().ConfidenceThreshold, resp["confidence_threshold"], 1e-9)
	assert.EqualValues(t, e.Settings().K, resp["k"])
}

func TestServer_Evaluation(t *testing.T) {
	s, _ := newTestServer(t)

	csv := "description,category_id\nStarbucks cafe,RESTAURANTS\nWalmart grocery,GROCERIES\nWalmart grocery,RESTAURANTS\n"
	w := doUpload(t, s, "/evaluation", "labeled.csv", csv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[evaluation.Report](t, w)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Correct)
	assert.Equal(t, 1, report.Cell("RESTAURANTS", "GROCERIES"))
	assert.Contains(t, w.Body.String(), `"confusion_matrix"`)
}

func TestServer_Evaluation_UnknownLabel(t *testing.T) {
	s, _ := newTestServer(t)

	w := doUpload(t, s, "/evaluation", "labeled.csv", "description,category_id\nvet visit,PETS\n")
	assertErrorCode(t, w, http.StatusBadRequest, "bad_request")
}

func TestServer_NoRoute(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/nope", "")
	assertErrorCode(t, w, http.StatusNotFound, "not_found")
}

func TestServer_TLS(t *testing.T) {
	cert, err := certs.NewStore(t.TempDir()).GetOrCreate("127.0.0.1")
	require.NoError(t, err)

	b := testutil.NewCorpusBuilder(t).WithStarbucksWalmart()
	e, err := engine.New(b.Taxonomy(), b.Build(), testutil.Settings(t))
	require.NoError(t, err)
	s := New(e, WithTLS(cert))
	require.NotNil(t, s.tls)

	ts := httptest.NewUnstartedServer(s.Handler())
	ts.TLS = s.tls
	ts.StartTLS()
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, resp.TLS)
}
