package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecometri/catalog-converter/config"
	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	// Run tests
	exitCode := m.Run()

	// Exit with the test result code
	os.Exit(exitCode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "3000",
			Environment:    "test",
			AllowedOrigins: []string{"https://app.ecometri.com", "http://localhost:5173"},
			MaxUploadMB:    50,
		},
		RateLimit: config.RateLimitConfig{PerIP: 1000},
	}
}

// setupTestRouter creates a test router around converter
func setupTestRouter(converter CatalogConverter) *gin.Engine {
	handler := NewHandler(converter, 1<<20)
	if handler == nil {
		panic("setupTestRouter: NewHandler returned nil")
	}

	router := SetupRouter(testConfig(), handler)
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}

	return router
}

// --- Mock implementations ---

// stubConverter returns canned results for handler-level tests
type stubConverter struct {
	result    *domain.ConversionResult
	err       error
	hosting   bool
	enhancing bool
	gotURL    string
	gotData   []byte
}

func (s *stubConverter) ConvertPDF(ctx context.Context, data []byte) (*domain.ConversionResult, error) {
	s.gotData = data
	return s.result, s.err
}

func (s *stubConverter) ScrapeStore(ctx context.Context, storeURL string) (*domain.ConversionResult, error) {
	s.gotURL = storeURL
	return s.result, s.err
}

func (s *stubConverter) HostingEnabled() bool { return s.hosting }
func (s *stubConverter) EnhancementEnabled() bool { return s.enhancing }

// mockDocumentReader is a mock implementation of domain.DocumentReader
type mockDocumentReader struct {
	doc *domain.Document
	err error
}

func (m *mockDocumentReader) Read(ctx context.Context, data []byte) (*domain.Document, error) {
	return m.doc, m.err
}

// mockStorefrontClient is a mock implementation of domain.StorefrontClient
type mockStorefrontClient struct {
	page string
	err  error
}

func (m *mockStorefrontClient) FetchPage(ctx context.Context, pageURL string) (string, error) {
	return m.page, m.err
}

func (m *mockStorefrontClient) FetchProductFeed(ctx context.Context, storeURL string) ([]domain.RawProductCandidate, error) {
	return nil, domain.ErrFeedUnavailable
}

func (m *mockStorefrontClient) FetchImage(ctx context.Context, imageURL string) (*domain.ImageSource, error) {
	return nil, domain.ErrImageDownloadFailed
}

// setupTestRouterWithService creates a test router with a real CatalogService using mocks
func setupTestRouterWithService(t *testing.T, docs domain.DocumentReader, store domain.StorefrontClient) *gin.Engine {
	t.Helper()
	service, err := usecase.NewCatalogService(docs, store, nil, nil, usecase.CatalogServiceConfig{
		Clock:      func() time.Time { return time.UnixMilli(1700000000000) },
		NewBatchID: func() string { return "batch-1" },
	})
	if err != nil {
		t.Fatalf("NewCatalogService() error = %v", err)
	}
	return setupTestRouter(service)
}

func sampleResult(products int) *domain.ConversionResult {
	batch := domain.NewBatch("batch-1", domain.SourceWeb)
	for i := 0; i < products; i++ {
		batch.Products = append(batch.Products, domain.CanonicalProduct{
			Name:   fmt.Sprintf("Producto %d", i+1),
			Price:  "0",
			SKU:    fmt.Sprintf("SKU-%d", i),
			Images: []string{},
		})
	}
	return &domain.ConversionResult{
		Batch:    batch,
		CSV:      "Name,Description\nProducto 1,",
		Filename: "ecometri_store_batch-1_1700000000000.csv",
		Report: domain.Report{
			BatchID:       "batch-1",
			SourceType:    domain.SourceWeb,
			TotalProducts: products,
			Warnings:      map[string]int{},
		},
	}
}

// pdfUpload builds a multipart body with one file part
func pdfUpload(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="catalogo.pdf"`, field))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return body, writer.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return response
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{hosting: true})

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decode(t, w)
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "ecometri-catalog-converter" {
			t.Errorf("service = %v, want ecometri-catalog-converter", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
		services, ok := response["services"].(map[string]interface{})
		if !ok {
			t.Fatalf("services = %v, want object", response["services"])
		}
		if services["imageHosting"] != true || services["aiEnhancement"] != false {
			t.Errorf("services = %v, want hosting on and enhancement off", services)
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{})

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestInfoEndpoint(t *testing.T) {
	router := setupTestRouter(&stubConverter{})

	req, _ := http.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	endpoints, ok := decode(t, w)["endpoints"].(map[string]interface{})
	if !ok || endpoints["processPdf"] != "POST /api/v1/process-pdf" {
		t.Errorf("endpoints = %v, want processPdf listed", endpoints)
	}
}

// TestProcessPDFEndpoint tests PDF uploads against a real catalog service
func TestProcessPDFEndpoint(t *testing.T) {
	t.Run("converts an uploaded catalog", func(t *testing.T) {
		docs := &mockDocumentReader{doc: &domain.Document{
			Text:  "GUITARRAS\nGuitarra acústica clásica 39 pulgadas\nGuitarra eléctrica tipo Stratocaster",
			Pages: 1,
		}}
		router := setupTestRouterWithService(t, docs, &mockStorefrontClient{})

		body, contentType := pdfUpload(t, "pdf", "application/pdf", []byte("%PDF-1.4 fake"))
		req, _ := http.NewRequest("POST", "/api/v1/process-pdf", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var response ConversionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if !response.Success {
			t.Error("success = false, want true")
		}
		if response.Metadata.ColumnCount != 35 {
			t.Errorf("columnCount = %d, want 35", response.Metadata.ColumnCount)
		}
		if response.Metadata.RowCount != 2 || len(response.Products) != 2 {
			t.Errorf("rowCount = %d, products = %d, want 2", response.Metadata.RowCount, len(response.Products))
		}
		if response.Metadata.Filename != "ecometri_pdf_batch-1_1700000000000.csv" {
			t.Errorf("filename = %s", response.Metadata.Filename)
		}
		if !strings.HasPrefix(response.CSV, "Name,Description,Category") {
			t.Errorf("csv should start with the header row, got %.40q", response.CSV)
		}
		if response.Report.SourceType != domain.SourcePDF || response.Report.TotalProducts != 2 {
			t.Errorf("report = %+v", response.Report)
		}
	})

	t.Run("rejects requests without a file", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{})

		req, _ := http.NewRequest("POST", "/api/v1/process-pdf", strings.NewReader(""))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		response := decode(t, w)
		if response["success"] != false {
			t.Errorf("success = %v, want false", response["success"])
		}
	})

	t.Run("rejects non-PDF uploads", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{})

		body, contentType := pdfUpload(t, "pdf", "image/png", []byte("png"))
		req, _ := http.NewRequest("POST", "/api/v1/process-pdf", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if msg, _ := decode(t, w)["error"].(string); msg != domain.ErrUnsupportedFile.Error() {
			t.Errorf("error = %q, want %q", msg, domain.ErrUnsupportedFile.Error())
		}
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		converter := &stubConverter{}
		router := gin.New()
		handler := NewHandler(converter, 1024)
		router.POST("/upload", handler.ProcessPDF)

		body, contentType := pdfUpload(t, "pdf", "application/pdf", bytes.Repeat([]byte("x"), 4096))
		req, _ := http.NewRequest("POST", "/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
		}
		if converter.gotData != nil {
			t.Error("converter should not be called for oversized uploads")
		}
	})

	t.Run("maps unreadable documents to 422", func(t *testing.T) {
		docs := &mockDocumentReader{err: fmt.Errorf("%w: not a PDF", domain.ErrDocumentUnreadable)}
		router := setupTestRouterWithService(t, docs, &mockStorefrontClient{})

		body, contentType := pdfUpload(t, "pdf", "application/pdf", []byte("garbage"))
		req, _ := http.NewRequest("POST", "/api/v1/process-pdf", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})
}

// TestScrapeStoreEndpoint tests the store scraping endpoint
func TestScrapeStoreEndpoint(t *testing.T) {
	t.Run("returns the conversion envelope with a capped preview", func(t *testing.T) {
		converter := &stubConverter{result: sampleResult(12)}
		router := setupTestRouter(converter)

		payload := `{"storeUrl":"https://tienda.example.com"}`
		req, _ := http.NewRequest("POST", "/api/v1/scrape-store", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if converter.gotURL != "https://tienda.example.com" {
			t.Errorf("storeUrl = %q", converter.gotURL)
		}

		var response ConversionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response.Metadata.RowCount != 12 {
			t.Errorf("rowCount = %d, want 12", response.Metadata.RowCount)
		}
		if len(response.Products) != 10 {
			t.Errorf("products = %d, want preview of 10", len(response.Products))
		}
	})

	t.Run("requires storeUrl", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{})

		req, _ := http.NewRequest("POST", "/api/v1/scrape-store", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects invalid URLs through the real service", func(t *testing.T) {
		router := setupTestRouterWithService(t, nil, &mockStorefrontClient{})

		req, _ := http.NewRequest("POST", "/api/v1/scrape-store", strings.NewReader(`{"storeUrl":"ftp://example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("maps unreachable stores to 502", func(t *testing.T) {
		store := &mockStorefrontClient{err: fmt.Errorf("%w: connection refused", domain.ErrFetchFailed)}
		router := setupTestRouterWithService(t, nil, store)

		req, _ := http.NewRequest("POST", "/api/v1/scrape-store", strings.NewReader(`{"storeUrl":"https://down.example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
		if msg, _ := decode(t, w)["error"].(string); strings.Contains(msg, "connection refused") {
			t.Errorf("error = %q, should not expose transport detail", msg)
		}
	})

	t.Run("hides unexpected errors", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{err: fmt.Errorf("db exploded")})

		req, _ := http.NewRequest("POST", "/api/v1/scrape-store", strings.NewReader(`{"storeUrl":"https://x.example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if msg, _ := decode(t, w)["error"].(string); msg != "internal server error" {
			t.Errorf("error = %q, want generic message", msg)
		}
	})
}

func TestEndpointsWithoutService(t *testing.T) {
	router := setupTestRouter(nil)

	req, _ := http.NewRequest("POST", "/api/v1/scrape-store", strings.NewReader(`{"storeUrl":"https://x.example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if msg, _ := decode(t, w)["error"].(string); !strings.Contains(msg, "not configured") {
		t.Errorf("error = %q, want to contain 'not configured'", msg)
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for the frontend", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{})

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://app.ecometri.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "https://app.ecometri.com" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "https://app.ecometri.com")
		}

		gotCreds := w.Header().Get("Access-Control-Allow-Credentials")
		if gotCreds != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", gotCreds, "true")
		}
	})

	t.Run("preflight on an API route", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{})

		req, _ := http.NewRequest("OPTIONS", "/api/v1/process-pdf", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:5173")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{})

		// Add a test route that panics
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if decode(t, w)["success"] != false {
			t.Error("panic body should be a JSON error envelope")
		}
	})
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := setupTestRouter(&stubConverter{})

		for _, path := range []string{"/api/process-pdf", "/process-pdf", "/api/v1/scrape"} {
			req, _ := http.NewRequest("POST", path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Path %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/"},
		{"GET", "/health"},
		{"POST", "/api/v1/process-pdf"},
		{"POST", "/api/v1/scrape-store"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter(&stubConverter{})

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: storeUrl is required", domain.ErrInvalidRequest), http.StatusBadRequest},
		{domain.ErrInvalidURL, http.StatusBadRequest},
		{domain.ErrUnsupportedFile, http.StatusBadRequest},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{domain.ErrDocumentUnreadable, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: 503", domain.ErrFetchFailed), http.StatusBadGateway},
		{context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, _ := statusFor(tt.err)
			if got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
