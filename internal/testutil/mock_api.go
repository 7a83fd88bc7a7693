// Package testutil provides testing utilities for the order report client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

const (
	// TokenPath and SearchPath mirror the order API endpoints.
	TokenPath  = "/auth/token"
	SearchPath = "/order/search"
)

// MockPage is one page served by the search endpoint.
type MockPage struct {
	// Data is the raw JSON array returned under "data".
	Data string

	// TotalCount is omitted from the response when nil.
	TotalCount *int
}

// MockResponse defines a fixed endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
}

// MockOrderAPI is a configurable mock of the order API for testing.
// Search pages are selected by the "Page" field of the request payload.
type MockOrderAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	token     string
	expiresIn *float64
	pages     []MockPage

	// Tracking
	TokenRequests     int
	SearchRequests    int
	LastAuthorization string
	LastTokenRequest  map[string]any
	Payloads          []map[string]any
}

// NewMockOrderAPI creates a new mock order API serving token "test-token".
func NewMockOrderAPI() *MockOrderAPI {
	mock := &MockOrderAPI{
		handlers: make(map[string]http.HandlerFunc),
		token:    "test-token",
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case TokenPath:
			mock.tokenHandler(w, r)
		case SearchPath:
			mock.searchHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockOrderAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockOrderAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockOrderAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenRequests = 0
	m.SearchRequests = 0
	m.LastAuthorization = ""
	m.LastTokenRequest = nil
	m.Payloads = nil
}

// SetHandler overrides the handler for a specific path.
func (m *MockOrderAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockOrderAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		switch path {
		case TokenPath:
			m.TokenRequests++
		case SearchPath:
			m.SearchRequests++
		}
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetToken configures the issued token. A nil expiresIn omits the field.
func (m *MockOrderAPI) SetToken(token string, expiresIn *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expiresIn = expiresIn
}

// SetPages configures the search pages. Indices past the end return an empty page.
func (m *MockOrderAPI) SetPages(pages ...MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = pages
}

// GetTokenRequests returns the number of token exchanges served.
func (m *MockOrderAPI) GetTokenRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TokenRequests
}

// GetSearchRequests returns the number of search requests served.
func (m *MockOrderAPI) GetSearchRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SearchRequests
}

// GetLastAuthorization returns the Authorization header of the last search request.
func (m *MockOrderAPI) GetLastAuthorization() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastAuthorization
}

// GetPayloads returns the decoded search payloads in request order.
func (m *MockOrderAPI) GetPayloads() []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]map[string]any, len(m.Payloads))
	copy(out, m.Payloads)
	return out
}

func (m *MockOrderAPI) tokenHandler(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	_ = json.NewDecoder(r.Body).Decode(&req)

	m.mu.Lock()
	m.TokenRequests++
	m.LastTokenRequest = req
	body := map[string]any{"access_token": m.token}
	if m.expiresIn != nil {
		body["expires_in"] = *m.expiresIn
	}
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

func (m *MockOrderAPI) searchHandler(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	pageIndex := 0
	if p, ok := payload["Page"].(float64); ok {
		pageIndex = int(p)
	}

	m.mu.Lock()
	m.SearchRequests++
	m.LastAuthorization = r.Header.Get("Authorization")
	m.Payloads = append(m.Payloads, payload)
	var page MockPage
	if pageIndex < len(m.pages) {
		page = m.pages[pageIndex]
	}
	m.mu.Unlock()

	data := page.Data
	if data == "" {
		data = "[]"
	}
	body := fmt.Sprintf(`{"data":%s`, data)
	if page.TotalCount != nil {
		body += fmt.Sprintf(`,"totalCount":%d`, *page.TotalCount)
	}
	body += "}"

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Total is a helper for MockPage.TotalCount.
func Total(n int) *int {
	return &n
}

// ExpiresIn is a helper for SetToken.
func ExpiresIn(seconds float64) *float64 {
	return &seconds
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewUnauthorizedResponse creates a 401 Unauthorized response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error": "invalid_client"}`,
	}
}
