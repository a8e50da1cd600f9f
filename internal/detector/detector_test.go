package detector

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:             baseURL,
		Timeout:             5,
		ConfidenceThreshold: 0.3,
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:8000"))
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = NewClient(&Config{Timeout: 5, ConfidenceThreshold: 0.3})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = NewClient(&Config{BaseURL: "http://localhost:8000", Timeout: 5, ConfidenceThreshold: 1.5})
	assert.Error(t, err)
}

func TestClient_Detect_FiltersLowConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "page_001.png", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"detections": [
				{"x": 10.4, "y": 20.6, "width": 100.0, "height": 50.0, "confidence": 0.95},
				{"x": 300, "y": 40, "width": 80, "height": 60, "confidence": 0.12},
				{"x": 150, "y": 200, "width": 90, "height": 45, "confidence": 0.30}
			]
		}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	units, err := client.Detect(context.Background(), []byte{0x89, 0x50, 0x4E, 0x47}, "page_001.png")
	require.NoError(t, err)

	// The 0.12 detection is below the 0.3 threshold; 0.30 itself passes.
	require.Len(t, units, 2)
	assert.Equal(t, 10, units[0].BoundingBox.X)
	assert.Equal(t, 21, units[0].BoundingBox.Y)
	assert.Equal(t, 100, units[0].BoundingBox.Width)
	assert.Equal(t, 50, units[0].BoundingBox.Height)
	assert.Equal(t, 0.95, units[0].Confidence)
	assert.Equal(t, 0.30, units[1].Confidence)
	assert.Zero(t, units[0].ReadingIndex)
}

func TestClient_Detect_EmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detections": []}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	units, err := client.Detect(context.Background(), []byte{0x01}, "page_001.png")
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestClient_Detect_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Detect(context.Background(), []byte{0x01}, "page_001.png")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClient_Detect_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Detect(context.Background(), []byte{0x01}, "page_001.png")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}
