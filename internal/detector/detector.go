package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MimeLyc/contextual-comic-translator/internal/comic"
)

// Config holds the configuration for the bubble detection service client
//
// Environment Variables (read by internal/config):
// - DETECTOR_URL: Base URL of the detection service (default: http://localhost:8000)
// - DETECTOR_TIMEOUT: Request timeout in seconds (default: 60)
// - DETECTOR_CONF_THRESHOLD: Minimum confidence to keep a detection (default: 0.3)
type Config struct {
	BaseURL             string  `json:"base_url"`
	Timeout             int     `json:"timeout"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be between 0 and 1")
	}
	return nil
}

// Detection is one bounding box reported by the detection service.
// Coordinates are pixels in the uploaded image; the service may return
// fractional values, which are rounded when converted to units.
type Detection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Client calls the speech bubble detection service over HTTP
// The service exposes POST /detect accepting a multipart image upload
// Thread-safe for concurrent use
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new detection client with the given configuration
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config:  config,
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}, nil
}

// Detect uploads a page image and returns the speech bubble candidates
// whose confidence meets the configured threshold. The returned units
// carry bounding boxes and confidences only; reading order is assigned
// by the caller.
func (c *Client) Detect(ctx context.Context, image []byte, filename string) ([]comic.Unit, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detection service returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var parsed detectResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	units := make([]comic.Unit, 0, len(parsed.Detections))
	for _, d := range parsed.Detections {
		if d.Confidence < c.config.ConfidenceThreshold {
			continue
		}
		units = append(units, comic.Unit{
			BoundingBox: comic.BoundingBox{
				X:      int(math.Round(d.X)),
				Y:      int(math.Round(d.Y)),
				Width:  int(math.Round(d.Width)),
				Height: int(math.Round(d.Height)),
			},
			Confidence: d.Confidence,
		})
	}

	return units, nil
}
