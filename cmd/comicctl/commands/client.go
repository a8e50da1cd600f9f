package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// jobStatus mirrors the job representation returned by the service API.
type jobStatus struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Message      string `json:"message"`
	TotalPages   int    `json:"total_pages"`
	CurrentPage  int    `json:"current_page"`
	IsMultiPage  bool   `json:"is_multi_page"`
	Error        string `json:"error"`
}

type languageEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *apiClient) submit(path, sourceLang, targetLang string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", err
	}
	_ = mw.WriteField("source_lang", sourceLang)
	_ = mw.WriteField("target_lang", targetLang)
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := c.http.Post(c.baseURL+"/api/translate", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", apiError(resp)
	}
	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", fmt.Errorf("malformed response: %w", err)
	}
	return accepted.JobID, nil
}

func (c *apiClient) status(jobID string) (*jobStatus, error) {
	resp, err := c.http.Get(c.baseURL + "/api/jobs/" + url.PathEscape(jobID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var job jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return &job, nil
}

func (c *apiClient) list() ([]jobStatus, error) {
	resp, err := c.http.Get(c.baseURL + "/api/jobs")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var jobs []jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return jobs, nil
}

func (c *apiClient) languages() (string, []languageEntry, error) {
	resp, err := c.http.Get(c.baseURL + "/api/languages")
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, apiError(resp)
	}
	var body struct {
		Auto      string          `json:"auto"`
		Languages []languageEntry `json:"languages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", nil, fmt.Errorf("malformed response: %w", err)
	}
	return body.Auto, body.Languages, nil
}

// download fetches the result artifact of a completed job. outputPath
// may be empty (use the server-provided filename in the current
// directory) or point at an existing directory.
func (c *apiClient) download(jobID, outputPath string) (string, error) {
	resp, err := c.http.Get(c.baseURL + "/api/jobs/" + url.PathEscape(jobID) + "/result")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	name := "translated_" + jobID
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if fn := params["filename"]; fn != "" {
			name = filepath.Base(fn)
		}
	}

	switch {
	case outputPath == "":
		outputPath = name
	default:
		if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
			outputPath = filepath.Join(outputPath, name)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(outputPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return outputPath, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("unexpected response: %s", resp.Status)
}
