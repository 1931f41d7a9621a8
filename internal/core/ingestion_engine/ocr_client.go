package ingestion_engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/models"
)

const DefaultOCRURL = "https://api.ocr.space/parse/image"

var _ core.DocumentExtractor = (*OCRSpaceClient)(nil)

// OCRSpaceClient sends scanned PDFs to the OCR.space parse endpoint.
type OCRSpaceClient struct {
	apiURL     string
	apiKey     string
	language   string
	httpClient *http.Client
}

func NewOCRSpaceClient(apiURL, apiKey, language string, httpClient *http.Client) *OCRSpaceClient {
	if apiURL == "" {
		apiURL = DefaultOCRURL
	}
	if language == "" {
		language = "spa"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OCRSpaceClient{apiURL: apiURL, apiKey: apiKey, language: language, httpClient: httpClient}
}

// Available reports whether an API key is configured.
func (c *OCRSpaceClient) Available() bool {
	return c != nil && c.apiKey != ""
}

type ocrParsedResult struct {
	ParsedText string `json:"ParsedText"`
}

type ocrResponse struct {
	ParsedResults         []ocrParsedResult `json:"ParsedResults"`
	IsErroredOnProcessing bool              `json:"IsErroredOnProcessing"`
	// ErrorMessage is a string or a list of strings depending on the failure.
	ErrorMessage interface{} `json:"ErrorMessage"`
}

func (c *OCRSpaceClient) Extract(ctx context.Context, data []byte) (*core.ExtractedText, error) {
	if !c.Available() {
		return nil, fmt.Errorf("ocr: api key not configured")
	}

	body, contentType, err := c.form(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ocr read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr api error: %d - %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed ocrResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ocr decode: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return nil, fmt.Errorf("ocr processing error: %s", errorMessage(parsed.ErrorMessage))
	}

	var text strings.Builder
	for _, r := range parsed.ParsedResults {
		text.WriteString(r.ParsedText)
		text.WriteString("\n")
	}
	return &core.ExtractedText{
		Text:   strings.TrimSpace(text.String()),
		Method: models.ExtractionOCR,
		Pages:  len(parsed.ParsedResults),
	}, nil
}

func (c *OCRSpaceClient) form(data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"apikey", c.apiKey},
		{"language", c.language},
		{"isOverlayRequired", "false"},
		{"detectOrientation", "true"},
		{"scale", "true"},
		{"OCREngine", "2"},
		{"isTable", "true"},
		{"filetype", "PDF"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("file", "document.pdf")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func errorMessage(v interface{}) string {
	switch m := v.(type) {
	case nil:
		return "unknown OCR error"
	case string:
		return m
	case []interface{}:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(m)
	}
}
