package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/visapath/i20-processor/internal/storage"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "pixtral-large-latest"
)

// MistralOCR extracts document text via the Mistral OCR API. Unlike the
// Textract provider it cannot read from the bucket itself, so it fetches the
// object bytes through an ObjectReader first.
type MistralOCR struct {
	reader   storage.ObjectReader
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewMistralOCR creates a MistralOCR extractor. If model is empty, the
// default is used.
func NewMistralOCR(reader storage.ObjectReader, apiKey, model string) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralOCR{
		reader:   reader,
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{},
	}
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// ExtractText fetches the object, sends it to Mistral OCR, and returns the
// page text in service order joined by newlines.
func (m *MistralOCR) ExtractText(ctx context.Context, bucket, key string) (string, error) {
	data, err := m.reader.Get(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", &Error{Kind: KindObjectNotFound, Err: eris.Wrapf(err, "ocr: fetch %s/%s", bucket, key)}
		}
		return "", &Error{Kind: KindService, Err: eris.Wrapf(err, "ocr: fetch %s/%s", bucket, key)}
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	reqBody := mistralOCRRequest{
		Model: m.model,
		Document: mistralOCRDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + encoded,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Kind: KindService, Err: eris.Wrap(err, "ocr: marshal mistral request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &Error{Kind: KindService, Err: eris.Wrap(err, "ocr: create mistral request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", &Error{Kind: KindService, Err: eris.Wrap(err, "ocr: mistral API call")}
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindService, Err: eris.Wrap(err, "ocr: read mistral response")}
	}

	if resp.StatusCode == http.StatusUnsupportedMediaType || resp.StatusCode == http.StatusUnprocessableEntity {
		return "", &Error{Kind: KindUnsupportedFormat, Err: eris.Errorf("ocr: mistral rejected document: %s", string(respBody))}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: KindService, Err: eris.Errorf("ocr: mistral API returned %d: %s", resp.StatusCode, string(respBody))}
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", &Error{Kind: KindService, Err: eris.Wrap(err, "ocr: unmarshal mistral response")}
	}

	var sb strings.Builder
	for i, page := range ocrResp.Pages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(page.Markdown)
	}

	return sb.String(), nil
}
