package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visapath/i20-processor/internal/storage"
)

type fakeTextract struct {
	out *textract.AnalyzeDocumentOutput
	err error
}

func (f *fakeTextract) AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error) {
	return f.out, f.err
}

func lineBlock(text string) types.Block {
	return types.Block{BlockType: types.BlockTypeLine, Text: aws.String(text)}
}

func TestTextract_JoinsLineBlocks(t *testing.T) {
	client := &fakeTextract{
		out: &textract.AnalyzeDocumentOutput{
			Blocks: []types.Block{
				lineBlock("SEVIS ID: N0012345678"),
				{BlockType: types.BlockTypeWord, Text: aws.String("ignored")},
				lineBlock("Northeastern University"),
				{BlockType: types.BlockTypeLine}, // nil text skipped
			},
		},
	}

	text, err := NewTextract(client).ExtractText(context.Background(), "docs", "u1/d1/i20.pdf")
	require.NoError(t, err)
	assert.Equal(t, "SEVIS ID: N0012345678\nNortheastern University", text)
}

func TestTextract_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind FailureKind
	}{
		{"invalid object", &types.InvalidS3ObjectException{}, KindObjectNotFound},
		{"unsupported document", &types.UnsupportedDocumentException{}, KindUnsupportedFormat},
		{"other", eris.New("throttled"), KindService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTextract(&fakeTextract{err: tt.err}).ExtractText(context.Background(), "docs", "k")
			require.Error(t, err)

			var oe *Error
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.kind, oe.Kind)
		})
	}
}

type fakeReader struct {
	data []byte
	err  error
}

func (f *fakeReader) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	return f.data, f.err
}

func TestMistralOCR_ExtractText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Document.DocumentURL, "data:application/pdf;base64,")

		json.NewEncoder(w).Encode(mistralOCRResponse{
			Pages: []mistralOCRPage{
				{Index: 0, Markdown: "page one"},
				{Index: 1, Markdown: "page two"},
			},
		})
	}))
	defer ts.Close()

	m := NewMistralOCR(&fakeReader{data: []byte("%PDF-1.4")}, "test-key", "")
	m.endpoint = ts.URL

	text, err := m.ExtractText(context.Background(), "docs", "u1/d1/i20.pdf")
	require.NoError(t, err)
	assert.Equal(t, "page one\npage two", text)
}

func TestMistralOCR_ObjectNotFound(t *testing.T) {
	m := NewMistralOCR(&fakeReader{err: storage.ErrNotFound}, "test-key", "")

	_, err := m.ExtractText(context.Background(), "docs", "missing")
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindObjectNotFound, oe.Kind)
}

func TestMistralOCR_UnsupportedFormat(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot parse document", http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	m := NewMistralOCR(&fakeReader{data: []byte("not a pdf")}, "test-key", "")
	m.endpoint = ts.URL

	_, err := m.ExtractText(context.Background(), "docs", "k")
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindUnsupportedFormat, oe.Kind)
}

func TestNewExtractor_ProviderSwitch(t *testing.T) {
	reader := &fakeReader{}

	ext, err := NewExtractor(Options{Provider: "mistral", MistralKey: "k"}, aws.Config{}, reader)
	require.NoError(t, err)
	assert.IsType(t, &MistralOCR{}, ext)

	_, err = NewExtractor(Options{Provider: "mistral"}, aws.Config{}, reader)
	assert.Error(t, err)

	_, err = NewExtractor(Options{Provider: "tesseract"}, aws.Config{}, reader)
	assert.Error(t, err)
}
