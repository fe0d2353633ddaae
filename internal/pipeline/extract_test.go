package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/visapath/i20-processor/internal/model"
	"github.com/visapath/i20-processor/internal/ocr"
)

var testLocation = model.DocumentLocation{Bucket: "docs", Key: "u1/d1/i20.pdf"}

func TestExtractText_Success(t *testing.T) {
	raw := strings.Repeat("I-20 form line\n", 20)

	me := new(mockExtractor)
	me.On("ExtractText", mock.Anything, "docs", "u1/d1/i20.pdf").Return(raw, nil)

	p := NewProcessor(me, nil, nil, nil)
	text, fail := p.extractText(context.Background(), testLocation)
	require.Nil(t, fail)
	assert.Equal(t, raw, text)
}

func TestExtractText_TooShort(t *testing.T) {
	me := new(mockExtractor)
	me.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).Return("I-20", nil)

	p := NewProcessor(me, nil, nil, nil)
	_, fail := p.extractText(context.Background(), testLocation)
	require.NotNil(t, fail)
	assert.Equal(t, model.ReasonTextTooShort, fail.Reason)
	assert.Equal(t, "Could not extract enough text (4 chars). Please upload a clear, readable PDF.", fail.Msg)
}

func TestExtractText_FailureReasons(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		reason  model.FailureReason
		message string
	}{
		{
			name:    "object not found",
			err:     &ocr.Error{Kind: ocr.KindObjectNotFound, Err: eris.New("no such key")},
			reason:  model.ReasonObjectNotFound,
			message: "Document not found or cannot be accessed. Please try uploading again.",
		},
		{
			name:    "unsupported format",
			err:     &ocr.Error{Kind: ocr.KindUnsupportedFormat, Err: eris.New("not a document")},
			reason:  model.ReasonUnsupportedFormat,
			message: "Document type not supported. Please upload a PDF file.",
		},
		{
			name:    "service error",
			err:     &ocr.Error{Kind: ocr.KindService, Err: eris.New("throttled")},
			reason:  model.ReasonServiceError,
			message: "Text extraction failed. Please try a different file or contact support.",
		},
		{
			name:    "untyped error",
			err:     eris.New("connection reset"),
			reason:  model.ReasonServiceError,
			message: "Text extraction failed. Please try a different file or contact support.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			me := new(mockExtractor)
			me.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).Return("", tt.err)

			p := NewProcessor(me, nil, nil, nil)
			_, fail := p.extractText(context.Background(), testLocation)
			require.NotNil(t, fail)
			assert.Equal(t, tt.reason, fail.Reason)
			assert.Equal(t, tt.message, fail.Msg)
			assert.Equal(t, model.StatusFailed, fail.Status())
			assert.Equal(t, model.StageTextExtraction, fail.Stage())
		})
	}
}
