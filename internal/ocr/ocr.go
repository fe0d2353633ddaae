// Package ocr extracts raw text from uploaded documents. Providers sit
// behind the Extractor interface; failures carry a typed kind so the
// pipeline can report a distinct reason for each.
package ocr

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/rotisserie/eris"

	"github.com/visapath/i20-processor/internal/storage"
)

// Extractor extracts text from a stored document.
type Extractor interface {
	ExtractText(ctx context.Context, bucket, key string) (string, error)
}

// FailureKind classifies an extraction failure.
type FailureKind int

const (
	// KindService covers any provider error without a more specific kind.
	KindService FailureKind = iota
	// KindObjectNotFound means the document is missing or inaccessible.
	KindObjectNotFound
	// KindUnsupportedFormat means the provider cannot read this file type.
	KindUnsupportedFormat
)

// Error is a typed extraction failure.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Options configures provider selection.
type Options struct {
	Provider     string // "textract" (default) or "mistral"
	MistralKey   string
	MistralModel string
}

// NewExtractor creates an Extractor for the configured provider. The reader
// is only used by providers that fetch object bytes themselves.
func NewExtractor(opts Options, awsCfg aws.Config, reader storage.ObjectReader) (Extractor, error) {
	switch opts.Provider {
	case "textract", "":
		return NewTextract(textract.NewFromConfig(awsCfg)), nil
	case "mistral":
		if opts.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(reader, opts.MistralKey, opts.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", opts.Provider)
	}
}
