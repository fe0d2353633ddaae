package ocr

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TextractAPI is the slice of the Textract client the extractor uses.
type TextractAPI interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// Textract extracts document text with AWS Textract, reading the object
// directly from its bucket/key. It makes a single call per document:
// failures are terminal here, not retried.
type Textract struct {
	client TextractAPI
}

// NewTextract creates a Textract extractor.
func NewTextract(client TextractAPI) *Textract {
	return &Textract{client: client}
}

// ExtractText analyzes the document and returns all recognized LINE blocks
// in service order, joined by newlines.
func (t *Textract) ExtractText(ctx context.Context, bucket, key string) (string, error) {
	out, err := t.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		FeatureTypes: []types.FeatureType{
			types.FeatureTypeForms,
			types.FeatureTypeTables,
		},
	})
	if err != nil {
		return "", classifyTextractError(err)
	}

	var lines []string
	for _, block := range out.Blocks {
		if block.BlockType != types.BlockTypeLine {
			continue
		}
		if block.Text != nil && *block.Text != "" {
			lines = append(lines, *block.Text)
		}
	}

	zap.L().Info("textract extraction completed",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("lines", len(lines)),
	)

	return strings.Join(lines, "\n"), nil
}

func classifyTextractError(err error) error {
	var invalidObj *types.InvalidS3ObjectException
	if errors.As(err, &invalidObj) {
		return &Error{Kind: KindObjectNotFound, Err: eris.Wrap(err, "ocr: textract cannot access object")}
	}

	var unsupported *types.UnsupportedDocumentException
	if errors.As(err, &unsupported) {
		return &Error{Kind: KindUnsupportedFormat, Err: eris.Wrap(err, "ocr: unsupported document type")}
	}

	return &Error{Kind: KindService, Err: eris.Wrap(err, "ocr: textract analyze document")}
}
