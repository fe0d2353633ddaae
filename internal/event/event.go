// Package event parses object-storage upload notifications into processing
// requests. Uploads land under user_id/document_id/filename, which is the
// only coupling between the upload surface and the pipeline.
package event

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/visapath/i20-processor/internal/model"
)

// Notification is the S3-style event envelope delivered on object creation.
type Notification struct {
	Records []Record `json:"Records"`
}

// Record is a single object-created record.
type Record struct {
	EventName string `json:"eventName"`
	S3        S3     `json:"s3"`
}

// S3 carries the bucket and object of one record.
type S3 struct {
	Bucket Bucket `json:"bucket"`
	Object Object `json:"object"`
}

// Bucket names the bucket the object landed in.
type Bucket struct {
	Name string `json:"name"`
}

// Object carries the object key.
type Object struct {
	Key string `json:"key"`
}

// Request is one fully identified document to process.
type Request struct {
	UserID     string
	DocumentID string
	Location   model.DocumentLocation
}

// Parse decodes a notification payload and returns the processing request
// for its first record. Malformed envelopes and keys are rejected; nothing
// is processed on a bad event.
func Parse(payload []byte) (*Request, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, eris.Wrap(err, "event: decode notification")
	}

	if len(n.Records) == 0 {
		return nil, eris.New("event: notification has no records")
	}

	rec := n.Records[0]
	if rec.S3.Bucket.Name == "" || rec.S3.Object.Key == "" {
		return nil, eris.New("event: record missing bucket or key")
	}

	userID, documentID, err := SplitKey(rec.S3.Object.Key)
	if err != nil {
		return nil, err
	}

	return &Request{
		UserID:     userID,
		DocumentID: documentID,
		Location: model.DocumentLocation{
			Bucket: rec.S3.Bucket.Name,
			Key:    rec.S3.Object.Key,
		},
	}, nil
}

// SplitKey extracts the user and document IDs from an object key of the form
// user_id/document_id/filename.
func SplitKey(key string) (userID, documentID string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return "", "", eris.Errorf("event: invalid object key format: %q", key)
	}
	return parts[0], parts[1], nil
}
