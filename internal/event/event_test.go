package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validNotification = `{
  "Records": [
    {
      "eventName": "ObjectCreated:Put",
      "s3": {
        "bucket": {"name": "immigration-documents"},
        "object": {"key": "user-123/doc-456/i20.pdf"}
      }
    }
  ]
}`

func TestParse_ValidNotification(t *testing.T) {
	req, err := Parse([]byte(validNotification))
	require.NoError(t, err)

	assert.Equal(t, "user-123", req.UserID)
	assert.Equal(t, "doc-456", req.DocumentID)
	assert.Equal(t, "immigration-documents", req.Location.Bucket)
	assert.Equal(t, "user-123/doc-456/i20.pdf", req.Location.Key)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "not json at all"},
		{"empty records", `{"Records": []}`},
		{"missing s3 block", `{"Records": [{"eventName": "ObjectCreated:Put"}]}`},
		{"missing bucket", `{"Records": [{"s3": {"object": {"key": "u/d/f.pdf"}}}]}`},
		{"missing key", `{"Records": [{"s3": {"bucket": {"name": "b"}}}]}`},
		{"bad key format", `{"Records": [{"s3": {"bucket": {"name": "b"}, "object": {"key": "orphan.pdf"}}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key     string
		userID  string
		docID   string
		wantErr bool
	}{
		{"u1/d1/i20.pdf", "u1", "d1", false},
		{"u1/d1/nested/i20.pdf", "u1", "d1", false},
		{"u1/d1", "", "", true},
		{"i20.pdf", "", "", true},
		{"//i20.pdf", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			userID, docID, err := SplitKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.userID, userID)
			assert.Equal(t, tt.docID, docID)
		})
	}
}
