package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/visapath/i20-processor/internal/model"
	"github.com/visapath/i20-processor/pkg/anthropic"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractText(ctx context.Context, bucket, key string) (string, error) {
	args := m.Called(ctx, bucket, key)
	return args.String(0), args.Error(1)
}

type mockAIClient struct {
	mock.Mock
}

func (m *mockAIClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockSink struct {
	mock.Mock
	updates []model.StatusUpdate
}

func (m *mockSink) UpdateStatus(ctx context.Context, userID, documentID string, update model.StatusUpdate) error {
	m.updates = append(m.updates, update)
	args := m.Called(ctx, userID, documentID, update)
	return args.Error(0)
}

// textResponse wraps a raw model reply in a MessageResponse.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:         "msg_test",
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
	}
}
