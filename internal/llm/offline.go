package llm

import (
	"context"
	"strings"
)

// OfflineReply is what the offline adapter answers with.
const OfflineReply = "I'm running without a connection to a language model right now, so I can't give " +
	"personalised advice. In general: keep an emergency fund of three to six months of expenses, " +
	"pay down high-interest debt first, and invest regularly in diversified, low-cost funds that " +
	"match your risk tolerance."

// OfflineAdapter answers every request with a fixed reply. It lets the server
// run in mock-data mode without credentials.
type OfflineAdapter struct{}

func NewOfflineAdapter() *OfflineAdapter {
	return &OfflineAdapter{}
}

func (a *OfflineAdapter) Name() string {
	return "offline"
}

func (a *OfflineAdapter) IsAvailable() bool {
	return true
}

func (a *OfflineAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	input := len(req.System)
	for _, m := range req.Messages {
		input += len(m.Content)
	}
	return &Response{
		Text:         OfflineReply,
		Model:        "offline",
		InputTokens:  input / 4,
		OutputTokens: len(strings.Fields(OfflineReply)),
	}, nil
}
