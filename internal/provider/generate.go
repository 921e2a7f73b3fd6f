package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Generate runs a single system+user completion against the model and returns
// the reply content. Per-call options (temperature, max tokens) override the
// model's construction-time defaults.
func Generate(ctx context.Context, m model.ToolCallingChatModel, system, user string, opts ...model.Option) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
	resp, err := m.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("provider: generate: %w", err)
	}
	return resp.Content, nil
}
