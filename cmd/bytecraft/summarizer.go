// ABOUTME: Adapts the chat client into the context pipeline's summarizer capability.

package main

import (
	"context"

	"github.com/bytecraft-dev/bytecraft/llm"
)

type modelSummarizer struct {
	client   *llm.Client
	provider string
	model    string
}

func (s *modelSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Complete(ctx, s.provider, &llm.Request{
		Model:    s.model,
		Messages: []llm.Message{llm.UserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
