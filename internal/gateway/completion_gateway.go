package gateway

import (
	"context"

	"ai-chatbot-be/pkg/conversation"
	"ai-chatbot-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CompletionGateway adapts an llm.LLMProvider to a single system+user exchange.
// Each call is recorded as a span; without a configured tracer provider spans are no-ops.
type CompletionGateway struct {
	provider llm.LLMProvider
	tracer   trace.Tracer
}

var _ conversation.CompletionGateway = &CompletionGateway{}

func NewCompletionGateway(provider llm.LLMProvider) *CompletionGateway {
	return &CompletionGateway{
		provider: provider,
		tracer:   otel.Tracer("ai-chatbot-be/gateway"),
	}
}

func (g *CompletionGateway) Complete(ctx context.Context, systemInstruction string, userText string, temperature float64, maxTokens int) (string, error) {
	ctx, span := g.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.model", g.provider.ModelName()),
		attribute.Float64("llm.temperature", temperature),
		attribute.Int("llm.max_tokens", maxTokens),
		attribute.Int("llm.prompt_chars", len(userText)),
	))
	defer span.End()

	history := []llm.Message{
		{Role: llm.RoleSystem, Content: systemInstruction},
		{Role: llm.RoleUser, Content: userText},
	}
	reply, err := g.provider.Chat(ctx, history,
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(maxTokens),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.reply_chars", len(reply)))
	return reply, nil
}

func (g *CompletionGateway) ModelName() string {
	return g.provider.ModelName()
}
