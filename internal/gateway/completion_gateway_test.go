package gateway

import (
	"context"
	"errors"
	"testing"

	"ai-chatbot-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingProvider struct {
	history []llm.Message
	options *llm.Options
	reply   string
	err     error
}

func (p *recordingProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	p.history = history
	p.options = llm.ApplyOptions(opts...)
	return p.reply, p.err
}

func (p *recordingProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *recordingProvider) ModelName() string {
	return "recording"
}

func TestCompletionGatewayBuildsExchange(t *testing.T) {
	provider := &recordingProvider{reply: "hi there"}
	g := NewCompletionGateway(provider)

	out, err := g.Complete(context.Background(), "You are a helpful assistant.", "hello", 0.3, 42)
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)

	require.Len(t, provider.history, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: "You are a helpful assistant."}, provider.history[0])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hello"}, provider.history[1])
	assert.InDelta(t, 0.3, provider.options.Temperature, 1e-9)
	assert.Equal(t, 42, provider.options.MaxTokens)
	assert.Equal(t, "recording", g.ModelName())
}

func TestCompletionGatewayPropagatesErrors(t *testing.T) {
	boom := errors.New("rate limited")
	g := NewCompletionGateway(&recordingProvider{err: boom})

	_, err := g.Complete(context.Background(), "sys", "hello", 0.7, 500)
	assert.ErrorIs(t, err, boom)
}

func TestCompletionGatewayRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	g := NewCompletionGateway(&recordingProvider{err: errors.New("timeout")})
	_, err := g.Complete(context.Background(), "sys", "hello", 0.7, 500)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "llm.complete", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "recording", attrs["llm.model"].AsString())
	assert.Equal(t, int64(500), attrs["llm.max_tokens"].AsInt64())
}
