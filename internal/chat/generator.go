// generator.go
//
// Generation pipeline: cache lookup, queued upstream call, cache fill.
// The handler hands it a conversation's history; it hands back cleaned
// content with the model's reasoning split out.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/contently-ai/contently/internal/gencache"
	"github.com/contently-ai/contently/internal/llm"
	"github.com/contently-ai/contently/internal/queue"
	"github.com/contently-ai/contently/internal/store"
)

// PriorityNormal is the queue priority for interactive chat requests.
// Room below and above is reserved for background and user-blocking work.
const PriorityNormal = 1

// Completer is the slice of the LLM client the generator needs.
type Completer interface {
	ChatCompletion(ctx context.Context, model string, messages []llm.Message) (string, error)
}

// ResultCache stores finished generations. *gencache.Cache satisfies it;
// Get reports a miss as gencache.ErrMiss.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Generation is one finished generation: the deliverable content and,
// for reasoning models, the <think> block that preceded it.
type Generation struct {
	Content  string
	Thinking *string
}

// Generator produces assistant replies. Upstream calls go through the
// request queue so concurrent conversations share the provider budget;
// results are cached so identical requests skip the provider entirely.
type Generator struct {
	LLM   Completer
	Queue *queue.Queue
	Cache ResultCache
}

// Generate builds the platform prompt, runs the completion through the
// queue, and returns the cleaned result. A cache hit bypasses the queue.
// Cache failures are logged and ignored -- generation must not depend
// on Redis being up.
func (g *Generator) Generate(ctx context.Context, model, platform string, history []store.Message) (*Generation, error) {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: llm.SystemPrompt(platform)})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}

	turns := make([]gencache.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = gencache.Turn{Role: m.Role, Content: m.Content}
	}
	key := gencache.Key(model, platform, turns)

	if cached, err := g.Cache.Get(ctx, key); err == nil {
		slog.Debug("generation cache hit", "model", model, "platform", platform)
		return finish(cached), nil
	} else if !errors.Is(err, gencache.ErrMiss) {
		slog.Warn("generation cache read failed", "err", err)
	}

	result, err := g.Queue.Do(ctx, PriorityNormal, func(ctx context.Context) (string, error) {
		raw, err := g.LLM.ChatCompletion(ctx, model, msgs)
		if err != nil {
			return "", err
		}
		return llm.Clean(raw), nil
	})
	if err != nil {
		return nil, err
	}

	if err := g.Cache.Set(ctx, key, result); err != nil {
		slog.Warn("generation cache write failed", "err", err)
	}
	return finish(result), nil
}

func finish(text string) *Generation {
	main, thinking := llm.ExtractThinking(text)
	return &Generation{Content: main, Thinking: thinking}
}
