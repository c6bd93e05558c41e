package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// FallbackAnswer is delivered to the chat whenever the completion API fails.
// Internal errors are logged, never echoed to the end user.
const FallbackAnswer = "Произошла ошибка при запросе к модели."

// Completer produces a single textual answer for an ordered transcript.
type Completer interface {
	Complete(ctx context.Context, transcript []Turn) (string, error)
}

// OpenAI is a Completer backed by the OpenAI chat completions API.
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	return &OpenAI{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

func (o *OpenAI) Complete(ctx context.Context, transcript []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript))
	for _, turn := range transcript {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	res, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    o.model,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", errors.New("openai completion returned no choices")
	}

	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

// Dispatcher submits transcripts to a Completer and shields callers from its
// failures: the caller always gets a string to deliver, never an error.
type Dispatcher struct {
	completer Completer
}

func NewDispatcher(completer Completer) *Dispatcher {
	return &Dispatcher{completer: completer}
}

// Reply returns the model's answer for the transcript, or FallbackAnswer if
// the call fails for any reason (timeout included). Failures are not retried.
func (d *Dispatcher) Reply(ctx context.Context, transcript []Turn) string {
	answer, err := d.completer.Complete(ctx, transcript)
	if err != nil {
		slog.Error("model completion failed", "error", err, "transcript_len", len(transcript))
		return FallbackAnswer
	}
	return answer
}
