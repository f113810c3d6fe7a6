package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/hirevet/advisor/backend/internal/config"
	"github.com/hirevet/advisor/backend/internal/model/chat"
)

var (
	// ErrGenerationFailed covers every backend failure: auth, quota, network,
	// malformed response. Callers attach partial-output context.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrTranscriptCorrupt signals that the stored turn order violates the
	// user/assistant alternation contract. This is a data-integrity bug to
	// surface, never to repair here.
	ErrTranscriptCorrupt = errors.New("transcript order corrupt")
)

// Client drives one streaming exchange with the generation backend per
// submitted turn.
type Client struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewClient builds the backend chat model and compiles the generation chain.
func NewClient(ctx context.Context, cfg config.ModelConfig) (*Client, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("ai: create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("ai: compile chain: %w", err)
	}

	return &Client{chatModel: chatModel, chain: runnable}, nil
}

// Stream starts one streaming generation over the ordered conversation turns.
// The turns exclude the system turn (passed separately as instruction) and
// must satisfy ValidateTurns. The returned reader is single-consumption and
// forward-only.
func (c *Client) Stream(ctx context.Context, instruction string, turns []chat.Turn) (*schema.StreamReader[*schema.Message], error) {
	input, err := buildChainInput(instruction, turns)
	if err != nil {
		return nil, err
	}

	stream, err := c.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("ai: stream: %w: %v", ErrGenerationFailed, err)
	}

	log.Debug().Int("turns", len(turns)).Msg("ai: stream opened")
	return stream, nil
}

// Ping issues a minimal one-shot generation to verify backend reachability.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage("ping")}); err != nil {
		return fmt.Errorf("ai: ping: %w: %v", ErrGenerationFailed, err)
	}
	return nil
}

func buildChainInput(instruction string, turns []chat.Turn) (map[string]any, error) {
	if err := ValidateTurns(turns); err != nil {
		return nil, err
	}

	last := len(turns) - 1
	history := make([]*schema.Message, 0, last)
	for _, turn := range turns[:last] {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}

	return map[string]any{
		"system":  instruction,
		"history": history,
		"query":   turns[last].Content,
	}, nil
}

// ValidateTurns enforces the transcript contract: user first, no system
// rows, no back-to-back assistant turns, and the sequence ends with the user
// turn being answered. Consecutive user turns are legal: a generation that
// failed before producing output leaves its user row unanswered, and the
// retry's user row follows it.
func ValidateTurns(turns []chat.Turn) error {
	if len(turns) == 0 {
		return fmt.Errorf("ai: empty turn sequence: %w", ErrTranscriptCorrupt)
	}

	for i, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
		case chat.RoleAssistant:
			if i == 0 {
				return fmt.Errorf("ai: assistant turn cannot open the conversation: %w", ErrTranscriptCorrupt)
			}
			if turns[i-1].Role == chat.RoleAssistant {
				return fmt.Errorf("ai: consecutive assistant turns at %d: %w", i, ErrTranscriptCorrupt)
			}
		default:
			return fmt.Errorf("ai: turn %d has role %q: %w", i, turn.Role, ErrTranscriptCorrupt)
		}
	}

	if turns[len(turns)-1].Role != chat.RoleUser {
		return fmt.Errorf("ai: sequence must end with a user turn: %w", ErrTranscriptCorrupt)
	}
	return nil
}
