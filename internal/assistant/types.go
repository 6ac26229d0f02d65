// Package assistant drives the remote LLM thread/run lifecycle for one
// conversational turn: context assembly, run polling, tool dispatch, and
// answer extraction.
package assistant

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zapdesk/zapdesk/internal/users"
)

// FallbackMessage is returned to the user when the backend cannot produce
// an answer. It is never persisted as an interaction.
const FallbackMessage = "Sorry, I'm having trouble processing your request. Please try again later."

// runFailedMessage is the user-visible text when the backend reports a
// failed run; the backend error itself only reaches the logs.
const runFailedMessage = "Sorry, I encountered an error while processing your request."

// BackendClient is the slice of the OpenAI assistants API the orchestrator
// drives. *openai.Client satisfies it; tests substitute a fake.
type BackendClient interface {
	CreateAssistant(ctx context.Context, request openai.AssistantRequest) (openai.Assistant, error)
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, request openai.SubmitToolOutputsRequest) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

// UserStore is the profile/history slice the orchestrator reads and the
// interaction log it appends to.
type UserStore interface {
	GetByProfileID(ctx context.Context, profileID string) (users.User, error)
	RecentInteractions(ctx context.Context, profileID string, limit int) ([]users.Interaction, error)
	AppendInteraction(ctx context.Context, profileID, question, response string) error
}

// Dataset answers analyze_data tool calls and contributes a summary to the
// conversation context.
type Dataset interface {
	Loaded() bool
	Describe() (string, error)
	Analyze(query string) string
}

// AudioTools exposes the voice sub-pipeline to handle_audio tool calls.
type AudioTools interface {
	Download(ctx context.Context, mediaID string) (string, error)
	Transcribe(ctx context.Context, path string) (string, error)
	Generate(ctx context.Context, text, language string) (string, error)
}
