package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const defaultInstructions = "You are a helpful assistant. Answer user questions clearly and concisely."

// toolDefinitions declares the local capabilities the remote model may
// call back into during a run.
func toolDefinitions() []openai.AssistantTool {
	return []openai.AssistantTool{
		functionTool("get_user_history", "Retrieve user interaction history", `{
			"type": "object",
			"properties": {
				"profile_id": {"type": "string"}
			},
			"required": ["profile_id"]
		}`),
		functionTool("get_user_profile", "Retrieve user profile information", `{
			"type": "object",
			"properties": {
				"profile_id": {"type": "string"}
			},
			"required": ["profile_id"]
		}`),
		functionTool("handle_audio", "Process audio operations (download, transcribe, generate)", `{
			"type": "object",
			"properties": {
				"operation": {"type": "string", "enum": ["download", "transcribe", "generate"]},
				"audio_id": {"type": "string"},
				"text": {"type": "string"},
				"lang": {"type": "string", "default": "pt"}
			},
			"required": ["operation"]
		}`),
		functionTool("analyze_data", "Analyze the auxiliary dataset based on a query", `{
			"type": "object",
			"properties": {
				"query": {"type": "string"}
			},
			"required": ["query"]
		}`),
	}
}

func functionTool(name, description, schema string) openai.AssistantTool {
	return openai.AssistantTool{
		Type: openai.AssistantToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  json.RawMessage(schema),
		},
	}
}

// ensureAssistant lazily creates the remote assistant once per process and
// caches its id. When creation fails, a configured fallback id keeps the
// orchestrator serviceable.
func (o *Orchestrator) ensureAssistant(ctx context.Context) (string, error) {
	o.assistantMu.Lock()
	defer o.assistantMu.Unlock()

	if o.assistantID != "" {
		return o.assistantID, nil
	}

	name := "WhatsApp Support Assistant"
	instructions := o.loadInstructions()
	created, err := o.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        o.model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        toolDefinitions(),
	})
	if err != nil {
		if o.fallbackAssistantID != "" {
			o.logger.Warn("assistant creation failed, using fallback id", slog.Any("error", err))
			o.assistantID = o.fallbackAssistantID
			return o.assistantID, nil
		}
		return "", fmt.Errorf("create assistant: %w", err)
	}

	o.logger.Info("assistant created", slog.String("assistant_id", created.ID))
	o.assistantID = created.ID
	return o.assistantID, nil
}

func (o *Orchestrator) loadInstructions() string {
	if o.instructionsPath == "" {
		return defaultInstructions
	}
	data, err := os.ReadFile(o.instructionsPath)
	if err != nil {
		o.logger.Warn("instructions file not readable, using default",
			slog.String("path", o.instructionsPath), slog.Any("error", err))
		return defaultInstructions
	}
	return string(data)
}
