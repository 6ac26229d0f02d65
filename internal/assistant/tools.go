package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// toolArgs covers the union of the schemas in toolDefinitions; each tool
// reads only its own fields.
type toolArgs struct {
	ProfileID string `json:"profile_id"`
	Operation string `json:"operation"`
	AudioID   string `json:"audio_id"`
	Text      string `json:"text"`
	Lang      string `json:"lang"`
	Query     string `json:"query"`
}

// executeTool runs one requested function call and always returns a string
// the run can continue with. The model handles error text like any other
// tool output, so local failures are reported, not raised.
func (o *Orchestrator) executeTool(ctx context.Context, profileID string, call openai.ToolCall) string {
	name := call.Function.Name
	o.logger.Info("tool call",
		slog.String("tool", name),
		slog.String("profile_id", profileID))

	var args toolArgs
	if raw := call.Function.Arguments; raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
		}
	}
	// tool calls always act on the conversation owner, whatever the
	// model put in the arguments
	args.ProfileID = profileID

	switch name {
	case "get_user_history":
		return o.toolUserHistory(ctx, args)
	case "get_user_profile":
		return o.toolUserProfile(ctx, args)
	case "handle_audio":
		return o.toolHandleAudio(ctx, args)
	case "analyze_data":
		return o.toolAnalyzeData(args)
	default:
		return fmt.Sprintf("Unknown function: %s", name)
	}
}

func (o *Orchestrator) toolUserHistory(ctx context.Context, args toolArgs) string {
	history, err := o.store.RecentInteractions(ctx, args.ProfileID, o.historyLimit)
	if err != nil {
		return fmt.Sprintf("Error retrieving history: %v", err)
	}
	if len(history) == 0 {
		return "No previous interactions found."
	}
	return formatHistory(history)
}

func (o *Orchestrator) toolUserProfile(ctx context.Context, args toolArgs) string {
	user, err := o.store.GetByProfileID(ctx, args.ProfileID)
	if err != nil {
		return fmt.Sprintf("Error retrieving profile: %v", err)
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Sprintf("Error encoding profile: %v", err)
	}
	return string(encoded)
}

func (o *Orchestrator) toolHandleAudio(ctx context.Context, args toolArgs) string {
	if o.audio == nil {
		return "Error: audio processing is not available."
	}

	switch args.Operation {
	case "download":
		if args.AudioID == "" {
			return "Error: audio_id is required for download."
		}
		path, err := o.audio.Download(ctx, args.AudioID)
		if err != nil {
			return fmt.Sprintf("Error downloading audio: %v", err)
		}
		return fmt.Sprintf("Audio downloaded to %s", path)

	case "transcribe":
		if args.AudioID == "" {
			return "Error: audio_id is required for transcribe."
		}
		path, err := o.audio.Download(ctx, args.AudioID)
		if err != nil {
			return fmt.Sprintf("Error downloading audio: %v", err)
		}
		text, err := o.audio.Transcribe(ctx, path)
		if err != nil {
			return fmt.Sprintf("Error transcribing audio: %v", err)
		}
		return text

	case "generate":
		if strings.TrimSpace(args.Text) == "" {
			return "Error: text is required for generate."
		}
		lang := args.Lang
		if lang == "" {
			lang = "pt"
		}
		path, err := o.audio.Generate(ctx, args.Text, lang)
		if err != nil {
			return fmt.Sprintf("Error generating audio: %v", err)
		}
		return fmt.Sprintf("Audio generated at %s", path)

	default:
		return fmt.Sprintf("Error: unknown audio operation %q.", args.Operation)
	}
}

func (o *Orchestrator) toolAnalyzeData(args toolArgs) string {
	if o.dataset == nil || !o.dataset.Loaded() {
		return "No dataset is loaded for analysis."
	}
	if strings.TrimSpace(args.Query) == "" {
		return "Error: query is required for analyze_data."
	}
	return o.dataset.Analyze(args.Query)
}
