package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/i18n"
)

// errRunTimeout aborts a run that exceeded the wall-clock budget.
var errRunTimeout = errors.New("run exceeded wall-clock timeout")

// errRunFailed marks a run the backend itself reported as failed; it is
// terminal for the whole Process call, not retried.
var errRunFailed = errors.New("run failed")

// Orchestrator owns the thread/run lifecycle against the LLM backend.
type Orchestrator struct {
	logger  *slog.Logger
	client  BackendClient
	store   UserStore
	dataset Dataset
	audio   AudioTools

	model               string
	fallbackAssistantID string
	instructionsPath    string
	runTimeout          time.Duration
	pollInterval        time.Duration
	maxAttempts         int
	historyLimit        int

	// sleep is swapped out in tests for an instant clock.
	sleep func(ctx context.Context, d time.Duration) error

	assistantMu sync.Mutex
	assistantID string
}

// NewOrchestrator creates a conversation orchestrator.
func NewOrchestrator(log *slog.Logger, client BackendClient, store UserStore, dataset Dataset, audio AudioTools, cfg config.OpenAIConfig) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		logger:              log.With(slog.String("service", "assistant")),
		client:              client,
		store:               store,
		dataset:             dataset,
		audio:               audio,
		model:               cfg.Model,
		fallbackAssistantID: cfg.FallbackAssistantID,
		instructionsPath:    cfg.InstructionsPath,
		runTimeout:          time.Duration(cfg.RunTimeoutSeconds) * time.Second,
		pollInterval:        time.Duration(cfg.PollIntervalMillis) * time.Millisecond,
		maxAttempts:         cfg.MaxAttempts,
		historyLimit:        cfg.HistoryLimit,
		sleep:               sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Process answers one user question. It tries the canned table first, then
// drives up to maxAttempts full thread/run cycles against the backend.
// Exhausted retries and backend-reported failures degrade to a generic
// fallback string; only real answers are persisted as interactions.
func (o *Orchestrator) Process(ctx context.Context, profileID, question string) (string, error) {
	language := i18n.DefaultLanguage
	if user, err := o.store.GetByProfileID(ctx, profileID); err == nil && user.Language != "" {
		language = user.Language
	}

	if category := classifyQuestion(question); category != "" {
		answer := cannedResponse(category, language)
		if answer != "" {
			o.recordInteraction(ctx, profileID, question, answer)
			return answer, nil
		}
	}

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		answer, err := o.runOnce(ctx, profileID, question)
		if err == nil {
			o.recordInteraction(ctx, profileID, question, answer)
			return answer, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if errors.Is(err, errRunFailed) || errors.Is(err, errRunTimeout) {
			// the backend made a decision; a fresh thread won't help
			o.logger.Error("run abandoned", slog.String("profile_id", profileID), slog.Any("error", err))
			return runFailedMessage, nil
		}

		o.logger.Error("process attempt failed",
			slog.Int("attempt", attempt),
			slog.String("profile_id", profileID),
			slog.Any("error", err))
		if attempt < o.maxAttempts {
			if err := o.sleep(ctx, 2*time.Second); err != nil {
				return "", err
			}
		}
	}

	return FallbackMessage, nil
}

// runOnce performs one full create-thread-through-resolve-run cycle.
func (o *Orchestrator) runOnce(ctx context.Context, profileID, question string) (string, error) {
	assistantID, err := o.ensureAssistant(ctx)
	if err != nil {
		return "", err
	}

	thread, err := o.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	if _, err := o.client.CreateMessage(ctx, thread.ID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	}); err != nil {
		return "", fmt.Errorf("append question: %w", err)
	}

	if contextText := o.buildContext(ctx, profileID); contextText != "" {
		if _, err := o.client.CreateMessage(ctx, thread.ID, openai.MessageRequest{
			Role:    openai.ChatMessageRoleUser,
			Content: "Context information: " + contextText,
		}); err != nil {
			return "", fmt.Errorf("append context: %w", err)
		}
	}

	run, err := o.client.CreateRun(ctx, thread.ID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	return o.resolveRun(ctx, profileID, thread.ID, run.ID)
}

// resolveRun polls the run to completion, dispatching tool calls whenever
// the backend requires action. The loop is bounded by the configured
// wall-clock timeout; requires_action is re-entrant.
func (o *Orchestrator) resolveRun(ctx context.Context, profileID, threadID, runID string) (string, error) {
	deadline := time.Now().Add(o.runTimeout)

	for {
		// checked every round, so a backend stuck in requires_action
		// cannot drive tool dispatch past the budget
		if time.Now().After(deadline) {
			return "", errRunTimeout
		}

		run, err := o.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return "", fmt.Errorf("retrieve run: %w", err)
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return o.latestAssistantMessage(ctx, threadID)

		case openai.RunStatusRequiresAction:
			if err := o.submitToolOutputs(ctx, profileID, threadID, runID, run); err != nil {
				return "", err
			}

		case openai.RunStatusFailed:
			if run.LastError != nil {
				o.logger.Error("run failed",
					slog.String("run_id", runID),
					slog.String("code", string(run.LastError.Code)),
					slog.String("message", run.LastError.Message))
			}
			return "", errRunFailed

		case openai.RunStatusQueued, openai.RunStatusInProgress:
			if err := o.sleep(ctx, o.pollInterval); err != nil {
				return "", err
			}

		default:
			o.logger.Warn("unexpected run status",
				slog.String("run_id", runID),
				slog.String("status", string(run.Status)))
			if err := o.sleep(ctx, o.pollInterval); err != nil {
				return "", err
			}
		}
	}
}

func (o *Orchestrator) submitToolOutputs(ctx context.Context, profileID, threadID, runID string, run openai.Run) error {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return fmt.Errorf("run %s requires action without tool calls", runID)
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		result := o.executeTool(ctx, profileID, call)
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: call.ID,
			Output:     result,
		})
	}

	if _, err := o.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	}); err != nil {
		return fmt.Errorf("submit tool outputs: %w", err)
	}
	return nil
}

// latestAssistantMessage extracts the newest assistant reply text from the
// thread.
func (o *Orchestrator) latestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := 10
	order := "desc"
	list, err := o.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, content := range msg.Content {
			if content.Text != nil && content.Text.Value != "" {
				return content.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("no assistant message in thread %s", threadID)
}

// recordInteraction appends the answered turn; a store failure must not
// cost the user their already-computed answer.
func (o *Orchestrator) recordInteraction(ctx context.Context, profileID, question, response string) {
	if err := o.store.AppendInteraction(ctx, profileID, question, response); err != nil {
		o.logger.Error("persist interaction failed",
			slog.String("profile_id", profileID),
			slog.Any("error", err))
	}
}
