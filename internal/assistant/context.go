package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zapdesk/zapdesk/internal/users"
)

// buildContext assembles the auxiliary turn submitted alongside the
// question: profile fields, recent history, and a dataset summary. Each
// part is best-effort; a missing part never blocks the run.
func (o *Orchestrator) buildContext(ctx context.Context, profileID string) string {
	var parts []string

	if user, err := o.store.GetByProfileID(ctx, profileID); err == nil {
		if encoded, err := json.Marshal(user); err == nil {
			parts = append(parts, "User information: "+string(encoded))
		}
	} else {
		o.logger.Warn("context profile lookup failed",
			slog.String("profile_id", profileID), slog.Any("error", err))
	}

	if history, err := o.store.RecentInteractions(ctx, profileID, o.historyLimit); err == nil && len(history) > 0 {
		parts = append(parts, "Previous conversation:\n"+formatHistory(history))
	}

	if o.dataset != nil && o.dataset.Loaded() {
		if summary, err := o.dataset.Describe(); err == nil && summary != "" {
			parts = append(parts, "Available data for analysis:\n"+summary)
		}
	}

	return strings.Join(parts, "\n\n")
}

// formatHistory renders interactions as alternating user/assistant lines,
// oldest first.
func formatHistory(history []users.Interaction) string {
	lines := make([]string, 0, len(history)*2)
	for _, turn := range history {
		lines = append(lines,
			fmt.Sprintf("User: %s", turn.Question),
			fmt.Sprintf("Assistant: %s", turn.Response))
	}
	return strings.Join(lines, "\n")
}
