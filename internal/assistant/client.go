package assistant

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/zapdesk/zapdesk/internal/config"
)

// NewBackendClient builds the real OpenAI client from configuration,
// honoring an alternate base URL for gateways and local test servers.
func NewBackendClient(cfg config.OpenAIConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
