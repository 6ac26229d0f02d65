package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zapdesk/zapdesk/internal/config"
)

// ErrMediaUnavailable indicates a media id could not be resolved to bytes.
var ErrMediaUnavailable = errors.New("media unavailable")

const maxMediaBytes int64 = 32 << 20 // Cloud API caps audio well below this

// Client calls the WhatsApp Cloud API for outbound messages and media
// retrieval.
type Client struct {
	logger        *slog.Logger
	httpClient    *http.Client
	baseURL       string
	apiToken      string
	phoneNumberID string
}

// NewClient creates a Cloud API client from config.
func NewClient(log *slog.Logger, cfg config.WhatsAppConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		logger:        log.With(slog.String("service", "whatsapp")),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       strings.TrimRight(cfg.GraphBaseURL, "/"),
		apiToken:      cfg.APIToken,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers a plain text message to the given recipient address.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload := sendTextRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, string(detail))
	}

	c.logger.Info("message sent", slog.String("to", to))
	return nil
}

type mediaLookupResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// FetchMedia resolves a media id to its raw bytes. The Cloud API requires
// two round trips: the id resolves to a short-lived URL, the URL to bytes.
// Both failure modes surface as ErrMediaUnavailable.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) ([]byte, error) {
	lookupURL := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	lookup, err := c.authorizedGet(ctx, lookupURL)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %v", ErrMediaUnavailable, mediaID, err)
	}

	var meta mediaLookupResponse
	if err := json.Unmarshal(lookup, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode lookup for %s: %v", ErrMediaUnavailable, mediaID, err)
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("%w: no url for media %s", ErrMediaUnavailable, mediaID)
	}

	data, err := c.authorizedGet(ctx, meta.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrMediaUnavailable, mediaID, err)
	}
	return data, nil
}

func (c *Client) authorizedGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
}
