package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zapdesk/zapdesk/internal/i18n"
	"github.com/zapdesk/zapdesk/internal/users"
	"github.com/zapdesk/zapdesk/internal/whatsapp"
)

// transcriptionFallback replaces the question when a voice note cannot be
// turned into text.
const transcriptionFallback = "I couldn't transcribe your audio. Please try sending a text message."

// emptyTextPrompt answers an active user's text message with no body.
const emptyTextPrompt = "Please send a text message."

// errSkip marks a message that produces no reply at all (duplicate
// delivery).
var errSkip = errors.New("message skipped")

// Reply is one outbound text pending delivery.
type Reply struct {
	To   string
	Text string
}

// UserStore is the slice of the user service the processor drives during
// onboarding.
type UserStore interface {
	GetOrCreate(ctx context.Context, phoneNumber, name string) (users.User, error)
	AcceptConsent(ctx context.Context, profileID string) error
	UpdateEmail(ctx context.Context, profileID, email string) error
}

// Conversation answers one question for an active user.
type Conversation interface {
	Process(ctx context.Context, profileID, question string) (string, error)
}

// VoicePipeline turns a channel media id into transcription text.
type VoicePipeline interface {
	HandleAudio(ctx context.Context, mediaID string) (string, error)
}

// Processor is the webhook dispatcher: it fans a webhook payload out into
// per-message handling and collects the replies for the caller to deliver.
type Processor struct {
	logger       *slog.Logger
	store        UserStore
	conversation Conversation
	voice        VoicePipeline
	dedup        *Deduper
	locks        *keyedMutex
}

// NewProcessor creates the webhook dispatcher. The dedup filter is built
// once at startup and handed in so its window survives across payloads.
func NewProcessor(log *slog.Logger, store UserStore, conversation Conversation, voice VoicePipeline, dedup *Deduper) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		logger:       log.With(slog.String("service", "inbound")),
		store:        store,
		conversation: conversation,
		voice:        voice,
		dedup:        dedup,
		locks:        newKeyedMutex(),
	}
}

// Dispatch walks every message in the payload and returns the replies to
// send. Malformed or empty payload paths yield an empty slice; a failure
// on one message never aborts the others.
func (p *Processor) Dispatch(ctx context.Context, payload whatsapp.WebhookPayload) []Reply {
	var replies []Reply

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			if len(value.Statuses) > 0 {
				// delivery-status callback, nothing to answer
				continue
			}

			for _, raw := range value.Messages {
				reply, err := p.handleMessage(ctx, raw, value.Contacts)
				if errors.Is(err, errSkip) {
					continue
				}
				if err != nil {
					p.logger.Error("message handling failed",
						slog.String("message_id", raw.ID),
						slog.String("from", raw.From),
						slog.Any("error", err))
					continue
				}
				replies = append(replies, reply)
			}
		}
	}

	return replies
}

// handleMessage runs one message through normalization, dedup, onboarding,
// and content routing.
func (p *Processor) handleMessage(ctx context.Context, raw whatsapp.RawMessage, contacts []whatsapp.Contact) (Reply, error) {
	msg := Normalize(raw, contacts)

	if msg.ID == "" || msg.From == "" {
		return Reply{}, fmt.Errorf("message missing id or sender")
	}
	if !p.dedup.MarkIfNew(msg.ID) {
		p.logger.Info("duplicate delivery dropped", slog.String("message_id", msg.ID))
		return Reply{}, errSkip
	}

	// serialize per sender so onboarding reads and writes cannot
	// interleave between two of their messages
	unlock := p.locks.lock(msg.From)
	defer unlock()

	user, err := p.store.GetOrCreate(ctx, msg.From, msg.SenderName)
	if err != nil {
		return Reply{}, fmt.Errorf("get or create user: %w", err)
	}

	text, err := p.route(ctx, user, msg)
	if err != nil {
		return Reply{}, err
	}
	return Reply{To: msg.From, Text: text}, nil
}

func (p *Processor) route(ctx context.Context, user users.User, msg Message) (string, error) {
	lang := user.Language
	if !i18n.Supported(lang) {
		lang = i18n.DefaultLanguage
	}

	switch stageOf(user) {
	case StageAwaitingConsent:
		if msg.Kind == KindText && isConsentToken(msg.Text) {
			if err := p.store.AcceptConsent(ctx, user.ProfileID); err != nil {
				return "", fmt.Errorf("accept consent: %w", err)
			}
			return i18n.Message(i18n.KeyTermsAccepted, lang), nil
		}
		// a freshly created record still carries the insert timestamp
		// on both columns; that marks this as the first contact
		if user.CreatedAt.Equal(user.UpdatedAt) {
			return i18n.Message(i18n.KeyWelcome, lang), nil
		}
		return i18n.Message(i18n.KeyTermsRequired, lang), nil

	case StageAwaitingEmail:
		if msg.Kind == KindText && isValidEmail(msg.Text) {
			if err := p.store.UpdateEmail(ctx, user.ProfileID, msg.Text); err != nil {
				return "", fmt.Errorf("update email: %w", err)
			}
			return i18n.Message(i18n.KeyEmailSaved, lang), nil
		}
		return i18n.Message(i18n.KeyRequestEmail, lang), nil

	default:
		return p.routeActive(ctx, user, msg, lang)
	}
}

// routeActive handles content for fully onboarded users.
func (p *Processor) routeActive(ctx context.Context, user users.User, msg Message, lang string) (string, error) {
	switch msg.Kind {
	case KindText:
		if strings.TrimSpace(msg.Text) == "" {
			return emptyTextPrompt, nil
		}
		return p.conversation.Process(ctx, user.ProfileID, msg.Text)

	case KindAudio:
		transcription, err := p.voice.HandleAudio(ctx, msg.MediaID)
		if err != nil || transcription == "" {
			if err != nil {
				p.logger.Error("audio transcription failed",
					slog.String("message_id", msg.ID),
					slog.Any("error", err))
			}
			return transcriptionFallback, nil
		}

		answer, err := p.conversation.Process(ctx, user.ProfileID, transcription)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🎤 *Transcrição:* %s\n\n🤖 *Resposta:* %s", transcription, answer), nil

	default:
		p.logger.Info("unsupported message kind",
			slog.String("message_id", msg.ID),
			slog.String("kind", msg.Kind.String()))
		return i18n.Message(i18n.KeyUnsupported, lang), nil
	}
}
