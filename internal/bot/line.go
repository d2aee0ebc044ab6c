package bot

import (
	"errors"
	"fmt"
	"net/http"

	"scam-quiz-bot/internal/models"
	"scam-quiz-bot/internal/quiz"
	"scam-quiz-bot/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"
)

// lineReplier is the slice of the messaging API the adapter needs.
// Narrowed to an interface so handler tests can run without the network.
type lineReplier interface {
	ReplyMessage(request *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// LineBot is the LINE webhook adapter: it verifies delivery signatures,
// narrows events down to (conversationKey, text), runs them through the
// quiz engine, applies the engine's writes, and relays the replies.
type LineBot struct {
	engine        *quiz.Engine
	store         storage.Storage
	channelSecret string
	client        lineReplier
	logger        *zap.Logger
}

func NewLineBot(channelSecret, channelToken string, engine *quiz.Engine, store storage.Storage, logger *zap.Logger) (*LineBot, error) {
	client, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE client: %w", err)
	}

	return &LineBot{
		engine:        engine,
		store:         store,
		channelSecret: channelSecret,
		client:        client,
		logger:        logger,
	}, nil
}

// Handler returns the HTTP surface: the signed webhook endpoint and the
// liveness probe.
func (b *LineBot) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Post("/webhooks/line", b.handleCallback)
	return r
}

func (b *LineBot) handleCallback(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(b.channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			b.logger.Warn("Rejected webhook with invalid signature")
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		b.logger.Error("Failed to parse webhook delivery", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Events are independent: one failing must not abort the rest, and the
	// platform expects a prompt 200 regardless of reply delivery.
	for _, event := range cb.Events {
		b.handleEvent(r, event)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (b *LineBot) handleEvent(r *http.Request, event webhook.EventInterface) {
	msgEvent, ok := event.(webhook.MessageEvent)
	if !ok {
		return
	}
	textMsg, ok := msgEvent.Message.(webhook.TextMessageContent)
	if !ok {
		return
	}

	key, userID := conversationOf(msgEvent.Source)
	if key == "" {
		b.logger.Warn("Dropping event with unsupported source")
		return
	}

	ctx := r.Context()
	result := b.engine.Handle(ctx, quiz.Request{
		Key:    key,
		UserID: userID,
		Text:   textMsg.Text,
	})

	if err := quiz.Apply(ctx, b.store, result.Writes); err != nil {
		b.logger.Error("Failed to apply state writes",
			zap.Error(err),
			zap.String("conversation", string(key)))
	}

	if err := b.reply(msgEvent.ReplyToken, result.Replies); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.String("conversation", string(key)))
	}
}

func (b *LineBot) reply(replyToken string, replies []quiz.Reply) error {
	if len(replies) == 0 {
		return nil
	}

	messages := make([]messaging_api.MessageInterface, 0, len(replies))
	for _, reply := range replies {
		if reply.Confirm != nil {
			messages = append(messages, messaging_api.TemplateMessage{
				AltText: reply.Confirm.Text,
				Template: &messaging_api.ConfirmTemplate{
					Text: reply.Confirm.Text,
					Actions: []messaging_api.ActionInterface{
						&messaging_api.MessageAction{
							Label: reply.Confirm.YesLabel,
							Text:  reply.Confirm.YesLabel,
						},
						&messaging_api.MessageAction{
							Label: reply.Confirm.NoLabel,
							Text:  reply.Confirm.NoLabel,
						},
					},
				},
			})
			continue
		}
		messages = append(messages, messaging_api.TextMessage{Text: reply.Text})
	}

	_, err := b.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

// conversationOf narrows the event source to a conversation key and the
// acting user. Group and room chats share one quiz thread; scores stay
// per-user.
func conversationOf(source webhook.SourceInterface) (models.ConversationKey, string) {
	switch s := source.(type) {
	case webhook.UserSource:
		return models.ConversationKey(s.UserId), s.UserId
	case webhook.GroupSource:
		return models.ConversationKey(s.GroupId), s.UserId
	case webhook.RoomSource:
		return models.ConversationKey(s.RoomId), s.UserId
	default:
		return "", ""
	}
}
