package bot

import (
	"context"
	"fmt"
	"strconv"

	"scam-quiz-bot/internal/models"
	"scam-quiz-bot/internal/quiz"
	"scam-quiz-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramBot is the long-polling transport. It narrows updates to the same
// (conversationKey, text) shape the LINE adapter produces, so the quiz
// engine never knows which platform a command came from.
type TelegramBot struct {
	api    *tgbotapi.BotAPI
	engine *quiz.Engine
	store  storage.Storage
	logger *zap.Logger
}

func NewTelegramBot(token string, engine *quiz.Engine, store storage.Storage, logger *zap.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramBot{
		api:    api,
		engine: engine,
		store:  store,
		logger: logger,
	}, nil
}

func (b *TelegramBot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go b.handleMessage(update.Message)
		}
	}
}

func (b *TelegramBot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	// Group chats share one quiz thread keyed by the chat; scores follow
	// the individual sender either way.
	key := models.ConversationKey(strconv.FormatInt(message.Chat.ID, 10))
	userID := strconv.FormatInt(message.From.ID, 10)

	result := b.engine.Handle(ctx, quiz.Request{
		Key:    key,
		UserID: userID,
		Text:   message.Text,
	})

	if err := quiz.Apply(ctx, b.store, result.Writes); err != nil {
		b.logger.Error("Failed to apply state writes",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}

	for _, reply := range result.Replies {
		b.send(message.Chat.ID, reply)
	}
}

func (b *TelegramBot) send(chatID int64, reply quiz.Reply) {
	var msg tgbotapi.MessageConfig
	if reply.Confirm != nil {
		msg = tgbotapi.NewMessage(chatID, reply.Confirm.Text)
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(reply.Confirm.YesLabel),
				tgbotapi.NewKeyboardButton(reply.Confirm.NoLabel),
			),
		)
		keyboard.OneTimeKeyboard = true
		msg.ReplyMarkup = keyboard
	} else {
		msg = tgbotapi.NewMessage(chatID, reply.Text)
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
