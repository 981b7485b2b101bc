package telegram

import (
	"context"

	"github.com/go-telegram/bot/models"
)

// Out describes one outbound chat message. ThreadID and ReplyTo are zero
// when unused; Keyboard is attached only when non-nil.
type Out struct {
	ChatID   int64
	ThreadID int
	ReplyTo  int
	Text     string
	Entities []models.MessageEntity
	Keyboard *models.InlineKeyboardMarkup
}

// Messenger is the outbound side of the chat platform. Send retries once
// without the reply linkage when the reply target no longer exists; no other
// delivery failure is retried.
type Messenger interface {
	Send(ctx context.Context, out Out) (*models.Message, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, keyboard *models.InlineKeyboardMarkup) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	Forward(ctx context.Context, toChat int64, threadID int, fromChat int64, messageID int) (*models.Message, error)
	Copy(ctx context.Context, toChat int64, fromChat int64, messageID int) (int, error)
	React(ctx context.Context, chatID int64, messageID int, emoji string) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}
