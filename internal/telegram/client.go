package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const replyNotFound = "message to be replied not found"

// Client is the Bot API implementation of Messenger.
type Client struct {
	bot *bot.Bot
}

func NewClient(token string, opts ...bot.Option) (*Client, error) {
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{bot: b}, nil
}

// SetWebhook registers the webhook endpoint with its secret token.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	_, err := c.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:         url,
		SecretToken: secret,
	})
	return err
}

func (c *Client) Send(ctx context.Context, out Out) (*models.Message, error) {
	params := &bot.SendMessageParams{
		ChatID:          out.ChatID,
		MessageThreadID: out.ThreadID,
		Text:            out.Text,
		Entities:        out.Entities,
	}
	if out.Keyboard != nil {
		params.ReplyMarkup = out.Keyboard
	}
	if out.ReplyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: out.ReplyTo}
	}
	msg, err := c.bot.SendMessage(ctx, params)
	if err != nil && out.ReplyTo != 0 && strings.Contains(err.Error(), replyNotFound) {
		params.ReplyParameters = nil
		return c.bot.SendMessage(ctx, params)
	}
	return msg, err
}

func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string, keyboard *models.InlineKeyboardMarkup) error {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := c.bot.EditMessageText(ctx, params)
	return err
}

func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	_, err := c.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	return err
}

func (c *Client) Forward(ctx context.Context, toChat int64, threadID int, fromChat int64, messageID int) (*models.Message, error) {
	return c.bot.ForwardMessage(ctx, &bot.ForwardMessageParams{
		ChatID:          toChat,
		MessageThreadID: threadID,
		FromChatID:      strconv.FormatInt(fromChat, 10),
		MessageID:       messageID,
	})
}

func (c *Client) Copy(ctx context.Context, toChat int64, fromChat int64, messageID int) (int, error) {
	id, err := c.bot.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     toChat,
		FromChatID: strconv.FormatInt(fromChat, 10),
		MessageID:  messageID,
	})
	if err != nil {
		return 0, err
	}
	return id.ID, nil
}

func (c *Client) React(ctx context.Context, chatID int64, messageID int, emoji string) error {
	_, err := c.bot.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    chatID,
		MessageID: messageID,
		Reaction: []models.ReactionType{{
			Type:              models.ReactionTypeTypeEmoji,
			ReactionTypeEmoji: &models.ReactionTypeEmoji{Type: "emoji", Emoji: emoji},
		}},
	})
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	_, err := c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	return err
}
