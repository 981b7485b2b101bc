package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf16"

	tg "github.com/go-telegram/bot/models"

	"github.com/studmisto/opsbot/internal/db"
	"github.com/studmisto/opsbot/internal/models"
	"github.com/studmisto/opsbot/internal/telegram"
)

const (
	headerFeedback   = "📩 Нове повідомлення від "
	headerUserReply  = "📨 Відповідь від "
	headerStaffReply = "📨 Відповідь адміністраторів"
)

const reactionAck = "❤"

func (s *Service) startFeedback(ctx context.Context, msg *tg.Message) {
	st := &ConversationState{Step: StepFeedback}
	s.replacePrompt(ctx, msg.Chat.ID, st,
		"📩 Надішли сюди будь-яке повідомлення, і ми його отримаємо.\n"+
			"❌ Якщо передумав, натисни \"Закрити\".",
		cancelFeedbackKeyboard)
	s.conv.set(msg.From.ID, st)
}

func (s *Service) feedbackModeMessage(ctx context.Context, msg *tg.Message, st *ConversationState) {
	s.sendFeedback(ctx, msg)
	s.replacePrompt(ctx, msg.Chat.ID, st,
		"Ваше повідомленя надіслано! За потреби надішліть ще одне, або натисність \"Закрити\".",
		cancelFeedbackKeyboard)
	s.conv.set(msg.From.ID, st)
}

func (s *Service) closeFeedback(ctx context.Context, cb *tg.CallbackQuery) {
	defer s.answerCallback(ctx, cb.ID, "", false)
	s.conv.clear(cb.From.ID)
	if m := cb.Message.Message; m != nil {
		if err := s.msgr.Delete(ctx, m.Chat.ID, m.ID); err != nil {
			s.log.Debug().Err(err).Msg("delete feedback prompt")
		}
	}
}

// sendFeedback mirrors a requester's direct message into the staff feedback
// thread under a sender header. Non-text content travels as a verbatim
// forward beneath a separate info message; both are linked.
func (s *Service) sendFeedback(ctx context.Context, msg *tg.Message) {
	if msg.From == nil {
		return
	}

	if msg.Text != "" {
		text, entities := headerWithSender(headerFeedback, msg.Text, msg.Entities, msg.From)
		sent, err := s.msgr.Send(ctx, telegram.Out{
			ChatID:   s.adminChatID,
			ThreadID: s.feedbackThread,
			Text:     text,
			Entities: entities,
		})
		if err != nil {
			s.log.Error().Err(err).Msg("relay feedback")
			return
		}
		s.saveLink(ctx, models.MessageLink{
			UserID: msg.From.ID, UserMessageID: msg.ID, AdminMessageID: sent.ID,
		})
		return
	}

	infoText, entities := headerWithSender(headerFeedback, "", nil, msg.From)
	info, err := s.msgr.Send(ctx, telegram.Out{
		ChatID:   s.adminChatID,
		ThreadID: s.feedbackThread,
		Text:     strings.TrimRight(infoText, "\n"),
		Entities: entities,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("send feedback info")
		return
	}
	forwarded, err := s.msgr.Forward(ctx, s.adminChatID, s.feedbackThread, msg.Chat.ID, msg.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("forward feedback content")
		return
	}
	s.saveLinkPair(ctx,
		models.MessageLink{UserID: msg.From.ID, UserMessageID: msg.ID, AdminMessageID: forwarded.ID},
		models.MessageLink{UserID: msg.From.ID, UserMessageID: msg.ID, AdminMessageID: info.ID})
}

// relayUserReply carries a requester's reply onto the staff side of the
// mapped exchange. An unmapped reply produces no relay effect.
func (s *Service) relayUserReply(ctx context.Context, msg *tg.Message) {
	link, err := s.store.LinkByUserMessage(ctx, msg.From.ID, msg.ReplyToMessage.ID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Error().Err(err).Msg("lookup user link")
		}
		return
	}

	if msg.Text != "" {
		text, entities := headerWithSender(headerUserReply, msg.Text, msg.Entities, msg.From)
		sent, err := s.msgr.Send(ctx, telegram.Out{
			ChatID:   s.adminChatID,
			ReplyTo:  link.AdminMessageID,
			Text:     text,
			Entities: entities,
		})
		if err != nil {
			s.log.Error().Err(err).Msg("relay user reply")
			return
		}
		s.saveLink(ctx, models.MessageLink{
			UserID: msg.From.ID, UserMessageID: msg.ID, AdminMessageID: sent.ID,
		})
		return
	}

	infoText, entities := headerWithSender(headerUserReply, "", nil, msg.From)
	info, err := s.msgr.Send(ctx, telegram.Out{
		ChatID:   s.adminChatID,
		ReplyTo:  link.AdminMessageID,
		Text:     strings.TrimRight(infoText, "\n"),
		Entities: entities,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("send user reply info")
		return
	}
	forwarded, err := s.msgr.Forward(ctx, s.adminChatID, info.MessageThreadID, msg.Chat.ID, msg.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("forward user reply content")
		return
	}
	s.saveLinkPair(ctx,
		models.MessageLink{UserID: msg.From.ID, UserMessageID: msg.ID, AdminMessageID: forwarded.ID},
		models.MessageLink{UserID: msg.From.ID, UserMessageID: msg.ID, AdminMessageID: info.ID})
}

// relayStaffReply carries a staff reply back to the requester, acking the
// staff message with a reaction. Text is re-sent under the staff header;
// other content is copied without the forward origin.
func (s *Service) relayStaffReply(ctx context.Context, msg *tg.Message) {
	link, err := s.store.LinkByStaffMessage(ctx, msg.ReplyToMessage.ID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Error().Err(err).Msg("lookup staff link")
		}
		return
	}

	if err := s.msgr.React(ctx, msg.Chat.ID, msg.ID, reactionAck); err != nil {
		s.log.Debug().Err(err).Msg("react to staff reply")
	}

	if msg.Text != "" {
		text, entities := headerWithSender(headerStaffReply, msg.Text, msg.Entities, nil)
		sent, err := s.msgr.Send(ctx, telegram.Out{
			ChatID:   link.UserID,
			ReplyTo:  link.UserMessageID,
			Text:     text,
			Entities: entities,
		})
		if err != nil {
			s.log.Error().Err(err).Msg("relay staff reply")
			return
		}
		s.saveLink(ctx, models.MessageLink{
			UserID: link.UserID, UserMessageID: sent.ID, AdminMessageID: msg.ID,
		})
		return
	}

	info, err := s.msgr.Send(ctx, telegram.Out{
		ChatID:  link.UserID,
		ReplyTo: link.UserMessageID,
		Text:    headerStaffReply + ":",
	})
	if err != nil {
		s.log.Error().Err(err).Msg("send staff reply info")
		return
	}
	copiedID, err := s.msgr.Copy(ctx, link.UserID, msg.Chat.ID, msg.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("copy staff reply content")
		return
	}
	s.saveLinkPair(ctx,
		models.MessageLink{UserID: link.UserID, UserMessageID: copiedID, AdminMessageID: msg.ID},
		models.MessageLink{UserID: link.UserID, UserMessageID: info.ID, AdminMessageID: msg.ID})
}

func (s *Service) saveLink(ctx context.Context, link models.MessageLink) {
	if err := s.store.SaveLink(ctx, link); err != nil {
		s.log.Error().Err(err).Msg("save message link")
	}
}

func (s *Service) saveLinkPair(ctx context.Context, a, b models.MessageLink) {
	if err := s.store.SaveLinkPair(ctx, a, b); err != nil {
		s.log.Error().Err(err).Msg("save message link pair")
	}
}

// utf16Len measures text the way the chat platform does entity offsets: in
// UTF-16 code units.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func fullName(u *tg.User) string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}

// headerWithSender prefixes text with a sender header and shifts the
// original entities past it. The sender's name gets a code entity and the
// public handle, when present, a clickable text link; offsets are computed
// in UTF-16 code units so multi-byte names do not corrupt formatting.
func headerWithSender(prefix, text string, entities []tg.MessageEntity, sender *tg.User) (string, []tg.MessageEntity) {
	var out []tg.MessageEntity

	if sender != nil {
		name := fullName(sender)
		out = append(out, tg.MessageEntity{
			Type:   "code",
			Offset: utf16Len(prefix),
			Length: utf16Len(name),
		})
		prefix += name

		if sender.Username != "" {
			out = append(out, tg.MessageEntity{
				Type:   "text_link",
				Offset: utf16Len(prefix) + 2,
				Length: utf16Len(sender.Username) + 1,
				URL:    "https://t.me/" + sender.Username,
			})
			prefix += " (@" + sender.Username + ")"
		}
	}

	prefix += ":\n\n"
	shift := utf16Len(prefix)
	for _, e := range entities {
		e.Offset += shift
		out = append(out, e)
	}
	return prefix + text, out
}
