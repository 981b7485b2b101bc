package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tg "github.com/go-telegram/bot/models"

	"github.com/studmisto/opsbot/internal/db"
	"github.com/studmisto/opsbot/internal/models"
	"github.com/studmisto/opsbot/internal/telegram"
	"github.com/studmisto/opsbot/internal/utils"
)

// staffStatusAction handles a status:<STATUS>:<id> inline action from the
// staff channel. Any staff actor may move a non-cancelled request to any
// non-cancelled status.
func (s *Service) staffStatusAction(ctx context.Context, cb *tg.CallbackQuery) {
	parts := strings.SplitN(cb.Data, ":", 3)
	if len(parts) != 3 {
		s.answerCallback(ctx, cb.ID, "", false)
		return
	}
	status := models.Status(parts[1])
	requestID := parts[2]
	if !status.Valid() || status == models.StatusCancelled {
		s.answerCallback(ctx, cb.ID, "", false)
		return
	}

	req, err := s.store.RequestByID(ctx, requestID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Error().Err(err).Str("request_id", requestID).Msg("load request")
		}
		s.answerCallback(ctx, cb.ID, "Заявку не знайдено", true)
		return
	}
	if req.Status == models.StatusCancelled {
		s.answerCallback(ctx, cb.ID, "Заявка скасована користувачем", true)
		return
	}

	editedAt := s.now()
	actor := userLabel(&cb.From)
	if err := s.store.SetRequestStatus(ctx, requestID, status, editedAt, actor); err != nil {
		s.log.Error().Err(err).Str("request_id", requestID).Msg("update status")
		s.answerCallback(ctx, cb.ID, "Не вдалось оновити статус", true)
		return
	}
	req.Status = status
	req.EditedAt = editedAt
	req.EditedBy = actor

	code := utils.TicketCode(requestID)
	userMsg, err := s.msgr.Send(ctx, telegram.Out{
		ChatID: req.UserID,
		Text:   fmt.Sprintf("Статус заявки #%s оновлено: %s", code, status.Name()),
	})
	if err != nil {
		s.log.Error().Err(err).Str("code", code).Msg("notify requester")
	}

	staffMsg := cb.Message.Message
	if staffMsg != nil {
		err := s.msgr.Edit(ctx, staffMsg.Chat.ID, staffMsg.ID,
			staffNotice(*req, code, false), statusKeyboard(status, requestID))
		if err != nil {
			s.log.Warn().Err(err).Str("code", code).Msg("rewrite staff notice")
		}
	}

	if userMsg != nil && staffMsg != nil {
		err := s.store.SaveLink(ctx, models.MessageLink{
			UserID:         req.UserID,
			UserMessageID:  userMsg.ID,
			AdminMessageID: staffMsg.ID,
		})
		if err != nil {
			s.log.Error().Err(err).Msg("save message link")
		}
	}

	if err := s.mirror.UpdateStatus(ctx, code, status, req.Category, editedAt); err != nil {
		s.log.Error().Err(err).Str("code", code).Msg("mirror update")
		thread := 0
		if staffMsg != nil {
			thread = staffMsg.MessageThreadID
		}
		s.notify(ctx, s.adminChatID, "Не вдалось оновити статус в таблиці", withThread(thread))
	}

	s.answerCallback(ctx, cb.ID, "", false)
}

// cancelByReply handles a requester's /cancel sent as a reply to a message
// carrying a ticket code. Only WAITING and CLARIFICATION requests may be
// withdrawn, and only by their own requester.
func (s *Service) cancelByReply(ctx context.Context, msg *tg.Message) {
	code := utils.ExtractTicketCode(msg.ReplyToMessage.Text)
	if code == "" {
		s.notify(ctx, msg.Chat.ID, "Не знайдено код заявки. Відповідайте командою /cancel на повідомлення із заявкою.")
		return
	}

	req, err := s.findOwnRequestByCode(ctx, msg.From.ID, code)
	if err != nil {
		s.log.Error().Err(err).Str("code", code).Msg("scan requests for code")
		return
	}
	if req == nil {
		s.notify(ctx, msg.Chat.ID, fmt.Sprintf("Заявку #%s не знайдено.", code))
		return
	}
	if req.Status == models.StatusCancelled {
		s.notify(ctx, msg.Chat.ID, fmt.Sprintf("Заявка #%s вже скасована.", code))
		return
	}
	if !req.Status.Cancellable() {
		s.notify(ctx, msg.Chat.ID,
			fmt.Sprintf("Заявку #%s не можна скасувати: %s", code, req.Status.Name()))
		return
	}

	editedAt := s.now()
	actor := userLabel(msg.From)
	if err := s.store.SetRequestStatus(ctx, req.ID.Hex(), models.StatusCancelled, editedAt, actor); err != nil {
		s.log.Error().Err(err).Str("code", code).Msg("cancel request")
		s.notify(ctx, msg.Chat.ID, "Сталася помилка. Спробуйте ще раз.")
		return
	}
	req.Status = models.StatusCancelled
	req.EditedAt = editedAt
	req.EditedBy = actor

	s.notify(ctx, msg.Chat.ID, fmt.Sprintf("Заявка #%s скасована.", code))

	// Best effort: the staff notice may go stale if the edit fails.
	if link, err := s.store.LinkByUserMessage(ctx, msg.From.ID, msg.ReplyToMessage.ID); err == nil {
		err := s.msgr.Edit(ctx, s.adminChatID, link.AdminMessageID, staffNotice(*req, code, false), nil)
		if err != nil {
			s.log.Debug().Err(err).Str("code", code).Msg("edit staff notice after cancel")
		}
	}

	if err := s.mirror.UpdateStatus(ctx, code, models.StatusCancelled, req.Category, editedAt); err != nil {
		s.log.Debug().Err(err).Str("code", code).Msg("mirror cancel")
	}
}

// findOwnRequestByCode linearly scans the requester's own requests, newest
// first, for one whose derived ticket code matches. The codec is
// collision-blind, so the scan stays scoped to a single requester.
func (s *Service) findOwnRequestByCode(ctx context.Context, userID int64, code string) (*models.Request, error) {
	reqs, err := s.store.RequestsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		if utils.TicketCode(reqs[i].ID.Hex()) == code {
			return &reqs[i], nil
		}
	}
	return nil, nil
}

// statusList answers /status with the requester's requests, newest first,
// including queue positions for the unresolved ones.
func (s *Service) statusList(ctx context.Context, msg *tg.Message) {
	reqs, err := s.store.RequestsByUser(ctx, msg.From.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("list requests")
		return
	}
	if len(reqs) == 0 {
		s.notify(ctx, msg.Chat.ID, "У вас немає заявок.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Усього заявок: %d\n\n", len(reqs))
	for _, req := range reqs {
		fmt.Fprintf(&b, "#%s\n", utils.TicketCode(req.ID.Hex()))
		fmt.Fprintf(&b, "Тип: %s\n", req.Category.Name())
		fmt.Fprintf(&b, "Гуртожиток: %s\n", req.Dorm)
		if req.Details != "" {
			fmt.Fprintf(&b, "Опис: %s\n", req.Details)
		}
		fmt.Fprintf(&b, "Статус: %s\n", req.Status.Name())
		if req.Status.Unresolved() {
			pos, err := s.store.QueuePosition(ctx, req.Category, req.CreatedAt)
			if err != nil {
				s.log.Error().Err(err).Msg("queue position")
			} else {
				fmt.Fprintf(&b, "Позиція в черзі: %d\n", pos)
			}
		}
		b.WriteString("\n")
	}
	s.notify(ctx, msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
}

// tasksSummary answers /tasks with per-category in-progress counts.
func (s *Service) tasksSummary(ctx context.Context, msg *tg.Message) {
	counts, err := s.store.CountInProgressByCategory(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("count in-progress")
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Заявки у роботі (%d):\n", total)
	for _, c := range models.AllCategories {
		fmt.Fprintf(&b, "%s – %d\n", c.Name(), counts[c])
	}
	s.notify(ctx, msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
}
