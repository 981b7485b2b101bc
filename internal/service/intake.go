package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tg "github.com/go-telegram/bot/models"

	"github.com/studmisto/opsbot/internal/models"
	"github.com/studmisto/opsbot/internal/telegram"
	"github.com/studmisto/opsbot/internal/utils"
)

const (
	promptName         = "Введіть ПІБ (наприклад: Іваненко Іван Іванович)"
	promptPhone        = "Введіть номер телефону (наприклад: +380991234567)"
	promptPhoneInvalid = "Неправильний формат номеру телефону. Приклад: +380991234567. Повторіть ввід"
	promptDorm         = "Оберіть номер гуртожитку"
	promptCategory     = "Виберіть тип проблеми"
	promptDetails      = "Опишіть проблему, вкажіть кімнату, поверх, блок/крило та зручний час для візиту."
)

const startText = "Привіт! Це бот служби експлуатації гуртожитків КПІ.\n\n" +
	"У неробочий час (з 17:15 до 8:30 у будні і цілодобово у вихідні) послуги для усунення аварійної ситуації виконує чергова зміна.\n\n" +
	"У робочий час ремонтні роботи виконують працівники дільниць служби експлуатації.\n\n" +
	"Робочі години: будні з 9:00 до 17:00."

type intakeForm struct {
	Name     string          `validate:"required"`
	Phone    string          `validate:"required,uaphone"`
	Dorm     string          `validate:"required"`
	Category models.Category `validate:"required"`
}

func (s *Service) promptFor(step Step) (string, *tg.InlineKeyboardMarkup) {
	switch step {
	case StepName:
		return promptName, &tg.InlineKeyboardMarkup{
			InlineKeyboard: [][]tg.InlineKeyboardButton{cancelRequestRow()},
		}
	case StepPhone:
		return promptPhone, &tg.InlineKeyboardMarkup{
			InlineKeyboard: [][]tg.InlineKeyboardButton{backRow("name"), cancelRequestRow()},
		}
	case StepDorm:
		return promptDorm, dormKeyboard()
	case StepCategory:
		return promptCategory, categoryKeyboard()
	case StepDetails:
		return promptDetails, &tg.InlineKeyboardMarkup{
			InlineKeyboard: [][]tg.InlineKeyboardButton{backRow("problem_type"), cancelRequestRow()},
		}
	}
	return "", nil
}

// replacePrompt deletes the previous live prompt and issues a new one so
// the chat shows exactly one prompt at a time.
func (s *Service) replacePrompt(ctx context.Context, chatID int64, st *ConversationState, text string, kb *tg.InlineKeyboardMarkup) {
	if st.LastPromptID != 0 {
		if err := s.msgr.Delete(ctx, chatID, st.LastPromptID); err != nil {
			s.log.Debug().Err(err).Msg("delete previous prompt")
		}
		st.LastPromptID = 0
	}
	sent, err := s.msgr.Send(ctx, telegram.Out{ChatID: chatID, Text: text, Keyboard: kb})
	if err != nil {
		s.log.Error().Err(err).Msg("send prompt")
		return
	}
	st.LastPromptID = sent.ID
}

func (s *Service) start(ctx context.Context, msg *tg.Message) {
	if _, err := s.msgr.Send(ctx, telegram.Out{ChatID: msg.Chat.ID, Text: startText}); err != nil {
		s.log.Error().Err(err).Msg("send start")
	}
}

func (s *Service) startForm(ctx context.Context, msg *tg.Message) {
	st := &ConversationState{Step: StepName}
	text, kb := s.promptFor(StepName)
	s.replacePrompt(ctx, msg.Chat.ID, st, text, kb)
	s.conv.set(msg.From.ID, st)
}

// formInput advances the intake form on a free-text answer. Button-driven
// steps (dorm, category) ignore stray text.
func (s *Service) formInput(ctx context.Context, msg *tg.Message, st *ConversationState) {
	switch st.Step {
	case StepName:
		st.Name = msg.Text
		st.Step = StepPhone
		text, kb := s.promptFor(StepPhone)
		s.replacePrompt(ctx, msg.Chat.ID, st, text, kb)
		s.conv.set(msg.From.ID, st)
	case StepPhone:
		if !utils.IsValidUkrainePhone(msg.Text) {
			_, kb := s.promptFor(StepPhone)
			s.replacePrompt(ctx, msg.Chat.ID, st, promptPhoneInvalid, kb)
			s.conv.set(msg.From.ID, st)
			return
		}
		st.Phone = msg.Text
		st.Step = StepDorm
		text, kb := s.promptFor(StepDorm)
		s.replacePrompt(ctx, msg.Chat.ID, st, text, kb)
		s.conv.set(msg.From.ID, st)
	case StepDetails:
		s.completeForm(ctx, msg, st)
	}
}

func (s *Service) pickDorm(ctx context.Context, cb *tg.CallbackQuery, dorm string) {
	defer s.answerCallback(ctx, cb.ID, "", false)
	st := s.conv.get(cb.From.ID)
	if st == nil || st.Step != StepDorm || !models.ValidDorm(dorm) {
		return
	}
	st.Dorm = dorm
	st.Step = StepCategory
	text, kb := s.promptFor(StepCategory)
	s.replacePrompt(ctx, cb.From.ID, st, text, kb)
	s.conv.set(cb.From.ID, st)
}

func (s *Service) pickCategory(ctx context.Context, cb *tg.CallbackQuery, raw string) {
	defer s.answerCallback(ctx, cb.ID, "", false)
	st := s.conv.get(cb.From.ID)
	category := models.Category(raw)
	if st == nil || st.Step != StepCategory || !category.Valid() {
		return
	}
	st.Category = category
	st.Step = StepDetails
	text, kb := s.promptFor(StepDetails)
	s.replacePrompt(ctx, cb.From.ID, st, text, kb)
	s.conv.set(cb.From.ID, st)
}

// goBack re-enters the previous step's prompt. The name step has no
// predecessor and is never a back target from itself.
func (s *Service) goBack(ctx context.Context, cb *tg.CallbackQuery, target string) {
	defer s.answerCallback(ctx, cb.ID, "", false)
	st := s.conv.get(cb.From.ID)
	if st == nil {
		return
	}
	var step Step
	switch target {
	case "name":
		step = StepName
	case "phone":
		step = StepPhone
	case "dorm":
		step = StepDorm
	case "problem_type":
		step = StepCategory
	default:
		return
	}
	st.Step = step
	text, kb := s.promptFor(step)
	s.replacePrompt(ctx, cb.From.ID, st, text, kb)
	s.conv.set(cb.From.ID, st)
}

func (s *Service) cancelForm(ctx context.Context, cb *tg.CallbackQuery) {
	defer s.answerCallback(ctx, cb.ID, "", false)
	s.conv.clear(cb.From.ID)
	if m := cb.Message.Message; m != nil {
		if err := s.msgr.Edit(ctx, m.Chat.ID, m.ID, "Заявка скасована", nil); err != nil {
			s.log.Debug().Err(err).Msg("edit cancelled prompt")
		}
	}
}

// completeForm runs the submission path: create the request, announce it to
// both sides, link the notice, mirror the ledger, clear the form.
func (s *Service) completeForm(ctx context.Context, msg *tg.Message, st *ConversationState) {
	s.conv.clear(msg.From.ID)
	if st.LastPromptID != 0 {
		if err := s.msgr.Delete(ctx, msg.Chat.ID, st.LastPromptID); err != nil {
			s.log.Debug().Err(err).Msg("delete details prompt")
		}
	}

	form := intakeForm{Name: st.Name, Phone: st.Phone, Dorm: st.Dorm, Category: st.Category}
	if err := s.validate.Struct(form); err != nil {
		s.log.Warn().Err(err).Int64("user_id", msg.From.ID).Msg("intake form failed validation")
		s.notify(ctx, msg.Chat.ID, "Щось пішло не так. Почніть заново: /request")
		return
	}

	thread := s.threads[st.Category]

	var forwarded *tg.Message
	if msg.Text == "" {
		f, err := s.msgr.Forward(ctx, s.adminChatID, thread, msg.Chat.ID, msg.ID)
		if err != nil {
			s.log.Error().Err(err).Msg("forward details message")
		} else {
			forwarded = f
		}
	}

	ts := s.now()
	req := models.Request{
		Name:      st.Name,
		Phone:     st.Phone,
		Dorm:      st.Dorm,
		Category:  st.Category,
		Status:    models.StatusWaiting,
		CreatedAt: ts,
		EditedAt:  ts,
		EditedBy:  models.ActorSystem,
		UserID:    msg.From.ID,
	}
	if msg.Text != "" {
		req.Details = msg.Text
	} else {
		req.Details = msg.Caption
	}
	if forwarded != nil {
		req.ForwardedMessageID = forwarded.ID
	}

	id, err := s.store.InsertRequest(ctx, req)
	if err != nil {
		s.log.Error().Err(err).Msg("insert request")
		s.notify(ctx, msg.Chat.ID, "Сталася помилка. Спробуйте ще раз: /request")
		return
	}
	code := utils.TicketCode(id)

	pos, err := s.store.QueuePosition(ctx, st.Category, ts)
	if err != nil {
		s.log.Error().Err(err).Msg("queue position")
		pos = 1
	}

	info := "Очікуйте на відповідь"
	if !utils.WithinWorkHours(ts, s.workStart, s.workEnd) {
		info = "Зараз неробочий час, тому вона буде розглянута вранці"
		if s.afterHoursPhone != "" {
			info += ". У разі аварійної ситуації телефонуйте за номером: " + s.afterHoursPhone
		}
	}

	userMsg, err := s.msgr.Send(ctx, telegram.Out{
		ChatID: msg.Chat.ID,
		Text: fmt.Sprintf("Заявка #%s відправлена.\n"+
			"%s. Якщо бажаєте додати більше інформації, відправте реплай на це повідомлення.\n"+
			"Позиція в черзі: %d", code, info, pos),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("send user confirmation")
	}

	adminMsg, err := s.msgr.Send(ctx, telegram.Out{
		ChatID:   s.adminChatID,
		ThreadID: thread,
		Text:     staffNotice(req, code, true),
		Keyboard: statusKeyboard(models.StatusWaiting, id),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("send staff notice")
		return
	}

	if userMsg != nil {
		link := models.MessageLink{UserID: msg.From.ID, UserMessageID: userMsg.ID, AdminMessageID: adminMsg.ID}
		if forwarded != nil {
			pair := models.MessageLink{UserID: msg.From.ID, UserMessageID: userMsg.ID, AdminMessageID: forwarded.ID}
			err = s.store.SaveLinkPair(ctx, link, pair)
		} else {
			err = s.store.SaveLink(ctx, link)
		}
		if err != nil {
			s.log.Error().Err(err).Msg("save message link")
		}
	}

	if err := s.mirror.AppendRequest(ctx, code, s.staffMessageURL(thread, adminMsg.ID), req); err != nil {
		s.log.Error().Err(err).Str("code", code).Msg("mirror append")
		s.notify(ctx, s.adminChatID, "Не вдалось додати запис в таблицю", withThread(thread))
	}
}

// staffMessageURL builds the t.me deep link recorded in the ledger.
func (s *Service) staffMessageURL(thread, messageID int) string {
	chat := strings.TrimPrefix(strconv.FormatInt(s.adminChatID, 10), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d/%d", chat, thread, messageID)
}

// staffNotice renders the staff-channel text. Details appear only when the
// content was not forwarded separately; the dorm-responsible tag appears
// when one is configured.
func staffNotice(req models.Request, code string, isNew bool) string {
	var b strings.Builder
	if isNew {
		fmt.Fprintf(&b, "Нова заявка #%s\n", code)
	} else {
		fmt.Fprintf(&b, "Заявка #%s\n", code)
	}
	fmt.Fprintf(&b, "ПІБ: %s\n", req.Name)
	fmt.Fprintf(&b, "Телефон: %s\n", req.Phone)
	fmt.Fprintf(&b, "Гуртожиток: %s\n", req.Dorm)
	fmt.Fprintf(&b, "Тип: %s\n", req.Category.Name())
	if req.Details != "" && req.ForwardedMessageID == 0 {
		fmt.Fprintf(&b, "Опис: %s\n", req.Details)
	}
	if responsible, ok := models.DormResponsibles[req.Dorm]; ok {
		fmt.Fprintf(&b, "Відповідальна: %s\n", responsible)
	}
	fmt.Fprintf(&b, "Статус: %s", req.Status.Name())
	return b.String()
}

type notifyOpt func(*telegram.Out)

func withThread(thread int) notifyOpt {
	return func(o *telegram.Out) { o.ThreadID = thread }
}

// notify sends a short plain notice, logging (not escalating) failures.
func (s *Service) notify(ctx context.Context, chatID int64, text string, opts ...notifyOpt) {
	out := telegram.Out{ChatID: chatID, Text: text}
	for _, opt := range opts {
		opt(&out)
	}
	if _, err := s.msgr.Send(ctx, out); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send notice")
	}
}
