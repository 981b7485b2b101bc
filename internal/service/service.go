package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	tg "github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/studmisto/opsbot/internal/config"
	"github.com/studmisto/opsbot/internal/models"
	"github.com/studmisto/opsbot/internal/sheets"
	"github.com/studmisto/opsbot/internal/telegram"
	"github.com/studmisto/opsbot/internal/utils"
)

// Store is the document-store contract the service runs against.
type Store interface {
	InsertRequest(ctx context.Context, req models.Request) (string, error)
	RequestByID(ctx context.Context, id string) (*models.Request, error)
	RequestsByUser(ctx context.Context, userID int64) ([]models.Request, error)
	SetRequestStatus(ctx context.Context, id string, status models.Status, editedAt time.Time, actor string) error
	QueuePosition(ctx context.Context, category models.Category, before time.Time) (int, error)
	CountInProgressByCategory(ctx context.Context) (map[models.Category]int, error)
	SaveLink(ctx context.Context, link models.MessageLink) error
	SaveLinkPair(ctx context.Context, a, b models.MessageLink) error
	LinkByStaffMessage(ctx context.Context, adminMessageID int) (*models.MessageLink, error)
	LinkByUserMessage(ctx context.Context, userID int64, userMessageID int) (*models.MessageLink, error)
}

type Step int

const (
	StepIdle Step = iota
	StepName
	StepPhone
	StepDorm
	StepCategory
	StepDetails
	StepFeedback
)

// ConversationState is the per-requester transient form progress. It lives
// only in process memory and is destroyed on completion or cancellation.
type ConversationState struct {
	Step         Step
	Name         string
	Phone        string
	Dorm         string
	Category     models.Category
	LastPromptID int
}

// conversations keys state by requester id. Access is serialized per
// operation, but two rapid messages from the same user still race
// last-write-wins on the state itself; that race is accepted, not mitigated.
type conversations struct {
	mu sync.Mutex
	m  map[int64]*ConversationState
}

func newConversations() *conversations {
	return &conversations{m: make(map[int64]*ConversationState)}
}

func (c *conversations) get(userID int64) *ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[userID]
}

func (c *conversations) set(userID int64, st *ConversationState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[userID] = st
}

func (c *conversations) clear(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, userID)
}

type Service struct {
	store    Store
	msgr     telegram.Messenger
	mirror   sheets.Mirror
	log      zerolog.Logger
	validate *validator.Validate

	adminChatID     int64
	feedbackThread  int
	threads         map[models.Category]int
	workStart       int
	workEnd         int
	afterHoursPhone string
	tzOffset        time.Duration
	conv            *conversations
}

func New(store Store, msgr telegram.Messenger, mirror sheets.Mirror, cfg config.Config, log zerolog.Logger) (*Service, error) {
	workStart, err := utils.ParseClock(cfg.WorkHoursStart)
	if err != nil {
		return nil, err
	}
	workEnd, err := utils.ParseClock(cfg.WorkHoursEnd)
	if err != nil {
		return nil, err
	}
	v := validator.New()
	if err := v.RegisterValidation("uaphone", func(fl validator.FieldLevel) bool {
		return utils.IsValidUkrainePhone(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	return &Service{
		store:           store,
		msgr:            msgr,
		mirror:          mirror,
		log:             log,
		validate:        v,
		adminChatID:     cfg.AdminChatID,
		feedbackThread:  cfg.ChatThreadFeedback,
		threads:         cfg.CategoryThreads(),
		workStart:       workStart,
		workEnd:         workEnd,
		afterHoursPhone: cfg.AfterHoursPhone,
		tzOffset:        time.Duration(cfg.TimezoneOffset) * time.Hour,
		conv:            newConversations(),
	}, nil
}

// now is the local service clock: UTC shifted by the configured offset.
func (s *Service) now() time.Time {
	return time.Now().UTC().Add(s.tzOffset)
}

// AnnounceStartup posts the boot notice to the admin chat.
func (s *Service) AnnounceStartup(ctx context.Context) {
	s.notify(ctx, s.adminChatID, "Я запустився 🚀🤖⚡️")
}

// HandleUpdate is the single event-intake entry point. It returns once all
// synchronous side effects of the update have been issued.
func (s *Service) HandleUpdate(ctx context.Context, upd *tg.Update) {
	switch {
	case upd.CallbackQuery != nil:
		s.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		s.handleMessage(ctx, upd.Message)
	}
}

// handleMessage dispatches an inbound message in fixed priority order: open
// conversation step, then reply to a tracked message, then command, then
// fallback (ignored).
func (s *Service) handleMessage(ctx context.Context, msg *tg.Message) {
	if msg.From == nil {
		return
	}
	if msg.Chat.ID != msg.From.ID {
		if msg.Chat.ID == s.adminChatID && msg.ReplyToMessage != nil {
			s.relayStaffReply(ctx, msg)
			return
		}
		// Only /start and /status work chat-wide; the rest is private-only.
		switch command(msg.Text) {
		case "/start":
			s.start(ctx, msg)
		case "/status":
			s.statusList(ctx, msg)
		}
		return
	}

	if st := s.conv.get(msg.From.ID); st != nil {
		if st.Step == StepFeedback {
			s.feedbackModeMessage(ctx, msg, st)
		} else {
			s.formInput(ctx, msg, st)
		}
		return
	}

	if msg.ReplyToMessage != nil {
		if command(msg.Text) == "/cancel" {
			s.cancelByReply(ctx, msg)
		} else {
			s.relayUserReply(ctx, msg)
		}
		return
	}

	switch command(msg.Text) {
	case "/start":
		s.start(ctx, msg)
	case "/request":
		s.startForm(ctx, msg)
	case "/status":
		s.statusList(ctx, msg)
	case "/tasks":
		s.tasksSummary(ctx, msg)
	case "/feedback":
		s.startFeedback(ctx, msg)
	}
}

func (s *Service) handleCallback(ctx context.Context, cb *tg.CallbackQuery) {
	data := cb.Data
	switch {
	case data == "cancel_request":
		s.cancelForm(ctx, cb)
	case data == "cancel_feedback":
		s.closeFeedback(ctx, cb)
	case strings.HasPrefix(data, "dorm:"):
		s.pickDorm(ctx, cb, strings.TrimPrefix(data, "dorm:"))
	case strings.HasPrefix(data, "ptype:"):
		s.pickCategory(ctx, cb, strings.TrimPrefix(data, "ptype:"))
	case strings.HasPrefix(data, "back:"):
		s.goBack(ctx, cb, strings.TrimPrefix(data, "back:"))
	case strings.HasPrefix(data, "status:"):
		s.staffStatusAction(ctx, cb)
	default:
		s.answerCallback(ctx, cb.ID, "", false)
	}
}

func (s *Service) answerCallback(ctx context.Context, id, text string, alert bool) {
	if err := s.msgr.AnswerCallback(ctx, id, text, alert); err != nil {
		s.log.Warn().Err(err).Msg("answer callback")
	}
}

// command extracts the leading bot command from a message text, stripping
// the @botname suffix; returns "" for non-command text.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := text
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}

// userLabel renders the acting user for attribution: public handle when one
// exists, otherwise the display name.
func userLabel(u *tg.User) string {
	if u == nil {
		return models.ActorSystem
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.LastName != "" {
		return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
	}
	return u.FirstName
}
