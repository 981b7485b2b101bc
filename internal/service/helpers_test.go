package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	tg "github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/studmisto/opsbot/internal/config"
	"github.com/studmisto/opsbot/internal/db"
	"github.com/studmisto/opsbot/internal/models"
	"github.com/studmisto/opsbot/internal/telegram"
)

const (
	testAdminChat      = int64(-1001234567)
	testFeedbackThread = 77
	testUser           = int64(42)
)

type fakeStore struct {
	mu    sync.Mutex
	reqs  []*models.Request
	links []models.MessageLink
}

func (f *fakeStore) InsertRequest(_ context.Context, req models.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = primitive.NewObjectID()
	f.reqs = append(f.reqs, &req)
	return req.ID.Hex(), nil
}

func (f *fakeStore) RequestByID(_ context.Context, id string) (*models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reqs {
		if r.ID.Hex() == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) RequestsByUser(_ context.Context, userID int64) ([]models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Request
	for _, r := range f.reqs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) SetRequestStatus(_ context.Context, id string, status models.Status, editedAt time.Time, actor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reqs {
		if r.ID.Hex() == id {
			// Cancelled is terminal, matching the store's update filter.
			if r.Status == models.StatusCancelled {
				return db.ErrNotFound
			}
			r.Status = status
			r.EditedAt = editedAt
			r.EditedBy = actor
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) QueuePosition(_ context.Context, category models.Category, before time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.reqs {
		if r.Category == category && r.Status.Unresolved() && r.CreatedAt.Before(before) {
			n++
		}
	}
	return n + 1, nil
}

func (f *fakeStore) CountInProgressByCategory(_ context.Context) (map[models.Category]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.Category]int)
	for _, r := range f.reqs {
		if r.Status == models.StatusInProgress {
			counts[r.Category]++
		}
	}
	return counts, nil
}

func (f *fakeStore) SaveLink(_ context.Context, link models.MessageLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, link)
	return nil
}

func (f *fakeStore) SaveLinkPair(_ context.Context, a, b models.MessageLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, a, b)
	return nil
}

func (f *fakeStore) LinkByStaffMessage(_ context.Context, adminMessageID int) (*models.MessageLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.AdminMessageID == adminMessageID {
			cp := l
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) LinkByUserMessage(_ context.Context, userID int64, userMessageID int) (*models.MessageLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.UserID == userID && l.UserMessageID == userMessageID {
			cp := l
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

// seedRequest drops a pre-existing request into the store and returns its key.
func (f *fakeStore) seedRequest(t *testing.T, req models.Request) string {
	t.Helper()
	id, err := f.InsertRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return id
}

type editCall struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  *tg.InlineKeyboardMarkup
}

type fakeMessenger struct {
	nextID    int
	sent      []telegram.Out
	sentIDs   []int
	edits     []editCall
	deletes   []int
	forwards  []telegram.Out
	reactions []int
	callbacks []string
}

func (m *fakeMessenger) newID() int {
	m.nextID++
	return 1000 + m.nextID
}

func (m *fakeMessenger) Send(_ context.Context, out telegram.Out) (*tg.Message, error) {
	id := m.newID()
	m.sent = append(m.sent, out)
	m.sentIDs = append(m.sentIDs, id)
	return &tg.Message{ID: id, Chat: tg.Chat{ID: out.ChatID}, MessageThreadID: out.ThreadID}, nil
}

func (m *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, text string, keyboard *tg.InlineKeyboardMarkup) error {
	m.edits = append(m.edits, editCall{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: keyboard})
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	m.deletes = append(m.deletes, messageID)
	return nil
}

func (m *fakeMessenger) Forward(_ context.Context, toChat int64, threadID int, _ int64, messageID int) (*tg.Message, error) {
	m.forwards = append(m.forwards, telegram.Out{ChatID: toChat, ThreadID: threadID, ReplyTo: messageID})
	return &tg.Message{ID: m.newID(), Chat: tg.Chat{ID: toChat}, MessageThreadID: threadID}, nil
}

func (m *fakeMessenger) Copy(_ context.Context, _ int64, _ int64, _ int) (int, error) {
	return m.newID(), nil
}

func (m *fakeMessenger) React(_ context.Context, _ int64, messageID int, _ string) error {
	m.reactions = append(m.reactions, messageID)
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, callbackID, text string, _ bool) error {
	m.callbacks = append(m.callbacks, callbackID+":"+text)
	return nil
}

// sentTo filters recorded sends by destination chat.
func (m *fakeMessenger) sentTo(chatID int64) []telegram.Out {
	var out []telegram.Out
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// sentID returns the message id the fake assigned to the i-th recorded send.
func (m *fakeMessenger) sentID(i int) int {
	return m.sentIDs[i]
}

func (m *fakeMessenger) lastSent() telegram.Out {
	return m.sent[len(m.sent)-1]
}

type fakeMirror struct {
	appends   []string
	updates   []string
	appendErr error
	updateErr error
}

func (f *fakeMirror) AppendRequest(_ context.Context, code, _ string, _ models.Request) error {
	f.appends = append(f.appends, code)
	return f.appendErr
}

func (f *fakeMirror) UpdateStatus(_ context.Context, code string, _ models.Status, _ models.Category, _ time.Time) error {
	f.updates = append(f.updates, code)
	return f.updateErr
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeMessenger, *fakeMirror) {
	t.Helper()
	store := &fakeStore{}
	svc, msgr, mirror := newTestServiceWith(t, store)
	return svc, store, msgr, mirror
}

// newTestServiceWith builds the service over an arbitrary store so tests can
// wrap fakeStore with altered behavior.
func newTestServiceWith(t *testing.T, store Store) (*Service, *fakeMessenger, *fakeMirror) {
	t.Helper()
	msgr := &fakeMessenger{}
	mirror := &fakeMirror{}
	cfg := config.Config{
		AdminChatID:          testAdminChat,
		ChatThreadFeedback:   testFeedbackThread,
		ChatThreadElectrical: 11,
		ChatThreadPlumbing:   12,
		WorkHoursStart:       "09:00",
		WorkHoursEnd:         "17:00",
	}
	svc, err := New(store, msgr, mirror, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, msgr, mirror
}

func userUpdate(id int, userID int64, text string) *tg.Update {
	return &tg.Update{Message: &tg.Message{
		ID:   id,
		From: &tg.User{ID: userID, FirstName: "Тест", LastName: "Тестович"},
		Chat: tg.Chat{ID: userID},
		Text: text,
	}}
}

func replyUpdate(id int, userID int64, text string, replyTo *tg.Message) *tg.Update {
	upd := userUpdate(id, userID, text)
	upd.Message.ReplyToMessage = replyTo
	return upd
}

func adminReplyUpdate(id int, text string, replyToID int) *tg.Update {
	return &tg.Update{Message: &tg.Message{
		ID:             id,
		From:           &tg.User{ID: 900, FirstName: "Admin", Username: "dorm_admin"},
		Chat:           tg.Chat{ID: testAdminChat},
		Text:           text,
		ReplyToMessage: &tg.Message{ID: replyToID, Chat: tg.Chat{ID: testAdminChat}},
	}}
}

func callbackUpdate(data string, userID int64, msg *tg.Message) *tg.Update {
	return &tg.Update{CallbackQuery: &tg.CallbackQuery{
		ID:      "cb-" + data,
		From:    tg.User{ID: userID, FirstName: "Тест", Username: "tester"},
		Data:    data,
		Message: tg.MaybeInaccessibleMessage{Message: msg},
	}}
}
