package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusWaiting       Status = "WAITING"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusClarification Status = "CLARIFICATION"
	StatusRejected      Status = "REJECTED"
	StatusCompleted     Status = "COMPLETED"
	StatusCancelled     Status = "CANCELLED"
)

// AllStatuses is the keyboard ordering; CANCELLED stays last and is never
// offered as a staff action.
var AllStatuses = []Status{
	StatusWaiting,
	StatusInProgress,
	StatusClarification,
	StatusRejected,
	StatusCompleted,
	StatusCancelled,
}

var statusNames = map[Status]string{
	StatusWaiting:       "⏳ Очікує",
	StatusInProgress:    "🧑‍💻 У роботі",
	StatusClarification: "📝 Уточнення",
	StatusRejected:      "❌ Відмовлено",
	StatusCompleted:     "✅ Виконано",
	StatusCancelled:     "🚫 Скасовано",
}

var statusSheetNames = map[Status]string{
	StatusWaiting:       "Очікує",
	StatusInProgress:    "У роботі",
	StatusClarification: "Уточнення",
	StatusRejected:      "Відмовлено",
	StatusCompleted:     "Виконано",
	StatusCancelled:     "Скасовано",
}

func (s Status) Name() string { return statusNames[s] }

// SheetName is the plain label written to the spreadsheet (no emoji).
func (s Status) SheetName() string { return statusSheetNames[s] }

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Unresolved reports whether the request still occupies a queue slot.
func (s Status) Unresolved() bool {
	return s == StatusWaiting || s == StatusInProgress
}

// Cancellable reports whether the requester may still withdraw the request.
func (s Status) Cancellable() bool {
	return s == StatusWaiting || s == StatusClarification
}

type Category string

const (
	CategoryElectrical Category = "ELECTRICAL"
	CategoryPlumbing   Category = "PLUMBING"
	CategoryGas        Category = "GAS"
	CategoryElevator   Category = "ELEVATOR"
	CategoryCarpentry  Category = "CARPENTRY"
	CategoryOther      Category = "OTHER"
)

var AllCategories = []Category{
	CategoryElectrical,
	CategoryPlumbing,
	CategoryGas,
	CategoryElevator,
	CategoryCarpentry,
	CategoryOther,
}

var categoryNames = map[Category]string{
	CategoryElectrical: "Електрика",
	CategoryPlumbing:   "Сантехніка",
	CategoryGas:        "Газ",
	CategoryElevator:   "Ліфт",
	CategoryCarpentry:  "Столярство",
	CategoryOther:      "Інше",
}

func (c Category) Name() string { return categoryNames[c] }

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ActorSystem attributes status changes made by the bot itself.
const ActorSystem = "system"

// Request is one maintenance ticket. Details is empty when the submission
// was non-text and forwarded verbatim; ForwardedMessageID then points at the
// forwarded content in the staff channel.
type Request struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Name               string             `bson:"name"`
	Phone              string             `bson:"phone"`
	Dorm               string             `bson:"dorm"`
	Category           Category           `bson:"problem_type"`
	Details            string             `bson:"details,omitempty"`
	ForwardedMessageID int                `bson:"forwarded_message_id,omitempty"`
	Status             Status             `bson:"status"`
	CreatedAt          time.Time          `bson:"timestamp"`
	EditedAt           time.Time          `bson:"edit_timestamp"`
	EditedBy           string             `bson:"edited_by,omitempty"`
	UserID             int64              `bson:"user_id"`
}

// MessageLink records one correspondence between a message in the
// requester's private chat and a message in the staff channel. Links are
// append-only; a forwarded exchange with a separate info message writes two.
type MessageLink struct {
	UserID         int64 `bson:"user_id"`
	UserMessageID  int   `bson:"user_message_id"`
	AdminMessageID int   `bson:"admin_message_id"`
}
