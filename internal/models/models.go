package models

import "time"

type OrderStatus string

const (
	StatusNew            OrderStatus = "new"
	StatusAccepted       OrderStatus = "accepted"
	StatusRejected       OrderStatus = "rejected"
	StatusInProgress     OrderStatus = "in_progress"
	StatusWaitingPayment OrderStatus = "waiting_payment"
	StatusRevision       OrderStatus = "revision"
	StatusDone           OrderStatus = "done"
)

// statusTitles maps a status to the label shown to users and the admin.
var statusTitles = map[OrderStatus]string{
	StatusNew:            "🟡 Новый заказ",
	StatusAccepted:       "✅ Принят",
	StatusRejected:       "❌ Отклонен",
	StatusInProgress:     "🔧 В работе",
	StatusWaitingPayment: "💳 Ожидает оплаты",
	StatusRevision:       "🔁 На доработке",
	StatusDone:           "✅ Готово к выдаче",
}

// Title returns the display label for the status.
func (s OrderStatus) Title() string {
	if title, ok := statusTitles[s]; ok {
		return title
	}
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s OrderStatus) IsValid() bool {
	_, ok := statusTitles[s]
	return ok
}

// Statuses returns every known status in admin-menu order.
func Statuses() []OrderStatus {
	return []OrderStatus{
		StatusNew,
		StatusAccepted,
		StatusInProgress,
		StatusWaitingPayment,
		StatusRevision,
		StatusDone,
		StatusRejected,
	}
}

// Order is a finalized, persisted order item. OrderID is sequential and
// 1-based within a single user's order history, never reused.
type Order struct {
	UserID       int64
	OrderID      int64
	TypeKey      string
	Topic        string
	DeadlineDays int
	DeadlineDate time.Time
	Requirements string
	Upsells      []string
	Complexity   float64
	Price        int
	Status       OrderStatus
	CreatedAt    time.Time
}

// NewOrder is an order as produced by checkout, before the store assigns
// its per-user sequential id.
type NewOrder struct {
	TypeKey      string
	Topic        string
	DeadlineDays int
	Requirements string
	Upsells      []string
	Complexity   float64
	Price        int
}

// UserAction is one entry of the per-user action log shown to the admin.
type UserAction struct {
	UserID    int64
	Username  string
	Action    string
	CreatedAt time.Time
}
