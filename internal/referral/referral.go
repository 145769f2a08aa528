package referral

import (
	"fmt"

	"github.com/soloveyska1/gipsrbot-sub000/internal/models"
)

// bonusShare is the fraction of each referee order credited to the referrer.
const bonusShare = 0.05

// EdgeStore persists referrer→referee edges. Edges are append-only.
type EdgeStore interface {
	AddReferral(referrerID, refereeID int64) (bool, error)
	Referees(referrerID int64) ([]int64, error)
}

// OrderReader exposes persisted orders for bonus derivation.
type OrderReader interface {
	Orders(userID int64) ([]models.Order, error)
}

// Ledger tracks referral edges and derives bonus amounts from referees'
// order history. The bonus is recomputed on demand and never stored, so it
// cannot drift from the order book.
type Ledger struct {
	edges  EdgeStore
	orders OrderReader
}

func NewLedger(edges EdgeStore, orders OrderReader) *Ledger {
	return &Ledger{edges: edges, orders: orders}
}

// Register records a referral edge. Self-referrals and already-known
// referees are no-ops, so the call is safe to repeat every session start.
// Returns true when a new edge was recorded.
func (l *Ledger) Register(referrerID, refereeID int64) (bool, error) {
	if referrerID == refereeID {
		return false, nil
	}
	added, err := l.edges.AddReferral(referrerID, refereeID)
	if err != nil {
		return false, fmt.Errorf("referral: register %d→%d: %w", referrerID, refereeID, err)
	}
	return added, nil
}

// Referees lists the users invited by referrerID.
func (l *Ledger) Referees(referrerID int64) ([]int64, error) {
	return l.edges.Referees(referrerID)
}

// Bonus sums 5% of every order placed by every referee of userID, floored
// per order. Display-only: nothing ever debits it.
func (l *Ledger) Bonus(userID int64) (int, error) {
	referees, err := l.edges.Referees(userID)
	if err != nil {
		return 0, fmt.Errorf("referral: referees of %d: %w", userID, err)
	}
	bonus := 0
	for _, refereeID := range referees {
		orders, err := l.orders.Orders(refereeID)
		if err != nil {
			return 0, fmt.Errorf("referral: orders of referee %d: %w", refereeID, err)
		}
		for _, order := range orders {
			bonus += int(float64(order.Price) * bonusShare)
		}
	}
	return bonus, nil
}
