package flow

import (
	"sync"
	"time"
)

// State identifies the current step of a conversation.
type State int

const (
	StateMainMenu State = iota
	StateSelectWorkType
	StateViewTypeDetails
	StateInputTopic
	StateSelectDeadline
	StateInputRequirements
	StateAddUpsell
	StateConfirmItem
	StateChangeField
	StateAddAnotherItem
	StateConfirmCart
	StatePriceList
	StatePriceDetail
	StateCalcSelectType
	StateCalcSelectDeadline
	StateCalcSelectComplexity
	StateCalcResult
	StateFAQ
	StateProfile
	StateInputFeedback
)

// Session holds the per-conversation state: current step, the order draft,
// the cart of priced items and a cached referral link for profile display.
type Session struct {
	mu sync.Mutex

	UserID   int64
	Username string
	State    State
	Draft    Draft
	Cart     []CartItem
	Calc     CalcDraft
	RefLink  string

	// viewKey is the work type currently shown in a detail view, before it
	// is committed to the draft.
	viewKey string

	touched time.Time
}

// CalcDraft accumulates the calculator branch's selections.
type CalcDraft struct {
	TypeKey      string
	DeadlineDays int
	Complexity   float64
}

// Sessions is the in-memory session store, one entry per active user.
type Sessions struct {
	mu     sync.Mutex
	byUser map[int64]*Session
	now    func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{byUser: map[int64]*Session{}, now: time.Now}
}

// Get returns the user's session, creating it on first interaction.
func (s *Sessions) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byUser[userID]
	if !ok {
		sess = &Session{UserID: userID, State: StateMainMenu, touched: s.now()}
		s.byUser[userID] = sess
	}
	return sess
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were evicted. An evicted session's draft and cart are discarded.
func (s *Sessions) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxIdle)
	evicted := 0
	for id, sess := range s.byUser {
		sess.mu.Lock()
		idle := sess.touched.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.byUser, id)
			evicted++
		}
	}
	return evicted
}
