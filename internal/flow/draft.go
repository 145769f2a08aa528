package flow

import "github.com/soloveyska1/gipsrbot-sub000/internal/catalog"

// noRequirements is the sentinel stored when the user explicitly skips the
// requirements step.
const noRequirements = "Нет"

// Draft accumulates order fields across flow steps. Fields must be collected
// in order: type, topic, deadline, requirements, upsells.
type Draft struct {
	TypeKey         string
	Topic           string
	DeadlineDays    int
	Requirements    string
	RequirementsSet bool
	Upsells         []string
}

// Reset clears every field, keeping nothing.
func (d *Draft) Reset() {
	*d = Draft{}
}

// ClearFromTopic drops the topic and every step downstream of it.
func (d *Draft) ClearFromTopic() {
	d.Topic = ""
	d.ClearFromDeadline()
}

// ClearFromDeadline drops the deadline and every step downstream of it.
func (d *Draft) ClearFromDeadline() {
	d.DeadlineDays = 0
	d.ClearFromRequirements()
}

// ClearFromRequirements drops the requirements and the upsell set.
func (d *Draft) ClearFromRequirements() {
	d.Requirements = ""
	d.RequirementsSet = false
	d.Upsells = nil
}

// AddUpsell toggles an add-on on. Returns false when it was already
// selected; duplicates are never double charged.
func (d *Draft) AddUpsell(key string) bool {
	for _, k := range d.Upsells {
		if k == key {
			return false
		}
	}
	d.Upsells = append(d.Upsells, key)
	return true
}

// UpsellTotal sums the flat surcharges of the selected add-ons.
func (d *Draft) UpsellTotal() int {
	total := 0
	for _, key := range d.Upsells {
		if u, ok := catalog.GetUpsell(key); ok {
			total += u.Price
		}
	}
	return total
}

// CartItem is an immutable snapshot of a priced draft appended to the cart.
type CartItem struct {
	TypeKey      string
	Topic        string
	DeadlineDays int
	Requirements string
	Upsells      []string
	Complexity   float64
	Price        int
}

// cartTotal returns the pre-discount sum, the discount and the payable
// total. Carts with two or more items get a lump 10% discount, shown as a
// single subtraction rather than prorated across items.
func cartTotal(cart []CartItem) (sum, discount, total int) {
	for _, item := range cart {
		sum += item.Price
	}
	if len(cart) > 1 {
		discount = sum / 10
	}
	return sum, discount, sum - discount
}
