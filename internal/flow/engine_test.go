package flow

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soloveyska1/gipsrbot-sub000/internal/catalog"
	"github.com/soloveyska1/gipsrbot-sub000/internal/models"
	"github.com/soloveyska1/gipsrbot-sub000/internal/pricing"
)

type fakeOrders struct {
	byUser     map[int64][]models.Order
	failAppend bool
}

func (f *fakeOrders) Orders(userID int64) ([]models.Order, error) {
	return f.byUser[userID], nil
}

func (f *fakeOrders) AppendOrders(userID int64, items []models.NewOrder) ([]models.Order, error) {
	if f.failAppend {
		return nil, errors.New("store is down")
	}
	if f.byUser == nil {
		f.byUser = map[int64][]models.Order{}
	}
	next := int64(len(f.byUser[userID])) + 1
	saved := make([]models.Order, 0, len(items))
	for i, item := range items {
		saved = append(saved, models.Order{
			UserID:       userID,
			OrderID:      next + int64(i),
			TypeKey:      item.TypeKey,
			Topic:        item.Topic,
			DeadlineDays: item.DeadlineDays,
			DeadlineDate: time.Now().AddDate(0, 0, item.DeadlineDays),
			Requirements: item.Requirements,
			Upsells:      item.Upsells,
			Complexity:   item.Complexity,
			Price:        item.Price,
			Status:       models.StatusNew,
			CreatedAt:    time.Now(),
		})
	}
	f.byUser[userID] = append(f.byUser[userID], saved...)
	return saved, nil
}

type fakeFeedback struct {
	entries []string
	fail    bool
}

func (f *fakeFeedback) AddFeedback(userID int64, text string) error {
	if f.fail {
		return errors.New("store is down")
	}
	f.entries = append(f.entries, text)
	return nil
}

type fakeReferrals struct {
	referees []int64
	bonus    int
}

func (f *fakeReferrals) Referees(userID int64) ([]int64, error) { return f.referees, nil }
func (f *fakeReferrals) Bonus(userID int64) (int, error)        { return f.bonus, nil }

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) NotifyAdmin(text string) { f.messages = append(f.messages, text) }

type fixture struct {
	engine    *Engine
	orders    *fakeOrders
	feedback  *fakeFeedback
	referrals *fakeReferrals
	notifier  *fakeNotifier
	session   *Session
}

func newFixture() *fixture {
	cat := catalog.New(nil)
	f := &fixture{
		orders:    &fakeOrders{},
		feedback:  &fakeFeedback{},
		referrals: &fakeReferrals{},
		notifier:  &fakeNotifier{},
		session:   &Session{UserID: 7, Username: "student", RefLink: "https://t.me/testbot?start=7"},
	}
	f.engine = NewEngine(
		cat,
		pricing.NewCalculator(cat, pricing.NewSettings(pricing.ModeLight)),
		f.orders, f.feedback, f.referrals, f.notifier,
	).WithClock(func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	})
	return f
}

func (f *fixture) key(k string) Prompt   { return f.engine.Handle(f.session, Event{Key: k}) }
func (f *fixture) text(t string) Prompt  { return f.engine.Handle(f.session, Event{Text: t}) }
func (f *fixture) state() State          { return f.session.State }

// draftItem walks the flow up to the item confirmation screen.
func (f *fixture) draftItem(typeKey, topic, daysKey string) Prompt {
	f.key("menu:order")
	f.key("type:" + typeKey)
	f.key("pick")
	f.text(topic)
	f.key(daysKey)
	f.key("skip")
	return f.key("ups:done")
}

func wantContains(t *testing.T, p Prompt, substr string) {
	t.Helper()
	if !strings.Contains(p.Text, substr) {
		t.Fatalf("prompt %q does not contain %q", p.Text, substr)
	}
}

func TestFullOrderFlow(t *testing.T) {
	f := newFixture()

	p := f.key("menu:order")
	if f.state() != StateSelectWorkType {
		t.Fatalf("state = %v, want StateSelectWorkType", f.state())
	}

	p = f.key("type:course_theory")
	if f.state() != StateViewTypeDetails {
		t.Fatalf("state = %v, want StateViewTypeDetails", f.state())
	}
	wantContains(t, p, "Курсовая (теория)")

	f.key("pick")
	if f.state() != StateInputTopic {
		t.Fatalf("state = %v, want StateInputTopic", f.state())
	}

	f.text("Курсовая по финансам")
	if f.state() != StateSelectDeadline {
		t.Fatalf("state = %v, want StateSelectDeadline", f.state())
	}

	f.key("days:7")
	if f.state() != StateInputRequirements {
		t.Fatalf("state = %v, want StateInputRequirements", f.state())
	}

	f.key("skip")
	if f.state() != StateAddUpsell {
		t.Fatalf("state = %v, want StateAddUpsell", f.state())
	}
	if f.session.Draft.Requirements != "Нет" {
		t.Fatalf("skipped requirements = %q", f.session.Draft.Requirements)
	}

	// 7 days in light mode carries no surcharge; prez adds a flat 2000.
	f.key("ups:prez")
	p = f.key("ups:done")
	if f.state() != StateConfirmItem {
		t.Fatalf("state = %v, want StateConfirmItem", f.state())
	}
	wantContains(t, p, "Стоимость работы: 9000 ₽")

	p = f.key("item:confirm")
	if f.state() != StateAddAnotherItem {
		t.Fatalf("state = %v, want StateAddAnotherItem", f.state())
	}
	if len(f.session.Cart) != 1 || f.session.Cart[0].Price != 9000 {
		t.Fatalf("cart = %+v", f.session.Cart)
	}
	if f.session.Draft.TypeKey != "" {
		t.Fatal("draft must be cleared after the item is carted")
	}

	p = f.key("cart:checkout")
	if f.state() != StateConfirmCart {
		t.Fatalf("state = %v, want StateConfirmCart", f.state())
	}
	wantContains(t, p, "Итого к оплате: 9000 ₽")
	if strings.Contains(p.Text, "Скидка") {
		t.Fatal("single-item cart must not show a discount")
	}

	p = f.key("cart:place")
	if f.state() != StateMainMenu {
		t.Fatalf("state = %v, want StateMainMenu", f.state())
	}
	wantContains(t, p, "#1")
	if len(f.session.Cart) != 0 {
		t.Fatal("cart must be emptied after checkout")
	}

	saved := f.orders.byUser[7]
	if len(saved) != 1 {
		t.Fatalf("saved %d orders, want 1", len(saved))
	}
	if saved[0].OrderID != 1 || saved[0].Price != 9000 || saved[0].Topic != "Курсовая по финансам" {
		t.Fatalf("saved order = %+v", saved[0])
	}
	if len(f.notifier.messages) != 1 || !strings.Contains(f.notifier.messages[0], "Новый заказ") {
		t.Fatalf("admin notifications = %v", f.notifier.messages)
	}
}

func TestCartDiscountTwoItems(t *testing.T) {
	f := newFixture()

	f.draftItem("course_theory", "Курсовая по финансам", "days:7")
	f.key("item:confirm")
	f.key("cart:add")
	f.key("type:self")
	f.key("pick")
	f.text("Эссе по праву")
	f.key("days:14")
	f.key("skip")
	f.key("ups:done")
	f.key("item:confirm")

	// 7000 + 1500 = 8500, lump 10% off as a single subtraction.
	p := f.key("cart:checkout")
	wantContains(t, p, "Сумма: 8500 ₽")
	wantContains(t, p, "Скидка за несколько работ (10%): -850 ₽")
	wantContains(t, p, "Итого к оплате: 7650 ₽")

	f.key("cart:place")
	saved := f.orders.byUser[7]
	if len(saved) != 2 {
		t.Fatalf("saved %d orders, want 2", len(saved))
	}
	// Item prices stay undiscounted, and ids are sequential.
	if saved[0].OrderID != 1 || saved[1].OrderID != 2 {
		t.Fatalf("order ids = %d, %d", saved[0].OrderID, saved[1].OrderID)
	}
	if saved[0].Price != 7000 || saved[1].Price != 1500 {
		t.Fatalf("item prices = %d, %d", saved[0].Price, saved[1].Price)
	}
}

func TestUpsellIdempotent(t *testing.T) {
	f := newFixture()
	f.key("menu:order")
	f.key("type:vkr")
	f.key("pick")
	f.text("Бизнес-план компании")
	f.key("days:30")
	f.key("skip")

	f.key("ups:speech")
	p := f.key("ups:speech")
	wantContains(t, p, "уже добавлено")
	if len(f.session.Draft.Upsells) != 1 {
		t.Fatalf("upsells = %v, want a single speech entry", f.session.Draft.Upsells)
	}

	p = f.key("ups:done")
	wantContains(t, p, "Стоимость работы: 33000 ₽")
}

func TestCustomDeadline(t *testing.T) {
	f := newFixture()
	f.key("menu:order")
	f.key("type:course_theory")
	f.key("pick")
	f.text("Курсовая по финансам")

	f.key("days:custom")
	if f.state() != StateSelectDeadline {
		t.Fatalf("state = %v, want StateSelectDeadline", f.state())
	}

	p := f.text("через неделю")
	wantContains(t, p, "Не получилось распознать срок")
	if f.state() != StateSelectDeadline {
		t.Fatalf("state = %v after bad input", f.state())
	}

	p = f.text("-2")
	wantContains(t, p, "Не получилось распознать срок")

	f.text("5")
	if f.state() != StateInputRequirements {
		t.Fatalf("state = %v, want StateInputRequirements", f.state())
	}
	if f.session.Draft.DeadlineDays != 5 {
		t.Fatalf("deadline = %d, want 5", f.session.Draft.DeadlineDays)
	}
}

func TestEmptyTopicReprompt(t *testing.T) {
	f := newFixture()
	f.key("menu:order")
	f.key("type:self")
	f.key("pick")

	p := f.text("   ")
	wantContains(t, p, "Тема не может быть пустой")
	if f.state() != StateInputTopic {
		t.Fatalf("state = %v, want StateInputTopic", f.state())
	}
}

func TestChangeTopicClearsDownstream(t *testing.T) {
	f := newFixture()
	f.draftItem("course_theory", "Курсовая по финансам", "days:7")

	f.key("item:change")
	if f.state() != StateChangeField {
		t.Fatalf("state = %v, want StateChangeField", f.state())
	}

	f.key("change:topic")
	if f.state() != StateInputTopic {
		t.Fatalf("state = %v, want StateInputTopic", f.state())
	}
	d := f.session.Draft
	if d.TypeKey != "course_theory" {
		t.Fatalf("type key = %q, must be retained", d.TypeKey)
	}
	if d.Topic != "" || d.DeadlineDays != 0 || d.Requirements != "" || d.RequirementsSet || d.Upsells != nil {
		t.Fatalf("downstream fields not cleared: %+v", d)
	}
}

func TestChangeDeadlineKeepsTopic(t *testing.T) {
	f := newFixture()
	f.draftItem("course_theory", "Курсовая по финансам", "days:7")

	f.key("item:change")
	f.key("change:deadline")
	if f.state() != StateSelectDeadline {
		t.Fatalf("state = %v, want StateSelectDeadline", f.state())
	}
	if f.session.Draft.Topic != "Курсовая по финансам" {
		t.Fatalf("topic = %q, must be retained", f.session.Draft.Topic)
	}
	if f.session.Draft.DeadlineDays != 0 || f.session.Draft.RequirementsSet {
		t.Fatalf("downstream fields not cleared: %+v", f.session.Draft)
	}
}

func TestBackFromDeadlineKeepsDraft(t *testing.T) {
	f := newFixture()
	f.key("menu:order")
	f.key("type:self")
	f.key("pick")
	f.text("Эссе по праву")

	f.key("back")
	if f.state() != StateInputTopic {
		t.Fatalf("state = %v, want StateInputTopic", f.state())
	}
	if f.session.Draft.Topic != "Эссе по праву" {
		t.Fatalf("topic = %q, back must not discard it", f.session.Draft.Topic)
	}
}

func TestFinalizeFailurePreservesCart(t *testing.T) {
	f := newFixture()
	f.draftItem("course_theory", "Курсовая по финансам", "days:7")
	f.key("item:confirm")
	f.key("cart:checkout")

	f.orders.failAppend = true
	p := f.key("cart:place")
	wantContains(t, p, "Не удалось сохранить заказ")
	if f.state() != StateConfirmCart {
		t.Fatalf("state = %v, want StateConfirmCart", f.state())
	}
	if len(f.session.Cart) != 1 {
		t.Fatalf("cart length = %d, must be preserved for retry", len(f.session.Cart))
	}

	f.orders.failAppend = false
	f.key("cart:place")
	if len(f.orders.byUser[7]) != 1 {
		t.Fatalf("retry saved %d orders, want 1", len(f.orders.byUser[7]))
	}
}

func TestComplexityRaisesQuote(t *testing.T) {
	f := newFixture()
	// The analytic keyword bumps complexity to 1.1: 7000 × 1.1 = 7700.
	p := f.draftItem("course_theory", "Анализ рынка труда", "days:7")
	wantContains(t, p, "Стоимость работы: 7700 ₽")
}

func TestCancelSecondItemKeepsCart(t *testing.T) {
	f := newFixture()
	f.draftItem("course_theory", "Курсовая по финансам", "days:7")
	f.key("item:confirm")
	f.key("cart:add")
	f.key("type:self")
	f.key("pick")
	f.text("Эссе по праву")
	f.key("days:14")
	f.key("skip")
	f.key("ups:done")

	p := f.key("item:cancel")
	if f.state() != StateConfirmCart {
		t.Fatalf("state = %v, want StateConfirmCart", f.state())
	}
	if len(f.session.Cart) != 1 || f.session.Cart[0].Topic != "Курсовая по финансам" {
		t.Fatalf("cart = %+v, the first item must survive", f.session.Cart)
	}
	if f.session.Draft.TypeKey != "" {
		t.Fatal("abandoned draft must be discarded")
	}
	wantContains(t, p, "Итого к оплате: 7000 ₽")
}

func TestCancelOnlyItemReturnsToMenu(t *testing.T) {
	f := newFixture()
	f.draftItem("course_theory", "Курсовая по финансам", "days:7")

	p := f.key("item:cancel")
	wantContains(t, p, "Оформление отменено")
	if f.state() != StateMainMenu {
		t.Fatalf("state = %v, want StateMainMenu", f.state())
	}
	if f.session.Draft.TypeKey != "" {
		t.Fatal("draft must be discarded")
	}
}

func TestCancelMidFlow(t *testing.T) {
	f := newFixture()
	f.draftItem("course_theory", "Курсовая по финансам", "days:7")
	f.key("item:confirm")

	p := f.engine.Cancel(f.session)
	wantContains(t, p, "Оформление отменено")
	if f.state() != StateMainMenu {
		t.Fatalf("state = %v, want StateMainMenu", f.state())
	}
	if len(f.session.Cart) != 0 || f.session.Draft.TypeKey != "" {
		t.Fatal("cancel must discard the draft and the cart")
	}
}

func TestCalculatorFlow(t *testing.T) {
	f := newFixture()

	f.key("menu:calc")
	if f.state() != StateCalcSelectType {
		t.Fatalf("state = %v, want StateCalcSelectType", f.state())
	}

	f.key("ctype:vkr")
	f.key("cdays:30")
	p := f.key("cfx:1.3")
	if f.state() != StateCalcResult {
		t.Fatalf("state = %v, want StateCalcResult", f.state())
	}
	// 32000 × 1.3, 30 days carries no urgency surcharge in light mode.
	wantContains(t, p, "41600 ₽")
	wantContains(t, p, "+30%")

	f.key("order")
	if f.state() != StateViewTypeDetails {
		t.Fatalf("state = %v, want StateViewTypeDetails", f.state())
	}
	if f.session.viewKey != "vkr" {
		t.Fatalf("viewKey = %q, want vkr", f.session.viewKey)
	}
}

func TestPriceListNavigation(t *testing.T) {
	f := newFixture()

	p := f.key("menu:prices")
	if f.state() != StatePriceList {
		t.Fatalf("state = %v, want StatePriceList", f.state())
	}
	wantContains(t, p, "Прайс-лист")

	p = f.key("ptype:master")
	if f.state() != StatePriceDetail {
		t.Fatalf("state = %v, want StatePriceDetail", f.state())
	}
	wantContains(t, p, "36000–60000 ₽")

	f.key("back")
	if f.state() != StatePriceList {
		t.Fatalf("state = %v, back must return to the list", f.state())
	}
}

func TestFAQNavigation(t *testing.T) {
	f := newFixture()

	p := f.key("menu:faq")
	if f.state() != StateFAQ {
		t.Fatalf("state = %v, want StateFAQ", f.state())
	}
	if len(p.Options) < 6 {
		t.Fatalf("FAQ list has %d option rows, want at least 6", len(p.Options))
	}

	p = f.key("faq:0")
	wantContains(t, p, "Как сделать заказ?")

	f.key("menu:faq")
	if f.state() != StateFAQ {
		t.Fatalf("state = %v, answer view must return to the list", f.state())
	}

	f.key("back")
	if f.state() != StateMainMenu {
		t.Fatalf("state = %v, want StateMainMenu", f.state())
	}
}

func TestProfileAndFeedback(t *testing.T) {
	f := newFixture()
	f.orders.byUser = map[int64][]models.Order{
		7: {
			{UserID: 7, OrderID: 1, TypeKey: "self", Topic: "Эссе", Price: 1500, Status: models.StatusDone},
			{UserID: 7, OrderID: 2, TypeKey: "vkr", Topic: "ВКР", Price: 32000, Status: models.StatusInProgress},
		},
	}
	f.referrals.referees = []int64{42}
	f.referrals.bonus = 460

	p := f.key("menu:profile")
	if f.state() != StateProfile {
		t.Fatalf("state = %v, want StateProfile", f.state())
	}
	wantContains(t, p, "Заказов: 2")
	wantContains(t, p, "На сумму: 33500 ₽")
	wantContains(t, p, "Приглашено друзей: 1")
	wantContains(t, p, "Реферальный бонус: 460 ₽")
	wantContains(t, p, "https://t.me/testbot?start=7")

	p = f.key("profile:orders")
	wantContains(t, p, "#2")
	wantContains(t, p, "🔧 В работе")

	f.key("menu:profile")
	f.key("profile:feedback")
	if f.state() != StateInputFeedback {
		t.Fatalf("state = %v, want StateInputFeedback", f.state())
	}

	p = f.text("Все понравилось, спасибо!")
	if f.state() != StateMainMenu {
		t.Fatalf("state = %v, want StateMainMenu", f.state())
	}
	if len(f.feedback.entries) != 1 || f.feedback.entries[0] != "Все понравилось, спасибо!" {
		t.Fatalf("feedback entries = %v", f.feedback.entries)
	}
	if len(f.notifier.messages) != 1 || !strings.Contains(f.notifier.messages[0], "Новый отзыв") {
		t.Fatalf("admin notifications = %v", f.notifier.messages)
	}
}

func TestEmptyFeedbackReprompt(t *testing.T) {
	f := newFixture()
	f.key("menu:profile")
	f.key("profile:feedback")

	p := f.text("")
	wantContains(t, p, "Отзыв не может быть пустым")
	if f.state() != StateInputFeedback {
		t.Fatalf("state = %v, want StateInputFeedback", f.state())
	}
	if len(f.feedback.entries) != 0 {
		t.Fatalf("feedback entries = %v, want none", f.feedback.entries)
	}
}

func TestStartResetsEverything(t *testing.T) {
	f := newFixture()
	f.draftItem("course_theory", "Курсовая по финансам", "days:7")
	f.key("item:confirm")

	p := f.engine.Start(f.session, "Добро пожаловать!")
	wantContains(t, p, "Добро пожаловать!")
	if f.state() != StateMainMenu {
		t.Fatalf("state = %v, want StateMainMenu", f.state())
	}
	if len(f.session.Cart) != 0 || f.session.Draft.TypeKey != "" {
		t.Fatal("start must reset the draft and the cart")
	}
}

func TestUnknownWorkTypeReprompt(t *testing.T) {
	f := newFixture()
	f.key("menu:order")

	p := f.key("type:phd")
	wantContains(t, p, "Неизвестный тип работы")
	if f.state() != StateSelectWorkType {
		t.Fatalf("state = %v, want StateSelectWorkType", f.state())
	}
}
