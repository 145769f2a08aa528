package flow

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/soloveyska1/gipsrbot-sub000/internal/catalog"
	"github.com/soloveyska1/gipsrbot-sub000/internal/models"
	"github.com/soloveyska1/gipsrbot-sub000/internal/pricing"
)

// Event is one inbound user action: either free text or a selected option
// key, never both.
type Event struct {
	Text string
	Key  string
}

// OrderStore persists finalized orders. AppendOrders must assign per-user
// sequential ids atomically.
type OrderStore interface {
	Orders(userID int64) ([]models.Order, error)
	AppendOrders(userID int64, items []models.NewOrder) ([]models.Order, error)
}

// FeedbackStore persists free-text feedback left from the profile view.
type FeedbackStore interface {
	AddFeedback(userID int64, text string) error
}

// ReferralSource exposes the referral ledger to the profile view.
type ReferralSource interface {
	Referees(userID int64) ([]int64, error)
	Bonus(userID int64) (int, error)
}

// Notifier delivers best-effort administrator notifications. Failures are
// the implementation's to log; they never surface to the user.
type Notifier interface {
	NotifyAdmin(text string)
}

// Option keys understood by the engine.
const (
	keyBack = "back"
	keyMenu = "menu"

	keyMenuOrder   = "menu:order"
	keyMenuPrices  = "menu:prices"
	keyMenuCalc    = "menu:calc"
	keyMenuProfile = "menu:profile"
	keyMenuFAQ     = "menu:faq"

	keyPick       = "pick"
	keySkip       = "skip"
	keyUpsDone    = "ups:done"
	keyItemOK     = "item:confirm"
	keyItemChange = "item:change"
	keyItemCancel = "item:cancel"
	keyCartAdd    = "cart:add"
	keyCartGo     = "cart:checkout"
	keyCartPlace  = "cart:place"
	keyCartCancel = "cart:cancel"
	keyDaysCustom = "days:custom"
	keyCalcAgain  = "recalc"
	keyCalcOrder  = "order"

	keyProfileOrders   = "profile:orders"
	keyProfileFeedback = "profile:feedback"

	keyChangeType         = "change:type"
	keyChangeTopic        = "change:topic"
	keyChangeDeadline     = "change:deadline"
	keyChangeRequirements = "change:requirements"
)

var deadlinePresets = []int{3, 7, 14, 21, 30}

// Engine is the order-flow state machine: a function of (session, event)
// producing the next prompt. It holds no transport dependencies.
type Engine struct {
	catalog   *catalog.Catalog
	calc      *pricing.Calculator
	orders    OrderStore
	feedback  FeedbackStore
	referrals ReferralSource
	notifier  Notifier
	now       func() time.Time
}

func NewEngine(cat *catalog.Catalog, calc *pricing.Calculator, orders OrderStore, feedback FeedbackStore, referrals ReferralSource, notifier Notifier) *Engine {
	return &Engine{
		catalog:   cat,
		calc:      calc,
		orders:    orders,
		feedback:  feedback,
		referrals: referrals,
		notifier:  notifier,
		now:       time.Now,
	}
}

// WithClock overrides the engine's clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Start resets the session and shows the main menu.
func (e *Engine) Start(s *Session, greeting string) Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = e.now()
	s.Draft.Reset()
	s.Cart = nil
	s.Calc = CalcDraft{}
	return e.toMainMenu(s, greeting)
}

// Cancel discards the draft and cart and returns to the main menu.
func (e *Engine) Cancel(s *Session) Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = e.now()
	s.Draft.Reset()
	s.Cart = nil
	return e.toMainMenu(s, "Оформление отменено. Можно начать заново из меню.")
}

// Handle routes one inbound event through the current state. Transitions
// for a single session are strictly sequential.
func (e *Engine) Handle(s *Session, ev Event) Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = e.now()
	ev.Text = strings.TrimSpace(ev.Text)

	switch s.State {
	case StateMainMenu:
		return e.handleMainMenu(s, ev)
	case StateSelectWorkType:
		return e.handleSelectWorkType(s, ev)
	case StateViewTypeDetails:
		return e.handleViewTypeDetails(s, ev)
	case StateInputTopic:
		return e.handleInputTopic(s, ev)
	case StateSelectDeadline:
		return e.handleSelectDeadline(s, ev)
	case StateInputRequirements:
		return e.handleInputRequirements(s, ev)
	case StateAddUpsell:
		return e.handleAddUpsell(s, ev)
	case StateConfirmItem:
		return e.handleConfirmItem(s, ev)
	case StateChangeField:
		return e.handleChangeField(s, ev)
	case StateAddAnotherItem:
		return e.handleAddAnotherItem(s, ev)
	case StateConfirmCart:
		return e.handleConfirmCart(s, ev)
	case StatePriceList:
		return e.handlePriceList(s, ev)
	case StatePriceDetail:
		return e.handlePriceDetail(s, ev)
	case StateCalcSelectType:
		return e.handleCalcSelectType(s, ev)
	case StateCalcSelectDeadline:
		return e.handleCalcSelectDeadline(s, ev)
	case StateCalcSelectComplexity:
		return e.handleCalcSelectComplexity(s, ev)
	case StateCalcResult:
		return e.handleCalcResult(s, ev)
	case StateFAQ:
		return e.handleFAQ(s, ev)
	case StateProfile:
		return e.handleProfile(s, ev)
	case StateInputFeedback:
		return e.handleInputFeedback(s, ev)
	}
	return e.toMainMenu(s, "")
}

// --- main menu ---

func (e *Engine) toMainMenu(s *Session, text string) Prompt {
	s.State = StateMainMenu
	if text == "" {
		text = "Выберите нужный раздел 👇"
	}
	return Prompt{
		Text: text,
		Options: [][]Option{
			row(opt("📝 Сделать заказ", keyMenuOrder)),
			row(opt("💲 Прайс-лист", keyMenuPrices), opt("🧮 Калькулятор", keyMenuCalc)),
			row(opt("👤 Профиль", keyMenuProfile), opt("❓ FAQ", keyMenuFAQ)),
		},
	}
}

func (e *Engine) handleMainMenu(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyMenuOrder:
		return e.toSelectWorkType(s)
	case keyMenuPrices:
		return e.toPriceList(s)
	case keyMenuCalc:
		return e.toCalcSelectType(s)
	case keyMenuProfile:
		return e.toProfile(s)
	case keyMenuFAQ:
		return e.toFAQ(s)
	}
	return e.toMainMenu(s, "")
}

// --- work type selection ---

func (e *Engine) toSelectWorkType(s *Session) Prompt {
	s.State = StateSelectWorkType
	p := Prompt{Text: "Выберите тип работы. Можно оформить несколько работ подряд — при заказе от двух действует скидка 10%!"}
	for _, wt := range e.catalog.All() {
		p.Options = append(p.Options, row(opt(wt.Icon+" "+wt.Name, "type:"+wt.Key)))
	}
	p.Options = append(p.Options, row(opt("⬅️ Главное меню", keyBack)))
	return p
}

func (e *Engine) handleSelectWorkType(s *Session, ev Event) Prompt {
	if ev.Key == keyBack {
		return e.toMainMenu(s, "")
	}
	if key, ok := strings.CutPrefix(ev.Key, "type:"); ok {
		if _, found := e.catalog.Get(key); !found {
			p := e.toSelectWorkType(s)
			p.Text = "Неизвестный тип работы. Выберите вариант из списка."
			return p
		}
		s.viewKey = key
		return e.toViewTypeDetails(s)
	}
	p := e.toSelectWorkType(s)
	p.Text = "Пожалуйста, выберите тип работы кнопкой."
	return p
}

func (e *Engine) toViewTypeDetails(s *Session) Prompt {
	wt, ok := e.catalog.Get(s.viewKey)
	if !ok {
		return e.toSelectWorkType(s)
	}
	s.State = StateViewTypeDetails
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n\n%s\n\n", wt.Icon, wt.Name, wt.Description)
	fmt.Fprintf(&sb, "Что включено: %s\n", wt.Details)
	fmt.Fprintf(&sb, "Примеры: %s\n", strings.Join(wt.Examples, ", "))
	fmt.Fprintf(&sb, "Базовая стоимость: от %d ₽", wt.BasePrice)
	return Prompt{
		Text: sb.String(),
		Options: [][]Option{
			row(opt("✅ Выбрать", keyPick)),
			row(opt("⬅️ Назад", keyBack)),
		},
	}
}

func (e *Engine) handleViewTypeDetails(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyPick:
		s.Draft.Reset()
		s.Draft.TypeKey = s.viewKey
		return e.toInputTopic(s)
	case keyBack:
		return e.toSelectWorkType(s)
	}
	return e.toViewTypeDetails(s)
}

// --- topic ---

func (e *Engine) toInputTopic(s *Session) Prompt {
	s.State = StateInputTopic
	return Prompt{Text: "Напишите тему работы сообщением. Для отмены используйте /cancel."}.withBack()
}

func (e *Engine) handleInputTopic(s *Session, ev Event) Prompt {
	if ev.Key == keyBack {
		return e.toViewTypeDetails(s)
	}
	if ev.Text == "" {
		p := e.toInputTopic(s)
		p.Text = "Тема не может быть пустой. Отправьте тему текстом."
		return p
	}
	s.Draft.Topic = ev.Text
	return e.toSelectDeadline(s)
}

// --- deadline ---

func (e *Engine) toSelectDeadline(s *Session) Prompt {
	s.State = StateSelectDeadline
	p := Prompt{Text: "📅 Выберите срок выполнения. Чем больше времени — тем выгоднее стоимость."}
	var current []Option
	for _, days := range deadlinePresets {
		date := e.now().AddDate(0, 0, days)
		current = append(current, opt(fmt.Sprintf("%s (%d дн.)", date.Format("02.01"), days), "days:"+strconv.Itoa(days)))
		if len(current) == 3 {
			p.Options = append(p.Options, current)
			current = nil
		}
	}
	current = append(current, opt("Другой срок", keyDaysCustom))
	p.Options = append(p.Options, current)
	return p.withBack()
}

func (e *Engine) handleSelectDeadline(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toInputTopic(s)
	case keyDaysCustom:
		return Prompt{Text: "Введите количество дней числом:"}.withBack()
	}
	raw := ev.Text
	if v, ok := strings.CutPrefix(ev.Key, "days:"); ok {
		raw = v
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		p := e.toSelectDeadline(s)
		p.Text = "Не получилось распознать срок. Введите положительное число дней."
		return p
	}
	s.Draft.DeadlineDays = days
	return e.toInputRequirements(s)
}

// --- requirements ---

func (e *Engine) toInputRequirements(s *Session) Prompt {
	s.State = StateInputRequirements
	return Prompt{
		Text:    "📝 Опишите требования (объем, структура, источники). Если требований нет — нажмите «Пропустить».",
		Options: [][]Option{row(opt("Пропустить", keySkip))},
	}.withBack()
}

func (e *Engine) handleInputRequirements(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toSelectDeadline(s)
	case keySkip:
		s.Draft.Requirements = noRequirements
		s.Draft.RequirementsSet = true
		return e.toAddUpsell(s, "")
	}
	if ev.Text == "" {
		p := e.toInputRequirements(s)
		p.Text = "Отправьте требования текстом или нажмите «Пропустить»."
		return p
	}
	s.Draft.Requirements = ev.Text
	s.Draft.RequirementsSet = true
	return e.toAddUpsell(s, "")
}

// --- upsells ---

func (e *Engine) toAddUpsell(s *Session, note string) Prompt {
	s.State = StateAddUpsell
	text := "Хотите добавить дополнительные материалы? Презентация или речь экономят время на подготовке!"
	if note != "" {
		text = note
	}
	p := Prompt{Text: text}
	selected := map[string]bool{}
	for _, key := range s.Draft.Upsells {
		selected[key] = true
	}
	for _, u := range catalog.Upsells() {
		prefix := "➕"
		if selected[u.Key] {
			prefix = "✅"
		}
		p.Options = append(p.Options, row(opt(fmt.Sprintf("%s %s (+%d ₽)", prefix, u.Title, u.Price), "ups:"+u.Key)))
	}
	p.Options = append(p.Options, row(opt("Продолжить", keyUpsDone)))
	return p.withBack()
}

func (e *Engine) handleAddUpsell(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toInputRequirements(s)
	case keyUpsDone:
		return e.toConfirmItem(s)
	}
	if key, ok := strings.CutPrefix(ev.Key, "ups:"); ok {
		u, found := catalog.GetUpsell(key)
		if !found {
			return e.toAddUpsell(s, "")
		}
		if !s.Draft.AddUpsell(key) {
			return e.toAddUpsell(s, fmt.Sprintf("«%s» уже добавлено. Можно продолжить оформление.", u.Title))
		}
		return e.toAddUpsell(s, "Отлично! Можно добавить еще или перейти к подтверждению.")
	}
	return e.toAddUpsell(s, "")
}

// --- item confirmation ---

// priceDraft quotes the draft including upsell surcharges.
func (e *Engine) priceDraft(d *Draft) (price int, complexity float64, err error) {
	complexity = pricing.ComplexityFactor(d.Topic, d.Requirements)
	price, err = e.calc.Price(d.TypeKey, d.DeadlineDays, complexity)
	if err != nil {
		return 0, 0, err
	}
	return price + d.UpsellTotal(), complexity, nil
}

func (e *Engine) toConfirmItem(s *Session) Prompt {
	price, _, err := e.priceDraft(&s.Draft)
	if err != nil {
		log.Printf("flow: pricing draft for user %d: %v", s.UserID, err)
		s.Draft.Reset()
		return e.toMainMenu(s, "Не удалось рассчитать стоимость. Начните оформление заново.")
	}
	s.State = StateConfirmItem
	wt, _ := e.catalog.Get(s.Draft.TypeKey)
	deadline := e.now().AddDate(0, 0, s.Draft.DeadlineDays)

	var upsellLines []string
	for _, key := range s.Draft.Upsells {
		if u, ok := catalog.GetUpsell(key); ok {
			upsellLines = append(upsellLines, fmt.Sprintf("• %s (+%d ₽)", u.Title, u.Price))
		}
	}
	upsellText := "—"
	if len(upsellLines) > 0 {
		upsellText = strings.Join(upsellLines, "\n")
	}

	var sb strings.Builder
	sb.WriteString("Проверим данные перед оформлением:\n\n")
	fmt.Fprintf(&sb, "Тип: %s %s\n", wt.Icon, wt.Name)
	fmt.Fprintf(&sb, "Тема: %s\n", s.Draft.Topic)
	fmt.Fprintf(&sb, "Срок: %d дн. (до %s)\n", s.Draft.DeadlineDays, deadline.Format("02.01.2006"))
	fmt.Fprintf(&sb, "Требования: %s\n", s.Draft.Requirements)
	fmt.Fprintf(&sb, "Доп. услуги:\n%s\n\n", upsellText)
	fmt.Fprintf(&sb, "Стоимость работы: %d ₽", price)

	return Prompt{
		Text: sb.String(),
		Options: [][]Option{
			row(opt("✅ Добавить в корзину", keyItemOK)),
			row(opt("✏️ Изменить", keyItemChange)),
			row(opt("❌ Отменить", keyItemCancel)),
		},
	}.withBack()
}

func (e *Engine) handleConfirmItem(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toAddUpsell(s, "")
	case keyItemChange:
		return e.toChangeField(s)
	case keyItemCancel:
		s.Draft.Reset()
		// Items already carted in this session survive an abandoned draft.
		if len(s.Cart) > 0 {
			return e.toConfirmCart(s)
		}
		return e.toMainMenu(s, "Оформление отменено. Можно начать заново из меню.")
	case keyItemOK:
		price, complexity, err := e.priceDraft(&s.Draft)
		if err != nil {
			log.Printf("flow: pricing draft for user %d: %v", s.UserID, err)
			s.Draft.Reset()
			return e.toMainMenu(s, "Не удалось рассчитать стоимость. Начните оформление заново.")
		}
		s.Cart = append(s.Cart, CartItem{
			TypeKey:      s.Draft.TypeKey,
			Topic:        s.Draft.Topic,
			DeadlineDays: s.Draft.DeadlineDays,
			Requirements: s.Draft.Requirements,
			Upsells:      append([]string(nil), s.Draft.Upsells...),
			Complexity:   complexity,
			Price:        price,
		})
		s.Draft.Reset()
		return e.toAddAnotherItem(s)
	}
	return e.toConfirmItem(s)
}

// --- change a collected field ---

func (e *Engine) toChangeField(s *Session) Prompt {
	s.State = StateChangeField
	return Prompt{
		Text: "🔄 Выберите, что изменить. Все шаги после измененного поля нужно будет пройти заново.",
		Options: [][]Option{
			row(opt("📝 Тип работы", keyChangeType)),
			row(opt("📋 Тема", keyChangeTopic)),
			row(opt("📅 Срок", keyChangeDeadline)),
			row(opt("📌 Требования", keyChangeRequirements)),
		},
	}.withBack()
}

func (e *Engine) handleChangeField(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toConfirmItem(s)
	case keyChangeType:
		s.Draft.Reset()
		return e.toSelectWorkType(s)
	case keyChangeTopic:
		s.Draft.ClearFromTopic()
		return e.toInputTopic(s)
	case keyChangeDeadline:
		s.Draft.ClearFromDeadline()
		return e.toSelectDeadline(s)
	case keyChangeRequirements:
		s.Draft.ClearFromRequirements()
		return e.toInputRequirements(s)
	}
	return e.toChangeField(s)
}

// --- cart ---

func (e *Engine) toAddAnotherItem(s *Session) Prompt {
	s.State = StateAddAnotherItem
	return Prompt{
		Text: fmt.Sprintf("Работа добавлена в корзину (позиций: %d). Оформить еще одну?", len(s.Cart)),
		Options: [][]Option{
			row(opt("➕ Еще работа", keyCartAdd)),
			row(opt("🛒 Перейти к корзине", keyCartGo)),
		},
	}
}

func (e *Engine) handleAddAnotherItem(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyCartAdd:
		s.Draft.Reset()
		return e.toSelectWorkType(s)
	case keyCartGo, keyBack:
		return e.toConfirmCart(s)
	}
	return e.toAddAnotherItem(s)
}

func (e *Engine) toConfirmCart(s *Session) Prompt {
	s.State = StateConfirmCart
	if len(s.Cart) == 0 {
		return e.toMainMenu(s, "Корзина пуста. Попробуйте оформить заказ заново.")
	}
	sum, discount, total := cartTotal(s.Cart)
	var sb strings.Builder
	sb.WriteString("🛒 Ваша корзина:\n\n")
	for i, item := range s.Cart {
		wt, _ := e.catalog.Get(item.TypeKey)
		fmt.Fprintf(&sb, "%d. %s %s — %s (%d дн.) — %d ₽\n", i+1, wt.Icon, wt.Name, item.Topic, item.DeadlineDays, item.Price)
	}
	fmt.Fprintf(&sb, "\nСумма: %d ₽\n", sum)
	if discount > 0 {
		fmt.Fprintf(&sb, "Скидка за несколько работ (10%%): -%d ₽\n", discount)
	}
	fmt.Fprintf(&sb, "Итого к оплате: %d ₽", total)
	return Prompt{
		Text: sb.String(),
		Options: [][]Option{
			row(opt("✅ Подтвердить заказ", keyCartPlace)),
			row(opt("❌ Отменить все", keyCartCancel)),
		},
	}.withBack()
}

func (e *Engine) handleConfirmCart(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toAddAnotherItem(s)
	case keyCartCancel:
		s.Draft.Reset()
		s.Cart = nil
		return e.toMainMenu(s, "Заказ отменен. Оформите новый в любое время.")
	case keyCartPlace:
		return e.finalize(s)
	}
	return e.toConfirmCart(s)
}

// finalize persists the cart as new orders. On persistence failure the cart
// is preserved so the user can retry without re-entering anything.
func (e *Engine) finalize(s *Session) Prompt {
	if len(s.Cart) == 0 {
		return e.toMainMenu(s, "Корзина пуста. Попробуйте оформить заказ заново.")
	}
	items := make([]models.NewOrder, 0, len(s.Cart))
	for _, item := range s.Cart {
		items = append(items, models.NewOrder{
			TypeKey:      item.TypeKey,
			Topic:        item.Topic,
			DeadlineDays: item.DeadlineDays,
			Requirements: item.Requirements,
			Upsells:      item.Upsells,
			Complexity:   item.Complexity,
			Price:        item.Price,
		})
	}
	saved, err := e.orders.AppendOrders(s.UserID, items)
	if err != nil {
		log.Printf("flow: persisting %d orders for user %d: %v", len(items), s.UserID, err)
		p := e.toConfirmCart(s)
		p.Text = "Не удалось сохранить заказ. Попробуйте подтвердить еще раз чуть позже."
		return p
	}

	_, _, total := cartTotal(s.Cart)
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆕 Новый заказ от пользователя %d", s.UserID)
	if s.Username != "" {
		fmt.Fprintf(&sb, " (@%s)", s.Username)
	}
	fmt.Fprintf(&sb, "\nПозиций: %d, сумма: %d ₽\n", len(saved), total)
	for _, order := range saved {
		wt, _ := e.catalog.Get(order.TypeKey)
		fmt.Fprintf(&sb, "#%d %s — %s, %d дн., %d ₽\n", order.OrderID, wt.Name, order.Topic, order.DeadlineDays, order.Price)
	}
	e.notifier.NotifyAdmin(sb.String())

	first := saved[0].OrderID
	last := saved[len(saved)-1].OrderID
	numbers := fmt.Sprintf("#%d", first)
	if last != first {
		numbers = fmt.Sprintf("#%d–#%d", first, last)
	}
	s.Draft.Reset()
	s.Cart = nil
	return e.toMainMenu(s, fmt.Sprintf(
		"Спасибо! Заказ %s оформлен. Менеджер свяжется с вами в ближайшее время, статус можно отслеживать в профиле.", numbers))
}

// --- price list ---

func (e *Engine) toPriceList(s *Session) Prompt {
	s.State = StatePriceList
	var sb strings.Builder
	sb.WriteString("💰 Прайс-лист\n\n")
	p := Prompt{}
	for _, wt := range e.catalog.All() {
		fmt.Fprintf(&sb, "%s %s — от %d ₽\n", wt.Icon, wt.Name, wt.BasePrice)
		p.Options = append(p.Options, row(opt("Подробнее: "+wt.Name, "ptype:"+wt.Key)))
	}
	p.Text = sb.String()
	p.Options = append(p.Options, row(opt("🧮 Калькулятор", keyMenuCalc)))
	return p.withBack()
}

func (e *Engine) handlePriceList(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toMainMenu(s, "")
	case keyMenuCalc:
		return e.toCalcSelectType(s)
	}
	if key, ok := strings.CutPrefix(ev.Key, "ptype:"); ok {
		if _, found := e.catalog.Get(key); found {
			s.viewKey = key
			return e.toPriceDetail(s)
		}
	}
	return e.toPriceList(s)
}

func (e *Engine) toPriceDetail(s *Session) Prompt {
	wt, ok := e.catalog.Get(s.viewKey)
	if !ok {
		return e.toPriceList(s)
	}
	s.State = StatePriceDetail
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n\n%s\n\n", wt.Icon, wt.Name, wt.Description)
	fmt.Fprintf(&sb, "Диапазон цен: %d–%d ₽\n", wt.MinPrice, wt.MaxPrice)
	fmt.Fprintf(&sb, "Что входит: %s\n", wt.Details)
	fmt.Fprintf(&sb, "Примеры: %s", strings.Join(wt.Examples, ", "))
	return Prompt{
		Text: sb.String(),
		Options: [][]Option{
			row(opt("📝 Оформить", keyCalcOrder)),
		},
	}.withBack()
}

func (e *Engine) handlePriceDetail(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toPriceList(s)
	case keyCalcOrder:
		return e.toViewTypeDetails(s)
	}
	return e.toPriceDetail(s)
}

// --- calculator ---

func (e *Engine) toCalcSelectType(s *Session) Prompt {
	s.State = StateCalcSelectType
	s.Calc = CalcDraft{}
	p := Prompt{Text: "Выберите тип работы для расчета стоимости:"}
	for _, wt := range e.catalog.All() {
		p.Options = append(p.Options, row(opt(wt.Icon+" "+wt.Name, "ctype:"+wt.Key)))
	}
	return p.withBack()
}

func (e *Engine) handleCalcSelectType(s *Session, ev Event) Prompt {
	if ev.Key == keyBack {
		return e.toMainMenu(s, "")
	}
	if key, ok := strings.CutPrefix(ev.Key, "ctype:"); ok {
		if _, found := e.catalog.Get(key); found {
			s.Calc.TypeKey = key
			return e.toCalcSelectDeadline(s)
		}
	}
	return e.toCalcSelectType(s)
}

func (e *Engine) toCalcSelectDeadline(s *Session) Prompt {
	s.State = StateCalcSelectDeadline
	p := Prompt{Text: "Выберите срок выполнения:"}
	for _, days := range deadlinePresets {
		p.Options = append(p.Options, row(opt(fmt.Sprintf("%d дней", days), "cdays:"+strconv.Itoa(days))))
	}
	return p.withBack()
}

func (e *Engine) handleCalcSelectDeadline(s *Session, ev Event) Prompt {
	if ev.Key == keyBack {
		return e.toCalcSelectType(s)
	}
	if v, ok := strings.CutPrefix(ev.Key, "cdays:"); ok {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			s.Calc.DeadlineDays = days
			return e.toCalcSelectComplexity(s)
		}
	}
	return e.toCalcSelectDeadline(s)
}

func (e *Engine) toCalcSelectComplexity(s *Session) Prompt {
	s.State = StateCalcSelectComplexity
	return Prompt{
		Text: "Выберите сложность темы:",
		Options: [][]Option{
			row(opt("Базовая", "cfx:1.0")),
			row(opt("Средняя (+10%)", "cfx:1.1"), opt("Сложная (+30%)", "cfx:1.3")),
		},
	}.withBack()
}

func (e *Engine) handleCalcSelectComplexity(s *Session, ev Event) Prompt {
	if ev.Key == keyBack {
		return e.toCalcSelectDeadline(s)
	}
	if v, ok := strings.CutPrefix(ev.Key, "cfx:"); ok {
		complexity, err := strconv.ParseFloat(v, 64)
		if err != nil || complexity < 1.0 {
			return e.toCalcSelectComplexity(s)
		}
		s.Calc.Complexity = complexity
		return e.toCalcResult(s)
	}
	return e.toCalcSelectComplexity(s)
}

func (e *Engine) toCalcResult(s *Session) Prompt {
	price, err := e.calc.Price(s.Calc.TypeKey, s.Calc.DeadlineDays, s.Calc.Complexity)
	if err != nil {
		log.Printf("flow: calculator quote for user %d: %v", s.UserID, err)
		return e.toCalcSelectType(s)
	}
	s.State = StateCalcResult
	wt, _ := e.catalog.Get(s.Calc.TypeKey)
	text := fmt.Sprintf(
		"Расчет для %s %s\nСрок: %d дней\nСложность: +%d%%\n\nПримерная стоимость: %d ₽\n\nХотите оформить заказ прямо сейчас?",
		wt.Icon, wt.Name, s.Calc.DeadlineDays, int((s.Calc.Complexity-1)*100+0.5), price)
	return Prompt{
		Text: text,
		Options: [][]Option{
			row(opt("📝 Сделать заказ", keyCalcOrder)),
			row(opt("🔁 Пересчитать", keyCalcAgain)),
			row(opt("⬅️ Главное меню", keyMenu)),
		},
	}
}

func (e *Engine) handleCalcResult(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyCalcOrder:
		s.viewKey = s.Calc.TypeKey
		return e.toViewTypeDetails(s)
	case keyCalcAgain:
		return e.toCalcSelectType(s)
	case keyMenu, keyBack:
		return e.toMainMenu(s, "")
	}
	return e.toCalcResult(s)
}

// --- FAQ ---

func (e *Engine) toFAQ(s *Session) Prompt {
	s.State = StateFAQ
	p := Prompt{Text: "Частые вопросы. Выберите интересующий пункт:"}
	for i, item := range catalog.FAQ() {
		p.Options = append(p.Options, row(opt(item.Question, "faq:"+strconv.Itoa(i))))
	}
	return p.withBack()
}

func (e *Engine) handleFAQ(s *Session, ev Event) Prompt {
	if ev.Key == keyBack {
		return e.toMainMenu(s, "")
	}
	if ev.Key == keyMenuFAQ {
		return e.toFAQ(s)
	}
	if v, ok := strings.CutPrefix(ev.Key, "faq:"); ok {
		items := catalog.FAQ()
		if idx, err := strconv.Atoi(v); err == nil && idx >= 0 && idx < len(items) {
			return Prompt{
				Text:    fmt.Sprintf("❓ %s\n\n%s", items[idx].Question, items[idx].Answer),
				Options: [][]Option{row(opt("⬅️ К вопросам", keyMenuFAQ))},
			}.withBack()
		}
	}
	return e.toFAQ(s)
}

// --- profile ---

func (e *Engine) toProfile(s *Session) Prompt {
	orders, err := e.orders.Orders(s.UserID)
	if err != nil {
		log.Printf("flow: loading orders for user %d: %v", s.UserID, err)
		return e.toMainMenu(s, "Не удалось загрузить профиль. Попробуйте позже.")
	}
	s.State = StateProfile
	totalSpent := 0
	for _, order := range orders {
		totalSpent += order.Price
	}
	referees, err := e.referrals.Referees(s.UserID)
	if err != nil {
		log.Printf("flow: loading referees for user %d: %v", s.UserID, err)
	}
	bonus, err := e.referrals.Bonus(s.UserID)
	if err != nil {
		log.Printf("flow: computing bonus for user %d: %v", s.UserID, err)
	}
	refLink := s.RefLink
	if refLink == "" {
		refLink = "—"
	}
	var sb strings.Builder
	sb.WriteString("👤 Ваш профиль\n\n")
	fmt.Fprintf(&sb, "Заказов: %d\n", len(orders))
	fmt.Fprintf(&sb, "На сумму: %d ₽\n", totalSpent)
	fmt.Fprintf(&sb, "Приглашено друзей: %d\n", len(referees))
	fmt.Fprintf(&sb, "Реферальный бонус: %d ₽\n", bonus)
	fmt.Fprintf(&sb, "Реферальная ссылка: %s\n\n", refLink)
	sb.WriteString("Приглашайте друзей и получайте 5% от их заказов бонусами!")
	return Prompt{
		Text: sb.String(),
		Options: [][]Option{
			row(opt("📋 Мои заказы", keyProfileOrders)),
			row(opt("⭐ Оставить отзыв", keyProfileFeedback)),
		},
	}.withBack()
}

func (e *Engine) handleProfile(s *Session, ev Event) Prompt {
	switch ev.Key {
	case keyBack:
		return e.toMainMenu(s, "")
	case keyMenuProfile:
		return e.toProfile(s)
	case keyProfileOrders:
		return e.toUserOrders(s)
	case keyProfileFeedback:
		s.State = StateInputFeedback
		return Prompt{Text: "Поделитесь впечатлениями о нашей работе. Отзыв увидит администратор!"}.withBack()
	}
	return e.toProfile(s)
}

func (e *Engine) toUserOrders(s *Session) Prompt {
	orders, err := e.orders.Orders(s.UserID)
	if err != nil {
		log.Printf("flow: loading orders for user %d: %v", s.UserID, err)
		return e.toMainMenu(s, "Не удалось загрузить заказы. Попробуйте позже.")
	}
	backRow := [][]Option{row(opt("⬅️ Назад", keyMenuProfile))}
	if len(orders) == 0 {
		return Prompt{Text: "Пока нет заказов. Самое время оформить первый!", Options: backRow}
	}
	if len(orders) > 10 {
		orders = orders[len(orders)-10:]
	}
	var sb strings.Builder
	for _, order := range orders {
		name := order.TypeKey
		if wt, ok := e.catalog.Get(order.TypeKey); ok {
			name = wt.Name
		}
		fmt.Fprintf(&sb, "#%d — %s\nТема: %s\nСрок: %s\nСтатус: %s\nЦена: %d ₽\n\n",
			order.OrderID, name, order.Topic, order.DeadlineDate.Format("02.01.2006"), order.Status.Title(), order.Price)
	}
	return Prompt{Text: strings.TrimRight(sb.String(), "\n"), Options: backRow}
}

func (e *Engine) handleInputFeedback(s *Session, ev Event) Prompt {
	if ev.Key == keyBack {
		return e.toProfile(s)
	}
	if ev.Text == "" {
		return Prompt{Text: "Отзыв не может быть пустым. Попробуйте еще раз."}.withBack()
	}
	if err := e.feedback.AddFeedback(s.UserID, ev.Text); err != nil {
		log.Printf("flow: saving feedback from user %d: %v", s.UserID, err)
		return Prompt{Text: "Не удалось сохранить отзыв. Попробуйте еще раз."}.withBack()
	}
	e.notifier.NotifyAdmin(fmt.Sprintf("Новый отзыв от %d (@%s):\n%s", s.UserID, s.Username, ev.Text))
	return e.toMainMenu(s, "Спасибо! Мы ценим обратную связь.")
}
