package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/soloveyska1/gipsrbot-sub000/internal/catalog"
	"github.com/soloveyska1/gipsrbot-sub000/internal/db"
	"github.com/soloveyska1/gipsrbot-sub000/internal/flow"
	"github.com/soloveyska1/gipsrbot-sub000/internal/models"
	"github.com/soloveyska1/gipsrbot-sub000/internal/pricing"
	"github.com/soloveyska1/gipsrbot-sub000/internal/referral"
)

const (
	settingAdminChatID = "admin_chat_id"
	settingPricingMode = "pricing_mode"
)

// adminConsole tracks the administrator's pending text input and the order
// or work type currently targeted by an edit action.
type adminConsole struct {
	mu            sync.Mutex
	pending       string // "", "pricing", "broadcast", "price", "base_price"
	targetUserID  int64
	targetOrderID int64
	targetTypeKey string
}

type Bot struct {
	api      *tgbotapi.BotAPI
	db       *db.DB
	catalog  *catalog.Catalog
	settings *pricing.Settings
	sessions *flow.Sessions
	engine   *flow.Engine
	ledger   *referral.Ledger

	mu      sync.RWMutex
	adminID int64

	console adminConsole
}

type Config struct {
	Token   string
	AdminID int64
}

func New(cfg Config, database *db.DB, cat *catalog.Catalog, settings *pricing.Settings, sessions *flow.Sessions, ledger *referral.Ledger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	b := &Bot{
		api:      api,
		db:       database,
		catalog:  cat,
		settings: settings,
		sessions: sessions,
		ledger:   ledger,
		adminID:  cfg.AdminID,
	}
	b.engine = flow.NewEngine(cat, pricing.NewCalculator(cat, settings), database, database, ledger, b)
	return b, nil
}

// Engine exposes the flow engine, mostly for wiring and tests.
func (b *Bot) Engine() *flow.Engine {
	return b.engine
}

func (b *Bot) Run() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			b.handleCallback(update.CallbackQuery)
		case update.Message != nil && update.Message.IsCommand():
			b.handleCommand(update.Message)
		case update.Message != nil:
			b.handleMessage(update.Message)
		}
	}

	return nil
}

// --- admin identity ---

func (b *Bot) admin() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.adminID
}

func (b *Bot) isAdmin(userID int64) bool {
	return userID != 0 && userID == b.admin()
}

// promoteAdmin makes userID the administrator when none is configured yet.
func (b *Bot) promoteAdmin(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.adminID != 0 {
		return false
	}
	b.adminID = userID
	if err := b.db.SetSetting(settingAdminChatID, strconv.FormatInt(userID, 10)); err != nil {
		log.Printf("Error persisting admin chat id: %v", err)
	}
	return true
}

// NotifyAdmin implements flow.Notifier: best effort, never surfaced to the
// end user.
func (b *Bot) NotifyAdmin(text string) {
	adminID := b.admin()
	if adminID == 0 {
		return
	}
	b.sendText(adminID, text)
}

// --- update handling ---

func (b *Bot) session(from *tgbotapi.User) *flow.Session {
	sess := b.sessions.Get(from.ID)
	sess.Username = from.UserName
	if sess.RefLink == "" && b.api.Self.UserName != "" {
		sess.RefLink = fmt.Sprintf("https://t.me/%s?start=%d", b.api.Self.UserName, from.ID)
	}
	return sess
}

func (b *Bot) logAction(from *tgbotapi.User, action string) {
	if err := b.db.LogAction(from.ID, from.UserName, action); err != nil {
		log.Printf("Error logging action %q for %d: %v", action, from.ID, err)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	from := msg.From
	switch msg.Command() {
	case "start":
		b.handleStart(msg)

	case "help":
		b.sendText(msg.Chat.ID, "Используйте /start для перехода к главному меню.\n"+
			"Кнопка '📝 Сделать заказ' запустит пошаговое оформление.\n"+
			"Команда /cancel завершит текущее оформление.")

	case "cancel":
		b.logAction(from, "cancel")
		prompt := b.engine.Cancel(b.session(from))
		b.sendPrompt(msg.Chat.ID, prompt)

	case "skip":
		prompt := b.engine.Handle(b.session(from), flow.Event{Key: "skip"})
		b.sendPrompt(msg.Chat.ID, prompt)

	case "admin":
		b.logAction(from, "admin_command")
		if !b.isAdmin(from.ID) {
			b.sendText(msg.Chat.ID, "Админ-панель доступна только владельцу бота.")
			return
		}
		b.sendPromptKeyboard(msg.Chat.ID, "🔐 Админ-панель. Выберите действие:", b.adminMenuKeyboard())

	default:
		b.sendText(msg.Chat.ID, "Неизвестная команда. Используйте /start для перехода в меню.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	from := msg.From
	b.logAction(from, "start")
	sess := b.session(from)

	promoted := b.promoteAdmin(from.ID)

	// A numeric /start payload is a referral link.
	if payload := strings.TrimSpace(msg.CommandArguments()); payload != "" {
		if referrerID, err := strconv.ParseInt(payload, 10, 64); err == nil {
			added, err := b.ledger.Register(referrerID, from.ID)
			if err != nil {
				log.Printf("Error registering referral %d→%d: %v", referrerID, from.ID, err)
			} else if added {
				b.NotifyAdmin(fmt.Sprintf("Новый реферал: %d (пригласил %d)", from.ID, referrerID))
			}
		}
	}

	name := from.FirstName
	if name == "" {
		name = "друг"
	}
	greeting := fmt.Sprintf("👋 Привет, %s!\n\n"+
		"Мы оформляем самостоятельные, курсовые, дипломные и магистерские работы под ключ. "+
		"Просто выберите тип заказа — и менеджер свяжется с вами.", name)
	if promoted {
		greeting += "\n\nВы назначены администратором бота. Используйте /admin для управления заказами."
	}
	b.sendText(msg.Chat.ID, greeting)

	prompt := b.engine.Start(sess, "Готовы сделать заказ?")
	b.sendPrompt(msg.Chat.ID, prompt)
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	from := msg.From

	if b.isAdmin(from.ID) && b.handleAdminText(msg) {
		return
	}

	prompt := b.engine.Handle(b.session(from), flow.Event{Text: msg.Text})
	b.sendPrompt(msg.Chat.ID, prompt)
}

func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	from := query.From
	data := query.Data
	b.logAction(from, "callback:"+data)

	// Acknowledge the button press; without this the client keeps spinning.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Error answering callback: %v", err)
	}

	// Callbacks on messages older than 48 hours arrive without a Message.
	if query.Message == nil {
		return
	}

	if strings.HasPrefix(data, "admin:") {
		b.handleAdminCallback(query)
		return
	}

	prompt := b.engine.Handle(b.session(from), flow.Event{Key: data})
	b.editPrompt(query.Message.Chat.ID, query.Message.MessageID, prompt)
}

// --- admin console ---

func (b *Bot) adminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", "admin:stats")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📋 Последние заказы", "admin:orders")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💰 Режим ценообразования", "admin:pricing")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✏️ Изменить цены", "admin:prices")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("♻️ Обновить статус", "admin:status_list")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📤 Экспорт заказов", "admin:export")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📢 Рассылка", "admin:broadcast")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗂 Последние действия", "admin:logs")),
	)
}

func adminBackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "admin:menu")),
	)
}

func (b *Bot) handleAdminCallback(query *tgbotapi.CallbackQuery) {
	if !b.isAdmin(query.From.ID) {
		b.sendText(query.Message.Chat.ID, "Нет доступа.")
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	data := strings.TrimPrefix(query.Data, "admin:")

	switch {
	case data == "menu":
		b.console.mu.Lock()
		b.console.pending = ""
		b.console.mu.Unlock()
		b.editKeyboard(chatID, messageID, "🔐 Админ-панель. Выберите действие:", b.adminMenuKeyboard())

	case data == "stats":
		stats, err := b.db.Statistics()
		if err != nil {
			log.Printf("Error loading statistics: %v", err)
			b.editKeyboard(chatID, messageID, "Не удалось загрузить статистику.", adminBackKeyboard())
			return
		}
		text := fmt.Sprintf("📊 Сводка по заказам\n\nВсего заказов: %d\nАктивных заказов: %d\nВыручка: %d ₽\nКлиентов: %d",
			stats.Orders, stats.Active, stats.Revenue, stats.Users)
		b.editKeyboard(chatID, messageID, text, adminBackKeyboard())

	case data == "orders":
		b.editKeyboard(chatID, messageID, b.recentOrdersText(), adminBackKeyboard())

	case data == "pricing":
		b.console.mu.Lock()
		b.console.pending = "pricing"
		b.console.mu.Unlock()
		b.editKeyboard(chatID, messageID,
			fmt.Sprintf("Текущий режим: %s. Введите hard или light:", b.settings.Mode()), adminBackKeyboard())

	case data == "prices":
		b.handleBasePrices(chatID, messageID)

	case strings.HasPrefix(data, "price_type:"):
		b.handleBasePriceSelect(chatID, messageID, strings.TrimPrefix(data, "price_type:"))

	case data == "broadcast":
		b.console.mu.Lock()
		b.console.pending = "broadcast"
		b.console.mu.Unlock()
		b.editKeyboard(chatID, messageID, "📢 Отправьте текст рассылки сообщением. Его получат все известные боту пользователи.", adminBackKeyboard())

	case data == "export":
		b.handleExport(chatID, messageID)

	case data == "logs":
		actions, err := b.db.RecentActions(10)
		if err != nil {
			log.Printf("Error loading action log: %v", err)
			b.editKeyboard(chatID, messageID, "Не удалось загрузить лог действий.", adminBackKeyboard())
			return
		}
		if len(actions) == 0 {
			b.editKeyboard(chatID, messageID, "Логи пока пусты.", adminBackKeyboard())
			return
		}
		var sb strings.Builder
		for _, a := range actions {
			fmt.Fprintf(&sb, "%d: %s (%s)\n", a.UserID, a.Action, a.CreatedAt.Format("02.01 15:04"))
		}
		b.editKeyboard(chatID, messageID, sb.String(), adminBackKeyboard())

	case data == "status_list":
		b.handleStatusList(chatID, messageID)

	case strings.HasPrefix(data, "status_select:"):
		b.handleStatusSelect(chatID, messageID, strings.TrimPrefix(data, "status_select:"))

	case strings.HasPrefix(data, "status_apply:"):
		b.handleStatusApply(chatID, messageID, strings.TrimPrefix(data, "status_apply:"))

	case data == "price_input":
		b.console.mu.Lock()
		b.console.pending = "price"
		b.console.mu.Unlock()
		b.editKeyboard(chatID, messageID, "Введите новую цену числом (в рублях):", adminBackKeyboard())

	default:
		b.editKeyboard(chatID, messageID, "Команда не распознана.", adminBackKeyboard())
	}
}

func (b *Bot) recentOrdersText() string {
	orders, err := b.db.RecentOrders(10)
	if err != nil {
		log.Printf("Error loading recent orders: %v", err)
		return "Не удалось загрузить заказы."
	}
	if len(orders) == 0 {
		return "Заказов пока нет."
	}
	var sb strings.Builder
	for _, order := range orders {
		name := order.TypeKey
		if wt, ok := b.catalog.Get(order.TypeKey); ok {
			name = wt.Name
		}
		fmt.Fprintf(&sb, "#%d — %s\nПользователь: %d\nТема: %s\nСтатус: %s\nЦена: %d ₽\n\n",
			order.OrderID, name, order.UserID, order.Topic, order.Status.Title(), order.Price)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleBasePrices(chatID int64, messageID int) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, wt := range b.catalog.All() {
		label := fmt.Sprintf("%s %s — %d ₽", wt.Icon, wt.Name, wt.BasePrice)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "admin:price_type:"+wt.Key)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "admin:menu")))
	b.editKeyboard(chatID, messageID, "Выберите тип работы, чтобы изменить базовую цену:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleBasePriceSelect(chatID int64, messageID int, typeKey string) {
	wt, ok := b.catalog.Get(typeKey)
	if !ok {
		b.editKeyboard(chatID, messageID, "Неизвестный тип работы.", adminBackKeyboard())
		return
	}
	b.console.mu.Lock()
	b.console.pending = "base_price"
	b.console.targetTypeKey = typeKey
	b.console.mu.Unlock()
	b.editKeyboard(chatID, messageID,
		fmt.Sprintf("Текущая базовая цена «%s»: %d ₽. Введите новую цену числом:", wt.Name, wt.BasePrice),
		adminBackKeyboard())
}

func (b *Bot) handleStatusList(chatID int64, messageID int) {
	orders, err := b.db.RecentOrders(12)
	if err != nil {
		log.Printf("Error loading orders for status update: %v", err)
		b.editKeyboard(chatID, messageID, "Не удалось загрузить заказы.", adminBackKeyboard())
		return
	}
	if len(orders) == 0 {
		b.editKeyboard(chatID, messageID, "Заказов пока нет.", adminBackKeyboard())
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, order := range orders {
		name := order.TypeKey
		if wt, ok := b.catalog.Get(order.TypeKey); ok {
			name = wt.Name
		}
		label := fmt.Sprintf("#%d — %s (%s)", order.OrderID, name, order.Status.Title())
		if len([]rune(label)) > 60 {
			label = string([]rune(label)[:57]) + "…"
		}
		callback := fmt.Sprintf("admin:status_select:%d:%d", order.UserID, order.OrderID)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, callback)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "admin:menu")))
	b.editKeyboard(chatID, messageID, "Выберите заказ, чтобы обновить статус или цену:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleStatusSelect(chatID int64, messageID int, target string) {
	userStr, orderStr, ok := strings.Cut(target, ":")
	if !ok {
		b.editKeyboard(chatID, messageID, "Не удалось распознать заказ.", adminBackKeyboard())
		return
	}
	userID, err1 := strconv.ParseInt(userStr, 10, 64)
	orderID, err2 := strconv.ParseInt(orderStr, 10, 64)
	if err1 != nil || err2 != nil {
		b.editKeyboard(chatID, messageID, "Не удалось распознать заказ.", adminBackKeyboard())
		return
	}
	order, err := b.db.GetOrder(userID, orderID)
	if err != nil {
		log.Printf("Error loading order %d/%d: %v", userID, orderID, err)
		b.editKeyboard(chatID, messageID, "Заказ не найден. Возможно, он был удален.", adminBackKeyboard())
		return
	}

	b.console.mu.Lock()
	b.console.targetUserID = userID
	b.console.targetOrderID = orderID
	b.console.mu.Unlock()

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, status := range models.Statuses() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(status.Title(), "admin:status_apply:"+string(status))))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💲 Изменить цену", "admin:price_input")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "admin:status_list")),
	)
	text := fmt.Sprintf("Заказ #%d (пользователь %d)\nТема: %s\nЦена: %d ₽\nТекущий статус: %s\nВыберите новый статус:",
		order.OrderID, order.UserID, order.Topic, order.Price, order.Status.Title())
	b.editKeyboard(chatID, messageID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleStatusApply(chatID int64, messageID int, statusKey string) {
	status := models.OrderStatus(statusKey)
	if !status.IsValid() {
		b.editKeyboard(chatID, messageID, "Неизвестный статус.", adminBackKeyboard())
		return
	}
	b.console.mu.Lock()
	userID, orderID := b.console.targetUserID, b.console.targetOrderID
	b.console.mu.Unlock()
	if userID == 0 || orderID == 0 {
		b.handleStatusList(chatID, messageID)
		return
	}
	if err := b.db.UpdateOrderStatus(userID, orderID, status); err != nil {
		log.Printf("Error updating status of %d/%d: %v", userID, orderID, err)
		b.editKeyboard(chatID, messageID, "Не удалось обновить статус (заказ не найден).", adminBackKeyboard())
		return
	}
	b.editKeyboard(chatID, messageID,
		fmt.Sprintf("Статус заказа #%d обновлен: %s", orderID, status.Title()), adminBackKeyboard())
	b.sendText(userID, fmt.Sprintf("Статус вашего заказа #%d: %s", orderID, status.Title()))
}

// handleAdminText consumes a message when the console awaits text input.
// Returns false when no input is pending so the flow engine handles it.
func (b *Bot) handleAdminText(msg *tgbotapi.Message) bool {
	b.console.mu.Lock()
	pending := b.console.pending
	b.console.pending = ""
	userID, orderID := b.console.targetUserID, b.console.targetOrderID
	typeKey := b.console.targetTypeKey
	b.console.mu.Unlock()

	switch pending {
	case "pricing":
		mode, err := pricing.ParseMode(msg.Text)
		if err != nil {
			b.console.mu.Lock()
			b.console.pending = "pricing"
			b.console.mu.Unlock()
			b.sendText(msg.Chat.ID, "Пожалуйста, введите hard или light.")
			return true
		}
		b.settings.SetMode(mode)
		if err := b.db.SetSetting(settingPricingMode, string(mode)); err != nil {
			log.Printf("Error persisting pricing mode: %v", err)
		}
		b.sendText(msg.Chat.ID, fmt.Sprintf("Режим установлен: %s", mode))
		return true

	case "broadcast":
		go b.broadcast(msg.Chat.ID, msg.Text)
		return true

	case "price":
		price, err := strconv.Atoi(strings.TrimSpace(msg.Text))
		if err != nil || price <= 0 {
			b.console.mu.Lock()
			b.console.pending = "price"
			b.console.mu.Unlock()
			b.sendText(msg.Chat.ID, "Введите положительное число.")
			return true
		}
		if err := b.db.UpdateOrderPrice(userID, orderID, price); err != nil {
			log.Printf("Error updating price of %d/%d: %v", userID, orderID, err)
			b.sendText(msg.Chat.ID, "Не удалось обновить цену (заказ не найден).")
			return true
		}
		b.sendText(msg.Chat.ID, fmt.Sprintf("Цена заказа #%d обновлена: %d ₽", orderID, price))
		b.sendText(userID, fmt.Sprintf("Цена вашего заказа #%d обновлена: %d ₽", orderID, price))
		return true

	case "base_price":
		price, err := strconv.Atoi(strings.TrimSpace(msg.Text))
		if err != nil || price <= 0 {
			b.console.mu.Lock()
			b.console.pending = "base_price"
			b.console.mu.Unlock()
			b.sendText(msg.Chat.ID, "Введите положительное число.")
			return true
		}
		wt, ok := b.catalog.Get(typeKey)
		if !ok || !b.catalog.SetBasePrice(typeKey, price) {
			b.sendText(msg.Chat.ID, "Неизвестный тип работы. Откройте список цен заново.")
			return true
		}
		if err := b.db.SetPriceOverride(typeKey, price); err != nil {
			log.Printf("Error persisting price override for %s: %v", typeKey, err)
			b.sendText(msg.Chat.ID, "Цена обновлена до перезапуска, но не сохранилась в базе.")
			return true
		}
		b.sendText(msg.Chat.ID, fmt.Sprintf("Базовая цена «%s» обновлена: %d ₽", wt.Name, price))
		return true
	}
	return false
}

// broadcastConcurrency bounds parallel sends so Telegram rate limits are
// not tripped.
const broadcastConcurrency = 8

func (b *Bot) broadcast(adminChatID int64, text string) {
	ids, err := b.db.AllUserIDs()
	if err != nil {
		log.Printf("Error loading user ids for broadcast: %v", err)
		b.sendText(adminChatID, "Не удалось загрузить список пользователей.")
		return
	}

	var g errgroup.Group
	g.SetLimit(broadcastConcurrency)
	var mu sync.Mutex
	sent, failed := 0, 0
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := b.api.Send(tgbotapi.NewMessage(id, text))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("Broadcast to %d failed: %v", id, err)
				failed++
			} else {
				sent++
			}
			return nil
		})
	}
	g.Wait()

	b.sendText(adminChatID, fmt.Sprintf("📢 Рассылка завершена. Доставлено: %d, ошибок: %d.", sent, failed))
}

func (b *Bot) handleExport(chatID int64, messageID int) {
	var buf strings.Builder
	if err := b.db.ExportOrdersCSV(&buf); err != nil {
		log.Printf("Error exporting orders: %v", err)
		b.editKeyboard(chatID, messageID, "Не удалось выгрузить заказы.", adminBackKeyboard())
		return
	}
	if strings.Count(buf.String(), "\n") <= 1 {
		b.editKeyboard(chatID, messageID, "Нет данных для экспорта.", adminBackKeyboard())
		return
	}
	file := tgbotapi.FileBytes{Name: "orders_export.csv", Bytes: []byte(buf.String())}
	if _, err := b.api.Send(tgbotapi.NewDocument(chatID, file)); err != nil {
		log.Printf("Error sending export: %v", err)
		b.editKeyboard(chatID, messageID, "Не удалось отправить файл.", adminBackKeyboard())
		return
	}
	b.editKeyboard(chatID, messageID, "Экспорт заказов отправлен ✅", adminBackKeyboard())
}

// --- rendering ---

func promptKeyboard(prompt flow.Prompt) *tgbotapi.InlineKeyboardMarkup {
	if len(prompt.Options) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, optionRow := range prompt.Options {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, option := range optionRow {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(option.Label, option.Key))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func (b *Bot) sendPrompt(chatID int64, prompt flow.Prompt) {
	msg := tgbotapi.NewMessage(chatID, prompt.Text)
	if markup := promptKeyboard(prompt); markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (b *Bot) editPrompt(chatID int64, messageID int, prompt flow.Prompt) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, prompt.Text)
	edit.ReplyMarkup = promptKeyboard(prompt)
	if _, err := b.api.Send(edit); err != nil {
		// "message is not modified" is routine when a state re-renders.
		if !strings.Contains(err.Error(), "message is not modified") {
			log.Printf("Error editing message: %v", err)
		}
	}
}

func (b *Bot) sendPromptKeyboard(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (b *Bot) editKeyboard(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = &markup
	if _, err := b.api.Send(edit); err != nil {
		if !strings.Contains(err.Error(), "message is not modified") {
			log.Printf("Error editing message: %v", err)
		}
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
