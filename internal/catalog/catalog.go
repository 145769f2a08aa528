package catalog

import "sync"

// WorkType describes one category of academic work the service offers.
type WorkType struct {
	Key         string
	Name        string
	Icon        string
	Description string
	Details     string
	Examples    []string
	BasePrice   int
	MinPrice    int
	MaxPrice    int
}

// Upsell is a fixed-price add-on attached to an order item.
type Upsell struct {
	Key   string
	Title string
	Price int
}

// FAQItem is one question/answer pair shown in the FAQ section.
type FAQItem struct {
	Question string
	Answer   string
}

var workTypes = []WorkType{
	{
		Key:         "self",
		Name:        "Самостоятельная работа",
		Icon:        "📝",
		Description: "Быстрые задания: эссе, контрольные, отчеты. Выполняем качественно и в срок.",
		Details:     "Лучший выбор для работ до 20 страниц. Подбираем автора по предмету и требованиям.",
		Examples:    []string{"Эссе по философии", "Контрольная по экономике", "Реферат по истории"},
		BasePrice:   1500,
		MinPrice:    1500,
		MaxPrice:    3500,
	},
	{
		Key:         "course_theory",
		Name:        "Курсовая (теория)",
		Icon:        "📘",
		Description: "Теоретическая курсовая с глубоким обзором литературы и четкой структурой.",
		Details:     "Формируем оглавление, методологию и источники по стандартам вашего вуза.",
		Examples:    []string{"История экономических учений", "Методики преподавания", "Психология личности"},
		BasePrice:   7000,
		MinPrice:    6000,
		MaxPrice:    11000,
	},
	{
		Key:         "course_empirical",
		Name:        "Курсовая (теория + эмпирика)",
		Icon:        "📊",
		Description: "Курсовая с практической частью, опросами, анализом данных и выводами.",
		Details:     "Подготовим инструментарий, соберем данные и оформим аналитическую главу.",
		Examples:    []string{"Опрос удовлетворенности клиентов", "Анализ HR-процессов", "Исследование маркетинговых стратегий"},
		BasePrice:   11000,
		MinPrice:    9500,
		MaxPrice:    16000,
	},
	{
		Key:         "vkr",
		Name:        "Дипломная работа (ВКР)",
		Icon:        "🎓",
		Description: "Полный цикл подготовки выпускной квалификационной работы.",
		Details:     "План, теория, эмпирика, презентация и речь. Поддержка до защиты.",
		Examples:    []string{"Социально-психологическая адаптация", "Бизнес-план компании", "Маркетинговая стратегия бренда"},
		BasePrice:   32000,
		MinPrice:    28000,
		MaxPrice:    45000,
	},
	{
		Key:         "master",
		Name:        "Магистерская диссертация",
		Icon:        "🔍",
		Description: "Продвинутое исследование с научной новизной и публикациями.",
		Details:     "Разработаем методологию, проведем исследование, подготовим статьи и презентацию.",
		Examples:    []string{"Data-driven подходы в образовании", "Инновации в социальной работе", "Комплексные исследования экологии"},
		BasePrice:   42000,
		MinPrice:    36000,
		MaxPrice:    60000,
	},
}

var upsells = []Upsell{
	{Key: "prez", Title: "Презентация", Price: 2000},
	{Key: "speech", Title: "Речь для защиты", Price: 1000},
}

var faqItems = []FAQItem{
	{
		Question: "Как сделать заказ?",
		Answer:   "Выберите '📝 Сделать заказ', укажите тип работы, тему, срок и требования. Менеджер свяжется для подтверждения.",
	},
	{
		Question: "Как рассчитывается стоимость?",
		Answer:   "Стоимость зависит от типа, срочности и сложности. Воспользуйтесь разделом '🧮 Калькулятор' для точного расчета.",
	},
	{
		Question: "Какие гарантии предоставляете?",
		Answer:   "Проверяем работы на антиплагиат, делаем бесплатные правки 14 дней и сопровождаем до успешной защиты.",
	},
	{
		Question: "Есть ли скидки?",
		Answer:   "Первые клиенты получают -10%, за несколько заказов действуют дополнительные скидки и бонусы.",
	},
	{
		Question: "Как работает реферальная программа?",
		Answer:   "Поделитесь персональной ссылкой из профиля. За каждого приглашенного друга — 5% бонусов.",
	},
	{
		Question: "Как отслеживать статус заказа?",
		Answer:   "Все статусы видны в профиле, плюс менеджер отправляет промежуточные отчеты и уведомления.",
	},
}

// Catalog is the read-only registry of work types, upsells and FAQ entries.
// Base price overrides set by the administrator shadow the static table.
type Catalog struct {
	mu        sync.RWMutex
	overrides map[string]int
}

// New builds a catalog with the given base price overrides (may be nil).
func New(overrides map[string]int) *Catalog {
	c := &Catalog{overrides: map[string]int{}}
	for key, price := range overrides {
		if _, ok := c.lookup(key); ok && price > 0 {
			c.overrides[key] = price
		}
	}
	return c
}

func (c *Catalog) lookup(key string) (WorkType, bool) {
	for _, wt := range workTypes {
		if wt.Key == key {
			return wt, true
		}
	}
	return WorkType{}, false
}

// Get returns the work type for key, with any price override applied.
func (c *Catalog) Get(key string) (WorkType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wt, ok := c.lookup(key)
	if !ok {
		return WorkType{}, false
	}
	if price, ok := c.overrides[wt.Key]; ok {
		wt.BasePrice = price
	}
	return wt, true
}

// All returns every work type in display order.
func (c *Catalog) All() []WorkType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]WorkType, 0, len(workTypes))
	for _, wt := range workTypes {
		if price, ok := c.overrides[wt.Key]; ok {
			wt.BasePrice = price
		}
		out = append(out, wt)
	}
	return out
}

// SetBasePrice overrides a work type's base price. Returns false for an
// unknown key or non-positive price.
func (c *Catalog) SetBasePrice(key string, price int) bool {
	if _, ok := c.lookup(key); !ok || price <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[key] = price
	return true
}

// Overrides returns a copy of the current price overrides.
func (c *Catalog) Overrides() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.overrides))
	for k, v := range c.overrides {
		out[k] = v
	}
	return out
}

// GetUpsell returns the upsell option for key.
func GetUpsell(key string) (Upsell, bool) {
	for _, u := range upsells {
		if u.Key == key {
			return u, true
		}
	}
	return Upsell{}, false
}

// Upsells returns every upsell option in display order.
func Upsells() []Upsell {
	return upsells
}

// FAQ returns the full FAQ list.
func FAQ() []FAQItem {
	return faqItems
}
