package db

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/soloveyska1/gipsrbot-sub000/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

// New opens the SQLite database and applies the schema.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		user_id INTEGER NOT NULL,
		order_id INTEGER NOT NULL,
		type_key TEXT NOT NULL,
		topic TEXT NOT NULL,
		deadline_days INTEGER NOT NULL,
		deadline_date DATETIME NOT NULL,
		requirements TEXT,
		upsells TEXT,
		complexity REAL NOT NULL DEFAULT 1.0,
		price INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, order_id)
	);

	CREATE TABLE IF NOT EXISTS referrals (
		referrer_id INTEGER NOT NULL,
		referee_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (referrer_id, referee_id)
	);

	CREATE TABLE IF NOT EXISTS feedbacks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS user_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		username TEXT,
		action TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_overrides (
		type_key TEXT PRIMARY KEY,
		base_price INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
	CREATE INDEX IF NOT EXISTS idx_user_actions_user ON user_actions(user_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

const orderColumns = `user_id, order_id, type_key, topic, deadline_days, deadline_date,
	 requirements, upsells, complexity, price, status, created_at`

func scanOrder(row interface{ Scan(...any) error }) (models.Order, error) {
	var order models.Order
	var requirements, upsells sql.NullString
	err := row.Scan(
		&order.UserID, &order.OrderID, &order.TypeKey, &order.Topic,
		&order.DeadlineDays, &order.DeadlineDate, &requirements, &upsells,
		&order.Complexity, &order.Price, &order.Status, &order.CreatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}
	order.Requirements = requirements.String
	if upsells.Valid && upsells.String != "" {
		order.Upsells = strings.Split(upsells.String, ",")
	}
	return order, nil
}

func collectOrders(rows *sql.Rows) ([]models.Order, error) {
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// Orders returns one user's orders in id order.
func (db *DB) Orders(userID int64) ([]models.Order, error) {
	rows, err := db.conn.Query(
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY order_id ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// AppendOrders persists a batch of new orders for one user, assigning
// sequential order ids that continue from the user's existing history. The
// whole batch is one transaction, so concurrent finalizes for the same user
// cannot interleave the read-modify-write.
func (db *DB) AppendOrders(userID int64, items []models.NewOrder) ([]models.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty order batch")
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var lastID int64
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(order_id), 0) FROM orders WHERE user_id = ?`, userID,
	).Scan(&lastID); err != nil {
		return nil, err
	}

	now := time.Now()
	saved := make([]models.Order, 0, len(items))
	for _, item := range items {
		lastID++
		order := models.Order{
			UserID:       userID,
			OrderID:      lastID,
			TypeKey:      item.TypeKey,
			Topic:        item.Topic,
			DeadlineDays: item.DeadlineDays,
			DeadlineDate: now.AddDate(0, 0, item.DeadlineDays),
			Requirements: item.Requirements,
			Upsells:      item.Upsells,
			Complexity:   item.Complexity,
			Price:        item.Price,
			Status:       models.StatusNew,
			CreatedAt:    now,
		}
		_, err := tx.Exec(
			`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			order.UserID, order.OrderID, order.TypeKey, order.Topic,
			order.DeadlineDays, order.DeadlineDate, order.Requirements,
			strings.Join(order.Upsells, ","), order.Complexity, order.Price,
			order.Status, order.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		saved = append(saved, order)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return saved, nil
}

// GetOrder retrieves one order by its per-user id.
func (db *DB) GetOrder(userID, orderID int64) (*models.Order, error) {
	order, err := scanOrder(db.conn.QueryRow(
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? AND order_id = ?`, userID, orderID,
	))
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// RecentOrders returns the newest orders across all users.
func (db *DB) RecentOrders(limit int) ([]models.Order, error) {
	rows, err := db.conn.Query(
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, order_id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// AllOrders returns every persisted order, oldest first.
func (db *DB) AllOrders() ([]models.Order, error) {
	rows, err := db.conn.Query(
		`SELECT ` + orderColumns + ` FROM orders ORDER BY created_at ASC, order_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// UpdateOrderStatus sets a new status on an existing order.
func (db *DB) UpdateOrderStatus(userID, orderID int64, status models.OrderStatus) error {
	result, err := db.conn.Exec(
		`UPDATE orders SET status = ? WHERE user_id = ? AND order_id = ?`,
		status, userID, orderID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("order #%d for user %d not found", orderID, userID)
	}
	return nil
}

// UpdateOrderPrice overrides an order's price after creation.
func (db *DB) UpdateOrderPrice(userID, orderID int64, price int) error {
	result, err := db.conn.Exec(
		`UPDATE orders SET price = ? WHERE user_id = ? AND order_id = ?`,
		price, userID, orderID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("order #%d for user %d not found", orderID, userID)
	}
	return nil
}

// Stats is the admin statistics summary.
type Stats struct {
	Orders  int
	Active  int
	Revenue int
	Users   int
}

// Statistics aggregates the order book for the admin console. Active means
// any status other than done or rejected.
func (db *DB) Statistics() (Stats, error) {
	var stats Stats
	err := db.conn.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(price), 0),
		        COALESCE(SUM(CASE WHEN status NOT IN (?, ?) THEN 1 ELSE 0 END), 0),
		        COUNT(DISTINCT user_id)
		 FROM orders`,
		models.StatusDone, models.StatusRejected,
	).Scan(&stats.Orders, &stats.Revenue, &stats.Active, &stats.Users)
	return stats, err
}

// AddReferral records a referrer→referee edge. Returns false when the edge
// already exists.
func (db *DB) AddReferral(referrerID, refereeID int64) (bool, error) {
	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO referrals (referrer_id, referee_id, created_at) VALUES (?, ?, ?)`,
		referrerID, refereeID, time.Now(),
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Referees lists the users referred by referrerID, oldest first.
func (db *DB) Referees(referrerID int64) ([]int64, error) {
	rows, err := db.conn.Query(
		`SELECT referee_id FROM referrals WHERE referrer_id = ? ORDER BY created_at ASC`, referrerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var referees []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		referees = append(referees, id)
	}
	return referees, rows.Err()
}

// AddFeedback stores one feedback message.
func (db *DB) AddFeedback(userID int64, text string) error {
	_, err := db.conn.Exec(
		`INSERT INTO feedbacks (user_id, text, created_at) VALUES (?, ?, ?)`,
		userID, text, time.Now(),
	)
	return err
}

// LogAction appends one entry to the user action log.
func (db *DB) LogAction(userID int64, username, action string) error {
	_, err := db.conn.Exec(
		`INSERT INTO user_actions (user_id, username, action, created_at) VALUES (?, ?, ?, ?)`,
		userID, username, action, time.Now(),
	)
	return err
}

// RecentActions returns the newest action log entries.
func (db *DB) RecentActions(limit int) ([]models.UserAction, error) {
	rows, err := db.conn.Query(
		`SELECT user_id, COALESCE(username, ''), action, created_at
		 FROM user_actions ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actions []models.UserAction
	for rows.Next() {
		var a models.UserAction
		if err := rows.Scan(&a.UserID, &a.Username, &a.Action, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// AllUserIDs returns every user known to the bot (order history or action
// log), for administrator broadcasts.
func (db *DB) AllUserIDs() ([]int64, error) {
	rows, err := db.conn.Query(
		`SELECT user_id FROM orders UNION SELECT user_id FROM user_actions`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Setting reads one settings value; missing keys return "".
func (db *DB) Setting(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting writes one settings value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value,
	)
	return err
}

// PriceOverrides loads administrator base price overrides.
func (db *DB) PriceOverrides() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT type_key, base_price FROM price_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	overrides := map[string]int{}
	for rows.Next() {
		var key string
		var price int
		if err := rows.Scan(&key, &price); err != nil {
			return nil, err
		}
		overrides[key] = price
	}
	return overrides, rows.Err()
}

// SetPriceOverride stores a base price override for a work type.
func (db *DB) SetPriceOverride(typeKey string, price int) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO price_overrides (type_key, base_price) VALUES (?, ?)`, typeKey, price,
	)
	return err
}

// ExportOrdersCSV writes the full order book as CSV.
func (db *DB) ExportOrdersCSV(w io.Writer) error {
	orders, err := db.AllOrders()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := []string{
		"user_id", "order_id", "type_key", "topic", "deadline_days",
		"deadline_date", "requirements", "upsells", "price", "status", "created_at",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, order := range orders {
		record := []string{
			strconv.FormatInt(order.UserID, 10),
			strconv.FormatInt(order.OrderID, 10),
			order.TypeKey,
			order.Topic,
			strconv.Itoa(order.DeadlineDays),
			order.DeadlineDate.Format("2006-01-02"),
			order.Requirements,
			strings.Join(order.Upsells, ","),
			strconv.Itoa(order.Price),
			string(order.Status),
			order.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
