package local

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/krisalay/storefront-cache/platform"
	_ "modernc.org/sqlite" // SQLite driver
)

const basketTable = "basket_items"

// SQLBasketStore persists baskets in SQLite, MySQL or PostgreSQL.
type SQLBasketStore struct {
	db      *sql.DB
	backend Backend
}

var _ BasketStore = &SQLBasketStore{} // Compile-time check

// NewSQLBasketStore connects to the database and creates the basket table if needed.
func NewSQLBasketStore(backend Backend, connStr string) (*SQLBasketStore, error) {
	var driverName string

	switch backend {
	case SQLiteBackend:
		driverName = "sqlite"
		if connStr == "" {
			connStr = ":memory:"
		}
	case MySQLBackend:
		// user:password@tcp(host:port)/dbname
		driverName = "mysql"
		if connStr == "" {
			return nil, fmt.Errorf("mysql basket store needs a connection string: user:password@tcp(host:port)/dbname")
		}
	case PostgreSQLBackend:
		// host=localhost port=5432 user=postgres dbname=storefront
		driverName = "pgx"
		if connStr == "" {
			return nil, fmt.Errorf("postgresql basket store needs a connection string: host=localhost port=5432 user=postgres dbname=mydb")
		}
	default:
		return nil, fmt.Errorf("unsupported SQL basket backend: %s", backend)
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("open %s basket store: %w", backend, err)
	}
	if backend == SQLiteBackend {
		// A single connection avoids "database is locked" and keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s basket store: %w", backend, err)
	}
	if _, err := db.Exec(createBasketTableQuery(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", basketTable, err)
	}

	return &SQLBasketStore{db: db, backend: backend}, nil
}

func createBasketTableQuery(backend Backend) string {
	qty := "INTEGER"
	if backend == MySQLBackend {
		qty = "INT"
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			session_id VARCHAR(128) NOT NULL,
			product_id VARCHAR(128) NOT NULL,
			variant_id VARCHAR(128) NOT NULL,
			quantity %s NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (session_id, product_id, variant_id)
		)`, basketTable, qty)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLBasketStore) rebind(query string) string {
	if s.backend != PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLBasketStore) upsertQuery(increment bool) string {
	switch s.backend {
	case MySQLBackend:
		set := "quantity = VALUES(quantity)"
		if increment {
			set = "quantity = quantity + VALUES(quantity)"
		}
		return fmt.Sprintf(`INSERT INTO %s (session_id, product_id, variant_id, quantity, updated_at) VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE %s, updated_at = VALUES(updated_at)`, basketTable, set)
	default: // SQLite and PostgreSQL
		set := "quantity = excluded.quantity"
		if increment {
			set = fmt.Sprintf("quantity = %s.quantity + excluded.quantity", basketTable)
		}
		return s.rebind(fmt.Sprintf(`INSERT INTO %s (session_id, product_id, variant_id, quantity, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (session_id, product_id, variant_id) DO UPDATE SET %s, updated_at = excluded.updated_at`, basketTable, set))
	}
}

func (s *SQLBasketStore) Items(ctx context.Context, sessionID string) ([]platform.BasketItem, error) {
	query := s.rebind(fmt.Sprintf(`SELECT product_id, variant_id, quantity FROM %s WHERE session_id = ? ORDER BY product_id, variant_id`, basketTable))
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query basket: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []platform.BasketItem{}
	for rows.Next() {
		var it platform.BasketItem
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan basket line: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLBasketStore) Add(ctx context.Context, sessionID, productID, variantID string, qty int) error {
	_, err := s.db.ExecContext(ctx, s.upsertQuery(true), sessionID, productID, variantID, qty, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("add basket line: %w", err)
	}
	return nil
}

func (s *SQLBasketStore) Set(ctx context.Context, sessionID, productID, variantID string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, sessionID, productID, variantID)
	}
	_, err := s.db.ExecContext(ctx, s.upsertQuery(false), sessionID, productID, variantID, qty, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set basket line: %w", err)
	}
	return nil
}

func (s *SQLBasketStore) Remove(ctx context.Context, sessionID, productID, variantID string) error {
	query := s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE session_id = ? AND product_id = ? AND variant_id = ?`, basketTable))
	if _, err := s.db.ExecContext(ctx, query, sessionID, productID, variantID); err != nil {
		return fmt.Errorf("remove basket line: %w", err)
	}
	return nil
}

func (s *SQLBasketStore) Clear(ctx context.Context, sessionID string) error {
	query := s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE session_id = ?`, basketTable))
	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("clear basket: %w", err)
	}
	return nil
}

func (s *SQLBasketStore) Close() error {
	return s.db.Close()
}
