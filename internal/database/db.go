package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/gasmarket/marketplace-api/internal/config"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations creates the schema at startup
func (d *Database) RunMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_profiles (
		user_id VARCHAR(50) PRIMARY KEY,
		username VARCHAR(100) NOT NULL,
		role VARCHAR(10) NOT NULL,
		phone_number VARCHAR(20),
		address TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS gas_listings (
		id VARCHAR(50) PRIMARY KEY,
		brand VARCHAR(20) NOT NULL,
		weight_kg DECIMAL(5, 1) NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 0),
		unit_price DECIMAL(10, 2) NOT NULL,
		seller_id VARCHAR(50) NOT NULL REFERENCES user_profiles(user_id),
		location VARCHAR(100) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_gas_listings_seller ON gas_listings(seller_id);
	CREATE INDEX IF NOT EXISTS idx_gas_listings_brand ON gas_listings(brand);

	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(50) PRIMARY KEY,
		listing_id VARCHAR(50) NOT NULL REFERENCES gas_listings(id),
		buyer_id VARCHAR(50) NOT NULL REFERENCES user_profiles(user_id),
		quantity INT NOT NULL,
		total_price DECIMAL(10, 2) NOT NULL,
		status VARCHAR(10) NOT NULL,
		delivery_address TEXT NOT NULL,
		contact_phone VARCHAR(20) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_listing ON orders(listing_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS invoices (
		id VARCHAR(50) PRIMARY KEY,
		order_id VARCHAR(50) NOT NULL UNIQUE REFERENCES orders(id),
		invoice_number VARCHAR(20) NOT NULL UNIQUE,
		amount DECIMAL(10, 2) NOT NULL,
		due_date TIMESTAMP NOT NULL,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		payment_date TIMESTAMP,
		admin_approval BOOLEAN NOT NULL DEFAULT FALSE,
		admin_approval_date TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(50) PRIMARY KEY,
		invoice_id VARCHAR(50) NOT NULL UNIQUE REFERENCES invoices(id),
		amount DECIMAL(10, 2) NOT NULL,
		status VARCHAR(10) NOT NULL,
		transaction_id VARCHAR(100),
		payment_method VARCHAR(50) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS ratings (
		id VARCHAR(50) PRIMARY KEY,
		order_id VARCHAR(50) NOT NULL UNIQUE REFERENCES orders(id),
		score INT NOT NULL CHECK (score BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS outbox_messages (
		id SERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		processing_attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status);
	CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);
	`

	_, err := d.DB.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
