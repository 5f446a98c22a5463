package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"social-publisher/infrastructure/configuration"

	_ "github.com/lib/pq"
)

func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql
	sslMode := "disable"
	if cfg.Host != "" && cfg.Host != "localhost" && cfg.Host != "127.0.0.1" {
		sslMode = "require"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
