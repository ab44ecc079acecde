package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPostgresDB_Unreachable(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		User:     "user",
		Password: "pass",
		DBName:   "db",
		SSLMode:  "disable",
	}

	db, err := NewPostgresDB(cfg)

	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     "5432",
		User:     "wedding",
		Password: "pw",
		DBName:   "weddly",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=wedding password=pw dbname=weddly sslmode=disable", cfg.DSN())
}
