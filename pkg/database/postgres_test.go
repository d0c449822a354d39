package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ms-lokesh/cohort-summit-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "summit",
		Password: "secret",
		Name:     "cohort_summit",
		SSLMode:  "require",
	}
	assert.Equal(t, "host=db.internal port=5433 user=summit password=secret dbname=cohort_summit sslmode=require", DSN(cfg))
}

func TestDSNDefaultsSSLMode(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "cohort_summit"})
	assert.Contains(t, dsn, "sslmode=disable")
}
