package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{User: "spa", Pass: "pw", Host: "db", Port: "3306", Name: "bowwow"})
	assert.Equal(t, "spa:pw@tcp(db:3306)/bowwow?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true", dsn)

	dsn = DSN(config.DBConfig{User: "spa", Host: "db", Port: "3306", Name: "bowwow"})
	assert.Contains(t, dsn, "spa@tcp(db:3306)/bowwow?")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}
