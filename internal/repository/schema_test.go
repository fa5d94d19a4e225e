package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	for name, schema := range map[string]string{"mysql": mysqlSchema, "postgres": postgresSchema} {
		stmts := splitStatements(schema)
		assert.Len(t, stmts, 2, name)
		for _, s := range stmts {
			assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS", name)
			assert.False(t, strings.HasSuffix(s, ";"), name)
		}
	}
}
