package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const miniCatalog = `-- fields: company, close
SELECT c.name AS company, p.close
FROM prices p JOIN companies c ON p.ticker = c.symbol
WHERE p.date = CAST(:date AS DATE)
ORDER BY p.close DESC
LIMIT 1;

SELECT close
FROM prices
WHERE ticker = :ticker AND date = CAST(:date AS DATE);
`

func TestParse(t *testing.T) {
	c := Parse(miniCatalog)

	require.Equal(t, 2, c.Size())
	assert.True(t, strings.HasSuffix(c.Statements()[0], ";"))
	assert.Contains(t, c.Statements()[0], "-- fields: company, close")
}

func TestFindWith(t *testing.T) {
	c := Parse(miniCatalog)

	s := c.FindWith("fields: company, close", "order by p.close desc")
	assert.Contains(t, s, "ORDER BY p.close DESC")

	s = c.FindWith("select close", "cast(:date as date)")
	assert.Contains(t, s, "SELECT close\nFROM prices")

	assert.Empty(t, c.FindWith("select close", "no such marker"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("nope.sql")
	assert.Error(t, err)
}
