package nlp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeCompanyName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Apple Inc.", "apple"},
		{"The Coca-Cola Company", "coca cola"},
		{"JPMorgan Chase & Co.", "jpmorgan chase"},
		{"Walt Disney Company (The)", "walt disney"},
		{"3M", "3m"},
		{"Salesforce, Inc.", "salesforce"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalizeCompanyName(tt.input))
		})
	}
}

func TestAliasTableResolve(t *testing.T) {
	table := NewAliasTable()

	assert.Equal(t, "KO", table.Resolve("coca cola dividends"))
	assert.Equal(t, "KO", table.Resolve("cocacola dividends"))
	assert.Equal(t, "TRV", table.Resolve("travellers stock"))
	assert.Equal(t, "MMM", table.Resolve("how is 3m doing"))
	assert.Empty(t, table.Resolve("some unknown business"))
}

func TestAliasTableResolveName(t *testing.T) {
	table := NewAliasTable()

	assert.Equal(t, "coca cola", table.ResolveName("coca cola dividends"))
	assert.Equal(t, "goldman sachs", table.ResolveName("show Goldman Sachs revenue"))
	assert.Empty(t, table.ResolveName("some unknown business"))
}

func TestAliasTableLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.csv")
	csvData := "symbol,name\nAAPL,Apple Inc.\nKO,The Coca-Cola Company\nCRM,\"Salesforce, Inc.\"\n"
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o644))

	table := NewAliasTable()
	require.NoError(t, table.LoadCSV(path))

	// csv names merge in canonicalized
	assert.Equal(t, "CRM", table.Resolve("salesforce earnings"))
	// symbols themselves become aliases
	assert.Equal(t, "KO", table.Resolve("what about ko today"))
}

func TestAliasTableLoadCSVMissingFile(t *testing.T) {
	table := NewAliasTable()
	assert.Error(t, table.LoadCSV("does-not-exist.csv"))
}
