package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gzipLines compresses lines joined by newlines.
func gzipLines(t *testing.T, lines []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// createTestCatalogFile writes a gzipped catalogue file to a temp dir.
func createTestCatalogFile(t *testing.T, filename string, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(path, gzipLines(t, lines), 0o600))
	return path
}

func TestParse(t *testing.T) {
	tests := []struct {
		name               string
		input              string
		expectedEntries    []Entry
		expectedCategories []string
		expectError        bool
	}{
		{
			name:  "Entries with comments and blank lines",
			input: "# pizzas\nPizzas;Muzzarella\n\n  Pizzas ; Napolitana  \nEmpanadas;Carne\n",
			expectedEntries: []Entry{
				{Category: "Pizzas", Product: "Muzzarella"},
				{Category: "Pizzas", Product: "Napolitana"},
				{Category: "Empanadas", Product: "Carne"},
			},
			expectedCategories: []string{"Pizzas", "Empanadas"},
		},
		{
			name:  "Duplicates collapse case-insensitively",
			input: "Pizzas;Muzzarella\npizzas;MUZZARELLA\n",
			expectedEntries: []Entry{
				{Category: "Pizzas", Product: "Muzzarella"},
			},
			expectedCategories: []string{"Pizzas"},
		},
		{
			name:        "Missing separator",
			input:       "Pizzas Muzzarella\n",
			expectError: true,
		},
		{
			name:        "Empty product",
			input:       "Pizzas;\n",
			expectError: true,
		},
		{
			name:  "Only comments",
			input: "# nothing here\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(context.Background(), strings.NewReader(tt.input))

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedEntries, c.Entries())
			assert.Equal(t, tt.expectedCategories, c.Categories())
		})
	}
}

func TestParse_ContextCancelled(t *testing.T) {
	lines := make([]string, checkEvery+1)
	for i := range lines {
		lines[i] = "Pizzas;Muzzarella"
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, strings.NewReader(strings.Join(lines, "\n")))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLoader_Load_Success(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())
	path := createTestCatalogFile(t, "catalog.gz", []string{
		"Pizzas;Muzzarella",
		"Pizzas;Napolitana",
		"Bebidas;Agua",
	})

	c, err := loader.Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, []string{"Pizzas", "Bebidas"}, c.Categories())
}

func TestFileLoader_Load_FileNotFound(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	c, err := loader.Load(context.Background(), "/nonexistent/catalog.gz")

	assert.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "failed to open catalogue file")
}

func TestFileLoader_Load_NotGzipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.gz")
	require.NoError(t, os.WriteFile(path, []byte("Pizzas;Muzzarella\n"), 0o600))
	loader := NewFileLoader(zerolog.Nop())

	_, err := loader.Load(context.Background(), path)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}
