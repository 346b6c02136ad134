package catalog

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	separator   = ";"
	commentMark = "#"
	// checkEvery bounds how many lines are read between context checks.
	checkEvery = 10_000
)

// readGzip decompresses r and parses it as a catalogue.
func readGzip(ctx context.Context, r io.Reader) (*Catalog, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	return Parse(ctx, gzipReader)
}

// Parse reads "category;product" lines. Blank lines and lines starting with #
// are skipped; surrounding whitespace is trimmed from both names.
func Parse(ctx context.Context, r io.Reader) (*Catalog, error) {
	c := NewCatalog()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentMark) {
			continue
		}

		category, product, ok := strings.Cut(line, separator)
		category = strings.TrimSpace(category)
		product = strings.TrimSpace(product)
		if !ok || category == "" || product == "" {
			return nil, fmt.Errorf("malformed catalogue line %d: %q", lineNo, line)
		}

		c.Add(Entry{Category: category, Product: product})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading catalogue: %w", err)
	}

	return c, nil
}
