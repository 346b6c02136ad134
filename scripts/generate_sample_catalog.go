//go:build ignore

package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Writes data/catalog/catalog.gz, the default CATALOG_FILES entry.
// Run with: go run scripts/generate_sample_catalog.go
func main() {
	dataDir := "data/catalog"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	lines := []string{
		"# category;product",
		"Pizzas;Muzzarella",
		"Pizzas;Napolitana",
		"Pizzas;Fugazzeta",
		"Pizzas;Calabresa",
		"Empanadas;Carne",
		"Empanadas;Pollo",
		"Empanadas;Jamón y queso",
		"Bebidas;Agua",
		"Bebidas;Gaseosa",
		"Postres;Flan",
	}

	filePath := filepath.Join(dataDir, "catalog.gz")
	if err := createCatalogFile(filePath, lines); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	products := 0
	for _, line := range lines {
		if !strings.HasPrefix(line, "#") {
			products++
		}
	}
	fmt.Printf("Created %s with %d products\n", filePath, products)
	fmt.Println("Import it with: go run ./cmd/seed")
}

func createCatalogFile(filePath string, lines []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", line); err != nil {
			return fmt.Errorf("failed to write line: %w", err)
		}
	}

	return nil
}
