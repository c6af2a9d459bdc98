package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// importRow is one category/key/response triple read from an import file
type importRow struct {
	Category string
	Key      string
	Response string
}

// readImportFile parses a JSON or YAML {category: {key: response}} document,
// or a CSV file of category,key,response rows
func readImportFile(path string) ([]importRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var doc map[string]map[string]string
		if err := json.NewDecoder(f).Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return flatten(doc), nil
	case ".yaml", ".yml":
		var doc map[string]map[string]string
		if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return flatten(doc), nil
	case ".csv":
		return parseCSV(f)
	default:
		return nil, fmt.Errorf("unsupported import format %q (use .json, .yaml or .csv)", filepath.Ext(path))
	}
}

// flatten orders rows by category then key so imports are reproducible
func flatten(doc map[string]map[string]string) []importRow {
	var rows []importRow
	for category, responses := range doc {
		for key, response := range responses {
			rows = append(rows, importRow{Category: category, Key: key, Response: response})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

func parseCSV(r io.Reader) ([]importRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []importRow
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if line == 1 && strings.Contains(strings.ToLower(strings.Join(record, ",")), "category") {
			continue
		}
		if len(record) < 3 {
			continue
		}
		rows = append(rows, importRow{
			Category: strings.TrimSpace(record[0]),
			Key:      strings.TrimSpace(record[1]),
			Response: strings.TrimSpace(strings.Join(record[2:], ",")),
		})
	}
	return rows, nil
}
