package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// readJSONInput accepts a file path or inline JSON.
func readJSONInput(input string) ([]byte, error) {
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	// Treat as inline JSON
	return []byte(input), nil
}

func decodeJSONInput(input string, v any) error {
	data, err := readJSONInput(input)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
