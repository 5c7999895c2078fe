package tts

import (
	"encoding/json"
	"fmt"
)

// parseJSON parses JSON data into the target interface.
func parseJSON(data []byte, target any) error {
	err := json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

// isJSON reports whether data decodes as a JSON document.
func isJSON(data []byte) bool {
	var payload any

	return parseJSON(data, &payload) == nil
}
