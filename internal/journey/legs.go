package journey

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadLegs reads an ordered leg list from a JSON file and validates it.
func LoadLegs(path string) ([]GuardedLeg, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legs file: %w", err)
	}
	return ParseLegs(data)
}

// ParseLegs decodes and validates a JSON leg array.
func ParseLegs(data []byte) ([]GuardedLeg, error) {
	var legs []GuardedLeg
	if err := json.Unmarshal(data, &legs); err != nil {
		return nil, fmt.Errorf("parse legs: %w", err)
	}
	if len(legs) == 0 {
		return nil, fmt.Errorf("legs file contains no legs")
	}
	for i, leg := range legs {
		if err := leg.Validate(); err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
	}
	return legs, nil
}
