package proxy

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a proxy pool from a JSON file: an array of
// {"type","host","port","username","password"} records.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse proxy file %s: %w", path, err)
	}
	for i, e := range entries {
		if e.Host == "" || e.Port == 0 {
			return nil, fmt.Errorf("proxy entry %d: host and port are required", i)
		}
	}
	return entries, nil
}
