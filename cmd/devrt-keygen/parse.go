package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RawKeyList is the key list YAML document.
type RawKeyList struct {
	Keys []RawKey `yaml:"keys"`
}

// RawKey is one key code, in enum order.
type RawKey struct {
	Name   string `yaml:"name"`
	PearPC string `yaml:"pearpc"`
}

// LoadKeyList reads and validates a key list file.
func LoadKeyList(path string) (*RawKeyList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	list, err := ParseKeyList(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return list, nil
}

// ParseKeyList parses and validates a key list document.
func ParseKeyList(data []byte) (*RawKeyList, error) {
	var list RawKeyList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	if len(list.Keys) == 0 {
		return nil, errors.New("no keys defined")
	}

	seen := make(map[string]int, len(list.Keys))
	idents := make(map[string]string, len(list.Keys))
	for i, k := range list.Keys {
		if k.Name == "" {
			return nil, fmt.Errorf("key %d: missing name", i)
		}
		if prev, dup := seen[k.Name]; dup {
			return nil, fmt.Errorf("key %d: duplicate name %q (first at %d)", i, k.Name, prev)
		}
		seen[k.Name] = i
		id := goKeyName(k.Name)
		if other, clash := idents[id]; clash {
			return nil, fmt.Errorf("key %d: %q and %q both map to %s", i, other, k.Name, id)
		}
		idents[id] = k.Name
	}
	return &list, nil
}
