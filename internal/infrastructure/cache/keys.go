// Package cache provides typed caches layered over the byte cache port
package cache

import "strings"

// KeyBuilder provides standardized cache key generation
type KeyBuilder struct {
	prefix    string
	separator string
}

// NewKeyBuilder creates a key builder; an empty prefix defaults to "nutriplan"
func NewKeyBuilder(prefix string) *KeyBuilder {
	if prefix == "" {
		prefix = "nutriplan"
	}
	return &KeyBuilder{
		prefix:    strings.TrimSuffix(prefix, ":"),
		separator: ":",
	}
}

// buildKey constructs a cache key from components
func (kb *KeyBuilder) buildKey(components ...string) string {
	parts := make([]string, 0, len(components)+1)
	parts = append(parts, kb.prefix)
	parts = append(parts, components...)
	return strings.Join(parts, kb.separator)
}

// BuildPriceKey creates a key for an ingredient price
func (kb *KeyBuilder) BuildPriceKey(ingredientID string) string {
	return kb.buildKey("price", ingredientID)
}
