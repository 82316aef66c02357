package gameid

import (
	"fmt"
	"math/rand"
	"strings"
)

var adjectives = []string{
	"swift", "bold", "wise", "keen", "brave", "quick", "strong", "clever",
	"mighty", "sharp", "wild", "calm", "bright", "dark", "silent", "loud",
}

var nouns = []string{
	"dragon", "phoenix", "wolf", "eagle", "tiger", "bear", "lion", "raven",
	"knight", "wizard", "archer", "ranger", "hunter", "quest", "treasure", "vault",
}

// Generate returns an adjective-noun-NN id. Not unique: ~1/4096 of
// draws collide with any given id.
func Generate() string {
	adj := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	return fmt.Sprintf("%s-%s-%02d", adj, noun, rand.Intn(100))
}

// Normalize is the canonical store key: trimmed, lower-cased.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// IsGenerated reports whether id has the shape produced by Generate.
func IsGenerated(id string) bool {
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		return false
	}
	if !contains(adjectives, strings.ToLower(parts[0])) || !contains(nouns, strings.ToLower(parts[1])) {
		return false
	}
	num := parts[2]
	return len(num) == 2 && num[0] >= '0' && num[0] <= '9' && num[1] >= '0' && num[1] <= '9'
}

// IsValid accepts the generated shape or, for manually typed ids, any
// non-empty string.
func IsValid(id string) bool {
	return IsGenerated(id) || len(id) > 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
