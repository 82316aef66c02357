package domain

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidKey = errors.New("invalid coordinate key")

// Key - integer voxel coordinate
type Key struct {
	X, Y, Z int
}

// String renders the canonical "x,y,z" form.
func (k Key) String() string {
	return strconv.Itoa(k.X) + "," + strconv.Itoa(k.Y) + "," + strconv.Itoa(k.Z)
}

// ParseKey parses "x,y,z". Surrounding spaces per component are tolerated,
// so " 1, 2,3" and "1,2,3" name the same voxel.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Key{}, ErrInvalidKey
	}
	var xyz [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Key{}, ErrInvalidKey
		}
		xyz[i] = n
	}
	return Key{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// Block - one grid entry on the wire
type Block struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

// BlocksFromGrid flattens a grid into a list sorted by key.
func BlocksFromGrid(grid map[string]string) []Block {
	out := make([]Block, 0, len(grid))
	for k, t := range grid {
		out = append(out, Block{Key: k, Type: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SortedKeys flattens a key set into a sorted list.
func SortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
