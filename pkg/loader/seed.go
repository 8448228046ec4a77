package loader

import (
	_ "embed"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

//go:embed seed.json
var seedJSON []byte

// Seed returns the built-in timelines. Each call returns a fresh copy.
func Seed() model.WorkingSet {
	var ws model.WorkingSet
	if err := json.Unmarshal(seedJSON, &ws); err != nil {
		panic(fmt.Sprintf("loader: embedded seed is corrupt: %v", err))
	}
	return ws
}

// SeedJSON exposes the raw embedded seed, e.g. for `cdv --dump-seed`.
func SeedJSON() []byte {
	out := make([]byte, len(seedJSON))
	copy(out, seedJSON)
	return out
}
