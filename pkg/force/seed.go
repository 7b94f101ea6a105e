package force

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Seeder chooses the initial position of a node on a canvas.
type Seeder interface {
	Seed(size Size) r2.Vec
}

// SeedFunc adapts a function to the Seeder interface.
type SeedFunc func(size Size) r2.Vec

// Seed calls f(size).
func (f SeedFunc) Seed(size Size) r2.Vec { return f(size) }

// uniformSeeder places nodes uniformly at random within the canvas.
type uniformSeeder struct {
	rng *rand.Rand
}

func (u uniformSeeder) Seed(size Size) r2.Vec {
	return r2.Vec{X: u.rng.Float64() * size.Width, Y: u.rng.Float64() * size.Height}
}

// NewSeededRandom returns a uniform seeder that is reproducible for a
// given seed.
func NewSeededRandom(seed int64) Seeder {
	return uniformSeeder{rng: rand.New(rand.NewSource(seed))}
}

// RandomSeeder returns a uniform seeder seeded from the clock.
func RandomSeeder() Seeder {
	return NewSeededRandom(time.Now().UnixNano())
}
