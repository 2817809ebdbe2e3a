package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

var firstNames = [...]string{
	"Olena", "James", "Sofia", "Daniel", "Iryna", "Oliver", "Hanna",
	"Lucas", "Maria", "Petro", "Emily", "Taras", "Nina", "Viktor",
	"Kateryna", "Andrii", "Laura", "Mykola", "Eva", "Roman",
}

var lastNames = [...]string{
	"Shevchenko", "Koval", "Bondar", "Melnyk", "Tkachenko", "Moroz",
	"Lysenko", "Savchenko", "Bilous", "Kravets", "Polishchuk",
	"Romanenko", "Honchar", "Zaitsev", "Rudenko", "Marchenko",
}

// NameGenerator hands out display names for newly registered peers. Names
// stay unique while held; Release frees one for reuse.
type NameGenerator struct {
	mu   sync.Mutex
	rand *rand.Rand
	used map[string]struct{}
}

func NewNameGenerator() *NameGenerator {
	return &NameGenerator{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		used: make(map[string]struct{}),
	}
}

func (g *NameGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < 10; attempt++ {
		name := g.randomName()
		if _, taken := g.used[name]; !taken {
			g.used[name] = struct{}{}
			return name
		}
	}

	// Crowded room; fall back to a suffixed name that cannot collide.
	name := fmt.Sprintf("%s-%s", g.randomName(), uuid.NewString()[:8])
	g.used[name] = struct{}{}
	return name
}

func (g *NameGenerator) Release(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.used, name)
}

func (g *NameGenerator) randomName() string {
	first := firstNames[g.rand.Intn(len(firstNames))]
	last := lastNames[g.rand.Intn(len(lastNames))]
	return first + " " + last
}
