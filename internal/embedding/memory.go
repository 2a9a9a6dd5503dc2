package embedding

import (
	"context"
	"sync"
)

// MemoryGateway produces deterministic vectors from text bytes. Used in
// tests. FailOn marks inputs that return an error; EmptyOn marks inputs
// that return no vector.
type MemoryGateway struct {
	mu        sync.Mutex
	dimension int
	FailOn    map[string]error
	EmptyOn   map[string]bool
	calls     []string
}

var _ Gateway = (*MemoryGateway)(nil)

func NewMemoryGateway(dimension int) *MemoryGateway {
	return &MemoryGateway{
		dimension: dimension,
		FailOn:    make(map[string]error),
		EmptyOn:   make(map[string]bool),
	}
}

func (g *MemoryGateway) Dimension() int {
	return g.dimension
}

// Calls returns every input embedded so far, in order.
func (g *MemoryGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	copy(out, g.calls)
	return out
}

func (g *MemoryGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	g.mu.Lock()
	g.calls = append(g.calls, text)
	err := g.FailOn[text]
	empty := g.EmptyOn[text]
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	// Spread the byte sum across the vector so distinct texts land at
	// distinct points and distances are stable across runs.
	var sum int
	for _, b := range []byte(text) {
		sum += int(b)
	}
	vec := make([]float32, g.dimension)
	for i := range vec {
		vec[i] = float32((sum+i)%97) / 97
	}
	return vec, nil
}
