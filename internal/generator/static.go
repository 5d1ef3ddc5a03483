package generator

import "context"

const sampleFact = "An improved one-to-all broadcasting algorithm for higher-dimensional Eisenstein-Jacobi networks reaches every node in fewer steps and uses 2.7% fewer senders than the classic algorithm."

// StaticGenerator returns a fixed fact without calling any service.
type StaticGenerator struct {
	fact string
}

// NewStaticGenerator returns a generator answering with fact, or a bundled
// sample sentence when fact is empty.
func NewStaticGenerator(fact string) *StaticGenerator {
	if fact == "" {
		fact = sampleFact
	}
	return &StaticGenerator{fact: fact}
}

func (s *StaticGenerator) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &GenerationError{Err: err}
	}
	return s.fact, nil
}
