package gen

import (
	"github.com/google/uuid"
)

type UUIDGenerator func() uuid.UUID

func UUID() UUIDGenerator {
	return func() uuid.UUID {
		return uuid.Must(uuid.NewRandom())
	}
}

// Fixed returns a generator that always yields the same id. Tests use it to
// make session correlation deterministic.
func Fixed(u uuid.UUID) UUIDGenerator {
	return func() uuid.UUID {
		return u
	}
}

func (g UUIDGenerator) Next() uuid.UUID {
	if g == nil {
		return uuid.Nil
	}

	return g()
}
