package tree

import (
	"context"
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const nodeIDLength = 21

// IDGenerator returns candidate node ids. Uniqueness is checked against the
// index by Service.
type IDGenerator func() string

func NewNanoIDGenerator() (IDGenerator, error) {
	generate, err := nanoid.Standard(nodeIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}
	return generate, nil
}

func (s *Service) generateUniqueID(ctx context.Context) (string, error) {
	maxRetries := 10

	for i := 0; i < maxRetries; i++ {
		id := s.newID()
		exists, err := s.index.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for node existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}
