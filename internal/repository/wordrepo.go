package repository

import "context"

// WordRepository supplies practice vocabulary.
type WordRepository interface {
	// Random returns up to limit words in random order.
	Random(ctx context.Context, limit int) ([]string, error)
}

// Pinger reports store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
