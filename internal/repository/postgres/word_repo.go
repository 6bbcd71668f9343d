package postgres

import "context"

// WordRepo implements WordRepository using PostgreSQL.
type WordRepo struct{ db *DB }

// NewWordRepo constructs a word repository.
func NewWordRepo(db *DB) *WordRepo { return &WordRepo{db: db} }

// Random returns up to limit words in random order.
func (r *WordRepo) Random(ctx context.Context, limit int) ([]string, error) {
	const q = `SELECT word FROM words ORDER BY random() LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var w string
		if err = rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
