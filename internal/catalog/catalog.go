// internal/catalog/catalog.go
//
// Read-only access to the map/character catalog.
// The catalog is reference data seeded out of band; nothing in this server
// ever writes to it. Character hit rectangles are loaded for the evaluator
// only and must never be serialized into an HTTP response.

package catalog

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a map or character does not exist. A character
// looked up under the wrong map reports the same error as one that does not
// exist at all, so callers cannot probe catalog structure.
var ErrNotFound = errors.New("catalog: not found")

// Point is a pixel coordinate on a map image.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Map is one playable scene.
type Map struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Character is a findable target on a map. Start/End bound the axis-aligned
// hit rectangle, componentwise Start <= End.
type Character struct {
	ID    string
	MapID string
	Name  string
	URL   string
	Start Point
	End   Point
}

// Store reads catalog rows from SQLite.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// GetMap loads a single map by id.
func (s *Store) GetMap(ctx context.Context, id string) (*Map, error) {
	var m Map
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, url FROM maps WHERE id=?`, id,
	).Scan(&m.ID, &m.Name, &m.URL)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMaps returns every map, ordered by name for stable output.
func (s *Store) ListMaps(ctx context.Context) ([]Map, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, url FROM maps ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Map{}
	for rows.Next() {
		var m Map
		if err := rows.Scan(&m.ID, &m.Name, &m.URL); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CharactersOf returns every character belonging to a map, hit rectangles
// included.
func (s *Store) CharactersOf(ctx context.Context, mapID string) ([]Character, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, map_id, name, url, start_x, start_y, end_x, end_y
		 FROM characters WHERE map_id=? ORDER BY name ASC`, mapID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Character{}
	for rows.Next() {
		var c Character
		if err := rows.Scan(&c.ID, &c.MapID, &c.Name, &c.URL,
			&c.Start.X, &c.Start.Y, &c.End.X, &c.End.Y); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CharacterOf loads one character scoped to a map. The scoping means a wrong
// map id and an unknown character id are indistinguishable.
func (s *Store) CharacterOf(ctx context.Context, mapID, characterID string) (*Character, error) {
	var c Character
	err := s.db.QueryRowContext(ctx,
		`SELECT id, map_id, name, url, start_x, start_y, end_x, end_y
		 FROM characters WHERE id=? AND map_id=?`, characterID, mapID,
	).Scan(&c.ID, &c.MapID, &c.Name, &c.URL, &c.Start.X, &c.Start.Y, &c.End.X, &c.End.Y)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountCharacters reports how many characters a map has; the evaluator
// compares this against the found-set size to detect completion.
func (s *Store) CountCharacters(ctx context.Context, mapID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM characters WHERE map_id=?`, mapID).Scan(&n)
	return n, err
}
