package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/waldohunt/go-server/internal/db"
)

func openTestCatalog(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	stmts := []string{
		`INSERT INTO maps (id, name, url) VALUES ('map-1','Beach','url-1')`,
		`INSERT INTO maps (id, name, url) VALUES ('map-2','Ski Slope','url-2')`,
		`INSERT INTO characters (id, map_id, name, url, start_x, start_y, end_x, end_y)
		 VALUES ('char-1','map-1','Waldo','url',10,20,30,40)`,
		`INSERT INTO characters (id, map_id, name, url, start_x, start_y, end_x, end_y)
		 VALUES ('char-2','map-2','Wizard','url',1,1,2,2)`,
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return New(conn)
}

func TestGetMap(t *testing.T) {
	t.Parallel()

	cat := openTestCatalog(t)
	m, err := cat.GetMap(context.Background(), "map-1")
	if err != nil {
		t.Fatalf("get map: %v", err)
	}
	if m.Name != "Beach" || m.URL != "url-1" {
		t.Fatalf("map = %+v", m)
	}

	if _, err := cat.GetMap(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, ErrNotFound)
	}
}

func TestCharacterOfScopedToMap(t *testing.T) {
	t.Parallel()

	cat := openTestCatalog(t)
	ch, err := cat.CharacterOf(context.Background(), "map-1", "char-1")
	if err != nil {
		t.Fatalf("character of: %v", err)
	}
	if ch.Start.X != 10 || ch.End.Y != 40 {
		t.Fatalf("rectangle = %+v %+v", ch.Start, ch.End)
	}

	// A character from another map and a character that does not exist are
	// the same error.
	_, errWrongMap := cat.CharacterOf(context.Background(), "map-1", "char-2")
	_, errMissing := cat.CharacterOf(context.Background(), "map-1", "ghost")
	if !errors.Is(errWrongMap, ErrNotFound) || !errors.Is(errMissing, ErrNotFound) {
		t.Fatalf("errors = %v, %v; want both %v", errWrongMap, errMissing, ErrNotFound)
	}
}

func TestCountCharacters(t *testing.T) {
	t.Parallel()

	cat := openTestCatalog(t)
	n, err := cat.CountCharacters(context.Background(), "map-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	if n, _ := cat.CountCharacters(context.Background(), "ghost"); n != 0 {
		t.Fatalf("count for missing map = %d, want 0", n)
	}
}
