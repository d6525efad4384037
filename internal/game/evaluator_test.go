package game

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/waldohunt/go-server/internal/catalog"
	"github.com/waldohunt/go-server/internal/db"
	"github.com/waldohunt/go-server/internal/session"
)

// fixture wires a real store against a temp database: two characters with
// hit boxes (0,0)-(2,2) and (3,3)-(5,5).
func fixture(t *testing.T) (*Evaluator, *session.Store, *catalog.Store, *sql.DB) {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	stmts := []string{
		`INSERT INTO maps (id, name, url) VALUES ('map-1','Test Map','url')`,
		`INSERT INTO characters (id, map_id, name, url, start_x, start_y, end_x, end_y)
		 VALUES ('char-1','map-1','First','url',0,0,2,2)`,
		`INSERT INTO characters (id, map_id, name, url, start_x, start_y, end_x, end_y)
		 VALUES ('char-2','map-1','Second','url',3,3,5,5)`,
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	sessions := session.NewStore(conn)
	return NewEvaluator(sessions), sessions, catalog.New(conn), conn
}

func TestEvaluateScenario(t *testing.T) {
	t.Parallel()

	eval, sessions, cat, _ := fixture(t)
	ctx := context.Background()
	sess, err := sessions.Create(ctx, "map-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	char1, err := cat.CharacterOf(ctx, "map-1", "char-1")
	if err != nil {
		t.Fatalf("load char-1: %v", err)
	}
	char2, err := cat.CharacterOf(ctx, "map-1", "char-2")
	if err != nil {
		t.Fatalf("load char-2: %v", err)
	}

	steps := []struct {
		ch   *catalog.Character
		pt   catalog.Point
		want Verdict
	}{
		{char1, catalog.Point{X: 4, Y: 4}, VerdictIncorrect}, // inside char-2's box, wrong character
		{char1, catalog.Point{X: 1, Y: 1}, VerdictCorrect},
		{char1, catalog.Point{X: 1, Y: 1}, VerdictDuplicate},
		{char1, catalog.Point{X: 9, Y: 9}, VerdictDuplicate}, // found-set wins even off-target
		{char2, catalog.Point{X: 4, Y: 4}, VerdictGameOver},
	}
	for i, step := range steps {
		got, err := eval.Evaluate(ctx, sess, step.ch, step.pt, 2)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != step.want {
			t.Fatalf("step %d verdict = %q, want %q", i, got, step.want)
		}
	}

	done, err := sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !done.Completed() {
		t.Fatal("session not completed after final find")
	}
	if *done.ElapsedSeconds < 0 {
		t.Fatalf("elapsed_seconds = %d, want >= 0", *done.ElapsedSeconds)
	}
}

func TestHitTestInclusiveEdges(t *testing.T) {
	t.Parallel()

	ch := &catalog.Character{
		Start: catalog.Point{X: 0, Y: 0},
		End:   catalog.Point{X: 2, Y: 2},
	}
	cases := []struct {
		pt   catalog.Point
		want bool
	}{
		{catalog.Point{X: 0, Y: 0}, true},
		{catalog.Point{X: 2, Y: 2}, true},
		{catalog.Point{X: 0, Y: 2}, true},
		{catalog.Point{X: 1, Y: 1}, true},
		{catalog.Point{X: 3, Y: 1}, false},
		{catalog.Point{X: 1, Y: 3}, false},
		{catalog.Point{X: -1, Y: 1}, false},
	}
	for _, tc := range cases {
		if got := hit(ch, tc.pt); got != tc.want {
			t.Fatalf("hit(%v) = %v, want %v", tc.pt, got, tc.want)
		}
	}
}
