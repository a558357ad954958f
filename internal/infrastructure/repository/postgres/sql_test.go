package postgres

import (
	"database/sql"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	t.Run("matches sql.ErrNoRows", func(t *testing.T) {
		if !isNotFound(sql.ErrNoRows) {
			t.Fatalf("expected true for sql.ErrNoRows")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		if isNotFound(fakeErr("pq: relation predictions does not exist")) {
			t.Fatalf("expected false for unrelated error")
		}
	})

	t.Run("ignores nil", func(t *testing.T) {
		if isNotFound(nil) {
			t.Fatalf("expected false for nil error")
		}
	})
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
