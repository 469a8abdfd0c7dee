package review

import (
	"reflect"
	"testing"
	"time"
)

func TestApprovedQuery(t *testing.T) {
	query, args, err := approvedQuery("42")
	if err != nil {
		t.Fatalf("approvedQuery: %v", err)
	}
	want := "SELECT r.id, r.rating, r.comment, r.created_at, u.full_name FROM reviews r " +
		"JOIN users u ON r.user_id = u.id WHERE r.status = ? AND r.tour_id = ? ORDER BY r.created_at DESC"
	if query != want {
		t.Errorf("query =\n%s\nwant\n%s", query, want)
	}
	if !reflect.DeepEqual(args, []any{StatusApproved, "42"}) {
		t.Errorf("args = %v", args)
	}
}

func TestRowToDomain(t *testing.T) {
	comment, name := "Rất vui", "Nguyễn An"
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	got := row{ID: 1, Rating: 5, Comment: &comment, CreatedAt: at, FullName: &name}.toDomain()
	if got.Comment != comment || got.Author != name || got.Rating != 5 || !got.CreatedAt.Equal(at) {
		t.Errorf("toDomain = %+v", got)
	}

	bare := row{ID: 2, Rating: 3}.toDomain()
	if bare.Comment != "" || bare.Author != "" {
		t.Errorf("NULL columns must map to empty strings: %+v", bare)
	}
}
