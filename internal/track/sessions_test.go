package track

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStartSession(t *testing.T) {
	db := testDB(t)

	s, err := db.StartSession("sess-001", "salience")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if s.SessionID != "sess-001" {
		t.Errorf("SessionID = %q, want sess-001", s.SessionID)
	}
	if s.Project != "salience" {
		t.Errorf("Project = %q, want salience", s.Project)
	}
	if s.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil for live session", s.EndedAt)
	}
}

func TestStartSessionReplayed(t *testing.T) {
	db := testDB(t)

	s1, err := db.StartSession("sess-001", "salience")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	s2, err := db.StartSession("sess-001", "salience")
	if err != nil {
		t.Fatalf("StartSession replay: %v", err)
	}
	if s1.ID != s2.ID {
		t.Errorf("replayed session ID = %d, want %d", s2.ID, s1.ID)
	}
}

func TestEndSession(t *testing.T) {
	db := testDB(t)

	if _, err := db.StartSession("sess-001", "salience"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := db.EndSession("sess-001", "completed", 4); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	summaries, err := db.ConversationContext("salience", ContextOptions{})
	if err != nil {
		t.Fatalf("ConversationContext: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if summaries[0].Outcome != "completed" {
		t.Errorf("Outcome = %q, want completed", summaries[0].Outcome)
	}
	if summaries[0].EndTime.IsZero() {
		t.Error("EndTime is zero after end")
	}
}

func TestEndSessionKeepsFirstEndTime(t *testing.T) {
	db := testDB(t)

	if _, err := db.StartSession("sess-001", "salience"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := db.EndSession("sess-001", "completed", 1); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	first, err := db.ConversationContext("salience", ContextOptions{})
	if err != nil {
		t.Fatalf("ConversationContext: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := db.EndSession("sess-001", "abandoned", 2); err != nil {
		t.Fatalf("EndSession replay: %v", err)
	}
	second, err := db.ConversationContext("salience", ContextOptions{})
	if err != nil {
		t.Fatalf("ConversationContext: %v", err)
	}
	if !second[0].EndTime.Equal(first[0].EndTime) {
		t.Errorf("EndTime changed on replay: %v -> %v", first[0].EndTime, second[0].EndTime)
	}
}

func TestConversationContextLimitsAndOrder(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := db.StartSession(id, "salience"); err != nil {
			t.Fatalf("StartSession %s: %v", id, err)
		}
		if err := db.EndSession(id, "completed", 0); err != nil {
			t.Fatalf("EndSession %s: %v", id, err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	// A live session must not show up.
	if _, err := db.StartSession("live", "salience"); err != nil {
		t.Fatalf("StartSession live: %v", err)
	}

	summaries, err := db.ConversationContext("salience", ContextOptions{MaxPreviousSessions: 2})
	if err != nil {
		t.Fatalf("ConversationContext: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].EndTime.Before(summaries[1].EndTime) {
		t.Error("summaries not newest-first")
	}
}

func TestConversationContextOtherProject(t *testing.T) {
	db := testDB(t)

	if _, err := db.StartSession("x", "other"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := db.EndSession("x", "completed", 0); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	summaries, err := db.ConversationContext("salience", ContextOptions{})
	if err != nil {
		t.Fatalf("ConversationContext: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("summaries = %v, want none for other project", summaries)
	}
}

func TestRecentSessionCount(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"a", "b"} {
		if _, err := db.StartSession(id, "salience"); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		if err := db.EndSession(id, "completed", 0); err != nil {
			t.Fatalf("EndSession: %v", err)
		}
	}

	n, err := db.RecentSessionCount("salience", 7)
	if err != nil {
		t.Fatalf("RecentSessionCount: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestEndUnknownSession(t *testing.T) {
	db := testDB(t)
	if err := db.EndSession("ghost", "completed", 0); err == nil {
		t.Error("EndSession on unknown session should error")
	}
}
