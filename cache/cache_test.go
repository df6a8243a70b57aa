package cache

import (
	"testing"
	"time"

	"github.com/rishabhxpandey/lnkd-apb/models"
)

func posting(id string) *models.Posting {
	return &models.Posting{
		ID:        id,
		Title:     "Backend Engineer",
		SourceTag: models.SourceLinkedIn,
	}
}

func TestGetSet(t *testing.T) {
	c := New(10, time.Hour)

	if _, ok := c.Get("linkedin_1"); ok {
		t.Error("empty cache reported a hit")
	}

	c.Set("linkedin_1", posting("1"))

	got, ok := c.Get("linkedin_1")
	if !ok {
		t.Fatal("fresh entry reported a miss")
	}
	if got.ID != "1" {
		t.Errorf("cached posting ID = %q, want %q", got.ID, "1")
	}
}

func TestGet_Expired(t *testing.T) {
	c := New(10, 10*time.Millisecond)

	c.Set("linkedin_1", posting("1"))
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("linkedin_1"); ok {
		t.Error("entry older than max age reported a hit")
	}
}

func TestSet_EvictsOldestAtCapacity(t *testing.T) {
	c := New(2, time.Hour)

	c.Set("linkedin_1", posting("1"))
	time.Sleep(5 * time.Millisecond)
	c.Set("linkedin_2", posting("2"))
	time.Sleep(5 * time.Millisecond)
	c.Set("linkedin_3", posting("3"))

	if _, ok := c.Get("linkedin_1"); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get("linkedin_2"); !ok {
		t.Error("second entry was evicted")
	}
	if _, ok := c.Get("linkedin_3"); !ok {
		t.Error("newest entry missing")
	}
	if n := c.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
}

func TestSet_OverwriteDoesNotEvict(t *testing.T) {
	c := New(2, time.Hour)

	c.Set("linkedin_1", posting("1"))
	time.Sleep(5 * time.Millisecond)
	c.Set("linkedin_2", posting("2"))
	time.Sleep(5 * time.Millisecond)

	updated := posting("1")
	updated.Title = "Staff Engineer"
	c.Set("linkedin_1", updated)

	if n := c.Len(); n != 2 {
		t.Errorf("Len after overwrite = %d, want 2", n)
	}
	got, ok := c.Get("linkedin_1")
	if !ok || got.Title != "Staff Engineer" {
		t.Errorf("overwritten entry = %+v, want the updated posting", got)
	}
	if _, ok := c.Get("linkedin_2"); !ok {
		t.Error("overwrite evicted an unrelated entry")
	}
}

func TestDelete(t *testing.T) {
	c := New(10, time.Hour)

	c.Set("linkedin_1", posting("1"))
	c.Delete("linkedin_1")

	if _, ok := c.Get("linkedin_1"); ok {
		t.Error("deleted entry reported a hit")
	}

	// Deleting a missing key is a no-op.
	c.Delete("linkedin_404")
}
