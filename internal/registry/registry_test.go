package registry

import (
	"testing"
	"time"

	"github.com/harborwatch/harborwatch/internal/model/core"
)

type fakeEntity struct {
	identity string
	updates  []core.StatePatch
	removed  bool
}

func (f *fakeEntity) Update(p core.StatePatch) error {
	f.updates = append(f.updates, p)
	return nil
}

func (f *fakeEntity) Summary() core.Summary {
	return core.Summary{Identity: f.identity, LastUpdate: time.Unix(int64(len(f.updates)), 0)}
}

func (f *fakeEntity) Remove() { f.removed = true }

func TestUpsertCreatesOnceThenMutates(t *testing.T) {
	r := New()
	created := 0
	create := func() (Entity, error) {
		created++
		return &fakeEntity{identity: "ABC123"}, nil
	}

	if err := r.Upsert("ABC123", create, core.StatePatch{}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if err := r.Upsert("ABC123", create, core.StatePatch{Speed: core.Float(4)}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if created != 1 {
		t.Fatalf("create called %d times, want 1", created)
	}
	e, ok := r.Get("ABC123")
	if !ok {
		t.Fatal("entity missing after upsert")
	}
	fe := e.(*fakeEntity)
	if len(fe.updates) != 1 {
		t.Fatalf("updates = %d, want 1 (creation consumes the first sighting)", len(fe.updates))
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestSuspendBlocksLiveUpdates(t *testing.T) {
	r := New()
	fe := &fakeEntity{identity: "ABC123"}
	if err := r.Upsert("ABC123", func() (Entity, error) { return fe, nil }, core.StatePatch{}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	r.Suspend("ABC123")
	if err := r.Upsert("ABC123", nil, core.StatePatch{Speed: core.Float(8)}); err != nil {
		t.Fatalf("suspended Upsert: %v", err)
	}
	if len(fe.updates) != 0 {
		t.Fatalf("live update reached suspended entity")
	}

	// Playback still gets through.
	if err := r.Apply("ABC123", core.StatePatch{Speed: core.Float(2), Snap: true}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(fe.updates) != 1 {
		t.Fatalf("playback update dropped, updates = %d", len(fe.updates))
	}

	r.Resume("ABC123")
	if err := r.Upsert("ABC123", nil, core.StatePatch{Speed: core.Float(8)}); err != nil {
		t.Fatalf("resumed Upsert: %v", err)
	}
	if len(fe.updates) != 2 {
		t.Fatalf("live update dropped after resume, updates = %d", len(fe.updates))
	}
}

func TestSnapshotAndSearch(t *testing.T) {
	r := New()
	for _, id := range []string{"ABC123", "XYZ789", "ABX001"} {
		id := id
		if err := r.Upsert(id, func() (Entity, error) { return &fakeEntity{identity: id}, nil }, core.StatePatch{}); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot size = %d, want 3", len(snap))
	}
	if _, ok := snap["XYZ789"]; !ok {
		t.Fatal("XYZ789 missing from snapshot")
	}

	got := r.Search("ab")
	if len(got) != 2 {
		t.Fatalf("search hits = %d, want 2", len(got))
	}
	if got[0].Identity != "ABC123" || got[1].Identity != "ABX001" {
		t.Fatalf("search order = %v, %v", got[0].Identity, got[1].Identity)
	}

	if all := r.Search(""); len(all) != 3 {
		t.Fatalf("empty query hits = %d, want 3", len(all))
	}
}

func TestSelectReturnsSummary(t *testing.T) {
	r := New()
	fe := &fakeEntity{identity: "ABC123"}
	if err := r.Upsert("ABC123", func() (Entity, error) { return fe, nil }, core.StatePatch{}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	s, ok := r.Select("ABC123")
	if !ok || s.Identity != "ABC123" {
		t.Fatalf("Select = %v, %v; want summary for ABC123", s, ok)
	}
	if _, ok := r.Select("NOPE"); ok {
		t.Fatal("Select of unknown identity reported ok")
	}
}

func TestTeardownRemovesAll(t *testing.T) {
	r := New()
	fes := make([]*fakeEntity, 0, 2)
	for _, id := range []string{"A", "B"} {
		fe := &fakeEntity{identity: id}
		fes = append(fes, fe)
		if err := r.Upsert(id, func() (Entity, error) { return fe, nil }, core.StatePatch{}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	r.Teardown()
	if r.Len() != 0 {
		t.Fatalf("Len after teardown = %d", r.Len())
	}
	for _, fe := range fes {
		if !fe.removed {
			t.Fatalf("entity %s not removed", fe.identity)
		}
	}
}
