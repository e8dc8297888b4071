package ota

import "testing"

func TestStateSaver_CaptureState(t *testing.T) {
	s := NewStateSaver(t.TempDir(), 5)
	snap := s.CaptureState("1.2.3", `{"k":"v"}`, []string{"sess-1", "sess-2"}, nil)

	if snap.SnapshotID == "" {
		t.Error("expected non-empty snapshot ID")
	}
	if snap.Version != "1.2.3" {
		t.Errorf("version = %q", snap.Version)
	}
	if len(snap.SessionIDs) != 2 {
		t.Errorf("session IDs = %v", snap.SessionIDs)
	}
}

func TestStateSaver_SaveAndLoad(t *testing.T) {
	s := NewStateSaver(t.TempDir(), 5)
	snap := s.CaptureState("1.0.0", "{}", nil, nil)

	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := s.LoadSnapshots()
	if err != nil {
		t.Fatalf("LoadSnapshots: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded = %d snapshots", len(loaded))
	}
	if loaded[0].SnapshotID != snap.SnapshotID {
		t.Errorf("snapshot ID = %q, want %q", loaded[0].SnapshotID, snap.SnapshotID)
	}
}

func TestStateSaver_PrunesOldSnapshots(t *testing.T) {
	s := NewStateSaver(t.TempDir(), 2)

	for i := 0; i < 4; i++ {
		snap := s.CaptureState("1.0.0", "{}", nil, nil)
		if err := s.SaveSnapshot(snap); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	loaded, err := s.LoadSnapshots()
	if err != nil {
		t.Fatalf("LoadSnapshots: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded = %d snapshots, want 2", len(loaded))
	}
}

func TestStateSaver_LoadEmpty(t *testing.T) {
	s := NewStateSaver(t.TempDir()+"/nonexistent", 5)
	loaded, err := s.LoadSnapshots()
	if err != nil {
		t.Fatalf("LoadSnapshots: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty, got %d", len(loaded))
	}
}
