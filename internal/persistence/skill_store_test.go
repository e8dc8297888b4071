package persistence

import (
	"testing"

	"github.com/overhuman/agentrt/internal/bus"
)

func TestSkillStore_StoreAndFind(t *testing.T) {
	store, err := OpenSkillStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sk := NewSkill("Fix flaky test", "Rerun with -race and bisect the failing assertion", bus.CoreStructured).
		WithPatterns([]string{"flaky", "test", "race"})
	sk.RecordUsage(true)

	if err := store.Store(sk); err != nil {
		t.Fatalf("store: %v", err)
	}

	found, err := store.FindForTask("debug this flaky test suite", 5)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Fix flaky test" {
		t.Errorf("found = %+v", found)
	}
}

func TestSkillStore_UnverifiedSkillsExcluded(t *testing.T) {
	store, err := OpenSkillStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sk := NewSkill("Untested approach", "Never actually succeeded", bus.CoreFreeform).
		WithPatterns([]string{"flaky", "test"})

	if err := store.Store(sk); err != nil {
		t.Fatalf("store: %v", err)
	}

	found, err := store.FindForTask("debug flaky test", 5)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("found = %+v, want none (unverified)", found)
	}
}

func TestSkill_RecordUsage(t *testing.T) {
	sk := NewSkill("A", "B", bus.CoreFreeform)
	sk.RecordUsage(true)
	sk.RecordUsage(false)
	sk.RecordUsage(true)

	if sk.AttemptCount != 3 || sk.UseCount != 2 {
		t.Errorf("attempt=%d use=%d", sk.AttemptCount, sk.UseCount)
	}
	if sk.SuccessRate < 0.66 || sk.SuccessRate > 0.67 {
		t.Errorf("success rate = %f, want ~0.667", sk.SuccessRate)
	}
	if !sk.Verified {
		t.Error("expected verified after a successful usage")
	}
}
