package bus

import "testing"

func makeRecord(id AgentId, role AgentRole) AgentRecord {
	return AgentRecord{
		ID:           id,
		DisplayName:  id.String(),
		Role:         role,
		Status:       AgentOnline,
		Capabilities: []string{"code"},
	}
}

func TestAgentRegistry_RegisterAndGet(t *testing.T) {
	reg, err := OpenAgentRegistry(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reg.Close()

	rec := makeRecord("coder-1", RoleCoder)
	if err := reg.RegisterAgent(rec); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := reg.GetAgent("coder-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("get returned nil")
	}
	if got.DisplayName != "coder-1" || got.Status != AgentOnline {
		t.Errorf("got %+v", got)
	}
}

func TestAgentRegistry_RegisterUpsert(t *testing.T) {
	reg, err := OpenAgentRegistry(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reg.Close()

	rec := makeRecord("coder-1", RoleCoder)
	if err := reg.RegisterAgent(rec); err != nil {
		t.Fatalf("register: %v", err)
	}
	rec.Status = AgentBusy
	if err := reg.RegisterAgent(rec); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	got, err := reg.GetAgent("coder-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != AgentBusy {
		t.Errorf("status = %v, want busy", got.Status)
	}

	all, err := reg.ListAgents(nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(all) = %d, want 1 (upsert should not duplicate)", len(all))
	}
}

func TestAgentRegistry_UnregisterAndQueries(t *testing.T) {
	reg, err := OpenAgentRegistry(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reg.Close()

	team := TeamId("team-a")
	rec := makeRecord("coder-1", RoleCoder)
	rec.Team = &team
	if err := reg.RegisterAgent(rec); err != nil {
		t.Fatalf("register: %v", err)
	}
	rec2 := makeRecord("reviewer-1", RoleReviewer)
	if err := reg.RegisterAgent(rec2); err != nil {
		t.Fatalf("register: %v", err)
	}

	byRole, err := reg.AgentsByRole(RoleCoder)
	if err != nil {
		t.Fatalf("agents by role: %v", err)
	}
	if len(byRole) != 1 || byRole[0].ID != "coder-1" {
		t.Errorf("agents by role = %+v", byRole)
	}

	byTeam, err := reg.AgentsByTeam(team)
	if err != nil {
		t.Fatalf("agents by team: %v", err)
	}
	if len(byTeam) != 1 || byTeam[0].ID != "coder-1" {
		t.Errorf("agents by team = %+v", byTeam)
	}

	ok, err := reg.UnregisterAgent("coder-1")
	if err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if !ok {
		t.Error("unregister returned false, want true")
	}

	got, err := reg.GetAgent("coder-1")
	if err != nil {
		t.Fatalf("get after unregister: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil after unregister", got)
	}
}

func TestAgentRegistry_Heartbeat(t *testing.T) {
	reg, err := OpenAgentRegistry(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reg.Close()

	rec := makeRecord("coder-1", RoleCoder)
	if err := reg.RegisterAgent(rec); err != nil {
		t.Fatalf("register: %v", err)
	}

	ok, err := reg.RecordHeartbeat("coder-1")
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if !ok {
		t.Error("heartbeat returned false, want true")
	}

	got, err := reg.GetAgent("coder-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastHeartbeat == nil {
		t.Error("LastHeartbeat is nil after RecordHeartbeat")
	}
}
