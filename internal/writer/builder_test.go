// internal/writer/builder_test.go
package writer

import (
	"testing"

	cfg "github.com/tamzrod/seesaw-poller/internal/config"
)

func u16(v uint16) *uint16 { return &v }
func u8(v uint8) *uint8    { return &v }

func TestBuildPlan_SlotAddressing(t *testing.T) {
	ch := cfg.ChannelConfig{ID: "knob", Slot: u16(3)}
	targets := []cfg.TargetConfig{
		{ID: 1, Endpoint: "tcp://10.0.0.5:502", UnitID: 1, BaseAddress: 100, StatusUnitID: u8(9)},
		{ID: 2, Endpoint: "ingest://10.0.0.6:9000", UnitID: 2},
	}

	plan, err := BuildPlan(ch, targets)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}

	if len(plan.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(plan.Targets))
	}
	if plan.Targets[0].Address != 106 || plan.Targets[1].Address != 6 {
		t.Fatalf("unexpected addresses %d, %d", plan.Targets[0].Address, plan.Targets[1].Address)
	}

	if len(plan.Status) != 1 {
		t.Fatalf("expected 1 status plan, got %d", len(plan.Status))
	}
	sp := plan.Status[0]
	if sp.UnitID != 9 || sp.BaseSlot != 3 || sp.DeviceName != "knob" {
		t.Fatalf("unexpected status plan %+v", sp)
	}
}

func TestBuildPlan_NoSlotNoMirror(t *testing.T) {
	plan, err := BuildPlan(cfg.ChannelConfig{ID: "knob"}, []cfg.TargetConfig{{ID: 1, Endpoint: "h:502"}})
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}
	if len(plan.Targets) != 0 || len(plan.Status) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestBuildPlan_RequiresID(t *testing.T) {
	if _, err := BuildPlan(cfg.ChannelConfig{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildEndpointClients_OnePerEndpoint(t *testing.T) {
	targets := []cfg.TargetConfig{
		{ID: 1, Endpoint: "127.0.0.1:1502", UnitID: 1},
		{ID: 2, Endpoint: "127.0.0.1:1502", UnitID: 2},
		{ID: 3, Endpoint: "ingest://127.0.0.1:9000", UnitID: 1},
	}

	clients, closeAll, err := BuildEndpointClients(targets)
	if err != nil {
		t.Fatalf("BuildEndpointClients err=%v", err)
	}
	defer closeAll()

	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
}

func TestBuildEndpointClients_BadEndpoint(t *testing.T) {
	_, _, err := BuildEndpointClients([]cfg.TargetConfig{{ID: 1, Endpoint: "udp://x:1"}})
	if err == nil {
		t.Fatalf("expected error")
	}
}
