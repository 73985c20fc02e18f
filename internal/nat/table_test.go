package nat

import "testing"

func TestMappingStability(t *testing.T) {
	tbl := NewTable()
	lanIP := uint32(0xc0a80105) // 192.168.1.5
	lanPort := uint16(7000)

	first, err := tbl.Allocate(lanIP, lanPort)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		got, ok := tbl.Lookup(lanIP, lanPort)
		if !ok {
			t.Fatalf("iteration %d: lookup miss for a key that was just allocated", i)
		}
		if got != first {
			t.Fatalf("iteration %d: wan port changed from %d to %d", i, first, got)
		}
	}
}

func TestInjectivity(t *testing.T) {
	tbl := NewTable()
	type key struct {
		ip   uint32
		port uint16
	}
	keys := []key{
		{0xc0a80105, 7000},
		{0xc0a80105, 7001},
		{0xc0a80106, 7000},
		{0xc0a80107, 53},
	}

	assigned := map[uint16]key{}
	for _, k := range keys {
		wanPort, err := tbl.Allocate(k.ip, k.port)
		if err != nil {
			t.Fatal(err)
		}
		if other, dup := assigned[wanPort]; dup {
			t.Fatalf("wan port %d assigned to both %+v and %+v", wanPort, other, k)
		}
		assigned[wanPort] = k
	}

	for wanPort, k := range assigned {
		lanIP, lanPort, ok := tbl.ForwardLookup(wanPort)
		if !ok {
			t.Fatalf("forward cell for wan port %d reads as absent", wanPort)
		}
		if lanIP != k.ip || lanPort != k.port {
			t.Fatalf("forward cell for wan port %d = (%x,%d), want (%x,%d)",
				wanPort, lanIP, lanPort, k.ip, k.port)
		}
		gotWanPort, ok := tbl.Lookup(k.ip, k.port)
		if !ok || gotWanPort != wanPort {
			t.Fatalf("reverse map for %+v disagrees with forward table: got %d, want %d", k, gotWanPort, wanPort)
		}
	}
}

func TestForwardCellsBeyondNextFreeAreZero(t *testing.T) {
	tbl := NewTable()
	tbl.Allocate(0xc0a80105, 7000)
	tbl.Allocate(0xc0a80105, 7001)

	for wanPort := uint16(PortBase + 2); wanPort < PortBase+10; wanPort++ {
		if _, _, ok := tbl.ForwardLookup(wanPort); ok {
			t.Fatalf("wan port %d should be unassigned (beyond next-free)", wanPort)
		}
	}
}

func TestPortExhaustion(t *testing.T) {
	tbl := NewTable()
	tbl.nextFree = PortBase + PortSize

	if _, err := tbl.Allocate(0xc0a80105, 7000); err != ErrPortsExhausted {
		t.Fatalf("expected ErrPortsExhausted, got %v", err)
	}
}

func TestForwardLookupOutOfRange(t *testing.T) {
	tbl := NewTable()
	if _, _, ok := tbl.ForwardLookup(PortBase - 1); ok {
		t.Fatal("expected out-of-range wan port (below base) to be rejected")
	}
	if _, _, ok := tbl.ForwardLookup(PortBase + PortSize); ok {
		t.Fatal("expected out-of-range wan port (at/above base+size) to be rejected")
	}
}
