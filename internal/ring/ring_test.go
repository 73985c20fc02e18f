package ring

import (
	"testing"
	"time"
)

func TestFIFO(t *testing.T) {
	r := New(8, 4)
	values := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, v := range values {
			g := r.Send()
			g.View().Bytes()[0] = v
			g.Close()
		}
	}()

	for _, want := range values {
		g := r.Recv()
		got := g.View().Bytes()[0]
		g.Close()
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
	<-done
}

func TestTrySendFullReturnsEmpty(t *testing.T) {
	r := New(8, 2)

	g1 := r.TrySend()
	if g1.Empty() {
		t.Fatal("expected first TrySend to succeed")
	}
	g1.Close()

	g2 := r.TrySend()
	if g2.Empty() {
		t.Fatal("expected second TrySend to succeed")
	}
	g2.Close()

	g3 := r.TrySend()
	if !g3.Empty() {
		t.Fatal("expected third TrySend on a 2-slot ring to report full")
	}
	g3.Close()
}

func TestTryRecvEmptyReturnsEmpty(t *testing.T) {
	r := New(8, 2)
	g := r.TryRecv()
	if !g.Empty() {
		t.Fatal("expected TryRecv on an empty ring to report empty")
	}
	g.Close()
}

func TestBoundedBlocksProducer(t *testing.T) {
	r := New(8, 2)
	r.Send().Close()
	r.Send().Close()

	blocked := make(chan struct{})
	go func() {
		r.Send().Close() // should block until a slot frees up
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatal("Send returned while ring was still full")
	case <-time.After(50 * time.Millisecond):
	}

	r.Recv().Close() // frees one slot

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after a slot freed up")
	}
}

func TestDroppingEmptySendGuardLeavesQueueUnchanged(t *testing.T) {
	r := New(8, 1)
	r.Send().Close() // fill the single slot

	g := r.TrySend()
	if !g.Empty() {
		t.Fatal("expected ring to be full")
	}
	g.Close()

	// The ring must still report exactly one ready item.
	rg := r.TryRecv()
	if rg.Empty() {
		t.Fatal("expected exactly one ready slot")
	}
	rg.Close()

	rg2 := r.TryRecv()
	if !rg2.Empty() {
		t.Fatal("expected ring to be empty after draining the one slot")
	}
	rg2.Close()
}
