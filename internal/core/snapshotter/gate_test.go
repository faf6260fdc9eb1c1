package snapshotter

import (
	"reflect"
	"testing"
)

func TestGate_ReleasesOnceWhenLastWorkerCompletes(t *testing.T) {
	g := NewGate()
	for _, id := range []string{"A", "B", "C"} {
		g.Assign(id)
	}
	g.Defer()

	if g.Complete("A") {
		t.Fatal("Complete(A) released the gate")
	}
	if g.Complete("B") {
		t.Fatal("Complete(B) released the gate")
	}
	if g.Open() {
		t.Fatal("gate open with C pending")
	}
	if !g.Complete("C") {
		t.Fatal("Complete(C) did not release the gate")
	}
	if g.Complete("C") {
		t.Fatal("duplicate Complete(C) released the gate again")
	}
	if !g.Open() || g.Deferred() {
		t.Fatalf("Open() = %v, Deferred() = %v; want true, false", g.Open(), g.Deferred())
	}
}

func TestGate_NoReleaseWithoutDeferral(t *testing.T) {
	g := NewGate()
	g.Assign("A")
	if g.Complete("A") {
		t.Fatal("Complete released a gate nothing was waiting on")
	}
}

func TestGate_UnknownWorkerIsNoop(t *testing.T) {
	g := NewGate()
	g.Assign("A")
	g.Defer()

	if g.Complete("Z") || g.Drop("Z") {
		t.Fatal("unknown worker released the gate")
	}
	if got := g.Pending(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("Pending() = %v, want [A]", got)
	}
}

func TestGate_DropReleases(t *testing.T) {
	g := NewGate()
	g.Assign("A")
	g.Assign("B")
	g.Defer()

	if g.Drop("B") {
		t.Fatal("Drop(B) released with A pending")
	}
	if !g.Drop("A") {
		t.Fatal("Drop(A) did not release")
	}
}

func TestGate_Blocked(t *testing.T) {
	g := NewGate()
	g.Assign("A")
	g.SetBlocked(true)
	g.Defer()

	if g.Complete("A") {
		t.Fatal("Complete released a blocked gate")
	}
	if g.Open() {
		t.Fatal("blocked gate reports open")
	}
	if !g.SetBlocked(false) {
		t.Fatal("unblocking did not release the deferred fire")
	}
	if g.SetBlocked(false) {
		t.Fatal("second unblock released again")
	}
}

func TestGate_AssignTwice(t *testing.T) {
	g := NewGate()
	g.Assign("A")
	g.Assign("A")
	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", g.Len())
	}
}
