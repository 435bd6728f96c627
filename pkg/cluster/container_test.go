package cluster

import "testing"

func TestMapAddIsPersistent(t *testing.T) {
	m0 := NewMap[Node]()
	m1 := m0.Add(0, mkNode(0, 0, 1000, 1000, 4))

	if m0.Size() != 0 {
		t.Fatalf("expected original map untouched by Add, got size %d", m0.Size())
	}
	if m1.Size() != 1 {
		t.Fatalf("expected new map to hold the added entry, got size %d", m1.Size())
	}
	if _, ok := m0.Find(0); ok {
		t.Fatal("original map should not observe the mutation")
	}
}

func TestMapAddTwoRemove(t *testing.T) {
	m := NewMap[Node]()
	m = m.AddTwo(0, mkNode(0, 0, 1000, 1000, 4), 1, mkNode(1, 0, 1000, 1000, 4))
	if m.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Size())
	}
	m2 := m.Remove(0)
	if m2.Size() != 1 {
		t.Fatalf("expected removal to leave 1 entry, got %d", m2.Size())
	}
	if m.Size() != 2 {
		t.Fatal("Remove must not mutate the receiver")
	}
}

func TestMapElemsKeysOrdering(t *testing.T) {
	m := NewMap[Node]()
	m = m.Add(5, mkNode(5, 0, 0, 0, 0))
	m = m.Add(1, mkNode(1, 0, 0, 0, 0))
	m = m.Add(3, mkNode(3, 0, 0, 0, 0))

	keys := m.Keys()
	want := []int{1, 3, 5}
	for i, k := range keys {
		if k != want[i] {
			t.Fatalf("keys not ascending: got %v want %v", keys, want)
		}
	}
	elems := m.Elems()
	if len(elems) != 3 || elems[0].Idx != 1 || elems[2].Idx != 5 {
		t.Fatalf("elems not ordered by ascending key: %+v", elems)
	}
}

func TestMapFilter(t *testing.T) {
	m := NewMap[Node]()
	m = m.Add(0, mkNode(0, 0, 0, 0, 0))
	offline := mkNode(1, 0, 0, 0, 0)
	offline.Offline = true
	m = m.Add(1, offline)

	online := m.Filter(func(n Node) bool { return !n.Offline })
	if online.Size() != 1 {
		t.Fatalf("expected 1 online node, got %d", online.Size())
	}
}

func TestNameOfMissingIsEmpty(t *testing.T) {
	m := NewMap[Node]()
	if got := NameOf(m, 42); got != "" {
		t.Fatalf("expected empty name for missing index, got %q", got)
	}
}
