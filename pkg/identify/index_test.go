package identify

import "testing"

// TestRecordResolve verifies that every pick id resolves to its record
func TestRecordResolve(t *testing.T) {
	x := NewIndex()
	x.Reset(CapacityHint(4, 8, 2))

	var ids []uint32
	for n := 0; n < 100; n++ {
		ids = append(ids, x.Record(Record{
			Layer: n % 3, MapIndex: n % 2, I: n, J: -n, K: 2 * n,
			Diff: [3]float32{float32(n), 0.5, -1},
		}))
	}
	if x.Len() != 100 {
		t.Fatalf("expected 100 records, got %d", x.Len())
	}
	for n, id := range ids {
		if int(id) != n {
			t.Errorf("record %d got id %d", n, id)
		}
		r, ok := x.Resolve(id)
		if !ok {
			t.Fatalf("id %d did not resolve", id)
		}
		want := Record{Layer: n % 3, MapIndex: n % 2, I: n, J: -n, K: 2 * n, Diff: [3]float32{float32(n), 0.5, -1}}
		if r != want {
			t.Errorf("id %d resolved to %+v, want %+v", id, r, want)
		}
	}
	if _, ok := x.Resolve(100); ok {
		t.Error("id past the end resolved")
	}
}

// TestReset verifies that Reset discards previous records
func TestReset(t *testing.T) {
	x := NewIndex()
	x.Record(Record{Layer: 1})
	x.Reset(0)
	if x.Len() != 0 {
		t.Errorf("Len after Reset = %d", x.Len())
	}
	if _, ok := x.Resolve(0); ok {
		t.Error("stale record resolved after Reset")
	}
	if id := x.Record(Record{Layer: 2}); id != 0 {
		t.Errorf("first id after Reset = %d", id)
	}
}

// TestCapacityHint verifies the square of the largest dimension
func TestCapacityHint(t *testing.T) {
	if got := CapacityHint(10, 30, 20); got != 900 {
		t.Errorf("CapacityHint = %d, want 900", got)
	}
}

// TestColorEncoding verifies pick ids survive a color round trip
func TestColorEncoding(t *testing.T) {
	for _, id := range []uint32{0, 1, 255, 256, 65535, 1 << 20, MaxPickID} {
		c, err := EncodeColor(id)
		if err != nil {
			t.Fatalf("EncodeColor(%d) failed: %v", id, err)
		}
		if c[3] != 255 {
			t.Errorf("encoded color of %d is not opaque", id)
		}
		got, ok := DecodeColor([3]uint8{c[0], c[1], c[2]})
		if !ok || got != id {
			t.Errorf("DecodeColor(EncodeColor(%d)) = %d, %v", id, got, ok)
		}
	}
	if _, ok := DecodeColor([3]uint8{}); ok {
		t.Error("black decoded to a pick id")
	}
	if _, err := EncodeColor(MaxPickID + 1); err == nil {
		t.Error("expected an error for an id that does not fit")
	}
}
