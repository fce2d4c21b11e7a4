package util

import "testing"

func TestMap(t *testing.T) {
	var m Map[string, int]
	m.Put("foo", 82)

	if v, ok := m.Get("foo"); !ok || v != 82 {
		t.Errorf("m.Get(%q) = %v, %v; want 82, true", "foo", v, ok)
	}
	if _, ok := m.Get("baz"); ok {
		t.Error("m.Get returned true for non-existent key")
	}
	if !m.Add("bar", 1) {
		t.Error("m.Add on new key returned false")
	}
	if m.Add("bar", 2) {
		t.Error("m.Add on existing key returned true")
	}
	if v, _ := m.Get("bar"); v != 1 {
		t.Errorf("m.Add overwrote existing value: got %v, want 1", v)
	}

	m.Del("foo")
	if _, ok := m.Get("foo"); ok {
		t.Error("m.Get returned true after Del")
	}

	if n := m.Len(); n != 1 {
		t.Errorf("m.Len() = %d, want 1", n)
	}

	m.Update("bar", func(v int) int { return v + 41 })
	if v, _ := m.Get("bar"); v != 42 {
		t.Errorf("m.Update result = %v, want 42", v)
	}

	seen := make(map[string]int)
	m.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 1 || seen["bar"] != 42 {
		t.Errorf("m.Range saw %v, want map[bar:42]", seen)
	}
}
