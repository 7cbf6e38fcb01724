package tools

import "testing"

func TestCanonicalSHA256_ObjectKeyOrderInsensitive(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2}
	b := map[string]interface{}{"a": 2, "b": 1}

	if CanonicalSHA256(a) != CanonicalSHA256(b) {
		t.Fatal("expected key-order-insensitive objects to hash identically")
	}
}

func TestCanonicalSHA256_PrimitiveArrayOrderInsensitive(t *testing.T) {
	a := []interface{}{"a", "b"}
	b := []interface{}{"b", "a"}

	if CanonicalSHA256(a) != CanonicalSHA256(b) {
		t.Fatal("expected primitive arrays to hash identically regardless of order")
	}
}

func TestCanonicalSHA256_ObjectArrayOrderSensitive(t *testing.T) {
	a := []interface{}{
		map[string]interface{}{"name": "x"},
		map[string]interface{}{"name": "y"},
	}
	b := []interface{}{
		map[string]interface{}{"name": "y"},
		map[string]interface{}{"name": "x"},
	}

	if CanonicalSHA256(a) == CanonicalSHA256(b) {
		t.Fatal("expected object-containing arrays to preserve order in the hash")
	}
}

func TestCanonicalSHA256_NestedObjectsRecurse(t *testing.T) {
	a := map[string]interface{}{
		"outer": map[string]interface{}{"z": 1, "y": 2},
	}
	b := map[string]interface{}{
		"outer": map[string]interface{}{"y": 2, "z": 1},
	}

	if CanonicalSHA256(a) != CanonicalSHA256(b) {
		t.Fatal("expected nested object key order to not affect the hash")
	}
}
