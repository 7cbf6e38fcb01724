package tools

import "testing"

func TestMergeValues_TargetWinsOnConflict(t *testing.T) {
	target := map[string]interface{}{"ttl": 600}
	source := map[string]interface{}{"ttl": 300, "region": "us-east-2"}

	merged := MergeValues(target, source)

	if merged["ttl"] != 600 {
		t.Fatalf("expected target value to win, got %v", merged["ttl"])
	}
	if merged["region"] != "us-east-2" {
		t.Fatalf("expected missing key to be filled from source, got %v", merged["region"])
	}
}

func TestMergeValues_RecursesIntoNestedObjects(t *testing.T) {
	target := map[string]interface{}{
		"meta": map[string]interface{}{"ttl": 600},
	}
	source := map[string]interface{}{
		"meta": map[string]interface{}{"ttl": 300, "region": "us-east-2"},
	}

	merged := MergeValues(target, source)
	meta := merged["meta"].(map[string]interface{})

	if meta["ttl"] != 600 {
		t.Fatalf("expected nested target value to win, got %v", meta["ttl"])
	}
	if meta["region"] != "us-east-2" {
		t.Fatalf("expected nested missing key to be filled, got %v", meta["region"])
	}
}

func TestMergeValues_NilTarget(t *testing.T) {
	merged := MergeValues(nil, map[string]interface{}{"a": 1})
	if merged["a"] != 1 {
		t.Fatalf("expected nil target to become a usable map, got %v", merged)
	}
}
