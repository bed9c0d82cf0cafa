package core

import "testing"

func TestNewSelectionDedupesInOrder(t *testing.T) {
	s := NewSelection("SMA", " SD ", "SMA", "", "SMP")
	names := s.Names()
	if len(names) != 3 || names[0] != "SMA" || names[1] != "SD" || names[2] != "SMP" {
		t.Fatalf("unexpected names: %v", names)
	}
	if !s.Contains("SD") || s.Contains("TK") {
		t.Fatalf("unexpected membership")
	}
}

func TestEmptySelection(t *testing.T) {
	var zero Selection
	if !zero.IsEmpty() || zero.Contains("SD") || zero.Len() != 0 {
		t.Fatalf("zero selection must be empty")
	}
}
