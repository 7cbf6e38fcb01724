package tools

import "testing"

func TestValueIntersection(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want []string
	}{
		{"overlap", []string{"x", "y"}, []string{"y", "z"}, []string{"y"}},
		{"no overlap", []string{"x"}, []string{"y"}, nil},
		{"empty inputs", nil, []string{"y"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValueIntersection(tt.a, tt.b)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}
