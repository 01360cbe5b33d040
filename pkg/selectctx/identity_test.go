package selectctx

import "testing"

func TestIdentical(t *testing.T) {
	p := intp(1)
	q := intp(1)
	s := []int{1, 2, 3}
	m := map[string]int{"a": 1}
	fn := func() {}

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"same pointer", identical(p, p), true},
		{"equal but distinct pointers", identical(p, q), false},
		{"same slice", identical(s, s), true},
		{"same backing array", identical(s, s[:3]), true},
		{"different length", identical(s, s[:2]), false},
		{"distinct slices", identical([]int{1}, []int{1}), false},
		{"both nil slices", identical([]int(nil), nil), true},
		{"same map", identical(m, m), true},
		{"distinct maps", identical(m, map[string]int{"a": 1}), false},
		{"same func", identical(fn, fn), true},
		{"comparable ints", identical(3, 3), true},
		{"comparable strings", identical("x", "y"), false},
		{"comparable structs", identical(struct{ N int }{1}, struct{ N int }{1}), true},
		{"uncomparable structs", identical(struct{ S []int }{s}, struct{ S []int }{s}), false},
		{"both nil interfaces", identical[any](nil, nil), true},
		{"nil vs value", identical[any](nil, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("identical = %v, want %v", tt.got, tt.want)
			}
		})
	}
}
