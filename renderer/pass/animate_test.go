package pass

import "testing"

func TestDispatchGroups(t *testing.T) {
	cases := []struct {
		instances uint32
		want      uint32
	}{
		{0, 0},
		{1, 1},
		{255, 1},
		{256, 1},
		{257, 2},
		{1024, 4},
		{16384, 64},
	}
	for _, tc := range cases {
		if got := DispatchGroups(tc.instances); got != tc.want {
			t.Errorf("DispatchGroups(%d) = %d, want %d", tc.instances, got, tc.want)
		}
	}
}
