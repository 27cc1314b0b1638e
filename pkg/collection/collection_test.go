package collection_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vmcmoto/motoportal/pkg/collection"
)

type item struct {
	Name  string
	Group string
	Order int
}

func TestGroupOrderedKeepsFirstAppearance(t *testing.T) {
	in := []item{
		{"a", "engine", 0},
		{"b", "chassis", 1},
		{"c", "engine", 2},
		{"d", "other", 3},
	}
	got := collection.GroupOrdered(in, func(i item) string { return i.Group })

	keys := collection.Map(got, func(g collection.Group[item]) string { return g.Key })
	if diff := cmp.Diff([]string{"engine", "chassis", "other"}, keys); diff != "" {
		t.Errorf("group order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]item{{"a", "engine", 0}, {"c", "engine", 2}}, got[0].Items); diff != "" {
		t.Errorf("engine items (-want +got):\n%s", diff)
	}
}

func TestSortByIsStableAndCopies(t *testing.T) {
	in := []item{{"x", "", 2}, {"y", "", 1}, {"z", "", 1}}
	got := collection.SortBy(in, func(a, b item) bool { return a.Order < b.Order })

	names := collection.Map(got, func(i item) string { return i.Name })
	if diff := cmp.Diff([]string{"y", "z", "x"}, names); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if in[0].Name != "x" {
		t.Error("input was modified")
	}
}

func TestIndexOfAndCount(t *testing.T) {
	in := []int{4, 8, 15, 16, 23, 42}
	if i := collection.IndexOf(in, func(v int) bool { return v == 16 }); i != 3 {
		t.Errorf("IndexOf = %d", i)
	}
	if i := collection.IndexOf(in, func(v int) bool { return v == 7 }); i != -1 {
		t.Errorf("IndexOf missing = %d", i)
	}
	if n := collection.Count(in, func(v int) bool { return v%2 == 0 }); n != 4 {
		t.Errorf("Count = %d", n)
	}
}

func TestContainsFold(t *testing.T) {
	if !collection.ContainsFold("", "anything") {
		t.Error("empty query should match")
	}
	if !collection.ContainsFold("POW", "max power", "") {
		t.Error("expected case-insensitive match")
	}
	if collection.ContainsFold("torque", "power", "hp") {
		t.Error("unexpected match")
	}
}

func TestFoldSet(t *testing.T) {
	set := collection.FoldSet([]string{" Power ", "TORQUE"}, func(s string) string { return s })
	if _, ok := set["power"]; !ok {
		t.Error("missing power")
	}
	if _, ok := set["torque"]; !ok {
		t.Error("missing torque")
	}
}
