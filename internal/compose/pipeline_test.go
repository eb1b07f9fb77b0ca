// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/palette/internal/testutil/palettetest"
	"github.com/invowk/palette/pkg/palette"
)

func TestCompose_AddMergeLastWriterWins(t *testing.T) {
	t.Parallel()

	a := palettetest.NewCommand("A", palettetest.WithModal("M"))
	b := palettetest.NewCommand("B")
	frags := []palette.Fragment{
		*palette.NewFragment().AddCommand("x", a).AddCommand("y", a),
		*palette.NewFragment().AddCommand("z", a).AddCommand("x", b),
	}

	got := Compose(frags)

	x, _ := got.Add.Get("x")
	if diff := cmp.Diff(b, x); diff != "" {
		t.Errorf("commands.x mismatch (-want +got):\n%s", diff)
	}
	if _, hasModal := x["modal"]; hasModal {
		t.Error("override must replace the whole command, not merge attributes")
	}
	if diff := cmp.Diff([]string{"x", "y", "z"}, got.Add.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_RemoveCollect(t *testing.T) {
	t.Parallel()

	frags := []palette.Fragment{
		*palette.NewFragment().RemoveCommands("a", "b"),
		*palette.NewFragment(),
		*palette.NewFragment().RemoveCommands("a"),
	}

	got := Compose(frags)
	if diff := cmp.Diff([]string{"a", "b", "a"}, got.Remove); diff != "" {
		t.Errorf("removals mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_GroupMergeConcatenatesFields(t *testing.T) {
	t.Parallel()

	first := palettetest.NewGroup("L1", "a")
	first["icon"] = "star"
	frags := []palette.Fragment{
		*palette.NewFragment().AddGroup("g", first),
		*palette.NewFragment().AddGroup("g", palettetest.NewGroup("L2", "b")),
	}

	got := Compose(frags)

	g, ok := got.Group.Get("g")
	if !ok {
		t.Fatal("group g missing")
	}
	want := palette.RawGroup{"label": "L2", "fields": []any{"a", "b"}, "icon": "star"}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("groups.g mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_GroupFieldsShapes(t *testing.T) {
	t.Parallel()

	frags := []palette.Fragment{
		*palette.NewFragment().AddGroup("g", palette.RawGroup{"label": "L", "fields": []string{"a"}}),
		*palette.NewFragment().AddGroup("g", palette.RawGroup{"fields": []any{"b"}}),
		*palette.NewFragment().AddGroup("h", palette.RawGroup{"label": "H", "fields": "oops"}),
		*palette.NewFragment().AddGroup("h", palette.RawGroup{"fields": []any{"c"}}),
	}

	got := Compose(frags)

	g, _ := got.Group.Get("g")
	if diff := cmp.Diff([]any{"a", "b"}, g["fields"]); diff != "" {
		t.Errorf("g fields mismatch (-want +got):\n%s", diff)
	}
	// A non-list is overwritten like any other attribute.
	h, _ := got.Group.Get("h")
	if diff := cmp.Diff([]any{"c"}, h["fields"]); diff != "" {
		t.Errorf("h fields mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	g1 := palettetest.NewGroup("L1", "a")
	g2 := palettetest.NewGroup("L2", "b")
	f1 := palette.NewFragment().AddGroup("g", g1).RemoveCommands("r")
	f2 := palette.NewFragment().AddGroup("g", g2)
	frags := []palette.Fragment{*f1, *f2}

	_ = Compose(frags)
	_ = Compose(frags)

	if diff := cmp.Diff(palettetest.NewGroup("L1", "a"), g1); diff != "" {
		t.Errorf("first group mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(palettetest.NewGroup("L2", "b"), g2); diff != "" {
		t.Errorf("second group mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"r"}, f1.Remove); diff != "" {
		t.Errorf("removals mutated (-want +got):\n%s", diff)
	}
}

func TestCompose_Deterministic(t *testing.T) {
	t.Parallel()

	var frags []palette.Fragment
	for _, name := range []string{"q", "w", "e", "r", "t", "y", "u", "i", "o", "p"} {
		frags = append(frags, *palette.NewFragment().
			AddCommand(name, palettetest.NewCommand(name)).
			AddGroup("g"+name, palettetest.NewGroup(name, name)))
	}

	first := Compose(frags)
	for range 20 {
		again := Compose(frags)
		if diff := cmp.Diff(first.Add.Keys(), again.Add.Keys()); diff != "" {
			t.Fatalf("command order changed (-first +again):\n%s", diff)
		}
		if diff := cmp.Diff(first.Group.Keys(), again.Group.Keys()); diff != "" {
			t.Fatalf("group order changed (-first +again):\n%s", diff)
		}
	}
}

func TestPipeline_CustomStages(t *testing.T) {
	t.Parallel()

	var seen []string
	p := Pipeline{
		{Name: "one", Apply: func(*Composition, []palette.Fragment) { seen = append(seen, "one") }},
		{Name: "two", Apply: func(acc *Composition, _ []palette.Fragment) {
			seen = append(seen, "two")
			acc.Remove = append(acc.Remove, "marker")
		}},
	}

	got := p.Compose(nil)
	if diff := cmp.Diff([]string{"one", "two"}, seen); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"marker"}, got.Remove); diff != "" {
		t.Errorf("accumulator mismatch (-want +got):\n%s", diff)
	}
	if got.Add.Len() != 0 || got.Group.Len() != 0 {
		t.Error("unused stages should leave an empty accumulator")
	}
}
