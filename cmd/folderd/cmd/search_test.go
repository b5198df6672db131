package cmd

import "testing"

func TestSearchCmd_Flags(t *testing.T) {
	cmd := newSearchCmd()
	for _, name := range []string{"folder", "limit", "format", "local"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag", name)
		}
	}
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	cmd := newSearchCmd()
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error when no query is given")
	}
}

func TestSnippetLines_TrimsTrailingBlank(t *testing.T) {
	got := snippetLines("one\ntwo\nthree\n\n", 5)
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(got), len(want), got)
	}
	for i, line := range want {
		if got[i] != line {
			t.Errorf("line %d: got %q, want %q", i, got[i], line)
		}
	}
}

func TestSnippetLines_CapsAtN(t *testing.T) {
	got := snippetLines("a\nb\nc\nd\ne", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(got), got)
	}
}
