package subtitle

import (
	"testing"
	"time"
)

func TestIsDegenerate(t *testing.T) {
	f := NewFilter(FilterOptions{})
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"repeated short token", "k k k", true},
		{"repeated short token dashes", "на-на-на", true},
		{"two reps only", "k k", false},
		{"repeated char", "ААААААА", true},
		{"dash run", "Чакай --- малко", true},
		{"dots line", "...", true},
		{"dots inline ellipsis", "Чакай... малко", false},
		{"bang run", "Недей!!!!", true},
		{"three bangs fine", "Недей!!!", false},
		{"question run", "Какво????", true},
		{"long solid word", "осемнадесетмилиметровата", true},
		{"denylist latin", "hahaha", true},
		{"denylist cyrillic", "Превод и субтитров", true},
		{"pure short words", "а не да", true},
		{"short words with long one", "а не можеш", false},
		{"normal dialogue", "Здравей, как си днес?", false},
		{"empty", "   ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.IsDegenerate(tc.text); got != tc.want {
				rule, _ := f.Match(tc.text)
				t.Fatalf("IsDegenerate(%q) = %v (rule %q), want %v", tc.text, got, rule, tc.want)
			}
		})
	}
}

func TestStrictRules(t *testing.T) {
	relaxed := NewFilter(FilterOptions{})
	strict := NewFilter(FilterOptions{Strict: true})

	if relaxed.IsDegenerate("добре добре добре") {
		t.Fatal("repeated long word should pass the relaxed filter")
	}
	if !strict.IsDegenerate("добре добре добре") {
		t.Fatal("repeated long word should trip the strict filter")
	}
	if !strict.IsDegenerate("Браво \U0001F600") {
		t.Fatal("emoji should trip the strict filter")
	}
	if relaxed.IsDegenerate("Браво") {
		t.Fatal("plain word misclassified")
	}
}

func TestCustomDenylist(t *testing.T) {
	f := NewFilter(FilterOptions{Denylist: []string{"foo"}})
	if !f.IsDegenerate("well foo then") {
		t.Fatal("custom denylist token not matched")
	}
	if f.IsDegenerate("hahaha") {
		t.Fatal("default denylist should be replaced, not extended")
	}
}

func TestCleanRemovesDegenerateAndEmptyCues(t *testing.T) {
	f := NewFilter(FilterOptions{})
	track := Track{
		{Index: 1, Start: 0, End: time.Second, Text: "k k k"},
		{Index: 2, Start: 2 * time.Second, End: 3 * time.Second, Text: "   "},
		{Index: 3, Start: 4 * time.Second, End: 5 * time.Second, Text: "Истински  диалог"},
	}

	cleaned := f.Clean(track)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 surviving cue, got %d", len(cleaned))
	}
	if cleaned[0].Index != 1 {
		t.Fatalf("expected reindex from 1, got %d", cleaned[0].Index)
	}
	if cleaned[0].Text != "Истински диалог" {
		t.Fatalf("expected collapsed whitespace, got %q", cleaned[0].Text)
	}
}

func TestCleanLeavesNoDegenerateCues(t *testing.T) {
	f := NewFilter(FilterOptions{})
	track := Track{
		{Index: 1, Start: 0, End: time.Second, Text: "ха ха ха ха"},
		{Index: 2, Start: 2 * time.Second, End: 3 * time.Second, Text: "......"},
		{Index: 3, Start: 4 * time.Second, End: 5 * time.Second, Text: "Нормален ред"},
		{Index: 4, Start: 6 * time.Second, End: 7 * time.Second, Text: "Друг нормален ред."},
	}
	cleaned := f.Clean(track)
	for i, cue := range cleaned {
		if f.IsDegenerate(cue.Text) {
			t.Fatalf("degenerate cue survived: %q", cue.Text)
		}
		if cue.Index != i+1 {
			t.Fatalf("indices not contiguous: %+v", cleaned)
		}
	}
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cleaned))
	}
}

func TestCleanOnEmptyTrack(t *testing.T) {
	f := NewFilter(FilterOptions{})
	if got := f.Clean(Track{}); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
