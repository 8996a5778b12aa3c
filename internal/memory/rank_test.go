package memory

import (
	"reflect"
	"testing"
)

var profile = []string{
	"User likes coffee",
	"User is a software engineer",
	"User lives in Paris",
	"User prefers concise answers",
	"User dislikes spicy food",
}

func TestRank_EmptyMemories(t *testing.T) {
	for _, q := range []string{"", "coffee", "the and for"} {
		got := Rank(q, nil, 5)
		if got == nil || len(got) != 0 {
			t.Errorf("Rank(%q, nil) = %v, want empty slice", q, got)
		}
	}
}

func TestRank_NoQueryTokens(t *testing.T) {
	cases := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"empty", "", 2, profile[3:]},
		{"whitespace", "   \t ", 3, profile[2:]},
		{"stop words", "the and for", 5, profile},
		{"short words", "I am ok", 1, profile[4:]},
		{"punctuation", "?!...", 10, profile},
		{"zero limit", "", 0, []string{}},
		{"negative limit", "", -3, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Rank(tc.query, profile, tc.limit)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRank_ExactBeatsSubstring(t *testing.T) {
	t.Run("exact first", func(t *testing.T) {
		got := Rank("apple", []string{"I like apple pie", "I like pineapple juice"}, 1)
		want := []string{"I like apple pie"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("exact last", func(t *testing.T) {
		got := Rank("apple", []string{"I like pineapple juice", "I like apple pie"}, 1)
		want := []string{"I like apple pie"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestRank_RecencyBreaksTies(t *testing.T) {
	got := Rank("widget", []string{"widget one", "widget two"}, 1)
	want := []string{"widget two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRank_DensityBonus(t *testing.T) {
	// 8 + 10 = 18, x1.4 = 25.2 against 20 + 2.5 for the single exact match.
	memories := []string{"tiny televisions", "television"}
	got := Rank("tiny television", memories, 1)
	want := []string{"tiny televisions"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRank_NoMatchFallsBackToLastThree(t *testing.T) {
	got := Rank("zebra", profile, 1)
	want := profile[2:]
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	short := []string{"one", "two"}
	got = Rank("zebra", short, 5)
	if !reflect.DeepEqual(got, short) {
		t.Errorf("got %v, want %v", got, short)
	}
}

func TestRank_RecencyAloneNeverSurfaces(t *testing.T) {
	memories := make([]string, 10)
	for i := range memories {
		memories[i] = "unrelated note"
	}
	memories[0] = "dentist appointment"

	got := Rank("dentist", memories, 5)
	if len(got) != 1 || got[0] != "dentist appointment" {
		t.Errorf("got %v, want only the matching memory", got)
	}
}

func TestRank_LimitBoundsMatches(t *testing.T) {
	memories := []string{"cats a", "cats b", "cats c", "cats d", "cats e"}
	got := Rank("cats", memories, 3)
	want := []string{"cats e", "cats d", "cats c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRank_ProfileScenario(t *testing.T) {
	t.Run("possessive query falls back", func(t *testing.T) {
		// "user's" tokenizes to "users", which no memory contains.
		got := Rank("Tell me about the user's job", profile, 5)
		want := profile[2:]
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("shared token orders by recency", func(t *testing.T) {
		got := Rank("Tell me about the user job", profile, 5)
		want := []string{
			"User dislikes spicy food",
			"User prefers concise answers",
			"User lives in Paris",
			"User is a software engineer",
			"User likes coffee",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestRank_PunctuationInMemory(t *testing.T) {
	memories := []string{"Loves coffee.", "Owns a bike"}
	got := Rank("coffee?", memories, 5)
	want := []string{"Loves coffee."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRank_DuplicatesKept(t *testing.T) {
	memories := []string{"plays guitar", "plays guitar"}
	got := Rank("guitar", memories, 5)
	if len(got) != 2 {
		t.Errorf("expected duplicates to be returned, got %v", got)
	}
}

func TestRank_PureAndIdempotent(t *testing.T) {
	input := append([]string(nil), profile...)
	first := Rank("coffee engineer", input, 3)
	second := Rank("coffee engineer", input, 3)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between calls: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(input, profile) {
		t.Errorf("input was mutated: %v", input)
	}

	first[0] = "changed"
	if input[0] == "changed" || input[1] == "changed" {
		t.Error("result aliases the input slice")
	}
}

func TestRank_ResultsComeFromInput(t *testing.T) {
	queries := []string{"café au lait", "ünïcödé ☕ coffee", "engineer!!", "日本語"}
	members := make(map[string]bool, len(profile))
	for _, m := range profile {
		members[m] = true
	}

	for _, q := range queries {
		for _, m := range Rank(q, profile, 5) {
			if !members[m] {
				t.Errorf("Rank(%q) returned unknown memory %q", q, m)
			}
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Hello, World! It's a GREAT day for the snake_case fans")
	want := []string{"hello", "world", "its", "great", "day", "snake_case", "fans"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if got := Tokenize("what about them"); len(got) != 0 {
		t.Errorf("expected stop words to be dropped, got %v", got)
	}
}
