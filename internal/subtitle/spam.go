package subtitle

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultDenylist holds nonsense and credits tokens that certain decoder
// settings hallucinate into quiet sections. The Cyrillic entries are the
// stock "editor/subtitles by/subscribe" credit words.
var DefaultDenylist = []string{
	"asdf", "qwerty", "lolol", "hahaha", "kkkkk", "ahah", "hehe", "lol",
	"редактор", "коректор", "субтитров", "устройството", "абонирайте", "абонирате",
}

// FilterOptions configures spam detection.
type FilterOptions struct {
	// Denylist replaces DefaultDenylist when non-nil.
	Denylist []string
	// Strict enables the harsher rules: emoji content and any word repeated
	// three or more times.
	Strict bool
}

// spamRule is one named degeneracy predicate. Rules are evaluated in order
// with short-circuit on first match so individual rules stay independently
// testable and disableable.
type spamRule struct {
	name  string
	match func(text string) bool
}

// Filter classifies and removes degenerate cues.
type Filter struct {
	rules []spamRule
}

var (
	dashRunRe  = regexp.MustCompile(`[-–—]{3,}`)
	dotsLineRe = regexp.MustCompile(`(?m)^[ \t]*\.{3,}[ \t]*$`)
	bangRunRe  = regexp.MustCompile(`!{4,}`)
	quesRunRe  = regexp.MustCompile(`\?{4,}`)
	longWordRe = regexp.MustCompile(`[\p{L}]{20,}`)
	wsRunRe    = regexp.MustCompile(`[ \t]{2,}`)
	nlRunRe    = regexp.MustCompile(`\n{2,}`)
)

// NewFilter builds a filter from options.
func NewFilter(opts FilterOptions) *Filter {
	denylist := opts.Denylist
	if denylist == nil {
		denylist = DefaultDenylist
	}
	denySet := make(map[string]struct{}, len(denylist))
	for _, token := range denylist {
		denySet[strings.ToLower(strings.TrimSpace(token))] = struct{}{}
	}

	rules := []spamRule{
		{name: "repeated_short_token", match: isRepeatedShortToken},
		{name: "repeated_char", match: hasRepeatedChar},
		{name: "dash_run", match: dashRunRe.MatchString},
		{name: "dots_line", match: dotsLineRe.MatchString},
		{name: "bang_run", match: bangRunRe.MatchString},
		{name: "question_run", match: quesRunRe.MatchString},
		{name: "solid_long_word", match: longWordRe.MatchString},
		{name: "denylist", match: func(text string) bool { return containsDenied(text, denySet) }},
		{name: "pure_short_words", match: isPureShortWords},
	}
	if opts.Strict {
		rules = append(rules,
			spamRule{name: "emoji", match: containsEmoji},
			spamRule{name: "repeated_word", match: isRepeatedWord},
		)
	}
	return &Filter{rules: rules}
}

// IsDegenerate reports whether the text trips any spam rule.
func (f *Filter) IsDegenerate(text string) bool {
	_, degenerate := f.Match(text)
	return degenerate
}

// Match returns the name of the first matching rule, if any.
func (f *Filter) Match(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	for _, rule := range f.rules {
		if rule.match(trimmed) {
			return rule.name, true
		}
	}
	return "", false
}

// Clean removes degenerate and empty cues, collapses whitespace runs in the
// surviving text, and renumbers indices 1..N. It never fails; malformed input
// simply filters nothing.
func (f *Filter) Clean(track Track) Track {
	kept := make(Track, 0, len(track))
	for _, cue := range track {
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}
		if f.IsDegenerate(text) {
			continue
		}
		cue.Text = collapseWhitespace(text)
		kept = append(kept, cue)
	}
	kept.Reindex()
	return kept
}

// collapseWhitespace squeezes runs of spaces/tabs to one space and runs of
// newlines to one newline, preserving intentional line breaks.
func collapseWhitespace(text string) string {
	text = wsRunRe.ReplaceAllString(text, " ")
	return nlRunRe.ReplaceAllString(text, "\n")
}

// spamTokens splits on whitespace, dashes, and punctuation, returning
// lowercased tokens.
func spamTokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', ',', '.', '-', '–', '—', '!', '?', ':', ';', '"', '«', '»', '…':
			return true
		}
		return unicode.IsSpace(r)
	})
	for i := range fields {
		fields[i] = strings.ToLower(fields[i])
	}
	return fields
}

// isRepeatedShortToken matches three or more repetitions of the same token of
// at most three characters ("k k k", "на-на-на").
func isRepeatedShortToken(text string) bool {
	tokens := spamTokens(text)
	if len(tokens) < 3 {
		return false
	}
	first := tokens[0]
	if utf8.RuneCountInString(first) > 3 {
		return false
	}
	for _, token := range tokens[1:] {
		if token != first {
			return false
		}
	}
	return true
}

// isRepeatedWord matches any token repeated three or more times regardless of
// length (strict mode only).
func isRepeatedWord(text string) bool {
	tokens := spamTokens(text)
	if len(tokens) < 3 {
		return false
	}
	run := 1
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == tokens[i-1] && tokens[i] != "" {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// hasRepeatedChar matches six or more consecutive occurrences of the same
// character ("ААААААА").
func hasRepeatedChar(text string) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= 6 {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func containsDenied(text string, denySet map[string]struct{}) bool {
	for _, token := range spamTokens(text) {
		if _, ok := denySet[token]; ok {
			return true
		}
	}
	return false
}

// isPureShortWords matches text made entirely of words of one or two runes,
// with at least one word present. A single longer word rescues the cue.
func isPureShortWords(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}
	for _, word := range words {
		if utf8.RuneCountInString(word) > 2 {
			return false
		}
	}
	return true
}

func containsEmoji(text string) bool {
	for _, r := range text {
		if (r >= 0x1F300 && r <= 0x1FAFF) || (r >= 0x2600 && r <= 0x27BF) {
			return true
		}
	}
	return false
}
