package dispatch

import (
	"strconv"

	"telegram-mirror-bot/internal/args"
)

// isFlag reports whether tok is a recognized flag name.
func isFlag(tok string) bool {
	schema := args.NewSchema()
	_, ok := schema[tok]
	return ok && tok != args.KeyLink
}

// captureSpan returns the index one past the value tokens captured by the
// flag at position i.
func captureSpan(tokens []string, i int) int {
	j := i + 1
	for j < len(tokens) && !isFlag(tokens[j]) {
		j++
	}
	return j
}

// removeFlag drops a flag and its captured value span from the token list.
func removeFlag(tokens []string, flag string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if tokens[i] == flag {
			i = captureSpan(tokens, i) - 1
			continue
		}
		out = append(out, tokens[i])
	}
	return out
}

// setMulti rewrites the multiplicity flag to count, appending the flag when
// absent.
func setMulti(tokens []string, count int) []string {
	out := removeFlag(tokens, args.FlagMulti)
	return append(out, args.FlagMulti, strconv.Itoa(count))
}

// replaceLink swaps the positional link token for link, prepending when the
// list starts with a flag.
func replaceLink(tokens []string, link string) []string {
	if len(tokens) > 0 && !isFlag(tokens[0]) {
		out := append([]string{}, tokens...)
		out[0] = link
		return out
	}
	return append([]string{link}, tokens...)
}
