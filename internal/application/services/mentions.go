package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/plannerhq/planner/internal/domain/entities"
)

// mentionPattern matches @tokens made of word characters and Latin letters
// with diacritics.
var mentionPattern = regexp.MustCompile(`@([\w\x{00C0}-\x{024F}]+)`)

// mentionTokens returns the distinct tokens in content, in order of first
// appearance. Tokens are compared case-insensitively.
func mentionTokens(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		tokens = append(tokens, m[1])
	}
	return tokens
}

// matchRank scores how well name matches token: 0 for the whole name,
// 1 when a word of the name starts with token, 2 for any other substring.
func matchRank(name, token string) int {
	name, token = strings.ToLower(name), strings.ToLower(token)
	if name == token {
		return 0
	}
	for _, word := range strings.Fields(name) {
		if strings.HasPrefix(word, token) {
			return 1
		}
	}
	return 2
}

// bestMention picks one user among the candidates matching token. Better
// textual matches win first. Among equals, reachable users win: a bot link
// first, then a webhook. Remaining ties go to the shortest name, then
// name, then id, so the choice is stable.
func bestMention(token string, candidates []*entities.User) *entities.User {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]*entities.User(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ra, rb := matchRank(a.Name, token), matchRank(b.Name, token); ra != rb {
			return ra < rb
		}
		if a.HasBotLink() != b.HasBotLink() {
			return a.HasBotLink()
		}
		if a.HasWebhook() != b.HasWebhook() {
			return a.HasWebhook()
		}
		if la, lb := len([]rune(a.Name)), len([]rune(b.Name)); la != lb {
			return la < lb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.String() < b.ID.String()
	})
	return sorted[0]
}
