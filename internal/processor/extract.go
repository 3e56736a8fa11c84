package processor

import (
	"regexp"
	"strings"
)

// DefaultFilename is used when a document task names no file.
const DefaultFilename = "new.txt"

var filenameTokenRe = regexp.MustCompile(`\b[\w-]+\.[A-Za-z][A-Za-z0-9]{1,3}\b`)

// topicKeywords maps recognizable subject words to topics, used when the
// utterance has no "about ..." clause.
var topicKeywords = []string{
	"ai", "technology", "science", "business", "health",
	"education", "sports", "politics", "travel", "food",
}

// extractTopic returns the text after "about", or a keyword-table match,
// or "general".
func extractTopic(lower string) string {
	if idx := strings.Index(lower, " about "); idx >= 0 {
		topic := strings.TrimSpace(lower[idx+len(" about "):])
		topic = strings.Trim(topic, ".,!?\"'")
		if topic != "" {
			return topic
		}
	}
	for _, kw := range topicKeywords {
		if containsWord(lower, kw) {
			return kw
		}
	}
	return "general"
}

// extractFilename returns the first filename-shaped token after "name it" or
// "save as", then any filename-shaped token anywhere, then DefaultFilename.
func extractFilename(lower string) string {
	for _, marker := range []string{"name it ", "save as "} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			if m := filenameTokenRe.FindString(lower[idx+len(marker):]); m != "" {
				return m
			}
		}
	}
	if m := filenameTokenRe.FindString(lower); m != "" {
		return m
	}
	return DefaultFilename
}

// extractQuery returns the search subject: the text after "search for" or
// "for", trimmed at a trailing site mention ("on <site>"), falling back to
// the whole utterance.
func extractQuery(lower string) string {
	rest := lower
	for _, marker := range []string{"search for ", "look for ", "find ", "buy "} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			rest = lower[idx+len(marker):]
			break
		}
	}
	if idx := strings.Index(rest, " on "); idx >= 0 {
		rest = rest[:idx]
	}
	rest = strings.TrimSpace(strings.Trim(rest, ".,!?\"'"))
	if rest == "" {
		return strings.TrimSpace(lower)
	}
	return rest
}

// extractSite returns the site mentioned after "on", if any.
func extractSite(lower string) string {
	if idx := strings.LastIndex(lower, " on "); idx >= 0 {
		site := strings.TrimSpace(strings.Trim(lower[idx+len(" on "):], ".,!?\"'"))
		if site != "" && !strings.Contains(site, " ") {
			return site
		}
	}
	return ""
}

func containsWord(lower, word string) bool {
	idx := strings.Index(lower, word)
	for idx >= 0 {
		before := idx == 0 || !isWordByte(lower[idx-1])
		after := idx+len(word) >= len(lower) || !isWordByte(lower[idx+len(word)])
		if before && after {
			return true
		}
		next := strings.Index(lower[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
