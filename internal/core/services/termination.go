package services

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Exchange is one completed user message and reply.
type Exchange struct {
	UserMessage string
	Reply       string
	Invocations []domain.ToolInvocation
}

// TerminationPredicate decides whether an exchange ends the conversation.
type TerminationPredicate func(ex Exchange) bool

// DefaultClosingPhrases signal that the user is done.
var DefaultClosingPhrases = []string{
	"bye",
	"goodbye",
	"good bye",
	"bye bye",
	"see you",
	"end conversation",
	"end the conversation",
	"end chat",
	"thats all",
	"that is all",
	"quit",
	"exit",
}

// closingFiller are words that may surround a closing phrase, as in
// "ok thanks, bye" or "that's all for now".
var closingFiller = map[string]bool{
	"ok": true, "okay": true, "alright": true, "well": true, "so": true,
	"thanks": true, "thank": true, "you": true, "please": true,
	"great": true, "cool": true, "perfect": true,
	"for": true, "now": true, "then": true, "today": true,
}

// ClosingIntent ends the conversation when a non-question user message is
// one of the phrases, optionally surrounded by filler words. A phrase
// inside a longer request ("List the exit criteria") does not count.
func ClosingIntent(phrases ...string) TerminationPredicate {
	normalised := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		if n := normaliseWords(p); n != "" {
			normalised[n] = true
		}
	}
	return func(ex Exchange) bool {
		if strings.Contains(ex.UserMessage, "?") {
			return false
		}
		words := strings.Fields(normaliseWords(ex.UserMessage))
		for len(words) > 0 {
			if normalised[strings.Join(words, " ")] {
				return true
			}
			switch {
			case closingFiller[words[0]]:
				words = words[1:]
			case closingFiller[words[len(words)-1]]:
				words = words[:len(words)-1]
			default:
				return false
			}
		}
		return false
	}
}

// ClosingMarker ends the conversation when the reply contains marker.
func ClosingMarker(marker string) TerminationPredicate {
	return func(ex Exchange) bool {
		return marker != "" && strings.Contains(ex.Reply, marker)
	}
}

// ToolSucceeded ends the conversation once the named tool runs successfully.
func ToolSucceeded(name string) TerminationPredicate {
	return func(ex Exchange) bool {
		for _, inv := range ex.Invocations {
			if inv.Name == name && inv.Success {
				return true
			}
		}
		return false
	}
}

// AnyOf ends the conversation when any predicate does.
func AnyOf(preds ...TerminationPredicate) TerminationPredicate {
	return func(ex Exchange) bool {
		for _, p := range preds {
			if p != nil && p(ex) {
				return true
			}
		}
		return false
	}
}

// DefaultTermination combines the default closing phrases with marker.
func DefaultTermination(marker string) TerminationPredicate {
	return AnyOf(ClosingIntent(DefaultClosingPhrases...), ClosingMarker(marker))
}

// normaliseWords lowercases s, drops apostrophes and turns every other
// non-alphanumeric rune into a single space.
func normaliseWords(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case !space:
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
