package engine

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lunavoice/luna/pkg/core/types"
)

// closingIntent says why a turn is the session's last one, if it is.
type closingIntent int

const (
	intentNone closingIntent = iota
	intentStopPhrase
	intentMaxTurns
)

const (
	wrapUpDirective = "The user has decided to stop the session. " +
		"Please provide a brief, polite wrap-up message in the target language."

	finalTurnDirective = "This is the final turn of the conversation. " +
		"Please provide a natural closing message to wrap up the session in the target language."
)

// greetingDirective instructs the model to open the session around a topic.
func greetingDirective(topic string) string {
	return fmt.Sprintf("Open the conversation: greet the user warmly, introduce yourself as Luna, "+
		"and invite them to talk about the following topic: %s. "+
		"Keep it to two or three short sentences in the target language.", topic)
}

// closingIntentFor decides whether this turn ends the session. The stop
// phrase wins over the turn cap when both apply.
func (e *Engine) closingIntentFor(sess *types.Session, userText string) closingIntent {
	if containsStopPhrase(userText, sess.Settings.StopPhrase) {
		return intentStopPhrase
	}
	if sess.TurnPairs+1 >= e.cfg.MaxTurnPairs {
		return intentMaxTurns
	}
	return intentNone
}

func (i closingIntent) directive() string {
	switch i {
	case intentStopPhrase:
		return wrapUpDirective
	case intentMaxTurns:
		return finalTurnDirective
	default:
		return ""
	}
}

// containsStopPhrase checks for the stop phrase anywhere in the utterance,
// ignoring case and punctuation. ASR output often arrives with trailing
// periods or commas around the phrase.
func containsStopPhrase(utterance, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(normalizeUtterance(utterance), normalizeUtterance(phrase))
}

// normalizeUtterance lowercases, strips punctuation and collapses runs of
// whitespace to single spaces.
func normalizeUtterance(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
