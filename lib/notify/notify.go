// Package notify defines how rendered changelog posts are delivered.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Notifier delivers a pre-rendered message to a chat.
//
// A non-nil error means delivery could not be attempted or was interrupted
// (network failure, bad configuration). A delivery the remote end refused is
// reported as a Rejected outcome with a nil error.
type Notifier interface {
	Notify(ctx context.Context, chatID, text string) (Outcome, error)
}

// Outcome is either Delivered or Rejected.
type Outcome interface {
	isOutcome()
	String() string
}

// Delivered lists the ids of the messages that were posted, one per chunk.
type Delivered struct {
	MessageIDs []int64
}

func (Delivered) isOutcome() {}

func (d Delivered) String() string {
	ids := make([]string, len(d.MessageIDs))
	for i, id := range d.MessageIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("delivered [%s]", strings.Join(ids, ", "))
}

type Rejected struct {
	Reason string
}

func (Rejected) isOutcome() {}

func (r Rejected) String() string {
	if r.Reason == "" {
		return "rejected"
	}
	return fmt.Sprintf("rejected: %s", r.Reason)
}

func IsDelivered(o Outcome) bool {
	_, ok := o.(Delivered)
	return ok
}

// Split cuts text into chunks of at most limit runes, preferring to cut
// right after a newline. Lines longer than limit are cut outside of HTML
// tags, entities and <code> spans when possible. A limit <= 0 disables
// splitting.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			cut = nl + 1
		} else {
			cut = markupSafe(text, cut)
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// markupSafe moves cut back so text[:cut] does not end inside a tag, an
// entity or an unclosed <code> span. cut is returned as is when there is no
// earlier position to cut at.
func markupSafe(text string, cut int) int {
	chunk := text[:cut]
	safe := cut
	if lt := strings.LastIndexByte(chunk, '<'); lt > strings.LastIndexByte(chunk, '>') {
		safe = lt
	}
	if amp := strings.LastIndexByte(chunk[:safe], '&'); amp >= 0 && safe-amp <= 8 &&
		!strings.Contains(chunk[amp:safe], ";") {
		safe = amp
	}
	if open := strings.LastIndex(chunk[:safe], "<code>"); open >= 0 &&
		!strings.Contains(chunk[open:safe], "</code>") {
		safe = open
	}
	if safe <= 0 {
		return cut
	}
	return safe
}

// byteOffset returns the byte offset of the n-th rune of s.
func byteOffset(s string, n int) int {
	i := 0
	for offset := range s {
		if i == n {
			return offset
		}
		i++
	}
	return len(s)
}

// Console prints messages instead of sending them, for previews and dry
// runs.
type Console struct {
	Out io.Writer
}

func (c Console) Notify(_ context.Context, chatID, text string) (Outcome, error) {
	_, err := fmt.Fprintf(c.Out, "---- %s ----\n%s\n", chatID, text)
	if err != nil {
		return nil, err
	}
	return Delivered{}, nil
}
