package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// MaxMessageLength is the transport's limit for one text message.
const MaxMessageLength = 4096

// SplitMessage cuts text into chunks of at most limit runes at line
// boundaries. A single line longer than limit is cut at the limit.
func SplitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		n = 0
	}

	for _, line := range strings.Split(text, "\n") {
		ln := utf8.RuneCountInString(line)
		for ln > limit {
			flush()
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
			ln -= limit
		}
		if n > 0 && n+1+ln > limit {
			flush()
		}
		if n > 0 {
			cur.WriteByte('\n')
			n++
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return chunks
}

// ChunkedSender delivers long texts as several messages, pacing sends.
type ChunkedSender struct {
	msg     Messenger
	limiter *rate.Limiter
	limit   int
}

// NewChunkedSender paces consecutive sends at least interval apart.
func NewChunkedSender(msg Messenger, interval time.Duration) *ChunkedSender {
	return &ChunkedSender{
		msg:     msg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		limit:   MaxMessageLength,
	}
}

// Send delivers text, split when needed. It stops at the first failure.
func (s *ChunkedSender) Send(ctx context.Context, chatID int64, text string) error {
	for i, chunk := range SplitMessage(text, s.limit) {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := s.msg.SendMessage(ctx, chatID, chunk, nil); err != nil {
			return fmt.Errorf("failed to send part %d: %w", i+1, err)
		}
	}
	return nil
}

// Wait blocks until the next send is allowed.
func (s *ChunkedSender) Wait(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}
