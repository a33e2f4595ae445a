package memory

import (
	"context"

	"medconsult-be/internal/constant"
)

// Fragment is one previously indexed piece of text, or a stand-in describing
// why the store could not be read.
type Fragment struct {
	Text       string
	Diagnostic bool
}

// Source supplies the most recent knowledge fragments as ambient context.
// Implementations never fail: an unreadable store yields one diagnostic fragment.
type Source interface {
	Recent(ctx context.Context, n int) []Fragment
}

func diagnostic(err error) []Fragment {
	return []Fragment{{
		Text:       constant.ChatMemoryErrorPrefix + err.Error(),
		Diagnostic: true,
	}}
}

// tail returns the last n items, or all of them when there are fewer.
func tail(items []string, n int) []Fragment {
	if n <= 0 {
		return []Fragment{}
	}
	if len(items) > n {
		items = items[len(items)-n:]
	}
	out := make([]Fragment, len(items))
	for i, text := range items {
		out[i] = Fragment{Text: text}
	}
	return out
}
