// Package navigation keeps the per-session stack of visited screens.
package navigation

// MaxDepth bounds the history; the oldest screens are evicted first.
const MaxDepth = 10

// Home is the root screen every session falls back to.
const Home = "home"

// History is a bounded LIFO of screen identifiers. The zero value is ready
// to use. It is not safe for concurrent use; callers hold the session lock.
type History struct {
	screens []string
}

// Push records screen unless it is already on top.
func (h *History) Push(screen string) {
	if n := len(h.screens); n > 0 && h.screens[n-1] == screen {
		return
	}
	h.screens = append(h.screens, screen)
	if over := len(h.screens) - MaxDepth; over > 0 {
		h.screens = append(h.screens[:0], h.screens[over:]...)
	}
}

// PeekPrevious returns the screen below the top without changing anything.
func (h *History) PeekPrevious() (string, bool) {
	if len(h.screens) < 2 {
		return "", false
	}
	return h.screens[len(h.screens)-2], true
}

// Pop drops the top screen and returns the new top.
func (h *History) Pop() (string, bool) {
	if len(h.screens) == 0 {
		return "", false
	}
	h.screens = h.screens[:len(h.screens)-1]
	if len(h.screens) == 0 {
		return "", false
	}
	return h.screens[len(h.screens)-1], true
}

// Current returns the top screen.
func (h *History) Current() (string, bool) {
	if len(h.screens) == 0 {
		return "", false
	}
	return h.screens[len(h.screens)-1], true
}

// Clear forgets every screen.
func (h *History) Clear() {
	h.screens = h.screens[:0]
}

// Len is the number of stored screens.
func (h *History) Len() int {
	return len(h.screens)
}

// Back pops the current screen and returns the one to render. With an empty
// or single-entry history it clears everything and returns Home.
func (h *History) Back() string {
	if _, ok := h.PeekPrevious(); !ok {
		h.Clear()
		return Home
	}
	prev, _ := h.Pop()
	return prev
}
