package source

import (
	"strconv"
	"strings"
)

// Navigator is the bounds authority for page navigation. Every method
// returns the target page and whether the move is allowed.
type Navigator struct {
	Total int
}

func (n Navigator) Prev(current int) (int, bool) {
	if current <= 1 || n.Total < 1 {
		return current, false
	}
	return min(current-1, n.Total), true
}

func (n Navigator) Next(current int) (int, bool) {
	if current >= n.Total {
		return current, false
	}
	return max(current+1, 1), true
}

// Jump parses a typed page number.
func (n Navigator) Jump(input string) (int, bool) {
	page, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || page < 1 || page > n.Total {
		return 0, false
	}
	return page, true
}

// Apply dispatches a navigation action by name: "prev", "next" or "jump".
func (n Navigator) Apply(action string, current int, input string) (int, bool) {
	switch action {
	case "prev":
		return n.Prev(current)
	case "next":
		return n.Next(current)
	case "jump":
		return n.Jump(input)
	}
	return current, false
}
