package report

import (
	"fmt"
	"io"
	"sort"
)

// Item is one compiled definition seen after analysis.
type Item struct {
	// Path is the fully-qualified name, e.g. "example.com/m.(*T).Get".
	Path string
	// Kind is "func", "method", "closure", "var", "const" or "type".
	Kind string

	File string
	Line int
}

func (it *Item) String() string {
	path := Colour(36, it.Path)
	if it.File == "" {
		return fmt.Sprintf("%-8s%s", it.Kind, path)
	}
	pos := Colour(33, fmt.Sprintf("%s:%d", it.File, it.Line))
	return fmt.Sprintf("%-8s%s (%s)", it.Kind, path, pos)
}

func Colour(color int, str string) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, str)
}

// Sort orders items by path, then kind.
func Sort(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Path != items[j].Path {
			return items[i].Path < items[j].Path
		}
		return items[i].Kind < items[j].Kind
	})
}

// Print writes one line per item.
func Print(w io.Writer, items []*Item) error {
	for _, it := range items {
		if _, err := fmt.Fprintln(w, it.String()); err != nil {
			return err
		}
	}
	return nil
}
