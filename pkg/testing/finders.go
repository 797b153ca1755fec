package testing

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-drift/rxdrift/pkg/binding"
	"github.com/go-drift/rxdrift/pkg/core"
)

// Finder locates elements in the widget tree.
type Finder interface {
	// Evaluate returns all matching elements under root in depth-first
	// pre-order.
	Evaluate(root core.Element) []core.Element
	// Description names the finder in failure messages.
	Description() string
}

// FinderResult holds the elements a finder matched.
type FinderResult struct {
	elements []core.Element
	finder   Finder
}

func (r FinderResult) describe() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// First returns the first match. Panics if there is none.
func (r FinderResult) First() core.Element {
	if len(r.elements) == 0 {
		panic(fmt.Sprintf("Finder found no elements: %s", r.describe()))
	}
	return r.elements[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) core.Element {
	if index < 0 || index >= len(r.elements) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.elements), r.describe()))
	}
	return r.elements[index]
}

// All returns every match.
func (r FinderResult) All() []core.Element { return r.elements }

// Count returns the number of matches.
func (r FinderResult) Count() int { return len(r.elements) }

// Exists reports whether anything matched.
func (r FinderResult) Exists() bool { return len(r.elements) > 0 }

// Widget returns the widget of the first match.
func (r FinderResult) Widget() core.Widget { return r.First().Widget() }

// Texts returns the text shown under every match, in tree order.
func (r FinderResult) Texts() []string {
	var lines []string
	for _, e := range r.elements {
		lines = append(lines, core.CollectText(e)...)
	}
	return lines
}

// Binding returns the description of the binding named name held by the
// first match. ok is false when the match holds no such binding.
func (r FinderResult) Binding(name string) (d binding.Description, ok bool) {
	for _, d := range core.BindingsOf(r.First()) {
		if d.Name == name {
			return d, true
		}
	}
	return binding.Description{}, false
}

// matchFinder matches each element against a predicate.
type matchFinder struct {
	desc  string
	match func(core.Element) bool
}

func (f matchFinder) Evaluate(root core.Element) []core.Element {
	var results []core.Element
	walkTree(root, func(e core.Element) {
		if f.match(e) {
			results = append(results, e)
		}
	})
	return results
}

func (f matchFinder) Description() string { return f.desc }

// ByType matches elements whose widget is of type T.
func ByType[T core.Widget]() Finder {
	t := reflect.TypeFor[T]()
	return matchFinder{
		desc: fmt.Sprintf("ByType(%s)", t),
		match: func(e core.Element) bool {
			return reflect.TypeOf(e.Widget()) == t
		},
	}
}

// ByKey matches elements whose widget key equals key.
func ByKey(key any) Finder {
	return matchFinder{
		desc: fmt.Sprintf("ByKey(%v)", key),
		match: func(e core.Element) bool {
			// DeepEqual tolerates keys that are not comparable.
			return reflect.DeepEqual(e.Widget().Key(), key)
		},
	}
}

// ByText matches [core.Text] widgets with exactly this content.
func ByText(text string) Finder {
	return matchFinder{
		desc: fmt.Sprintf("ByText(%q)", text),
		match: func(e core.Element) bool {
			t, ok := e.Widget().(core.Text)
			return ok && t.Content == text
		},
	}
}

// ByTextContaining matches [core.Text] widgets whose content contains
// substring.
func ByTextContaining(substring string) Finder {
	return matchFinder{
		desc: fmt.Sprintf("ByTextContaining(%q)", substring),
		match: func(e core.Element) bool {
			t, ok := e.Widget().(core.Text)
			return ok && strings.Contains(t.Content, substring)
		},
	}
}

// ByBinding matches stateful elements holding a binding with this name.
// Names come from binding.WithName, or the binding kind when unnamed.
func ByBinding(name string) Finder {
	return matchFinder{
		desc: fmt.Sprintf("ByBinding(%q)", name),
		match: func(e core.Element) bool {
			for _, d := range core.BindingsOf(e) {
				if d.Name == name {
					return true
				}
			}
			return false
		},
	}
}

// ByPredicate matches elements satisfying fn.
func ByPredicate(fn func(core.Element) bool) Finder {
	return matchFinder{desc: "ByPredicate(...)", match: fn}
}

type descendantFinder struct {
	of, matching Finder
}

func (f descendantFinder) Evaluate(root core.Element) []core.Element {
	var results []core.Element
	seen := make(map[core.Element]bool)
	for _, ancestor := range f.of.Evaluate(root) {
		ancestor.VisitChildren(func(child core.Element) bool {
			for _, match := range f.matching.Evaluate(child) {
				if !seen[match] {
					seen[match] = true
					results = append(results, match)
				}
			}
			return true
		})
	}
	return results
}

func (f descendantFinder) Description() string {
	return fmt.Sprintf("Descendant(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Descendant matches elements satisfying matching that sit strictly below
// an element satisfying of.
func Descendant(of, matching Finder) Finder {
	return descendantFinder{of: of, matching: matching}
}

func walkTree(root core.Element, visit func(core.Element)) {
	if root == nil {
		return
	}
	visit(root)
	root.VisitChildren(func(child core.Element) bool {
		walkTree(child, visit)
		return true
	})
}
