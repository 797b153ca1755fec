package core

// Text is a leaf widget carrying a line of content. It has no children;
// front ends read it from the element tree when presenting a frame.
type Text struct {
	Content string
	// WidgetKey is an optional key for the widget.
	WidgetKey any
}

func (t Text) CreateElement() Element {
	return NewStatelessElement(t, nil)
}

func (t Text) Key() any {
	return t.WidgetKey
}

func (t Text) Build(ctx BuildContext) Widget {
	return nil
}

// Column groups child widgets in order.
type Column struct {
	Children []Widget
}

func (c Column) CreateElement() Element {
	element := &ColumnElement{}
	element.widget = c
	element.setSelf(element)
	return element
}

func (c Column) Key() any {
	return nil
}

// ColumnElement hosts a Column. Children are matched to the previous
// build's children by position.
type ColumnElement struct {
	elementBase
	children []Element
}

func (e *ColumnElement) Unmount() {
	e.mounted = false
	for _, child := range e.children {
		if child != nil {
			child.Unmount()
		}
	}
	e.children = nil
}

func (e *ColumnElement) RebuildIfNeeded() {
	if !e.dirty || !e.mounted {
		return
	}
	e.dirty = false
	widgets := e.widget.(Column).Children

	next := make([]Element, 0, len(widgets))
	for i, w := range widgets {
		var existing Element
		if i < len(e.children) {
			existing = e.children[i]
		}
		next = append(next, updateChild(existing, w, e, e.buildOwner))
	}
	for i := len(widgets); i < len(e.children); i++ {
		if e.children[i] != nil {
			e.children[i].Unmount()
		}
	}
	e.children = next
}

func (e *ColumnElement) VisitChildren(visitor func(Element) bool) {
	for _, child := range e.children {
		if child != nil && !visitor(child) {
			return
		}
	}
}

// CollectText returns the Content of every Text under root in tree order.
func CollectText(root Element) []string {
	if root == nil {
		return nil
	}
	var lines []string
	var walk func(Element) bool
	walk = func(e Element) bool {
		if t, ok := e.Widget().(Text); ok {
			lines = append(lines, t.Content)
		}
		e.VisitChildren(walk)
		return true
	}
	walk(root)
	return lines
}
