package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-drift/rxdrift/pkg/binding"
	"github.com/go-drift/rxdrift/pkg/core"
)

// maxTreeDepth bounds recursion when serializing the tree.
const maxTreeDepth = 500

// WidgetTreeNode is one element of the serialized tree.
type WidgetTreeNode struct {
	WidgetType  string                `json:"widgetType"`
	ElementType string                `json:"elementType"`
	Key         any                   `json:"key,omitempty"`
	Text        string                `json:"text,omitempty"`
	Depth       int                   `json:"depth"`
	NeedsBuild  bool                  `json:"needsBuild"`
	Bindings    []binding.Description `json:"bindings,omitempty"`
	Children    []WidgetTreeNode      `json:"children,omitempty"`
}

// BindingEntry locates a binding in the tree.
type BindingEntry struct {
	binding.Description
	WidgetType string `json:"widgetType"`
	Depth      int    `json:"depth"`
}

// DebugHandler serves the runner's tree and frame timeline as JSON:
//
//	/health       liveness
//	/widget-tree  element tree with each state's bindings
//	/bindings     every mounted binding in tree order
//	/frames       recent frame samples (?limit=N&min_ms=F&build_ms=F&dispatched=true)
//	/text         lines of the mounted tree
func (r *Runner) DebugHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", getOnly(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	mux.Handle("/widget-tree", getOnly(r.handleWidgetTree))
	mux.Handle("/bindings", getOnly(r.handleBindings))
	mux.Handle("/frames", getOnly(r.handleFrames))
	mux.Handle("/text", getOnly(r.handleText))
	return mux
}

func getOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	})
}

// withTree runs fn on the mounted root under frameLock, so it never
// observes a frame in progress. It answers 503 when nothing is mounted.
func (r *Runner) withTree(w http.ResponseWriter, fn func(root core.Element) any) {
	defer func() {
		if rec := recover(); rec != nil {
			http.Error(w, fmt.Sprintf("panic: %v", rec), http.StatusInternalServerError)
		}
	}()

	r.frameLock.Lock()
	if r.root == nil {
		r.frameLock.Unlock()
		http.Error(w, "no widget tree", http.StatusServiceUnavailable)
		return
	}
	v := fn(r.root)
	r.frameLock.Unlock()
	writeJSON(w, v)
}

func (r *Runner) handleWidgetTree(w http.ResponseWriter, _ *http.Request) {
	r.withTree(w, func(root core.Element) any {
		return serializeWidgetTree(root, 0)
	})
}

func (r *Runner) handleBindings(w http.ResponseWriter, _ *http.Request) {
	r.withTree(w, func(root core.Element) any {
		entries := []BindingEntry{}
		var visit func(e core.Element, depth int)
		visit = func(e core.Element, depth int) {
			for _, d := range core.BindingsOf(e) {
				entries = append(entries, BindingEntry{
					Description: d,
					WidgetType:  reflect.TypeOf(e.Widget()).String(),
					Depth:       e.Depth(),
				})
			}
			if depth >= maxTreeDepth {
				return
			}
			e.VisitChildren(func(child core.Element) bool {
				visit(child, depth+1)
				return true
			})
		}
		visit(root, 0)
		return entries
	})
}

func (r *Runner) handleFrames(w http.ResponseWriter, req *http.Request) {
	if r.frameTrace == nil {
		http.Error(w, "frame tracing disabled", http.StatusServiceUnavailable)
		return
	}
	timeline := r.frameTrace.Snapshot()
	timeline.Samples = filterSamples(req, timeline.Samples)
	writeJSON(w, timeline)
}

func (r *Runner) handleText(w http.ResponseWriter, _ *http.Request) {
	r.frameLock.Lock()
	lines := core.CollectText(r.root)
	r.frameLock.Unlock()

	writeJSON(w, struct {
		Lines []string `json:"lines"`
	}{Lines: lines})
}

// writeJSON encodes to a buffer first so encoding errors become a 500.
func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// filterSamples keeps the samples matching every query filter, then the
// newest limit of those.
func filterSamples(req *http.Request, samples []FrameSample) []FrameSample {
	q := req.URL.Query()
	minMs := parseFloatQuery(q.Get("min_ms"))
	buildMs := parseFloatQuery(q.Get("build_ms"))
	dispatchedOnly, _ := strconv.ParseBool(q.Get("dispatched"))

	kept := samples[:0:0]
	for _, s := range samples {
		switch {
		case minMs > 0 && s.FrameMs < minMs:
		case buildMs > 0 && s.Phases.BuildMs < buildMs:
		case dispatchedOnly && s.Counts.Dispatched == 0:
		default:
			kept = append(kept, s)
		}
	}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}

func parseFloatQuery(value string) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func serializeWidgetTree(elem core.Element, depth int) WidgetTreeNode {
	if elem == nil {
		return WidgetTreeNode{ElementType: "<nil>"}
	}

	node := WidgetTreeNode{
		ElementType: reflect.TypeOf(elem).String(),
		Depth:       elem.Depth(),
		Bindings:    core.BindingsOf(elem),
	}
	if nb, ok := elem.(interface{ NeedsBuild() bool }); ok {
		node.NeedsBuild = nb.NeedsBuild()
	}
	if widget := elem.Widget(); widget != nil {
		node.WidgetType = reflect.TypeOf(widget).String()
		node.Key = safeKey(widget.Key())
		if text, ok := widget.(core.Text); ok {
			node.Text = text.Content
		}
	}

	if depth < maxTreeDepth {
		elem.VisitChildren(func(child core.Element) bool {
			node.Children = append(node.Children, serializeWidgetTree(child, depth+1))
			return true
		})
	}
	return node
}

// safeKey returns key if it encodes as a JSON scalar, else its %v form.
func safeKey(key any) any {
	switch key.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return key
	default:
		return fmt.Sprintf("%v", key)
	}
}
