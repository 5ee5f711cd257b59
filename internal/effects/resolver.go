// Package effects flattens the komposition's effect tree into a linear,
// dependency-respecting execution order, materializing one graph node per
// effect application.
package effects

import (
	"fmt"

	"github.com/mattjoyce/kompozer/internal/catalog"
	"github.com/mattjoyce/kompozer/internal/graph"
	"github.com/mattjoyce/kompozer/internal/komposition"
)

// resolver carries state for one tree flattening pass.
type resolver struct {
	g            *graph.Graph
	segmentNodes map[string]string
	// named maps already-resolved tree node ids to graph node ids, so a
	// transition's `between` may reference them. Registration happens
	// post-order: forward references fail rather than silently reorder.
	named    map[string]string
	order    []string
	appended map[string]bool
}

// Resolve flattens the effects tree onto the graph. It returns the linear
// execution order (extraction and effect node ids, final last) and the id
// of the final composition node.
func Resolve(g *graph.Graph, k *komposition.Komposition, segmentNodes map[string]string) ([]string, string, error) {
	if k.EffectsTree == nil {
		return nil, "", &graph.UnresolvedReferenceError{Ref: "effects_tree.root", Context: "komposition"}
	}

	r := &resolver{
		g:            g,
		segmentNodes: segmentNodes,
		named:        make(map[string]string),
		appended:     make(map[string]bool),
	}

	finalID, err := r.resolve(k, k.EffectsTree, true)
	if err != nil {
		return nil, "", err
	}
	return r.order, finalID, nil
}

func (r *resolver) resolve(k *komposition.Komposition, n *komposition.TreeNode, root bool) (string, error) {
	var (
		terminal string
		err      error
	)

	switch n.Kind {
	case komposition.KindLeaf:
		terminal, err = r.resolveLeaf(k, n, root)

	case komposition.KindSequence:
		terminal, err = r.resolveSequence(k, n, root)

	case komposition.KindTransition:
		terminal, err = r.resolveTransition(k, n, root)

	default:
		err = fmt.Errorf("effects tree: unknown node kind %q", n.Kind)
	}
	if err != nil {
		return "", err
	}

	if n.ID != "" {
		r.named[n.ID] = terminal
	}
	return terminal, nil
}

// resolveLeaf places the segment's extraction node, then applies the
// segment's own effects in declared order, each producing a new
// intermediate node.
func (r *resolver) resolveLeaf(k *komposition.Komposition, n *komposition.TreeNode, root bool) (string, error) {
	current, ok := r.segmentNodes[n.SegmentID]
	if !ok {
		return "", &graph.UnresolvedReferenceError{Ref: n.SegmentID, Context: "effects tree leaf"}
	}
	r.append(current)

	seg, ok := k.SegmentByID(n.SegmentID)
	if !ok {
		return "", &graph.UnresolvedReferenceError{Ref: n.SegmentID, Context: "effects tree leaf"}
	}
	for _, fx := range seg.Effects {
		id, _, err := r.g.AddIntermediate("effect", fx.Type, fx.Params, current)
		if err != nil {
			return "", err
		}
		r.append(id)
		current = id
	}

	if root {
		return r.finalize(catalog.OpCompose, nil, current)
	}
	return current, nil
}

// resolveSequence resolves children in declared order, then concatenates
// their outputs.
func (r *resolver) resolveSequence(k *komposition.Komposition, n *komposition.TreeNode, root bool) (string, error) {
	terminals := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		terminal, err := r.resolve(k, child, false)
		if err != nil {
			return "", err
		}
		terminals = append(terminals, terminal)
	}

	if root {
		return r.finalize(catalog.OpConcat, n.Params, terminals...)
	}
	id, _, err := r.g.AddIntermediate("effect", catalog.OpConcat, n.Params, terminals...)
	if err != nil {
		return "", err
	}
	r.append(id)
	return id, nil
}

// resolveTransition resolves both children first, verifies the `between`
// references name already-constructed work, then places the transition.
func (r *resolver) resolveTransition(k *komposition.Komposition, n *komposition.TreeNode, root bool) (string, error) {
	if len(n.Children) != 2 {
		return "", fmt.Errorf("effects tree: transition %q must have exactly two children", n.Type)
	}

	left, err := r.resolve(k, n.Children[0], false)
	if err != nil {
		return "", err
	}
	right, err := r.resolve(k, n.Children[1], false)
	if err != nil {
		return "", err
	}

	for _, ref := range n.Between {
		if _, ok := r.segmentNodes[ref]; ok {
			continue
		}
		if _, ok := r.named[ref]; ok {
			continue
		}
		return "", &graph.UnresolvedReferenceError{
			Ref:     ref,
			Context: fmt.Sprintf("transition %q between", n.Type),
		}
	}

	params := transitionParams(n)
	if root {
		return r.finalize(n.Type, params, left, right)
	}
	id, _, err := r.g.AddIntermediate("effect", n.Type, params, left, right)
	if err != nil {
		return "", err
	}
	r.append(id)
	return id, nil
}

func (r *resolver) finalize(operation string, params map[string]any, inputs ...string) (string, error) {
	id, err := r.g.AddFinal(operation, params, inputs...)
	if err != nil {
		return "", err
	}
	r.append(id)
	return id, nil
}

func (r *resolver) append(id string) {
	if r.appended[id] {
		return
	}
	r.appended[id] = true
	r.order = append(r.order, id)
}

// transitionParams folds the transition's duration and between pair into
// its parameter set. Parameters come verbatim from the document; nothing
// is inherited from parent nodes.
func transitionParams(n *komposition.TreeNode) map[string]any {
	params := make(map[string]any, len(n.Params)+2)
	for k, v := range n.Params {
		params[k] = v
	}
	params["duration"] = n.Duration
	if len(n.Between) == 2 {
		params["between"] = []any{n.Between[0], n.Between[1]}
	}
	return params
}
