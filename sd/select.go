package sd

// SelectFragments builds the selection document for doc given a set of
// JSON Pointers, following the skeleton-preservation rule in spec
// §4.7.2: intermediate objects along each pointer's path carry only
// their own "id"/"type" members (if present in the source) plus
// whatever child the pointer continues into; the leaf of each pointer is
// copied in full; array positions are preserved; "@context" at the root
// is always copied verbatim. Any non-empty pointer also brings the root
// "type" along; the root "id" is copied only for the empty pointer.
func SelectFragments(doc map[string]interface{}, pointers []Pointer) (map[string]interface{}, error) {
	selection := map[string]interface{}{}

	if ctx, ok := doc["@context"]; ok {
		selection["@context"] = ctx
	}

	for _, p := range pointers {
		if len(p) == 0 {
			copySkeletonMembers(doc, selection)
			continue
		}
		if _, ok := TryEvaluate(doc, p); !ok {
			return nil, &ErrPointerNotEvaluable{Pointer: p.String()}
		}
		if typ, ok := doc["type"]; ok {
			if _, set := selection["type"]; !set {
				selection["type"] = typ
			}
		}
		if err := mergePointer(doc, selection, p); err != nil {
			return nil, err
		}
	}

	return selection, nil
}

// copySkeletonMembers copies the document-skeleton members the empty
// pointer selects: @context (already copied by the caller), id if
// non-blank, and type.
func copySkeletonMembers(src, dst map[string]interface{}) {
	if id, ok := src["id"]; ok {
		if s, isStr := id.(string); !isStr || s != "" {
			dst["id"] = id
		}
	}
	if typ, ok := src["type"]; ok {
		dst["type"] = typ
	}
}

// mergePointer walks p from doc's root into dst, creating/merging
// skeletal objects along the way and copying the full sub-tree at the
// leaf.
func mergePointer(doc map[string]interface{}, dst map[string]interface{}, p Pointer) error {
	srcCur := interface{}(doc)
	dstCur := dst

	for i, tok := range p {
		last := i == len(p)-1

		switch src := srcCur.(type) {
		case map[string]interface{}:
			next, ok := src[tok]
			if !ok {
				return &ErrPointerNotEvaluable{Pointer: p.String()}
			}
			if last {
				dstCur[tok] = deepCopy(next)
				return nil
			}

			childDst, ok := dstCur[tok].(map[string]interface{})
			if !ok {
				childDst = map[string]interface{}{}
				if nextObj, isObj := next.(map[string]interface{}); isObj {
					copySkeletonMembers(nextObj, childDst)
				}
				dstCur[tok] = childDst
			}
			dstCur = childDst
			srcCur = next

		case []interface{}:
			idx, ok := parseIndex(tok, len(src))
			if !ok {
				return &ErrPointerNotEvaluable{Pointer: p.String()}
			}
			// Arrays are represented in the selection keyed by their
			// index as a string, preserved positionally (spec §4.7.2
			// "arrays preserve positional indices").
			if last {
				dstCur[tok] = deepCopy(src[idx])
				return nil
			}
			childDst, ok := dstCur[tok].(map[string]interface{})
			if !ok {
				childDst = map[string]interface{}{}
				if nextObj, isObj := src[idx].(map[string]interface{}); isObj {
					copySkeletonMembers(nextObj, childDst)
				}
				dstCur[tok] = childDst
			}
			dstCur = childDst
			srcCur = src[idx]

		default:
			return &ErrPointerNotEvaluable{Pointer: p.String()}
		}
	}
	return nil
}

func parseIndex(tok string, n int) (int, bool) {
	idx := 0
	for _, c := range tok {
		if c < '0' || c > '9' {
			return 0, false
		}
		idx = idx*10 + int(c-'0')
	}
	if idx >= n {
		return 0, false
	}
	return idx, true
}

func deepCopy(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return vv
	}
}
