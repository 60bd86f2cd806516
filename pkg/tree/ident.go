package tree

import (
	"strconv"
	"strings"
)

// NodeKind tags the depth of a node in the questionnaire tree.
type NodeKind string

const (
	KindCategory    NodeKind = "category"
	KindSubCategory NodeKind = "subcategory"
	KindTopic       NodeKind = "topic"
	KindQuestion    NodeKind = "question"
)

// Depth returns the zero-based nesting level of the kind.
func (k NodeKind) Depth() int {
	switch k {
	case KindCategory:
		return 0
	case KindSubCategory:
		return 1
	case KindTopic:
		return 2
	case KindQuestion:
		return 3
	default:
		return -1
	}
}

// Child returns the kind one level deeper, or "" for questions.
func (k NodeKind) Child() NodeKind {
	switch k {
	case KindCategory:
		return KindSubCategory
	case KindSubCategory:
		return KindTopic
	case KindTopic:
		return KindQuestion
	default:
		return ""
	}
}

func kindAtDepth(depth int) NodeKind {
	switch depth {
	case 0:
		return KindCategory
	case 1:
		return KindSubCategory
	case 2:
		return KindTopic
	case 3:
		return KindQuestion
	default:
		return ""
	}
}

const (
	identSep  = "-"
	identNone = "none"
)

// BuildIdentifier derives the position key of a node from its kind, the
// positional indices of its ancestors and its own index. A nil ancestor
// index is rendered as "none".
//
//	BuildIdentifier(KindTopic, []*int{&c, &s}, 2) // "topic-0-1-2"
//	BuildIdentifier(KindCategory, nil, 3)         // "category-3"
func BuildIdentifier(kind NodeKind, ancestors []*int, own int) string {
	parts := make([]string, 0, len(ancestors)+2)
	parts = append(parts, string(kind))
	for _, a := range ancestors {
		if a == nil {
			parts = append(parts, identNone)
			continue
		}
		parts = append(parts, strconv.Itoa(*a))
	}
	parts = append(parts, strconv.Itoa(own))
	return strings.Join(parts, identSep)
}

// PathIdentifier is BuildIdentifier for a fully known path. The kind is
// implied by the path length.
func PathIdentifier(p Path) string {
	if len(p) == 0 {
		return ""
	}
	ancestors := make([]*int, len(p)-1)
	for i := range ancestors {
		v := p[i]
		ancestors[i] = &v
	}
	return BuildIdentifier(kindAtDepth(len(p)-1), ancestors, p[len(p)-1])
}
