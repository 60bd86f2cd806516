// Package tree holds the questionnaire document and the editor state machine
// that operates on it.
//
// A Document is a persistent arena of nodes: every edit returns a new
// Document and leaves the receiver untouched, so a snapshot handed to a save
// in flight can never be changed underneath it. Nodes carry a stable NodeID
// assigned at creation; the position-derived identifier (see BuildIdentifier)
// is computed on demand and changes whenever earlier siblings are inserted or
// removed.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vanderheijden86/qb/pkg/model"
)

// DuplicateCategoryMessage is the user-facing text shown when two top-level
// categories share a name.
const DuplicateCategoryMessage = "לא ניתן להוסיף קטגוריות עם אותו שם."

var (
	// ErrPathNotFound is returned when an index path does not address a node.
	ErrPathNotFound = errors.New("no node at path")
	// ErrDuplicateCategoryName is returned when a category would share its
	// name with another top-level category.
	ErrDuplicateCategoryName = errors.New(DuplicateCategoryMessage)
	// ErrNotQuestion is returned by question-only operations on other kinds.
	ErrNotQuestion = errors.New("node is not a question")
)

// NodeID is the stable identity of a node for its whole lifetime.
type NodeID string

// NewNodeID returns a fresh random node id.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// Path addresses a node by positional indices from the root:
// [category], [category, sub], [category, sub, topic] or
// [category, sub, topic, question].
type Path []int

// Kind returns the node kind a path of this length addresses.
func (p Path) Kind() NodeKind {
	return kindAtDepth(len(p) - 1)
}

// Parent returns the path of the parent node, or nil for categories.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return append(Path(nil), p[:len(p)-1]...)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ".")
}

// Node is one element of the questionnaire tree.
type Node struct {
	ID         NodeID
	Kind       NodeKind
	Name       string           // category/subcategory/topic name or question text
	AnswerType model.AnswerType // questions only
	Options    []string         // questions only
	Parent     NodeID           // empty for categories
	Children   []NodeID
}

// Document is an immutable snapshot of a questionnaire being edited.
type Document struct {
	title       string
	description string
	templateID  string
	roots       []NodeID
	nodes       map[NodeID]Node
}

// NewDocument returns an empty document with the given template name.
func NewDocument(title string) *Document {
	return &Document{
		title: title,
		nodes: make(map[NodeID]Node),
	}
}

// clone copies the arena shallowly. Node values are copied by the map copy;
// child slices are shared until a writer replaces them via withChildren.
func (d *Document) clone() *Document {
	nd := &Document{
		title:       d.title,
		description: d.description,
		templateID:  d.templateID,
		roots:       d.roots,
		nodes:       make(map[NodeID]Node, len(d.nodes)),
	}
	for id, n := range d.nodes {
		nd.nodes[id] = n
	}
	return nd
}

// Title returns the template name.
func (d *Document) Title() string { return d.title }

// Description returns the template description.
func (d *Document) Description() string { return d.description }

// TemplateID returns the id of the template this document was loaded from.
func (d *Document) TemplateID() string { return d.templateID }

// Len returns the total number of nodes.
func (d *Document) Len() int { return len(d.nodes) }

// Roots returns the category ids in display order.
func (d *Document) Roots() []NodeID {
	return append([]NodeID(nil), d.roots...)
}

// Node returns the node with the given id.
func (d *Document) Node(id NodeID) (Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Contains reports whether id names a node of this document.
func (d *Document) Contains(id NodeID) bool {
	_, ok := d.nodes[id]
	return ok
}

// ChildrenOf returns the child ids of id, or the roots when id is empty.
func (d *Document) ChildrenOf(id NodeID) []NodeID {
	if id == "" {
		return d.Roots()
	}
	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	return append([]NodeID(nil), n.Children...)
}

// WithTitle returns a copy with the template name replaced.
func (d *Document) WithTitle(title string) *Document {
	nd := d.clone()
	nd.title = title
	return nd
}

// WithDescription returns a copy with the description replaced.
func (d *Document) WithDescription(desc string) *Document {
	nd := d.clone()
	nd.description = desc
	return nd
}

// Resolve returns the id of the node at p.
func (d *Document) Resolve(p Path) (NodeID, bool) {
	if len(p) == 0 || len(p) > 4 {
		return "", false
	}
	siblings := d.roots
	var id NodeID
	for _, idx := range p {
		if idx < 0 || idx >= len(siblings) {
			return "", false
		}
		id = siblings[idx]
		siblings = d.nodes[id].Children
	}
	return id, true
}

// PathOf returns the current positional path of id.
func (d *Document) PathOf(id NodeID) (Path, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, false
	}
	var rev Path
	for {
		siblings := d.roots
		if n.Parent != "" {
			siblings = d.nodes[n.Parent].Children
		}
		idx := indexOf(siblings, n.ID)
		if idx < 0 {
			return nil, false
		}
		rev = append(rev, idx)
		if n.Parent == "" {
			break
		}
		n = d.nodes[n.Parent]
	}
	p := make(Path, len(rev))
	for i := range rev {
		p[i] = rev[len(rev)-1-i]
	}
	return p, true
}

// Identifier returns the position-derived key of id, or "" if id is unknown.
func (d *Document) Identifier(id NodeID) string {
	p, ok := d.PathOf(id)
	if !ok {
		return ""
	}
	return PathIdentifier(p)
}

// Walk visits every node depth-first in display order. Returning false from
// fn skips the node's children.
func (d *Document) Walk(fn func(n Node, p Path) bool) {
	var visit func(ids []NodeID, prefix Path)
	visit = func(ids []NodeID, prefix Path) {
		for i, id := range ids {
			n := d.nodes[id]
			p := append(append(Path(nil), prefix...), i)
			if fn(n, p) {
				visit(n.Children, p)
			}
		}
	}
	visit(d.roots, nil)
}

// AddCategory appends an empty-named category.
func (d *Document) AddCategory() (*Document, NodeID) {
	nd := d.clone()
	id := NewNodeID()
	nd.nodes[id] = Node{ID: id, Kind: KindCategory}
	nd.roots = appendID(d.roots, id)
	return nd, id
}

// AddSubCategory appends an empty-named subcategory to category ci.
func (d *Document) AddSubCategory(ci int) (*Document, NodeID, error) {
	return d.addChild(Path{ci})
}

// AddTopic appends an empty-named topic to subcategory [ci, si].
func (d *Document) AddTopic(ci, si int) (*Document, NodeID, error) {
	return d.addChild(Path{ci, si})
}

// AddQuestion appends an empty question to topic [ci, si, ti].
func (d *Document) AddQuestion(ci, si, ti int) (*Document, NodeID, error) {
	return d.addChild(Path{ci, si, ti})
}

// AddChild appends an empty child under the node at parent. An empty parent
// path adds a category.
func (d *Document) AddChild(parent Path) (*Document, NodeID, error) {
	if len(parent) == 0 {
		nd, id := d.AddCategory()
		return nd, id, nil
	}
	return d.addChild(parent)
}

func (d *Document) addChild(parent Path) (*Document, NodeID, error) {
	pid, ok := d.Resolve(parent)
	if !ok {
		return d, "", fmt.Errorf("add under %s: %w", parent, ErrPathNotFound)
	}
	p := d.nodes[pid]
	kind := p.Kind.Child()
	if kind == "" {
		return d, "", fmt.Errorf("add under %s: questions have no children: %w", parent, ErrPathNotFound)
	}

	nd := d.clone()
	id := NewNodeID()
	child := Node{ID: id, Kind: kind, Parent: pid}
	if kind == KindQuestion {
		child.AnswerType = model.DefaultAnswerType
	}
	nd.nodes[id] = child
	p.Children = appendID(p.Children, id)
	nd.nodes[pid] = p
	return nd, id, nil
}

// DeleteCategory removes category ci with all its descendants.
func (d *Document) DeleteCategory(ci int) (*Document, []NodeID, error) {
	return d.Delete(Path{ci})
}

// DeleteSubCategory removes subcategory [ci, si] with all its descendants.
func (d *Document) DeleteSubCategory(ci, si int) (*Document, []NodeID, error) {
	return d.Delete(Path{ci, si})
}

// DeleteTopic removes topic [ci, si, ti] with all its questions.
func (d *Document) DeleteTopic(ci, si, ti int) (*Document, []NodeID, error) {
	return d.Delete(Path{ci, si, ti})
}

// DeleteQuestion removes question [ci, si, ti, qi].
func (d *Document) DeleteQuestion(ci, si, ti, qi int) (*Document, []NodeID, error) {
	return d.Delete(Path{ci, si, ti, qi})
}

// Delete removes the node at p and every descendant in one step. It returns
// the ids that no longer exist.
func (d *Document) Delete(p Path) (*Document, []NodeID, error) {
	id, ok := d.Resolve(p)
	if !ok {
		return d, nil, fmt.Errorf("delete %s: %w", p, ErrPathNotFound)
	}
	nd := d.clone()
	removed := nd.removeSubtree(id)

	n := d.nodes[id]
	if n.Parent == "" {
		nd.roots = removeID(d.roots, id)
	} else {
		parent := nd.nodes[n.Parent]
		parent.Children = removeID(parent.Children, id)
		nd.nodes[n.Parent] = parent
	}
	return nd, removed, nil
}

// removeSubtree drops id and its descendants from the arena of a freshly
// cloned document.
func (d *Document) removeSubtree(id NodeID) []NodeID {
	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	removed := []NodeID{id}
	for _, child := range n.Children {
		removed = append(removed, d.removeSubtree(child)...)
	}
	delete(d.nodes, id)
	return removed
}

// Rename sets the name (or question text) of the node at p. Renaming a
// category to the name of another top-level category fails with
// ErrDuplicateCategoryName and leaves the document unchanged.
func (d *Document) Rename(p Path, name string) (*Document, error) {
	id, ok := d.Resolve(p)
	if !ok {
		return d, fmt.Errorf("rename %s: %w", p, ErrPathNotFound)
	}
	n := d.nodes[id]
	if n.Kind == KindCategory && d.categoryNameTaken(name, id) {
		return d, ErrDuplicateCategoryName
	}
	nd := d.clone()
	n.Name = name
	nd.nodes[id] = n
	return nd, nil
}

func (d *Document) categoryNameTaken(name string, except NodeID) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, id := range d.roots {
		if id == except {
			continue
		}
		if strings.TrimSpace(d.nodes[id].Name) == name {
			return true
		}
	}
	return false
}

// SetAnswerType changes the answer type of the question at p.
func (d *Document) SetAnswerType(p Path, at model.AnswerType) (*Document, error) {
	id, ok := d.Resolve(p)
	if !ok {
		return d, fmt.Errorf("set answer type %s: %w", p, ErrPathNotFound)
	}
	n := d.nodes[id]
	if n.Kind != KindQuestion {
		return d, fmt.Errorf("set answer type %s: %w", p, ErrNotQuestion)
	}
	if !at.IsValid() {
		return d, fmt.Errorf("set answer type %s: invalid answer type %q", p, at)
	}
	nd := d.clone()
	n.AnswerType = at
	if at != model.AnswerMultipleChoice {
		n.Options = nil
	}
	nd.nodes[id] = n
	return nd, nil
}

// SetOptions replaces the choices of a multiple-choice question at p.
func (d *Document) SetOptions(p Path, options []string) (*Document, error) {
	id, ok := d.Resolve(p)
	if !ok {
		return d, fmt.Errorf("set options %s: %w", p, ErrPathNotFound)
	}
	n := d.nodes[id]
	if n.Kind != KindQuestion {
		return d, fmt.Errorf("set options %s: %w", p, ErrNotQuestion)
	}
	nd := d.clone()
	n.Options = append([]string(nil), options...)
	nd.nodes[id] = n
	return nd, nil
}

// DuplicateCategoryNames lists category names used more than once.
func (d *Document) DuplicateCategoryNames() []string {
	q := d.ToQuestionnaire()
	return q.DuplicateCategoryNames()
}

// FromQuestionnaire builds a document from a wire questionnaire, assigning
// fresh node ids.
func FromQuestionnaire(q model.Questionnaire) *Document {
	d := NewDocument(q.Title)
	d.description = q.Description
	d.templateID = q.ID

	add := func(parent NodeID, n Node) NodeID {
		n.ID = NewNodeID()
		n.Parent = parent
		d.nodes[n.ID] = n
		if parent == "" {
			d.roots = append(d.roots, n.ID)
		} else {
			p := d.nodes[parent]
			p.Children = append(p.Children, n.ID)
			d.nodes[parent] = p
		}
		return n.ID
	}

	for _, c := range q.Categories {
		cid := add("", Node{Kind: KindCategory, Name: c.Name})
		for _, s := range c.SubCategories {
			sid := add(cid, Node{Kind: KindSubCategory, Name: s.Name})
			for _, t := range s.Topics {
				tid := add(sid, Node{Kind: KindTopic, Name: t.Name})
				for _, question := range t.Questions {
					at := question.AnswerType
					if at == "" {
						at = model.DefaultAnswerType
					}
					add(tid, Node{
						Kind:       KindQuestion,
						Name:       question.Text,
						AnswerType: at,
						Options:    append([]string(nil), question.Options...),
					})
				}
			}
		}
	}
	return d
}

// ToQuestionnaire serializes the document into its wire form.
func (d *Document) ToQuestionnaire() model.Questionnaire {
	q := model.Questionnaire{
		ID:          d.templateID,
		Title:       d.title,
		Description: d.description,
		Categories:  make([]model.Category, 0, len(d.roots)),
	}
	for _, cid := range d.roots {
		c := d.nodes[cid]
		cat := model.Category{Name: c.Name, SubCategories: make([]model.SubCategory, 0, len(c.Children))}
		for _, sid := range c.Children {
			s := d.nodes[sid]
			sub := model.SubCategory{Name: s.Name, Topics: make([]model.Topic, 0, len(s.Children))}
			for _, tid := range s.Children {
				t := d.nodes[tid]
				topic := model.Topic{Name: t.Name, Questions: make([]model.Question, 0, len(t.Children))}
				for _, qid := range t.Children {
					qn := d.nodes[qid]
					topic.Questions = append(topic.Questions, model.Question{
						Text:       qn.Name,
						AnswerType: qn.AnswerType,
						Options:    append([]string(nil), qn.Options...),
					})
				}
				sub.Topics = append(sub.Topics, topic)
			}
			cat.SubCategories = append(cat.SubCategories, sub)
		}
		q.Categories = append(q.Categories, cat)
	}
	return q
}

// appendID appends without aliasing the backing array of ids.
func appendID(ids []NodeID, id NodeID) []NodeID {
	out := make([]NodeID, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, id)
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	out := make([]NodeID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func indexOf(ids []NodeID, id NodeID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
