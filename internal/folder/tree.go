package folder

import "sort"

// Node is one entry of an assembled folder tree.
type Node struct {
	Folder
	Children []*Node
}

// BuildTree assembles a forest from a flat folder list. Nodes are linked
// through an id-indexed arena rather than by recursive descent, so
// pathologically deep trees cannot overflow the stack. A folder whose
// parent is not in the input (filtered out or a root) becomes a root of
// the forest. Siblings are ordered by name.
func BuildTree(folders []Folder) []*Node {
	arena := make(map[int64]*Node, len(folders))
	for i := range folders {
		arena[folders[i].ID] = &Node{Folder: folders[i]}
	}

	var roots []*Node
	for _, n := range arena {
		if n.ParentFolderID != nil {
			if parent, ok := arena[*n.ParentFolderID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortNodes(roots)
	// Worklist walk to order every sibling list.
	stack := append([]*Node(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sortNodes(n.Children)
		stack = append(stack, n.Children...)
	}
	return roots
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
}
