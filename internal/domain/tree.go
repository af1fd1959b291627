package domain

// TreeNode is one browsable category of the QIS catalog. A node owns its
// children outright; the tree never contains two nodes with the same
// RootPath. The URL is derived from RootPath and is deliberately excluded
// from the serialized form.
type TreeNode struct {
	Name               string      `json:"name"`
	RootPath           string      `json:"root_path"`
	URL                string      `json:"-"`
	HasVeranstaltungen bool        `json:"has_veranstaltungen"`
	Children           []*TreeNode `json:"children"`
}

// AreaRef is a top-level area stub returned by the quick first-level scan.
type AreaRef struct {
	Name     string `json:"name"`
	RootPath string `json:"root_path"`
}

// CountNodes returns the total number of nodes in the forest.
func CountNodes(nodes []*TreeNode) int {
	count := len(nodes)
	for _, n := range nodes {
		count += CountNodes(n.Children)
	}
	return count
}

// RebuildURLs regenerates every node's URL from its RootPath. Used after
// deserializing a tree, where URLs are not persisted.
func RebuildURLs(nodes []*TreeNode, urlFor func(rootPath string) string) {
	for _, n := range nodes {
		n.URL = urlFor(n.RootPath)
		RebuildURLs(n.Children, urlFor)
	}
}

// EventBearingPaths collects the RootPath of every node whose own page lists
// events, in depth-first order.
func EventBearingPaths(nodes []*TreeNode) []string {
	var paths []string
	for _, n := range nodes {
		if n.HasVeranstaltungen {
			paths = append(paths, n.RootPath)
		}
		paths = append(paths, EventBearingPaths(n.Children)...)
	}
	return paths
}
