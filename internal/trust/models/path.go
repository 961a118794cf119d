package models

import "slices"

// TrustPath is the ordered provider sequence from the hub to a target provider.
type TrustPath struct {
	Providers []string
}

// HopCount is the number of edges on the path.
func (p TrustPath) HopCount() int {
	if len(p.Providers) == 0 {
		return 0
	}
	return len(p.Providers) - 1
}

// Target is the last provider on the path.
func (p TrustPath) Target() string {
	if len(p.Providers) == 0 {
		return ""
	}
	return p.Providers[len(p.Providers)-1]
}

// ShortestPath runs a breadth-first search over directed edges from hub to
// target, expanding successors in ascending id order so that among equally short
// paths the one with the lexicographically smallest next hop wins. The search
// never expands beyond maxHops; a target further away is reported as unreachable.
func (n *Network) ShortestPath(hub, target string, maxHops int) (TrustPath, bool) {
	if !n.IsMember(hub) || !n.IsMember(target) || maxHops < 0 {
		return TrustPath{}, false
	}
	if hub == target {
		return TrustPath{Providers: []string{hub}}, true
	}

	parent := map[string]string{hub: ""}
	frontier := []string{hub}
	for depth := 0; depth < maxHops && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			for _, succ := range n.successors[node] {
				if _, seen := parent[succ]; seen {
					continue
				}
				parent[succ] = node
				if succ == target {
					return TrustPath{Providers: walkBack(parent, hub, target)}, true
				}
				next = append(next, succ)
			}
		}
		frontier = next
	}
	return TrustPath{}, false
}

func walkBack(parent map[string]string, hub, target string) []string {
	path := []string{target}
	for node := target; node != hub; {
		node = parent[node]
		path = append(path, node)
	}
	slices.Reverse(path)
	return path
}
