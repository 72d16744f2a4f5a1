package diagram

// NextNodeKey mints a fresh node key: one past the current maximum,
// starting at 0, incremented until unused. Minted keys are always
// non-negative.
func NextNodeKey(nodes []Node) int {
	used := make(map[int]bool, len(nodes))
	max := -1
	for _, n := range nodes {
		used[n.Key] = true
		if n.Key > max {
			max = n.Key
		}
	}
	key := max + 1
	for used[key] {
		key++
	}
	return key
}

// NextLinkKey mints a fresh link key: one below the current minimum,
// starting at -1, decremented until unused. Minted keys are always
// negative.
func NextLinkKey(links []Link) int {
	used := make(map[int]bool, len(links))
	min := 0
	for _, l := range links {
		used[l.Key] = true
		if l.Key < min {
			min = l.Key
		}
	}
	key := min - 1
	for used[key] {
		key--
	}
	return key
}
