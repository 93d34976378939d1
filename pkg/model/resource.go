package model

// TotalCores 一次完整轮询 (sweep) 的总容量
func TotalCores(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		if n.Cores > 0 {
			total += n.Cores
		}
	}
	return total
}

// Fits 判断 chunk 是否超出节点声明的核数
func (n *Node) Fits(items int) bool {
	return items <= n.Cores
}
