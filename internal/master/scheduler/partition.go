package scheduler

import (
	"sort"

	"batchfleet/pkg/model"
)

// Strategy 分区策略
type Strategy string

const (
	// StrategySweep 按声明顺序轮询节点，每个节点取 cores 个条目；
	// 游标总是前进 cores，即使剩余条目不足
	StrategySweep Strategy = "sweep"

	// StrategyBalanced 完整轮次与 sweep 相同；
	// 最后不足一轮的剩余条目按核数比例分给所有节点
	StrategyBalanced Strategy = "balanced"
)

// Chunk 分配给单个节点的一段连续条目
type Chunk struct {
	Node  *model.Node
	Items []string
}

// Partition 把有序条目切分给就绪节点。
// 结果是条目的不相交覆盖，每个 chunk 不超过节点核数，相同输入结果完全相同
func Partition(items []string, nodes []*model.Node, strategy Strategy) []Chunk {
	if len(items) == 0 || model.TotalCores(nodes) == 0 {
		return nil
	}
	if strategy == StrategyBalanced {
		return balanced(items, nodes)
	}
	return sweep(items, nodes)
}

func sweep(items []string, nodes []*model.Node) []Chunk {
	chunks := make([]Chunk, 0)
	n := len(items)
	i := 0
	for i < n {
		for _, node := range nodes {
			if node.Cores <= 0 {
				continue
			}
			if i < n {
				end := min(i+node.Cores, n)
				chunks = append(chunks, Chunk{Node: node, Items: items[i:end]})
			}
			// 与剩余条目数无关，游标前进声明的核数
			i += node.Cores
		}
	}
	return chunks
}

func balanced(items []string, nodes []*model.Node) []Chunk {
	chunks := make([]Chunk, 0)
	n := len(items)
	total := model.TotalCores(nodes)
	i := 0

	// 1. 完整轮次
	for n-i >= total {
		for _, node := range nodes {
			if node.Cores <= 0 {
				continue
			}
			chunks = append(chunks, Chunk{Node: node, Items: items[i : i+node.Cores]})
			i += node.Cores
		}
	}

	remaining := n - i
	if remaining == 0 {
		return chunks
	}

	// 2. 剩余条目按核数比例分配 (最大余数法)，quota 不会超过 cores
	type share struct {
		idx   int
		quota int
		rem   int
	}
	shares := make([]share, 0, len(nodes))
	assigned := 0
	for idx, node := range nodes {
		if node.Cores <= 0 {
			continue
		}
		q := remaining * node.Cores / total
		shares = append(shares, share{idx: idx, quota: q, rem: remaining * node.Cores % total})
		assigned += q
	}

	order := make([]int, len(shares))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shares[order[a]].rem > shares[order[b]].rem
	})
	for k := 0; assigned < remaining; k++ {
		shares[order[k%len(order)]].quota++
		assigned++
	}

	for _, s := range shares {
		if s.quota == 0 {
			continue
		}
		chunks = append(chunks, Chunk{Node: nodes[s.idx], Items: items[i : i+s.quota]})
		i += s.quota
	}
	return chunks
}
