package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchfleet/pkg/model"
)

func testNodes(cores ...int) []*model.Node {
	nodes := make([]*model.Node, 0, len(cores))
	for i, c := range cores {
		nodes = append(nodes, &model.Node{
			Address:  fmt.Sprintf("10.0.0.%d", i+1),
			User:     "render",
			Platform: model.PlatformPosix,
			Cores:    c,
		})
	}
	return nodes
}

func testItems(n int) []string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf("item%02d.obj", i))
	}
	return items
}

// chunkView 便于断言: 节点地址 -> 条目
type chunkView struct {
	Node  string
	Items []string
}

func view(chunks []Chunk) []chunkView {
	out := make([]chunkView, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, chunkView{Node: c.Node.Address, Items: c.Items})
	}
	return out
}

func TestPartitionSingleItemGoesToFirstNode(t *testing.T) {
	chunks := Partition([]string{"c.obj"}, testNodes(1, 2), StrategySweep)
	assert.Equal(t, []chunkView{{Node: "10.0.0.1", Items: []string{"c.obj"}}}, view(chunks))
}

func TestPartitionSweep(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f"}
	chunks := Partition(items, testNodes(2, 3), StrategySweep)

	assert.Equal(t, []chunkView{
		{Node: "10.0.0.1", Items: []string{"a", "b"}},
		{Node: "10.0.0.2", Items: []string{"c", "d", "e"}},
		{Node: "10.0.0.1", Items: []string{"f"}},
	}, view(chunks))
}

func TestPartitionSweepExactFit(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	chunks := Partition(items, testNodes(2, 3), StrategySweep)

	assert.Equal(t, []chunkView{
		{Node: "10.0.0.1", Items: []string{"a", "b"}},
		{Node: "10.0.0.2", Items: []string{"c", "d", "e"}},
	}, view(chunks))
}

func TestPartitionSweepMultipleRounds(t *testing.T) {
	chunks := Partition(testItems(10), testNodes(1, 2), StrategySweep)

	// 3 + 3 + 3 + 1
	require.Len(t, chunks, 7)
	counts := map[string]int{}
	for _, c := range chunks {
		counts[c.Node.Address] += len(c.Items)
	}
	assert.Equal(t, 4, counts["10.0.0.1"])
	assert.Equal(t, 6, counts["10.0.0.2"])
}

func TestPartitionBalancedSplitsRemainder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g"}
	chunks := Partition(items, testNodes(2, 3), StrategyBalanced)

	assert.Equal(t, []chunkView{
		{Node: "10.0.0.1", Items: []string{"a", "b"}},
		{Node: "10.0.0.2", Items: []string{"c", "d", "e"}},
		{Node: "10.0.0.1", Items: []string{"f"}},
		{Node: "10.0.0.2", Items: []string{"g"}},
	}, view(chunks))
}

func TestPartitionBalancedFewItems(t *testing.T) {
	chunks := Partition([]string{"a", "b"}, testNodes(4, 4), StrategyBalanced)

	assert.Equal(t, []chunkView{
		{Node: "10.0.0.1", Items: []string{"a"}},
		{Node: "10.0.0.2", Items: []string{"b"}},
	}, view(chunks))
}

func TestPartitionSkipsZeroCoreNodes(t *testing.T) {
	for _, strategy := range []Strategy{StrategySweep, StrategyBalanced} {
		t.Run(string(strategy), func(t *testing.T) {
			chunks := Partition(testItems(3), testNodes(0, 2), strategy)
			for _, c := range chunks {
				assert.Equal(t, "10.0.0.2", c.Node.Address)
			}
			assert.Len(t, chunks, 2)
		})
	}
}

func TestPartitionEmpty(t *testing.T) {
	assert.Nil(t, Partition(nil, testNodes(2), StrategySweep))
	assert.Nil(t, Partition(testItems(3), nil, StrategySweep))
	assert.Nil(t, Partition(testItems(3), testNodes(0, 0), StrategyBalanced))
}
