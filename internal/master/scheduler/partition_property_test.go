package scheduler

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rapid"
)

var strategies = []Strategy{StrategySweep, StrategyBalanced}

// TestPartitionDeterminismProperty 相同输入两次分区结果完全相同，且条目总数不变
func TestPartitionDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("partition is deterministic", prop.ForAll(
		func(itemCount int, cores []int, balanced bool) bool {
			strategy := StrategySweep
			if balanced {
				strategy = StrategyBalanced
			}
			items := testItems(itemCount)
			nodes := testNodes(cores...)

			return reflect.DeepEqual(view(Partition(items, nodes, strategy)), view(Partition(items, nodes, strategy)))
		},
		gen.IntRange(0, 60),
		gen.SliceOfN(4, gen.IntRange(0, 8)),
		gen.Bool(),
	))

	properties.Property("every item is assigned", prop.ForAll(
		func(itemCount int, cores []int, balanced bool) bool {
			strategy := StrategySweep
			if balanced {
				strategy = StrategyBalanced
			}
			nodes := testNodes(cores...)
			chunks := Partition(testItems(itemCount), nodes, strategy)

			total := 0
			for _, c := range chunks {
				total += len(c.Items)
			}
			sum := 0
			for _, c := range cores {
				sum += c
			}
			if sum == 0 {
				return len(chunks) == 0
			}
			return total == itemCount
		},
		gen.IntRange(0, 60),
		gen.SliceOfN(4, gen.IntRange(0, 8)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestProperty_ChunksAreDisjointCover chunk 不超过节点核数，按顺序拼接后恰好是原条目序列
func TestProperty_ChunksAreDisjointCover(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cores := rapid.SliceOfN(rapid.IntRange(1, 16), 1, 6).Draw(t, "cores")
		itemCount := rapid.IntRange(1, 200).Draw(t, "items")
		strategy := rapid.SampledFrom(strategies).Draw(t, "strategy")

		items := testItems(itemCount)
		chunks := Partition(items, testNodes(cores...), strategy)

		joined := make([]string, 0, itemCount)
		for _, c := range chunks {
			if len(c.Items) == 0 {
				t.Fatalf("empty chunk for %s", c.Node.Address)
			}
			if len(c.Items) > c.Node.Cores {
				t.Fatalf("chunk of %d items exceeds %d cores on %s", len(c.Items), c.Node.Cores, c.Node.Address)
			}
			joined = append(joined, c.Items...)
		}
		if !reflect.DeepEqual(joined, items) {
			t.Fatalf("chunks do not cover items in order: got %v want %v", joined, items)
		}
	})
}
