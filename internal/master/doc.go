// Package master 驱动一次完整的批处理运行:
// 探测节点 -> (可选) 更新版本库 -> 选择并分区条目 -> 分发 -> 收集 -> 清理 -> 汇总。
//
// 每个阶段都是一个 barrier batch，单个节点的失败不会阻止后续阶段，
// 所有失败在最后的汇总中列出。
package master
