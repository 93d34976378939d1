// Package config 提供 batchfleet 的配置管理。
// 支持从 YAML 文件与环境变量 (BF_ 前缀) 加载，
// 优先级为：默认值 < YAML 文件 < 环境变量 < 命令行参数。
package config
