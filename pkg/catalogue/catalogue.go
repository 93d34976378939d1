// Package catalogue 读取条目目录 (category -> item -> tags) 并按选择条件生成工作列表
package catalogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrCatalogueNotFound = errors.New("catalogue file not found")
	ErrInvalidCatalogue  = errors.New("invalid catalogue")
	ErrNothingSelected   = errors.New("nothing selected")
)

// Catalogue category -> item id -> tags
type Catalogue map[string]map[string][]string

// Load 读取 JSON 或 YAML (.yaml/.yml) 目录文件。
// 文件缺失或结构不合法都返回错误，不会 panic
func Load(path string) (Catalogue, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path given", ErrCatalogueNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogueNotFound, path)
		}
		return nil, fmt.Errorf("read catalogue %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON 解析 JSON 目录
func ParseJSON(data []byte) (Catalogue, error) {
	var cat Catalogue
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalogue, err)
	}
	return cat.check()
}

// ParseYAML 解析 YAML 目录
func ParseYAML(data []byte) (Catalogue, error) {
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalogue, err)
	}
	return cat.check()
}

func (c Catalogue) check() (Catalogue, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidCatalogue)
	}
	return c, nil
}

// Categories 返回排序后的分类名
func (c Catalogue) Categories() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 条目总数 (跨分类可能重复)
func (c Catalogue) Len() int {
	n := 0
	for _, items := range c {
		n += len(items)
	}
	return n
}
