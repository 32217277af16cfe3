// Package tokens 从本地 token 注册文件加载订阅集合。
// 注册文件为 JSON 数组，每项至少包含 token_id，
// 可附带 outcome、market_slug 等任意属性用于过滤。
package tokens

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load 加载注册文件并返回满足过滤条件的 token 标识列表
// 参数 path: 注册文件路径
// 参数 filters: 属性等值过滤条件，如 {"outcome": "Yes"}；为空表示不过滤
// 返回: token 标识列表，保持文件中的出现顺序
func Load(path string, filters map[string]string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 token 注册文件失败: %w", err)
	}

	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("解析 token 注册文件失败: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !matches(entry, filters) {
			continue
		}
		id, ok := entry["token_id"].(string)
		if !ok || id == "" {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// matches 检查条目是否满足所有过滤条件（字符串等值比较）
func matches(entry map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := entry[key].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}
