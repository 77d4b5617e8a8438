// Package idgen 基于雪花算法的单调 ID 生成器
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator 雪花 ID 生成器
// 生成的 ID 按时间单调递增且永不复用，用作仓位 ID
type Generator struct {
	node *snowflake.Node
}

// New 创建生成器，nodeID 区分部署实例
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// NextID 生成下一个 ID
func (g *Generator) NextID() int64 {
	return g.node.Generate().Int64()
}
