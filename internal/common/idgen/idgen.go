// Package idgen issues time-ordered snowflake ids for transcript turns.
package idgen

import (
	"hash/fnv"
	"os"
	"sync"

	bwsnowflake "github.com/bwmarrin/snowflake"
)

// Generator wraps a snowflake node. Safe for concurrent use.
type Generator struct {
	node *bwsnowflake.Node
}

// New builds a generator for node id (0-1023; higher bits are masked off).
func New(nodeID int64) (*Generator, error) {
	node, err := bwsnowflake.NewNode(nodeID & 0x3FF)
	if err != nil {
		return nil, err
	}
	return &Generator{node: node}, nil
}

func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}

var (
	once     sync.Once
	fallback *Generator
)

// Default returns a process-wide generator whose node id is derived from the hostname.
func Default() *Generator {
	once.Do(func() {
		host, _ := os.Hostname()
		h := fnv.New32a()
		_, _ = h.Write([]byte(host))
		g, err := New(int64(h.Sum32()))
		if err != nil {
			g, _ = New(1)
		}
		fallback = g
	})
	return fallback
}
