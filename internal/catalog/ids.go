package catalog

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	IDStrategyUUID      = "uuid"
	IDStrategySnowflake = "snowflake"
)

type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// SnowflakeGenerator yields time-ordered ids that stay unique when many
// products are created within the same millisecond.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

func NewSnowflakeGenerator(node int64) (*SnowflakeGenerator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &SnowflakeGenerator{node: n}, nil
}

func (g *SnowflakeGenerator) NewID() string { return g.node.Generate().String() }

func NewIDGenerator(strategy string, node int64) (IDGenerator, error) {
	switch strategy {
	case IDStrategyUUID, "":
		return UUIDGenerator{}, nil
	case IDStrategySnowflake:
		return NewSnowflakeGenerator(node)
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
}
