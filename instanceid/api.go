package instanceid

import (
	"context"
)

// TopicManager defines the interface for Instance ID topic operations
type TopicManager interface {
	// AddTopic subscribes registration tokens to a topic
	AddTopic(ctx context.Context, tokens []string, topic string) (*RelationshipResult, error)

	// RemoveTopic unsubscribes registration tokens from a topic
	RemoveTopic(ctx context.Context, tokens []string, topic string) (*RelationshipResult, error)

	// GetInfo fetches registration token details, nil when unavailable
	GetInfo(ctx context.Context, token string) (*DeviceInfo, error)
}

// BatchManager handles token lists larger than a single request allows
type BatchManager interface {
	BatchAddTopic(ctx context.Context, tokens []string, topic string) (*BatchResult, error)
	BatchRemoveTopic(ctx context.Context, tokens []string, topic string) (*BatchResult, error)
}

var (
	_ TopicManager = (*Client)(nil)
	_ BatchManager = (*Client)(nil)
)
