package instanceid

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	// MaxBatchSize is the most registration tokens the service accepts per request
	MaxBatchSize = 1000
	// DefaultConcurrency is the number of batch requests in flight at once
	DefaultConcurrency = 4
)

// BatchAddTopic subscribes any number of tokens to topic, splitting them into
// requests of at most the configured batch size
func (c *Client) BatchAddTopic(ctx context.Context, tokens []string, topic string) (*BatchResult, error) {
	return c.batchRelationship(ctx, tokens, topic, ActionAdd)
}

// BatchRemoveTopic unsubscribes any number of tokens from topic, splitting them
// into requests of at most the configured batch size
func (c *Client) BatchRemoveTopic(ctx context.Context, tokens []string, topic string) (*BatchResult, error) {
	return c.batchRelationship(ctx, tokens, topic, ActionRemove)
}

func (c *Client) batchRelationship(ctx context.Context, tokens []string, topic string, action Action) (*BatchResult, error) {
	result := &BatchResult{
		Errors: []RelationshipError{},
	}
	if len(tokens) == 0 {
		return result, nil
	}

	chunks := chunkTokens(tokens, c.batchSize)
	results := make([]*RelationshipResult, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := c.manageRelationship(ctx, chunk, topic, action)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			// Each goroutine owns its slot
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	offset := 0
	for i, res := range results {
		result.Chunks = append(result.Chunks, res)
		if !res.OK() {
			result.Failed = append(result.Failed, ChunkFailure{
				Offset:     offset,
				Tokens:     chunks[i],
				StatusCode: res.StatusCode,
			})
			c.logger.Warn().
				Str("action", string(action)).
				Str("topic", topic).
				Int("offset", offset).
				Int("tokens", len(chunks[i])).
				Int("status", res.StatusCode).
				Msg("Batch chunk rejected")
		}
		result.Errors = append(result.Errors, res.Errors...)
		offset += len(chunks[i])
	}

	c.logger.Debug().
		Str("action", string(action)).
		Str("topic", topic).
		Int("tokens", len(tokens)).
		Int("chunks", len(chunks)).
		Int("failed_chunks", len(result.Failed)).
		Int("errors", len(result.Errors)).
		Msg("Batch completed")

	return result, nil
}

// chunkTokens splits tokens into consecutive slices of at most size elements
func chunkTokens(tokens []string, size int) [][]string {
	if size < 1 {
		size = MaxBatchSize
	}
	chunks := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}
