// Package bots exposes the minimal bot registry view the ingestion and
// retrieval paths need: existence checks against the primary database.
package bots

import "context"

// Store answers whether a bot id is known.
type Store interface {
	Exists(ctx context.Context, botID string) (bool, error)
}
