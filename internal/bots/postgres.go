package bots

import (
	"context"
	"fmt"

	"github.com/sehxxnee/botbuilder/pkg/postgres"
)

type PostgresStore struct {
	client *postgres.Client
}

var _ Store = (*PostgresStore)(nil)

func NewPostgres(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) Exists(ctx context.Context, botID string) (bool, error) {
	var exists bool
	err := s.client.DB.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM bots WHERE id = $1)", botID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking bot %s: %w", botID, err)
	}
	return exists, nil
}
