package chunkstore

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/sehxxnee/botbuilder/pkg/postgres"
)

// PostgresStore persists chunks in the kb_chunks table with a pgvector
// embedding column.
type PostgresStore struct {
	client *postgres.Client
}

var _ Store = (*PostgresStore)(nil)

func NewPostgres(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

// Re-ingesting a file rewrites every chunk field except created_at, so the
// chunk keeps its original insertion time for retrieval tie-breaks.
const putChunkQuery = `
	INSERT INTO kb_chunks (id, bot_id, datasource_id, content, source_file_key, embedding, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		bot_id = EXCLUDED.bot_id,
		datasource_id = EXCLUDED.datasource_id,
		content = EXCLUDED.content,
		source_file_key = EXCLUDED.source_file_key,
		embedding = EXCLUDED.embedding`

func (s *PostgresStore) Put(ctx context.Context, chunk TextChunk) error {
	_, err := s.client.DB.ExecContext(ctx, putChunkQuery,
		chunk.ID,
		chunk.BotID,
		chunk.DatasourceID,
		chunk.Content,
		chunk.SourceFileKey,
		pgvector.NewVector(chunk.Embedding),
		chunk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting chunk %s: %w", chunk.ID, err)
	}
	return nil
}

const listByBotQuery = `
	SELECT id, bot_id, datasource_id, content, source_file_key, embedding, created_at
	FROM kb_chunks
	WHERE bot_id = $1
	ORDER BY created_at ASC, id ASC`

func (s *PostgresStore) ListByBot(ctx context.Context, botID string) ([]TextChunk, error) {
	rows, err := s.client.DB.QueryContext(ctx, listByBotQuery, botID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks for bot %s: %w", botID, err)
	}
	defer rows.Close()

	var chunks []TextChunk
	for rows.Next() {
		var c TextChunk
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.BotID, &c.DatasourceID, &c.Content, &c.SourceFileKey, &vec, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		c.Embedding = vec.Slice()
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}
	return chunks, nil
}
