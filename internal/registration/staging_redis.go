package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
)

// RedisStaging is the production StagingStore. Each slice lives under its own
// key (registration:{id}:{suffix}) with the shared 24h TTL; slices may be
// written independently and in any order. The conversation flow is the only
// writer per identifier, so read-merge-write on the documents map is safe.
type RedisStaging struct {
	client *redis.Client
}

func NewRedisStaging(client *redis.Client) *RedisStaging {
	return &RedisStaging{client: client}
}

func stagingKey(telegramID int64, suffix string) string {
	return fmt.Sprintf("registration:%d:%s", telegramID, suffix)
}

func (s *RedisStaging) SetLanguage(ctx context.Context, telegramID int64, language string) error {
	if err := s.client.Set(ctx, stagingKey(telegramID, "language"), language, StagingTTL).Err(); err != nil {
		return fmt.Errorf("stage language: %w", err)
	}
	return nil
}

func (s *RedisStaging) SetPersonalData(ctx context.Context, telegramID int64, data PersonalData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal personal data: %w", err)
	}
	if err := s.client.Set(ctx, stagingKey(telegramID, "data"), payload, StagingTTL).Err(); err != nil {
		return fmt.Errorf("stage personal data: %w", err)
	}
	return nil
}

func (s *RedisStaging) SetDocumentRef(ctx context.Context, telegramID int64, docType domain.DocumentType, ref string) error {
	docs, err := s.documents(ctx, telegramID)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = make(map[domain.DocumentType]string)
	}
	docs[docType] = ref

	payload, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	if err := s.client.Set(ctx, stagingKey(telegramID, "documents"), payload, StagingTTL).Err(); err != nil {
		return fmt.Errorf("stage document ref: %w", err)
	}
	return nil
}

func (s *RedisStaging) Get(ctx context.Context, telegramID int64) (*StagedRegistration, error) {
	staged := &StagedRegistration{}
	found := false

	lang, err := s.client.Get(ctx, stagingKey(telegramID, "language")).Result()
	switch {
	case err == nil:
		staged.Language = lang
		found = true
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get staged language: %w", err)
	}

	raw, err := s.client.Get(ctx, stagingKey(telegramID, "data")).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &staged.Personal); err != nil {
			return nil, fmt.Errorf("unmarshal personal data: %w", err)
		}
		found = true
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get staged personal data: %w", err)
	}

	docs, err := s.documents(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if docs != nil {
		staged.Documents = docs
		found = true
	} else {
		staged.Documents = make(map[domain.DocumentType]string)
	}

	if !found {
		return nil, sentinel.ErrNotFound
	}
	return staged, nil
}

func (s *RedisStaging) IsComplete(ctx context.Context, telegramID int64) (bool, error) {
	staged, err := s.Get(ctx, telegramID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return staged.IsComplete(), nil
}

func (s *RedisStaging) MissingFields(ctx context.Context, telegramID int64) ([]string, error) {
	staged, err := s.Get(ctx, telegramID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return (&StagedRegistration{}).MissingFields(), nil
	}
	if err != nil {
		return nil, err
	}
	return staged.MissingFields(), nil
}

func (s *RedisStaging) SetState(ctx context.Context, telegramID int64, state FlowState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal flow state: %w", err)
	}
	if err := s.client.Set(ctx, stagingKey(telegramID, "state"), payload, StagingTTL).Err(); err != nil {
		return fmt.Errorf("stage flow state: %w", err)
	}
	return nil
}

func (s *RedisStaging) State(ctx context.Context, telegramID int64) (FlowState, error) {
	raw, err := s.client.Get(ctx, stagingKey(telegramID, "state")).Bytes()
	if errors.Is(err, redis.Nil) {
		return FlowState{}, nil
	}
	if err != nil {
		return FlowState{}, fmt.Errorf("get flow state: %w", err)
	}
	var state FlowState
	if err := json.Unmarshal(raw, &state); err != nil {
		return FlowState{}, fmt.Errorf("unmarshal flow state: %w", err)
	}
	return state, nil
}

func (s *RedisStaging) Clear(ctx context.Context, telegramID int64) error {
	keys := []string{
		stagingKey(telegramID, "language"),
		stagingKey(telegramID, "data"),
		stagingKey(telegramID, "documents"),
		stagingKey(telegramID, "state"),
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	return nil
}

func (s *RedisStaging) ExtendTTL(ctx context.Context, telegramID int64) error {
	suffixes := []string{"language", "data", "documents", "state"}
	pipe := s.client.Pipeline()
	for _, suffix := range suffixes {
		pipe.Expire(ctx, stagingKey(telegramID, suffix), StagingTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("extend staging ttl: %w", err)
	}
	return nil
}

func (s *RedisStaging) documents(ctx context.Context, telegramID int64) (map[domain.DocumentType]string, error) {
	raw, err := s.client.Get(ctx, stagingKey(telegramID, "documents")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get staged documents: %w", err)
	}
	docs := make(map[domain.DocumentType]string)
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	return docs, nil
}
