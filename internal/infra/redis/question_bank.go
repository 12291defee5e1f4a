package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionBank caches bank lookups in Redis as JSON values and falls back to
// an inner bank on miss. Entries expire by jittered TTL only; the bank is
// append-mostly, so no invalidation is needed within a process lifetime.
type QuestionBank struct {
	client *redis.Client
	inner  app.QuestionBank
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(client *redis.Client, inner app.QuestionBank, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) GetTopic(ctx context.Context, topicID string) (domain.Topic, error) {
	var topic domain.Topic
	err := b.cached(ctx, "bank:topic:"+topicID, &topic, func() (interface{}, error) {
		return b.inner.GetTopic(ctx, topicID)
	})
	return topic, err
}

func (b *QuestionBank) FindSet(ctx context.Context, topicID string, difficulty domain.DifficultyLevel) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	key := fmt.Sprintf("bank:set:%s:%d", topicID, difficulty)
	err := b.cached(ctx, key, &set, func() (interface{}, error) {
		return b.inner.FindSet(ctx, topicID, difficulty)
	})
	return set, err
}

func (b *QuestionBank) FindAnySet(ctx context.Context, topicID string) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	err := b.cached(ctx, "bank:any:"+topicID, &set, func() (interface{}, error) {
		return b.inner.FindAnySet(ctx, topicID)
	})
	return set, err
}

func (b *QuestionBank) ListQuestions(ctx context.Context, setID string) ([]domain.Question, error) {
	var questions []domain.Question
	err := b.cached(ctx, "bank:questions:"+setID, &questions, func() (interface{}, error) {
		return b.inner.ListQuestions(ctx, setID)
	})
	return questions, err
}

// cached reads key into out, loading through the inner bank on miss. Redis
// errors degrade to a load rather than failing the lookup.
func (b *QuestionBank) cached(ctx context.Context, key string, out interface{}, load func() (interface{}, error)) error {
	raw, err := b.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(raw, out)
	}

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if raw, err := b.client.Get(ctx, key).Bytes(); err == nil {
			return raw, nil
		}

		value, err := load()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal bank entry: %w", err)
		}
		// best-effort write; a failed cache fill is not a lookup failure
		_ = b.client.Set(ctx, key, data, b.ttlWithJitter()).Err()
		return json.RawMessage(data), nil
	})
	if err != nil {
		return err
	}

	switch v := result.(type) {
	case []byte:
		return json.Unmarshal(v, out)
	case json.RawMessage:
		return json.Unmarshal(v, out)
	default:
		return fmt.Errorf("unexpected cache payload %T", result)
	}
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
