package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionBank is a static in-memory bank (useful for tests and demo mode).
type QuestionBank struct {
	topics    map[string]domain.Topic
	sets      map[string][]domain.QuestionSet // keyed by topic id, insertion order kept
	questions map[string][]domain.Question    // keyed by set id
}

func NewQuestionBank() *QuestionBank {
	return &QuestionBank{
		topics:    make(map[string]domain.Topic),
		sets:      make(map[string][]domain.QuestionSet),
		questions: make(map[string][]domain.Question),
	}
}

// AddTopic registers a topic.
func (b *QuestionBank) AddTopic(topic domain.Topic) {
	b.topics[topic.ID] = topic
}

// AddSet registers a question set and its question pool.
func (b *QuestionBank) AddSet(set domain.QuestionSet, questions []domain.Question) {
	b.sets[set.TopicID] = append(b.sets[set.TopicID], set)
	b.questions[set.ID] = questions
}

func (b *QuestionBank) GetTopic(_ context.Context, topicID string) (domain.Topic, error) {
	if topic, ok := b.topics[topicID]; ok {
		return topic, nil
	}
	return domain.Topic{}, domain.ErrTopicNotFound
}

func (b *QuestionBank) FindSet(_ context.Context, topicID string, difficulty domain.DifficultyLevel) (domain.QuestionSet, error) {
	for _, set := range b.sets[topicID] {
		if set.Difficulty == difficulty {
			return set, nil
		}
	}
	return domain.QuestionSet{}, domain.ErrNoQuestionSets
}

func (b *QuestionBank) FindAnySet(_ context.Context, topicID string) (domain.QuestionSet, error) {
	if sets := b.sets[topicID]; len(sets) > 0 {
		return sets[0], nil
	}
	return domain.QuestionSet{}, domain.ErrNoQuestionSets
}

func (b *QuestionBank) ListQuestions(_ context.Context, setID string) ([]domain.Question, error) {
	questions, ok := b.questions[setID]
	if !ok {
		return nil, domain.ErrNoQuestionSets
	}
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out, nil
}

// CachedBank is a read-through memoization layer over another bank. The bank
// is append-mostly and slow-changing, so entries only expire by TTL; there is
// no invalidation.
type CachedBank struct {
	inner app.QuestionBank
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

func NewCachedBank(inner app.QuestionBank, ttl time.Duration) *CachedBank {
	return &CachedBank{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cacheEntry),
	}
}

func (c *CachedBank) GetTopic(ctx context.Context, topicID string) (domain.Topic, error) {
	v, err := c.lookup(ctx, "topic:"+topicID, func() (interface{}, error) {
		return c.inner.GetTopic(ctx, topicID)
	})
	if err != nil {
		return domain.Topic{}, err
	}
	return v.(domain.Topic), nil
}

func (c *CachedBank) FindSet(ctx context.Context, topicID string, difficulty domain.DifficultyLevel) (domain.QuestionSet, error) {
	v, err := c.lookup(ctx, "set:"+topicID+":"+difficulty.String(), func() (interface{}, error) {
		return c.inner.FindSet(ctx, topicID, difficulty)
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return v.(domain.QuestionSet), nil
}

func (c *CachedBank) FindAnySet(ctx context.Context, topicID string) (domain.QuestionSet, error) {
	v, err := c.lookup(ctx, "any:"+topicID, func() (interface{}, error) {
		return c.inner.FindAnySet(ctx, topicID)
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return v.(domain.QuestionSet), nil
}

func (c *CachedBank) ListQuestions(ctx context.Context, setID string) ([]domain.Question, error) {
	v, err := c.lookup(ctx, "questions:"+setID, func() (interface{}, error) {
		return c.inner.ListQuestions(ctx, setID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Question), nil
}

func (c *CachedBank) lookup(_ context.Context, key string, load func() (interface{}, error)) (interface{}, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.value, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.value, nil
		}
		c.mu.RUnlock()

		value, err := load()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cacheEntry{value: value, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *CachedBank) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
