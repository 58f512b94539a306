package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"surveyor/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TranslationCache keeps resolved answer translations in Redis. A nil
// *TranslationCache is valid and caches nothing. Redis failures are logged
// and reported as misses.
type TranslationCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewTranslationCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TranslationCache {
	return &TranslationCache{
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

// Entries, index sets and generation counters live in disjoint key spaces
// so no locale can name an index or a counter.
func answerTranslationKey(answerID uint, locale string) string {
	return fmt.Sprintf("translation:answer:%d:%s", answerID, locale)
}

func answerIndexKey(answerID uint) string {
	return fmt.Sprintf("translation:index:answer:%d", answerID)
}

func surveyIndexKey(surveyID uint) string {
	return fmt.Sprintf("translation:index:survey:%d", surveyID)
}

func answerGenerationKey(answerID uint) string {
	return fmt.Sprintf("translation:generation:answer:%d", answerID)
}

func surveyGenerationKey(surveyID uint) string {
	return fmt.Sprintf("translation:generation:survey:%d", surveyID)
}

var errStaleGeneration = errors.New("translation cache generation changed")

// Generation is a snapshot of the invalidation counters of an answer and
// its survey. A fill carrying a snapshot taken before an invalidation is
// discarded.
type Generation struct {
	answer int64
	survey int64
	ok     bool
}

type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readGeneration(ctx context.Context, r multiGetter, surveyID, answerID uint) (Generation, error) {
	vals, err := r.MGet(ctx, answerGenerationKey(answerID), surveyGenerationKey(surveyID)).Result()
	if err != nil {
		return Generation{}, err
	}

	var counters [2]int64
	for i, v := range vals {
		str, isString := v.(string)
		if !isString {
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return Generation{}, fmt.Errorf("generation counter %d: %w", i, err)
		}
		counters[i] = n
	}
	return Generation{answer: counters[0], survey: counters[1], ok: true}, nil
}

// Generation must be taken before the data to be cached is read.
func (c *TranslationCache) Generation(ctx context.Context, surveyID, answerID uint) Generation {
	if c == nil {
		return Generation{}
	}
	gen, err := readGeneration(ctx, c.redis, surveyID, answerID)
	if err != nil {
		c.logger.Warn("translation cache generation read failed", zap.Uint("answer_id", answerID), zap.Error(err))
		return Generation{}
	}
	return gen
}

func (c *TranslationCache) GetAnswer(ctx context.Context, answerID uint, locale string) (*models.AnswerTranslation, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, answerTranslationKey(answerID, locale)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("translation cache read failed", zap.Uint("answer_id", answerID), zap.String("locale", locale), zap.Error(err))
		}
		return nil, false
	}

	var t models.AnswerTranslation
	if err := json.Unmarshal(data, &t); err != nil {
		c.logger.Warn("translation cache entry corrupt", zap.Uint("answer_id", answerID), zap.String("locale", locale), zap.Error(err))
		return nil, false
	}
	return &t, true
}

// SetAnswer stores t and indexes the key under both the answer and its
// survey so either can invalidate it. The write is skipped when either
// counter moved since gen was taken.
func (c *TranslationCache) SetAnswer(ctx context.Context, gen Generation, surveyID, answerID uint, locale string, t models.AnswerTranslation) {
	if c == nil || !gen.ok {
		return
	}

	data, err := json.Marshal(t)
	if err != nil {
		c.logger.Warn("translation cache encode failed", zap.Uint("answer_id", answerID), zap.Error(err))
		return
	}

	key := answerTranslationKey(answerID, locale)
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, surveyID, answerID)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			pipe.SAdd(ctx, answerIndexKey(answerID), key)
			pipe.Expire(ctx, answerIndexKey(answerID), c.ttl)
			pipe.SAdd(ctx, surveyIndexKey(surveyID), key)
			pipe.Expire(ctx, surveyIndexKey(surveyID), c.ttl)
			return nil
		})
		return err
	}, answerGenerationKey(answerID), surveyGenerationKey(surveyID))

	switch {
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("skipped stale translation fill", zap.Uint("answer_id", answerID), zap.String("locale", locale))
	case err != nil:
		c.logger.Warn("translation cache write failed", zap.Uint("answer_id", answerID), zap.String("locale", locale), zap.Error(err))
	default:
		c.logger.Debug("cached answer translation", zap.Uint("answer_id", answerID), zap.String("locale", locale))
	}
}

func (c *TranslationCache) InvalidateAnswer(ctx context.Context, answerID uint) {
	if c == nil {
		return
	}
	c.bumpGeneration(ctx, answerGenerationKey(answerID))
	c.invalidateIndex(ctx, answerIndexKey(answerID))
}

func (c *TranslationCache) InvalidateSurvey(ctx context.Context, surveyID uint) {
	if c == nil {
		return
	}
	c.bumpGeneration(ctx, surveyGenerationKey(surveyID))
	c.invalidateIndex(ctx, surveyIndexKey(surveyID))
}

func (c *TranslationCache) bumpGeneration(ctx context.Context, key string) {
	if err := c.redis.Incr(ctx, key).Err(); err != nil {
		c.logger.Warn("translation cache generation bump failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *TranslationCache) invalidateIndex(ctx context.Context, index string) {
	keys, err := c.redis.SMembers(ctx, index).Result()
	if err != nil {
		c.logger.Warn("translation cache index read failed", zap.String("index", index), zap.Error(err))
		return
	}

	keys = append(keys, index)
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("translation cache invalidation failed", zap.String("index", index), zap.Error(err))
		return
	}
	c.logger.Debug("invalidated translations", zap.String("index", index), zap.Int("keys", len(keys)-1))
}
