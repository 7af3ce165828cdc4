package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"scorm_trends_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

const reportCachePrefix = "scorm_trends:report"

// ReportCacheRepository 用 Redis 缓存生成好的趋势报表
type ReportCacheRepository struct {
	Redis *redis.Client
}

func NewReportCacheRepository(rdb *redis.Client) *ReportCacheRepository {
	return &ReportCacheRepository{Redis: rdb}
}

// reportCacheKey 活动 id 放在最前，Invalidate 按前缀清理
func reportCacheKey(key model.ReportKey) string {
	return fmt.Sprintf("%s:%d:%d:%s:%d:%s", reportCachePrefix,
		key.ScormID, key.GroupID, key.Matching, key.MaxSlots, url.QueryEscape(key.Capability))
}

// Get 未命中时返回 (nil, nil)
func (r *ReportCacheRepository) Get(ctx context.Context, key model.ReportKey) (*model.TrendsReport, error) {
	data, err := r.Redis.Get(ctx, reportCacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get report: %w", err)
	}

	var report model.TrendsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}

func (r *ReportCacheRepository) Set(ctx context.Context, report *model.TrendsReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := r.Redis.Set(ctx, reportCacheKey(report.Key()), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set report: %w", err)
	}
	return nil
}

// Invalidate 删除某个活动所有小组、所有匹配模式下的缓存
func (r *ReportCacheRepository) Invalidate(ctx context.Context, scormID uint) error {
	pattern := fmt.Sprintf("%s:%d:*", reportCachePrefix, scormID)
	iter := r.Redis.Scan(ctx, 0, pattern, 100).Iterator()

	pipe := r.Redis.Pipeline()
	n := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		n++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan report cache: %w", err)
	}
	if n == 0 {
		return nil
	}
	_, err := pipe.Exec(ctx)
	return err
}
