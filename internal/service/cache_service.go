package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/survey-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error
	InvalidateTags(ctx context.Context, tags ...string) error
}

const reportCachePrefix = "survey:report"

// FormReportKey is the cache key of a single form report variant.
func FormReportKey(formID string, includeDrafts bool) string {
	return fmt.Sprintf("%s:form:%s:drafts=%t", reportCachePrefix, formID, includeDrafts)
}

// CampaignReportKey is the cache key of a campaign report.
func CampaignReportKey(campaignID string, includeDrafts bool) string {
	return fmt.Sprintf("%s:campaign:%s:drafts=%t", reportCachePrefix, campaignID, includeDrafts)
}

// FormReportTag groups every cached report variant of a form.
func FormReportTag(formID string) string {
	return reportCachePrefix + ":tag:form:" + formID
}

// CampaignReportTag groups every cached report variant of a campaign.
func CampaignReportTag(campaignID string) string {
	return reportCachePrefix + ":tag:campaign:" + campaignID
}

// CacheService wraps the cache repository with metrics and a kill switch.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache, filed under tags.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl, tags...)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// InvalidateReports drops every cached report of a form and of its campaign.
func (s *CacheService) InvalidateReports(ctx context.Context, formID, campaignID string) error {
	if !s.Enabled() {
		return nil
	}
	tags := []string{FormReportTag(formID)}
	if campaignID != "" {
		tags = append(tags, CampaignReportTag(campaignID))
	}
	if err := s.repo.InvalidateTags(ctx, tags...); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.String("form_id", formID), zap.String("campaign_id", campaignID), zap.Error(err))
		return err
	}
	return nil
}
