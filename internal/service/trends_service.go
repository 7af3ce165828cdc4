package service

import (
	"context"
	"errors"
	"fmt"
	"scorm_trends_backend/internal/config"
	"scorm_trends_backend/internal/model"
	"scorm_trends_backend/internal/render"
	"scorm_trends_backend/internal/util"
	"scorm_trends_backend/pkg/logger"
	"scorm_trends_backend/pkg/monitoring"
	"scorm_trends_backend/pkg/tracing"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NoActivityNotice 没有可统计的学生时输出的提示
const NoActivityNotice = "No activity"

type TrackStore interface {
	ListReportableScoes(ctx context.Context, scormID uint) ([]model.ScormSco, error)
	GetAttempts(ctx context.Context, userIDs []uint, scoID uint) ([]model.Attempt, error)
	GetTrackingData(ctx context.Context, scoID, userID uint, attempt int) ([]model.TrackingRecord, error)
	EachQuestionIDElement(ctx context.Context, scoID uint, fn func(element string)) error
}

type ScormFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Scorm, error)
}

// ReportSink 报表输出端：要么一条提示，要么若干张 SCO 表
type ReportSink interface {
	Notice(message string) error
	Table(sco model.ScormSco, rows []model.FrequencyRow) error
}

type ReportCache interface {
	Get(ctx context.Context, key model.ReportKey) (*model.TrendsReport, error)
	Set(ctx context.Context, report *model.TrendsReport, ttl time.Duration) error
	Invalidate(ctx context.Context, scormID uint) error
}

type TrendsService struct {
	Scorms   ScormFinder
	Tracks   TrackStore
	Resolver *AllowedUserResolver
	Cache    ReportCache // 可为空

	mu   sync.RWMutex
	opts config.ReportConfig
}

func NewTrendsService(scorms ScormFinder, tracks TrackStore, resolver *AllowedUserResolver, cache ReportCache, opts config.ReportConfig) *TrendsService {
	return &TrendsService{
		Scorms:   scorms,
		Tracks:   tracks,
		Resolver: resolver,
		Cache:    cache,
		opts:     opts,
	}
}

// ApplyConfig 配置热更新时调用，只影响之后开始的报表
func (s *TrendsService) ApplyConfig(opts config.ReportConfig) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	logger.Log.Info("trends report options updated",
		zap.Bool("strict_matching", opts.StrictMatching),
		zap.Int("max_slots", opts.SlotLimit()),
		zap.String("capability", opts.Capability),
		zap.Bool("cache_enabled", opts.CacheEnabled))
}

// options 每次报表开始时取一次快照，整个报表使用同一份参数
func (s *TrendsService) options() config.ReportConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts := s.opts
	if opts.Capability == "" {
		opts.Capability = DefaultCapability
	}
	opts.MaxSlots = opts.SlotLimit()
	return opts
}

// QuestionCount 该 SCO 的题目数
func (s *TrendsService) QuestionCount(ctx context.Context, scoID uint) (int, error) {
	return s.questionCount(ctx, scoID, s.options())
}

func (s *TrendsService) questionCount(ctx context.Context, scoID uint, opts config.ReportConfig) (int, error) {
	var counter questionCounter
	if err := s.Tracks.EachQuestionIDElement(ctx, scoID, counter.Observe); err != nil {
		return 0, err
	}

	n := counter.Count(0)
	if limit := opts.SlotLimit(); n > limit {
		logger.Log.Warn("question count capped",
			zap.Uint("sco_id", scoID),
			zap.Int("estimated", n),
			zap.Int("max_slots", limit))
		monitoring.CappedSlotsTotal.Inc()
		n = limit
	}
	return n, nil
}

// TableData 单个 SCO 的统计结果，长度等于题目数
func (s *TrendsService) TableData(ctx context.Context, sco model.ScormSco, attempts []model.Attempt) ([]model.RowData, error) {
	return s.tableData(ctx, sco, attempts, s.options())
}

func (s *TrendsService) tableData(ctx context.Context, sco model.ScormSco, attempts []model.Attempt, opts config.ReportConfig) ([]model.RowData, error) {
	slots, err := s.questionCount(ctx, sco.ID, opts)
	if err != nil {
		return nil, err
	}
	monitoring.SlotsTotal.Add(float64(slots))

	agg := NewAggregator(NewElementMatcher(opts.StrictMatching))
	return agg.Aggregate(ctx, slots, attempts, func(ctx context.Context, a model.Attempt) ([]model.TrackingRecord, error) {
		return s.Tracks.GetTrackingData(ctx, sco.ID, a.UserID, a.Attempt)
	})
}

func (s *TrendsService) findScorm(ctx context.Context, scormID uint) (*model.Scorm, error) {
	scorm, err := s.Scorms.FindByID(ctx, scormID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrScormNotFound
		}
		return nil, fmt.Errorf("find scorm %d: %w", scormID, err)
	}
	return scorm, nil
}

// reportGroup 活动未开启小组模式时忽略小组参数
func reportGroup(scorm *model.Scorm, groupID uint) uint {
	if scorm.GroupMode == 0 {
		return 0
	}
	return groupID
}

// Display 对活动下所有可报告的 SCO 生成频次表并写入 sink。
// 没有可统计的用户时只输出一条提示
func (s *TrendsService) Display(ctx context.Context, scormID, groupID uint, sink ReportSink) error {
	scorm, err := s.findScorm(ctx, scormID)
	if err != nil {
		monitoring.ReportsTotal.WithLabelValues("error").Inc()
		return err
	}
	groupID = reportGroup(scorm, groupID)
	return s.display(ctx, logger.WithReport("", scorm.ID, groupID), s.options(), scorm, groupID, sink)
}

func (s *TrendsService) display(ctx context.Context, log *zap.Logger, opts config.ReportConfig, scorm *model.Scorm, groupID uint, sink ReportSink) (err error) {
	started := time.Now()
	ctx, span := tracing.StartSpan(ctx, "trends.display",
		attribute.Int64("scorm.id", int64(scorm.ID)),
		attribute.Int64("group.id", int64(groupID)),
		attribute.Bool("strict_matching", opts.StrictMatching),
	)
	defer tracing.FinishSpan(span, &err)

	outcome := "ok"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		monitoring.ObserveReport(outcome, started)
	}()

	users, err := s.Resolver.AllowedUsers(ctx, scorm.ID, groupID, opts.Capability)
	if err != nil {
		return fmt.Errorf("resolve allowed users: %w", err)
	}
	if len(users) == 0 {
		outcome = "no_activity"
		log.Debug("no users to report on")
		return sink.Notice(NoActivityNotice)
	}

	scoes, err := s.Tracks.ListReportableScoes(ctx, scorm.ID)
	if err != nil {
		return err
	}

	tables := 0
	for _, sco := range scoes {
		rows, err := s.displaySco(ctx, opts, sco, users)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		if err := sink.Table(sco, rows); err != nil {
			return fmt.Errorf("render sco %d: %w", sco.ID, err)
		}
		tables++
	}

	log.Info("trends report generated",
		zap.Int("users", len(users)),
		zap.Int("scoes", len(scoes)),
		zap.Int("tables", tables),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

func (s *TrendsService) displaySco(ctx context.Context, opts config.ReportConfig, sco model.ScormSco, users []uint) (rows []model.FrequencyRow, err error) {
	ctx, span := tracing.StartSpan(ctx, "trends.sco", attribute.Int64("sco.id", int64(sco.ID)))
	defer tracing.FinishSpan(span, &err)

	attempts, err := s.Tracks.GetAttempts(ctx, users, sco.ID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("attempts", len(attempts)))

	data, err := s.tableData(ctx, sco, attempts, opts)
	if err != nil {
		return nil, err
	}
	return model.Rows(data), nil
}

// BuildReport 生成 JSON 报表，开启缓存时优先读缓存
func (s *TrendsService) BuildReport(ctx context.Context, scormID, groupID uint) (*model.TrendsReport, error) {
	opts := s.options()

	scorm, err := s.findScorm(ctx, scormID)
	if err != nil {
		monitoring.ReportsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	groupID = reportGroup(scorm, groupID)

	report := &model.TrendsReport{
		RunID:       uuid.New().String(),
		ScormID:     scorm.ID,
		GroupID:     groupID,
		Matching:    NewElementMatcher(opts.StrictMatching).Name(),
		MaxSlots:    opts.MaxSlots,
		Capability:  opts.Capability,
		GeneratedAt: time.Now(),
	}
	log := logger.WithReport(report.RunID, scorm.ID, groupID)
	useCache := opts.CacheEnabled && s.Cache != nil

	if useCache {
		cached, err := s.Cache.Get(ctx, report.Key())
		if err != nil {
			log.Warn("read report cache failed", zap.Error(err))
		} else if cached != nil {
			cached.Cached = true
			monitoring.ReportsTotal.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	if err := s.display(ctx, log, opts, scorm, groupID, render.NewCollector(report)); err != nil {
		return nil, err
	}

	if useCache {
		if err := s.Cache.Set(ctx, report, opts.CacheTTL); err != nil {
			log.Warn("write report cache failed", zap.Error(err))
		}
	}
	return report, nil
}

// InvalidateCache 新的学习记录写入后可调用，清掉该活动的缓存
func (s *TrendsService) InvalidateCache(ctx context.Context, scormID uint) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Invalidate(ctx, scormID)
}
