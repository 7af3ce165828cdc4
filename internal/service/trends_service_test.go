package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"scorm_trends_backend/internal/config"
	"scorm_trends_backend/internal/model"
	"scorm_trends_backend/internal/util"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeScorms struct {
	scorms map[uint]*model.Scorm
}

func (f *fakeScorms) FindByID(_ context.Context, id uint) (*model.Scorm, error) {
	if s, ok := f.scorms[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type trackRow struct {
	user    uint
	sco     uint
	attempt int
	element string
	value   string
}

// fakeTrackStore 在内存中模拟 scorm_scoes_track 上的查询
type fakeTrackStore struct {
	scoes       []model.ScormSco
	tracks      []trackRow
	fetches     int
	attemptUsrs [][]uint
	onAttempts  func(scoID uint) // 每个 SCO 开始统计时回调
}

func (f *fakeTrackStore) ListReportableScoes(_ context.Context, scormID uint) ([]model.ScormSco, error) {
	var out []model.ScormSco
	for _, s := range f.scoes {
		if s.Scorm == scormID && s.Launch != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeTrackStore) GetAttempts(_ context.Context, userIDs []uint, scoID uint) ([]model.Attempt, error) {
	f.attemptUsrs = append(f.attemptUsrs, userIDs)
	if f.onAttempts != nil {
		f.onAttempts(scoID)
	}
	allowed := make(map[uint]bool)
	for _, id := range userIDs {
		allowed[id] = true
	}
	seen := make(map[[2]int]bool)
	var out []model.Attempt
	for _, tr := range f.tracks {
		key := [2]int{int(tr.user), tr.attempt}
		if tr.sco != scoID || !allowed[tr.user] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Attempt{UserID: tr.user, Attempt: tr.attempt, ScoID: scoID})
	}
	return out, nil
}

func (f *fakeTrackStore) GetTrackingData(_ context.Context, scoID, userID uint, attempt int) ([]model.TrackingRecord, error) {
	f.fetches++
	var out []model.TrackingRecord
	for _, tr := range f.tracks {
		if tr.sco == scoID && tr.user == userID && tr.attempt == attempt {
			out = append(out, model.TrackingRecord{Element: tr.element, Value: tr.value})
		}
	}
	return out, nil
}

func (f *fakeTrackStore) EachQuestionIDElement(_ context.Context, scoID uint, fn func(string)) error {
	for _, tr := range f.tracks {
		lower := strings.ToLower(tr.element)
		if tr.sco == scoID && strings.HasPrefix(lower, "cmi.interactions") && strings.HasSuffix(lower, ".id") {
			fn(tr.element)
		}
	}
	return nil
}

type sinkCall struct {
	notice string
	sco    uint
	rows   []model.FrequencyRow
}

type recordingSink struct {
	calls []sinkCall
}

func (s *recordingSink) Notice(message string) error {
	s.calls = append(s.calls, sinkCall{notice: message})
	return nil
}

func (s *recordingSink) Table(sco model.ScormSco, rows []model.FrequencyRow) error {
	s.calls = append(s.calls, sinkCall{sco: sco.ID, rows: rows})
	return nil
}

type memoryCache struct {
	reports     map[string]*model.TrendsReport
	sets        int
	invalidated []uint
}

func cacheKey(key model.ReportKey) string {
	return fmt.Sprintf("%+v", key)
}

func (c *memoryCache) Get(_ context.Context, key model.ReportKey) (*model.TrendsReport, error) {
	r, ok := c.reports[cacheKey(key)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (c *memoryCache) Set(_ context.Context, report *model.TrendsReport, _ time.Duration) error {
	if c.reports == nil {
		c.reports = make(map[string]*model.TrendsReport)
	}
	cp := *report
	c.reports[cacheKey(report.Key())] = &cp
	c.sets++
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, scormID uint) error {
	c.invalidated = append(c.invalidated, scormID)
	return nil
}

func newTestService(store *fakeTrackStore, users []uint, opts config.ReportConfig) (*TrendsService, *fakeChecker) {
	checker := &fakeChecker{ids: users}
	scorms := &fakeScorms{scorms: map[uint]*model.Scorm{
		1: {ID: 1, Name: "Safety course", GroupMode: 1},
		2: {ID: 2, Name: "No groups", GroupMode: 0},
	}}
	return NewTrendsService(scorms, store, NewAllowedUserResolver(checker), nil, opts), checker
}

func trueFalseStore() *fakeTrackStore {
	return &fakeTrackStore{
		scoes: []model.ScormSco{
			{ID: 10, Scorm: 1, Title: "Quiz", Launch: "quiz.html"},
			{ID: 11, Scorm: 1, Title: "Folder", Launch: ""},
			{ID: 12, Scorm: 1, Title: "Intro", Launch: "intro.html"},
		},
		tracks: []trackRow{
			{1, 10, 1, "cmi.interactions_0.id", "q1"},
			{1, 10, 1, "cmi.interactions_0.type", "true-false"},
			{1, 10, 1, "cmi.interactions_0.result", "correct"},
			{2, 10, 1, "cmi.interactions_0.id", "q1"},
			{2, 10, 1, "cmi.interactions_0.type", "true-false"},
			{2, 10, 1, "cmi.interactions_0.result", "wrong"},
			// Intro 没有题目
			{1, 12, 1, "cmi.core.lesson_status", "completed"},
			// 非允许用户
			{3, 10, 1, "cmi.interactions_0.type", "choice"},
		},
	}
}

func TestDisplayTrueFalseScenario(t *testing.T) {
	store := trueFalseStore()
	svc, _ := newTestService(store, []uint{1, 2}, config.ReportConfig{})
	sink := &recordingSink{}

	if err := svc.Display(context.Background(), 1, 0, sink); err != nil {
		t.Fatalf("Display: %v", err)
	}

	if len(sink.calls) != 1 {
		t.Fatalf("expected exactly one table, got %+v", sink.calls)
	}
	call := sink.calls[0]
	if call.sco != 10 {
		t.Errorf("table for sco %d, want 10", call.sco)
	}

	want := []model.FrequencyRow{
		{Slot: 0, Element: model.ElementType, Value: "true-false", Frequency: 2},
		{Slot: 0, Element: model.ElementResult, Value: "correct", Frequency: 1},
		{Slot: 0, Element: model.ElementResult, Value: "wrong", Frequency: 1},
	}
	if !reflect.DeepEqual(call.rows, want) {
		t.Errorf("rows = %+v\nwant %+v", call.rows, want)
	}
}

func TestDisplayNoAllowedUsersEmitsSingleNotice(t *testing.T) {
	store := trueFalseStore()
	svc, _ := newTestService(store, nil, config.ReportConfig{})
	sink := &recordingSink{}

	if err := svc.Display(context.Background(), 1, 0, sink); err != nil {
		t.Fatalf("Display: %v", err)
	}

	if len(sink.calls) != 1 || sink.calls[0].notice != NoActivityNotice {
		t.Fatalf("expected only the no-activity notice, got %+v", sink.calls)
	}
	if store.fetches != 0 || len(store.attemptUsrs) != 0 {
		t.Errorf("no per-object work expected, fetches=%d attempts=%d", store.fetches, len(store.attemptUsrs))
	}
}

func TestDisplayUnknownScorm(t *testing.T) {
	svc, _ := newTestService(trueFalseStore(), []uint{1}, config.ReportConfig{})

	err := svc.Display(context.Background(), 99, 0, &recordingSink{})
	if !errors.Is(err, util.ErrScormNotFound) {
		t.Fatalf("expected ErrScormNotFound, got %v", err)
	}
}

func TestDisplayGroupIgnoredWithoutGroupMode(t *testing.T) {
	svc, checker := newTestService(&fakeTrackStore{}, []uint{1}, config.ReportConfig{})

	if err := svc.Display(context.Background(), 2, 4, &recordingSink{}); err != nil {
		t.Fatalf("Display: %v", err)
	}
	if checker.gotGroup != 0 {
		t.Errorf("group should be dropped when group mode is off, got %d", checker.gotGroup)
	}

	if err := svc.Display(context.Background(), 1, 4, &recordingSink{}); err != nil {
		t.Fatalf("Display: %v", err)
	}
	if checker.gotGroup != 4 {
		t.Errorf("group should be forwarded in group mode, got %d", checker.gotGroup)
	}
}

func TestQuestionCountUsesMaxSlots(t *testing.T) {
	store := &fakeTrackStore{tracks: []trackRow{
		{1, 10, 1, "cmi.interactions_0.id", "a"},
		{1, 10, 1, "cmi.interactions_41.id", "b"},
	}}
	svc, _ := newTestService(store, []uint{1}, config.ReportConfig{})

	n, err := svc.QuestionCount(context.Background(), 10)
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if n != 42 {
		t.Errorf("QuestionCount = %d, want 42", n)
	}

	svc.ApplyConfig(config.ReportConfig{MaxSlots: 5})
	if n, _ := svc.QuestionCount(context.Background(), 10); n != 5 {
		t.Errorf("QuestionCount with max_slots = %d, want 5", n)
	}
}

func TestTableDataLengthMatchesQuestionCount(t *testing.T) {
	store := &fakeTrackStore{tracks: []trackRow{
		{1, 10, 1, "cmi.interactions_2.id", "c"},
		{1, 10, 1, "cmi.interactions_2.type", "choice"},
	}}
	svc, _ := newTestService(store, []uint{1}, config.ReportConfig{})

	data, err := svc.TableData(context.Background(), model.ScormSco{ID: 10}, []model.Attempt{{UserID: 1, Attempt: 1}})
	if err != nil {
		t.Fatalf("TableData: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(data))
	}
	if !data[0].Empty() || !data[1].Empty() || data[2].Type.Count("choice") != 1 {
		t.Errorf("unexpected table data %+v", data)
	}
}

func TestBuildReportUsesCache(t *testing.T) {
	store := trueFalseStore()
	svc, _ := newTestService(store, []uint{1, 2}, config.ReportConfig{CacheEnabled: true, CacheTTL: time.Minute})
	cache := &memoryCache{}
	svc.Cache = cache

	first, err := svc.BuildReport(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if first.Cached || first.RunID == "" || first.Matching != MatchingLoose {
		t.Errorf("unexpected first report %+v", first)
	}
	if len(first.Tables) != 1 || len(first.Tables[0].Rows) != 3 {
		t.Fatalf("unexpected tables %+v", first.Tables)
	}
	fetches := store.fetches

	second, err := svc.BuildReport(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if !second.Cached || second.RunID != first.RunID {
		t.Errorf("expected cached copy of first report, got %+v", second)
	}
	if store.fetches != fetches {
		t.Errorf("cached report should not touch the store")
	}
	if cache.sets != 1 {
		t.Errorf("cache set %d times, want 1", cache.sets)
	}

	// 切换匹配模式后缓存键不同
	svc.ApplyConfig(config.ReportConfig{CacheEnabled: true, CacheTTL: time.Minute, StrictMatching: true})
	third, err := svc.BuildReport(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if third.Cached || third.Matching != MatchingStrict {
		t.Errorf("strict report should be freshly built, got %+v", third)
	}

	if err := svc.InvalidateCache(context.Background(), 1); err != nil {
		t.Fatalf("InvalidateCache: %v", err)
	}
	if !reflect.DeepEqual(cache.invalidated, []uint{1}) {
		t.Errorf("invalidated = %v", cache.invalidated)
	}
}

func TestBuildReportNoActivity(t *testing.T) {
	svc, _ := newTestService(trueFalseStore(), nil, config.ReportConfig{})

	report, err := svc.BuildReport(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if report.Notice != NoActivityNotice || len(report.Tables) != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestInvalidateCacheWithoutCache(t *testing.T) {
	svc, _ := newTestService(&fakeTrackStore{}, nil, config.ReportConfig{})
	if err := svc.InvalidateCache(context.Background(), 1); err != nil {
		t.Fatalf("InvalidateCache: %v", err)
	}
}

func TestTableDataCapsHugeQuestionIndex(t *testing.T) {
	t.Setenv("SCORM_TRENDS_LOG_FILE", filepath.Join(t.TempDir(), "app.log"))
	cfg, err := config.LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	store := &fakeTrackStore{tracks: []trackRow{
		{1, 10, 1, "cmi.interactions_1e9.id", "huge"},
		{1, 10, 1, "cmi.interactions_3.type", "choice"},
	}}

	for name, opts := range map[string]config.ReportConfig{
		"loaded defaults": cfg.Report,
		"zero options":    {},
	} {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(store, []uint{1}, opts)

			n, err := svc.QuestionCount(context.Background(), 10)
			if err != nil {
				t.Fatalf("QuestionCount: %v", err)
			}
			if n != config.DefaultMaxSlots {
				t.Fatalf("QuestionCount = %d, want %d", n, config.DefaultMaxSlots)
			}

			data, err := svc.TableData(context.Background(), model.ScormSco{ID: 10}, []model.Attempt{{UserID: 1, Attempt: 1}})
			if err != nil {
				t.Fatalf("TableData: %v", err)
			}
			if len(data) != config.DefaultMaxSlots || data[3].Type.Count("choice") != 1 {
				t.Errorf("len = %d, slot 3 type = %v", len(data), data[3].Type.Entries())
			}
		})
	}
}

// 两个 SCO 都只有 type_detail，宽松模式计入 type，严格模式不计
func reloadStore() *fakeTrackStore {
	return &fakeTrackStore{
		scoes: []model.ScormSco{
			{ID: 10, Scorm: 1, Title: "Part 1", Launch: "p1.html"},
			{ID: 12, Scorm: 1, Title: "Part 2", Launch: "p2.html"},
		},
		tracks: []trackRow{
			{1, 10, 1, "cmi.interactions_0.id", "q1"},
			{1, 10, 1, "cmi.interactions_0.type_detail", "likert"},
			{1, 12, 1, "cmi.interactions_0.id", "q1"},
			{1, 12, 1, "cmi.interactions_0.type_detail", "likert"},
		},
	}
}

func TestDisplayKeepsOptionsForWholePass(t *testing.T) {
	store := reloadStore()
	svc, _ := newTestService(store, []uint{1}, config.ReportConfig{})
	store.onAttempts = func(scoID uint) {
		if scoID == 10 {
			svc.ApplyConfig(config.ReportConfig{StrictMatching: true, MaxSlots: 1})
		}
	}
	sink := &recordingSink{}

	if err := svc.Display(context.Background(), 1, 0, sink); err != nil {
		t.Fatalf("Display: %v", err)
	}
	if len(sink.calls) != 2 {
		t.Fatalf("both SCOs should use loose matching, got %+v", sink.calls)
	}

	// 下一次报表使用新参数
	store.onAttempts = nil
	sink = &recordingSink{}
	if err := svc.Display(context.Background(), 1, 0, sink); err != nil {
		t.Fatalf("Display: %v", err)
	}
	if len(sink.calls) != 0 {
		t.Errorf("strict matching should drop type_detail, got %+v", sink.calls)
	}
}

func TestBuildReportLabelsWithOptionsItRan(t *testing.T) {
	store := reloadStore()
	svc, _ := newTestService(store, []uint{1}, config.ReportConfig{CacheEnabled: true, CacheTTL: time.Minute})
	cache := &memoryCache{}
	svc.Cache = cache
	store.onAttempts = func(uint) {
		svc.ApplyConfig(config.ReportConfig{CacheEnabled: true, CacheTTL: time.Minute, StrictMatching: true})
	}

	report, err := svc.BuildReport(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if report.Matching != MatchingLoose || len(report.Tables) != 2 {
		t.Fatalf("report = %+v", report)
	}

	key := model.ReportKey{ScormID: 1, Matching: MatchingLoose, MaxSlots: config.DefaultMaxSlots, Capability: DefaultCapability}
	if _, ok := cache.reports[cacheKey(key)]; !ok {
		t.Errorf("report cached under wrong key, have %v", cache.reports)
	}
}

func TestBuildReportCacheKeyCoversOptionsAndGroup(t *testing.T) {
	store := trueFalseStore()
	store.scoes = append(store.scoes, model.ScormSco{ID: 20, Scorm: 2, Title: "Ungrouped", Launch: "u.html"})
	store.tracks = append(store.tracks,
		trackRow{1, 20, 1, "cmi.interactions_0.id", "q"},
		trackRow{1, 20, 1, "cmi.interactions_0.result", "correct"},
	)
	opts := config.ReportConfig{CacheEnabled: true, CacheTTL: time.Minute}
	svc, _ := newTestService(store, []uint{1, 2}, opts)
	cache := &memoryCache{}
	svc.Cache = cache

	// 活动 2 未开启小组模式，group 参数被忽略，两次请求共享缓存
	first, err := svc.BuildReport(context.Background(), 2, 4)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if first.GroupID != 0 {
		t.Errorf("report echoes ignored group %d", first.GroupID)
	}
	second, err := svc.BuildReport(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if !second.Cached {
		t.Errorf("group=0 should hit the entry built for group=4")
	}

	// max_slots 或 capability 变化后不能复用旧缓存
	for _, changed := range []config.ReportConfig{
		{CacheEnabled: true, CacheTTL: time.Minute, MaxSlots: 5},
		{CacheEnabled: true, CacheTTL: time.Minute, MaxSlots: 5, Capability: "mod/scorm:viewreport"},
	} {
		svc.ApplyConfig(changed)
		report, err := svc.BuildReport(context.Background(), 2, 0)
		if err != nil {
			t.Fatalf("BuildReport: %v", err)
		}
		if report.Cached {
			t.Errorf("options %+v served a stale report", changed)
		}
	}
	if cache.sets != 3 {
		t.Errorf("cache set %d times, want 3", cache.sets)
	}
}

func TestBuildReportUnknownScorm(t *testing.T) {
	svc, _ := newTestService(trueFalseStore(), []uint{1}, config.ReportConfig{CacheEnabled: true})
	svc.Cache = &memoryCache{}

	if _, err := svc.BuildReport(context.Background(), 99, 0); !errors.Is(err, util.ErrScormNotFound) {
		t.Fatalf("expected ErrScormNotFound, got %v", err)
	}
}
