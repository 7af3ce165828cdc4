package service

import (
	"context"
	"fmt"
	"scorm_trends_backend/internal/model"
	"strconv"
	"strings"
)

const interactionPrefix = "cmi.interactions_"

const (
	MatchingLoose  = "loose"
	MatchingStrict = "strict"
)

// ElementMatcher 判断一个 element 属于哪个题目的哪个字段，对每个命中调用 emit
type ElementMatcher interface {
	Classify(element string, slots int, emit func(slot int, field string))
	Name() string
}

// LooseMatcher 只要 element 中包含 cmi.interactions_<i>.<field>（不区分大小写）就算命中。
// 所以 cmi.interactions_1.type_detail 也会被计入第 1 题的 type，一个 element 也可能同时命中多个字段。
type LooseMatcher struct{}

func (LooseMatcher) Name() string { return MatchingLoose }

func (LooseMatcher) Classify(element string, slots int, emit func(slot int, field string)) {
	lower := strings.ToLower(element)
	var seen map[[2]int]struct{}
	for rest := lower; ; {
		i := strings.Index(rest, interactionPrefix)
		if i < 0 {
			return
		}
		rest = rest[i+len(interactionPrefix):]

		digits := 0
		for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
			digits++
		}
		idx := rest[:digits]
		slot, err := strconv.Atoi(idx)
		if err != nil || slot >= slots || strconv.Itoa(slot) != idx || !strings.HasPrefix(rest[digits:], ".") {
			continue
		}
		after := rest[digits+1:]
		for fi, field := range model.TrackedElements {
			if !strings.HasPrefix(after, field) {
				continue
			}
			// 同一个 element 里重复出现的路径只算一次
			key := [2]int{slot, fi}
			if _, dup := seen[key]; dup {
				continue
			}
			if seen == nil {
				seen = make(map[[2]int]struct{})
			}
			seen[key] = struct{}{}
			emit(slot, field)
		}
	}
}

// StrictMatcher 要求 element 恰好是 cmi.interactions_<i>.<field>
type StrictMatcher struct{}

func (StrictMatcher) Name() string { return MatchingStrict }

func (StrictMatcher) Classify(element string, slots int, emit func(slot int, field string)) {
	rest, ok := strings.CutPrefix(strings.ToLower(element), interactionPrefix)
	if !ok {
		return
	}
	idx, field, ok := strings.Cut(rest, ".")
	if !ok {
		return
	}
	slot, err := strconv.Atoi(idx)
	if err != nil || slot < 0 || slot >= slots || strconv.Itoa(slot) != idx {
		return
	}
	for _, f := range model.TrackedElements {
		if f == field {
			emit(slot, f)
			return
		}
	}
}

func NewElementMatcher(strict bool) ElementMatcher {
	if strict {
		return StrictMatcher{}
	}
	return LooseMatcher{}
}

// TrackFetcher 取某次尝试的全部记录
type TrackFetcher func(ctx context.Context, attempt model.Attempt) ([]model.TrackingRecord, error)

type Aggregator struct {
	Matcher ElementMatcher
}

func NewAggregator(matcher ElementMatcher) *Aggregator {
	if matcher == nil {
		matcher = LooseMatcher{}
	}
	return &Aggregator{Matcher: matcher}
}

// Aggregate 统计 slots 道题每个字段各取值出现的次数，结果长度恒为 slots。
// 每次尝试的记录只取一次；没有记录的尝试直接跳过。
func (a *Aggregator) Aggregate(ctx context.Context, slots int, attempts []model.Attempt, fetch TrackFetcher) ([]model.RowData, error) {
	if slots <= 0 {
		return []model.RowData{}, nil
	}
	rows := make([]model.RowData, slots)

	for _, attempt := range attempts {
		records, err := fetch(ctx, attempt)
		if err != nil {
			return nil, fmt.Errorf("fetch tracks for user %d attempt %d: %w", attempt.UserID, attempt.Attempt, err)
		}
		if len(records) == 0 {
			continue
		}

		for _, rec := range collapseTracks(records) {
			value := rec.Value
			a.Matcher.Classify(rec.Element, slots, func(slot int, field string) {
				rows[slot].Field(field).Add(value)
			})
		}
	}

	return rows, nil
}

// collapseTracks 同一 element 只保留最后一次的值，位置取第一次出现处
func collapseTracks(records []model.TrackingRecord) []model.TrackingRecord {
	pos := make(map[string]int, len(records))
	out := make([]model.TrackingRecord, 0, len(records))
	for _, rec := range records {
		if i, ok := pos[rec.Element]; ok {
			out[i].Value = rec.Value
			continue
		}
		pos[rec.Element] = len(out)
		out = append(out, rec)
	}
	return out
}
