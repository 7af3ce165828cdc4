package model

import (
	"encoding/json"
	"time"
)

// 每个题目统计的三个元素
const (
	ElementType            = "type"
	ElementStudentResponse = "student_response"
	ElementResult          = "result"
)

// TrackedElements 输出顺序固定
var TrackedElements = []string{ElementType, ElementStudentResponse, ElementResult}

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Tally 有序的 value -> 次数 映射，按首次出现的顺序输出
type Tally struct {
	entries []ValueCount
	index   map[string]int
}

func (t *Tally) Add(value string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[value]; ok {
		t.entries[i].Count++
		return
	}
	t.index[value] = len(t.entries)
	t.entries = append(t.entries, ValueCount{Value: value, Count: 1})
}

func (t Tally) Count(value string) int {
	if i, ok := t.index[value]; ok {
		return t.entries[i].Count
	}
	return 0
}

func (t Tally) Len() int {
	return len(t.entries)
}

// Entries 返回副本
func (t Tally) Entries() []ValueCount {
	out := make([]ValueCount, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t Tally) MarshalJSON() ([]byte, error) {
	if t.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.entries)
}

func (t *Tally) UnmarshalJSON(data []byte) error {
	var entries []ValueCount
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*t = Tally{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		t.index[e.Value] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return nil
}

// RowData 某个题目（slot）三个元素的取值分布
type RowData struct {
	Type            Tally `json:"type"`
	StudentResponse Tally `json:"student_response"`
	Result          Tally `json:"result"`
}

// Field 按元素名取对应的分布
func (r *RowData) Field(element string) *Tally {
	switch element {
	case ElementType:
		return &r.Type
	case ElementStudentResponse:
		return &r.StudentResponse
	case ElementResult:
		return &r.Result
	}
	return nil
}

func (r RowData) Empty() bool {
	return r.Type.Len() == 0 && r.StudentResponse.Len() == 0 && r.Result.Len() == 0
}

// FrequencyRow 交给展示层的一行：题号、元素、取值、次数
type FrequencyRow struct {
	Slot      int    `json:"slot"`
	Element   string `json:"element"`
	Value     string `json:"value"`
	Frequency int    `json:"frequency"`
}

// Rows 按 slot、元素、首次出现顺序展开
func Rows(data []RowData) []FrequencyRow {
	var rows []FrequencyRow
	for slot := range data {
		for _, element := range TrackedElements {
			for _, vc := range data[slot].Field(element).entries {
				rows = append(rows, FrequencyRow{
					Slot:      slot,
					Element:   element,
					Value:     vc.Value,
					Frequency: vc.Count,
				})
			}
		}
	}
	return rows
}

// ScoTable 单个 SCO 的报表
type ScoTable struct {
	ScoID uint           `json:"scoId"`
	Title string         `json:"title"`
	Rows  []FrequencyRow `json:"rows"`
}

// ReportKey 决定报表内容的全部输入，任何一项不同都视为不同的报表
type ReportKey struct {
	ScormID    uint
	GroupID    uint
	Matching   string
	MaxSlots   int
	Capability string
}

// swagger:model TrendsReport
type TrendsReport struct {
	RunID       string     `json:"runId"`
	ScormID     uint       `json:"scormId"`
	GroupID     uint       `json:"groupId"`
	Matching    string     `json:"matching"`
	MaxSlots    int        `json:"maxSlots"`
	Capability  string     `json:"capability"`
	Notice      string     `json:"notice,omitempty"`
	Tables      []ScoTable `json:"tables"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Cached      bool       `json:"cached"`
}

func (r *TrendsReport) Key() ReportKey {
	return ReportKey{
		ScormID:    r.ScormID,
		GroupID:    r.GroupID,
		Matching:   r.Matching,
		MaxSlots:   r.MaxSlots,
		Capability: r.Capability,
	}
}
