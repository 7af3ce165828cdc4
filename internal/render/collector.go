package render

import (
	"scorm_trends_backend/internal/model"
)

// Collector 把报表收集成 model.TrendsReport，供 JSON 接口和缓存使用
type Collector struct {
	Report *model.TrendsReport
}

func NewCollector(report *model.TrendsReport) *Collector {
	if report.Tables == nil {
		report.Tables = []model.ScoTable{}
	}
	return &Collector{Report: report}
}

func (c *Collector) Notice(message string) error {
	c.Report.Notice = message
	return nil
}

func (c *Collector) Table(sco model.ScormSco, rows []model.FrequencyRow) error {
	c.Report.Tables = append(c.Report.Tables, model.ScoTable{
		ScoID: sco.ID,
		Title: sco.Title,
		Rows:  rows,
	})
	return nil
}
