package controller

import (
	"bytes"
	"context"
	"scorm_trends_backend/internal/model"
	"scorm_trends_backend/internal/render"
	"scorm_trends_backend/internal/service"
	"scorm_trends_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TrendsReporter interface {
	BuildReport(ctx context.Context, scormID, groupID uint) (*model.TrendsReport, error)
	Display(ctx context.Context, scormID, groupID uint, sink service.ReportSink) error
	InvalidateCache(ctx context.Context, scormID uint) error
}

type TrendsController struct {
	TrendsService TrendsReporter
}

func NewTrendsController(trendsService TrendsReporter) *TrendsController {
	return &TrendsController{TrendsService: trendsService}
}

// 解析路径 id 和可选的 group 参数，group 非法时按不分组处理
func reportParams(ctx *gin.Context) (scormID, groupID uint, ok bool) {
	scormID, ok = util.ParseID(ctx.Param("id"))
	if !ok {
		util.HandleError(ctx, util.ErrInvalidID)
		return 0, 0, false
	}
	return scormID, util.MustParseUint(ctx.Query("group")), true
}

// @Summary 获取 SCORM 趋势报表
// @Description 按题目统计 type / student_response / result 的取值分布
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param id path int true "SCORM 活动 ID"
// @Param group query int false "小组 ID，0 表示全部"
// @Success 200 {object} util.Response{data=model.TrendsReport}
// @Router /api/scorm/{id}/trends [get]
func (c *TrendsController) GetReport(ctx *gin.Context) {
	scormID, groupID, ok := reportParams(ctx)
	if !ok {
		return
	}

	report, err := c.TrendsService.BuildReport(ctx.Request.Context(), scormID, groupID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, report)
}

// @Summary 以纯文本表格获取趋势报表
// @Tags 报表
// @Produce plain
// @Security BearerAuth
// @Param id path int true "SCORM 活动 ID"
// @Param group query int false "小组 ID"
// @Router /api/scorm/{id}/trends/table [get]
func (c *TrendsController) GetTable(ctx *gin.Context) {
	scormID, groupID, ok := reportParams(ctx)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := c.TrendsService.Display(ctx.Request.Context(), scormID, groupID, render.NewTextTable(&buf)); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Text(ctx, buf.Bytes())
}

// @Summary 清除趋势报表缓存
// @Tags 报表
// @Security BearerAuth
// @Param id path int true "SCORM 活动 ID"
// @Router /api/scorm/{id}/trends/cache [delete]
func (c *TrendsController) InvalidateCache(ctx *gin.Context) {
	scormID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.HandleError(ctx, util.ErrInvalidID)
		return
	}

	if err := c.TrendsService.InvalidateCache(ctx.Request.Context(), scormID); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}
