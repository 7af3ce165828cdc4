package repository

import (
	"context"
	"fmt"
	"scorm_trends_backend/internal/model"

	"gorm.io/gorm"
)

// QuestionIDPattern 匹配所有题目 id 元素；LIKE 中的 _ 同样是通配符
const QuestionIDPattern = "cmi.interactions_%.id"

type TrackRepository struct {
	DB *gorm.DB
}

func NewTrackRepository(db *gorm.DB) *TrackRepository {
	return &TrackRepository{DB: db}
}

// ListReportableScoes 返回活动下有 launch 的 SCO，按 id 排序
func (r *TrackRepository) ListReportableScoes(ctx context.Context, scormID uint) ([]model.ScormSco, error) {
	var scoes []model.ScormSco
	err := r.DB.WithContext(ctx).
		Where("scorm = ? AND launch <> ''", scormID).
		Order("id").
		Find(&scoes).Error
	if err != nil {
		return nil, fmt.Errorf("list scoes of scorm %d: %w", scormID, err)
	}
	return scoes, nil
}

// GetAttempts 返回指定用户在该 SCO 上的所有尝试，按 (userid, attempt) 去重；attempt 为空视为 0
func (r *TrackRepository) GetAttempts(ctx context.Context, userIDs []uint, scoID uint) ([]model.Attempt, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).Raw(`
		SELECT DISTINCT st.userid AS user_id, COALESCE(st.attempt, 0) AS attempt, st.scoid AS sco_id
		FROM scorm_scoes_track st
		WHERE st.userid IN ? AND st.scoid = ?
		ORDER BY user_id, attempt`, userIDs, scoID).
		Scan(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("get attempts of sco %d: %w", scoID, err)
	}
	return attempts, nil
}

// GetTrackingData 返回某次尝试的全部记录，按 element 排序
func (r *TrackRepository) GetTrackingData(ctx context.Context, scoID, userID uint, attempt int) ([]model.TrackingRecord, error) {
	var records []model.TrackingRecord
	err := r.DB.WithContext(ctx).
		Model(&model.ScormScoTrack{}).
		Select("element", "value").
		Where("scoid = ? AND userid = ? AND COALESCE(attempt, 0) = ?", scoID, userID, attempt).
		Order("element, id").
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("get tracks of sco %d user %d attempt %d: %w", scoID, userID, attempt, err)
	}
	return records, nil
}

// EachQuestionIDElement 逐行遍历该 SCO 下所有题目 id 元素，游标在任何返回路径上都会关闭
func (r *TrackRepository) EachQuestionIDElement(ctx context.Context, scoID uint, fn func(element string)) error {
	rows, err := r.DB.WithContext(ctx).
		Model(&model.ScormScoTrack{}).
		Select("element").
		Where("scoid = ? AND LOWER(element) LIKE ?", scoID, QuestionIDPattern).
		Order("element").
		Rows()
	if err != nil {
		return fmt.Errorf("scan question ids of sco %d: %w", scoID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var element string
		if err := rows.Scan(&element); err != nil {
			return fmt.Errorf("scan question id row: %w", err)
		}
		fn(element)
	}
	return rows.Err()
}
