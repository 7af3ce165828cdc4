package repository

import (
	"context"
	"fmt"
	"scorm_trends_backend/internal/model"

	"gorm.io/gorm"
)

type CapabilityRepository struct {
	DB *gorm.DB
}

func NewCapabilityRepository(db *gorm.DB) *CapabilityRepository {
	return &CapabilityRepository{DB: db}
}

// UsersWithCapability 返回在 contextID 上拥有 capability 的用户；groupID 非 0 时只保留该小组成员
func (r *CapabilityRepository) UsersWithCapability(ctx context.Context, contextID uint, capability string, groupID uint) ([]uint, error) {
	query := r.DB.WithContext(ctx).
		Model(&model.CapabilityGrant{}).
		Distinct("capability_grants.user_id").
		Joins("JOIN users u ON u.id = capability_grants.user_id AND u.deleted_at IS NULL AND u.disabled = ?", false).
		Where("capability_grants.context_id = ? AND capability_grants.capability = ?", contextID, capability)

	if groupID != 0 {
		query = query.Joins("JOIN groups_members gm ON gm.user_id = capability_grants.user_id AND gm.group_id = ?", groupID)
	}

	var ids []uint
	if err := query.Order("capability_grants.user_id").Pluck("capability_grants.user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("users with %s in context %d: %w", capability, contextID, err)
	}
	return ids, nil
}
