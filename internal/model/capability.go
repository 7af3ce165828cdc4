package model

// CapabilityGrant 用户在某个活动上下文中拥有的权限
type CapabilityGrant struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ContextID  uint   `gorm:"uniqueIndex:idx_grant;type:bigint unsigned" json:"contextId"`
	UserID     uint   `gorm:"uniqueIndex:idx_grant;type:bigint unsigned" json:"userId"`
	Capability string `gorm:"uniqueIndex:idx_grant;size:100" json:"capability"`
}

func (CapabilityGrant) TableName() string {
	return "capability_grants"
}

type GroupMember struct {
	ID      uint `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID uint `gorm:"uniqueIndex:idx_group_user;type:bigint unsigned" json:"groupId"`
	UserID  uint `gorm:"uniqueIndex:idx_group_user;type:bigint unsigned" json:"userId"`
}

func (GroupMember) TableName() string {
	return "groups_members"
}
