package model

// Scorm 一个 SCORM 学习活动，下面挂多个 SCO
// swagger:model Scorm
type Scorm struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Course    uint   `gorm:"index;type:bigint unsigned" json:"course"`
	Name      string `gorm:"size:255;not null" json:"name"`
	GroupMode int    `gorm:"default:0" json:"groupMode"` // 0 不分组，1 分隔小组，2 可视小组
}

func (Scorm) TableName() string {
	return "scorm"
}

// ScormSco 可追踪的内容单元（SCO）。Launch 为空的是目录节点，不参与报表
// swagger:model ScormSco
type ScormSco struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Scorm  uint   `gorm:"index;type:bigint unsigned" json:"scorm"`
	Title  string `gorm:"size:255" json:"title"`
	Launch string `gorm:"type:text" json:"launch"`
}

func (ScormSco) TableName() string {
	return "scorm_scoes"
}

// ScormScoTrack 学习过程中上报的一条 element/value 记录，只追加不修改
type ScormScoTrack struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint   `gorm:"column:userid;index:idx_track_user_sco;type:bigint unsigned" json:"userId"`
	ScormID  uint   `gorm:"column:scormid;index;type:bigint unsigned" json:"scormId"`
	ScoID    uint   `gorm:"column:scoid;index:idx_track_user_sco;type:bigint unsigned" json:"scoId"`
	Attempt  *int   `gorm:"column:attempt" json:"attempt"`
	Element  string `gorm:"column:element;size:255;index" json:"element"`
	Value    string `gorm:"column:value;type:longtext" json:"value"`
	Modified int64  `gorm:"column:timemodified" json:"timeModified"`
}

func (ScormScoTrack) TableName() string {
	return "scorm_scoes_track"
}

// Attempt 某用户对某个 SCO 的一次尝试，按 (UserID, Attempt) 唯一
type Attempt struct {
	UserID  uint `json:"userId"`
	Attempt int  `json:"attempt"`
	ScoID   uint `json:"scoId"`
}

// TrackingRecord 一次尝试中的 element/value
type TrackingRecord struct {
	Element string
	Value   string
}
