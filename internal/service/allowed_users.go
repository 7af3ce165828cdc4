package service

import (
	"context"
	"sort"
)

// DefaultCapability 能够提交学习记录的用户才参与统计
const DefaultCapability = "mod/scorm:savetrack"

type CapabilityChecker interface {
	UsersWithCapability(ctx context.Context, contextID uint, capability string, groupID uint) ([]uint, error)
}

type AllowedUserResolver struct {
	Checker CapabilityChecker
}

func NewAllowedUserResolver(checker CapabilityChecker) *AllowedUserResolver {
	return &AllowedUserResolver{Checker: checker}
}

// AllowedUsers 返回可统计的用户 id（去重、升序）。groupID 为 0 表示不限小组。
// 没有用户时返回空切片而不是错误
func (r *AllowedUserResolver) AllowedUsers(ctx context.Context, scormID, groupID uint, capability string) ([]uint, error) {
	if capability == "" {
		capability = DefaultCapability
	}

	ids, err := r.Checker.UsersWithCapability(ctx, scormID, capability, groupID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
