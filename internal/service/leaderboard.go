package service

import (
	"cmp"
	"slices"

	"github.com/yakoovad/teampoints/internal/model"
	"github.com/yakoovad/teampoints/internal/repository"
)

// sortLeaderboard orders members descending by points. The input arrives in
// join order and the sort is stable, so equal scores keep that order.
func sortLeaderboard(members []*model.Member) {
	slices.SortStableFunc(members, func(a, b *model.Member) int {
		return cmp.Compare(b.Points, a.Points)
	})
}

func memberToModel(m *repository.Member) *model.Member {
	member := &model.Member{
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		Points:      m.Points,
		JoinedAt:    m.JoinedAt,
	}
	if m.LastChangeAt != nil && m.LastChangeAmount != nil {
		member.LastPointChange = &model.PointChange{
			Timestamp: *m.LastChangeAt,
			Amount:    *m.LastChangeAmount,
		}
	}
	return member
}

func membersToModel(repoMembers []*repository.Member) []*model.Member {
	members := make([]*model.Member, 0, len(repoMembers))
	for _, m := range repoMembers {
		members = append(members, memberToModel(m))
	}
	return members
}
