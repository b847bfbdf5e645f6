package service

import (
	"sort"

	"loyalty/internal/server/models"
	sm "loyalty/internal/shared/models"
)

// similarBusinesses ranks the other businesses by Jaccard similarity of their
// enrolled-user sets to target's and returns the top limit. It returns nothing
// when there is a single business or target has no enrollments.
func similarBusinesses(targetID string, businesses []models.BusinessRecord, enrollments []sm.Enrollment, limit int) []sm.Business {
	members := make(map[string]map[string]struct{}, len(businesses))
	for _, b := range businesses {
		members[b.ID] = map[string]struct{}{}
	}
	for _, e := range enrollments {
		if set, ok := members[e.BusinessID]; ok {
			set[e.UserID] = struct{}{}
		}
	}
	target, ok := members[targetID]
	if len(businesses) < 2 || !ok || len(target) == 0 {
		return []sm.Business{}
	}

	type scored struct {
		score float64
		b     sm.Business
	}
	ranked := make([]scored, 0, len(businesses)-1)
	for _, b := range businesses {
		if b.ID == targetID {
			continue
		}
		ranked = append(ranked, scored{score: jaccard(target, members[b.ID]), b: b.Business})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]sm.Business, len(ranked))
	for i, s := range ranked {
		out[i] = s.b
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
