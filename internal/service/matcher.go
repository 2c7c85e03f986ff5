package service

import (
	"sort"

	"github.com/opsdeck/ticket-triage/internal/domain"
)

// Match selects the best assignee for a set of required skills. Pure and
// deterministic: candidates are scored by skill overlap, ties break by
// earliest account creation then lowest id. When no candidate overlaps (or no
// skills are required) the earliest-created admin is chosen so a human is
// always notified; with no admin present, the earliest-created eligible staff
// member stands in. Returns nil only when the directory holds no moderator or
// admin at all.
func Match(requiredSkills []string, candidates []domain.User) *domain.User {
	eligible := make([]domain.User, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.EligibleAssignee() {
			eligible = append(eligible, candidate)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].ID < eligible[j].ID
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})

	required := make(map[string]struct{})
	for _, skill := range domain.NormalizeSkills(requiredSkills) {
		required[skill] = struct{}{}
	}

	bestIdx, bestScore := -1, 0
	for i := range eligible {
		if score := overlap(required, eligible[i].Skills); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx >= 0 {
		winner := eligible[bestIdx]
		return &winner
	}

	for i := range eligible {
		if eligible[i].Role == domain.UserRoleAdmin {
			fallback := eligible[i]
			return &fallback
		}
	}
	fallback := eligible[0]
	return &fallback
}

// overlap counts how many required skills the candidate covers. Candidate
// skills are normalized here as well; the directory does not guarantee clean
// tags either.
func overlap(required map[string]struct{}, skills []string) int {
	if len(required) == 0 {
		return 0
	}
	score := 0
	for _, skill := range domain.NormalizeSkills(skills) {
		if _, ok := required[skill]; ok {
			score++
		}
	}
	return score
}
