package service

import (
	"sort"
	"time"

	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/store"
)

type LeaderboardService struct {
	suggRepo    *repository.SuggestionRepository
	userRepo    *repository.UserRepository
	departments []string
}

func NewLeaderboardService(
	suggRepo *repository.SuggestionRepository,
	userRepo *repository.UserRepository,
	departments []string,
) *LeaderboardService {
	return &LeaderboardService{
		suggRepo:    suggRepo,
		userRepo:    userRepo,
		departments: departments,
	}
}

// MonthlyTopAuthors ranks authors by points of suggestions approved in
// the current calendar month, top 3. Grouping is by author and
// department via an in-memory join to the user table; the sort is
// stable so ties keep original row order, and the first three rows take
// medal ranks regardless of ties.
func (s *LeaderboardService) MonthlyTopAuthors(now time.Time) ([]models.AuthorRank, error) {
	all, err := s.suggRepo.All()
	if err != nil {
		return nil, err
	}
	depts, err := s.userRepo.DepartmentsByID()
	if err != nil {
		return nil, err
	}

	type key struct{ author, dept string }
	totals := make(map[key]int)
	names := make(map[key]string)
	var order []key

	for _, sg := range all {
		if sg.Status != models.StatusApproved {
			continue
		}
		d, ok := store.AsDate(sg.CreatedOn)
		if !ok || d.Year() != now.Year() || d.Month() != now.Month() {
			continue
		}
		k := key{author: sg.AuthorID, dept: depts[sg.AuthorID]}
		if _, seen := totals[k]; !seen {
			order = append(order, k)
			names[k] = sg.AuthorName
		}
		totals[k] += sg.Points
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > 3 {
		order = order[:3]
	}

	ranks := make([]models.AuthorRank, 0, len(order))
	for i, k := range order {
		ranks = append(ranks, models.AuthorRank{
			Rank:       i + 1,
			AuthorName: names[k],
			Department: k.dept,
			Points:     totals[k],
		})
	}
	return ranks, nil
}

// DepartmentRanking ranks departments by cumulative approved points
// over all time, top 5.
func (s *LeaderboardService) DepartmentRanking() ([]models.DepartmentRank, error) {
	all, err := s.suggRepo.All()
	if err != nil {
		return nil, err
	}
	depts, err := s.userRepo.DepartmentsByID()
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	var order []string
	for _, sg := range all {
		if sg.Status != models.StatusApproved {
			continue
		}
		dept := depts[sg.AuthorID]
		if _, seen := totals[dept]; !seen {
			order = append(order, dept)
		}
		totals[dept] += sg.Points
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > 5 {
		order = order[:5]
	}

	ranks := make([]models.DepartmentRank, 0, len(order))
	for i, dept := range order {
		ranks = append(ranks, models.DepartmentRank{
			Rank:       i + 1,
			Department: dept,
			Points:     totals[dept],
		})
	}
	return ranks, nil
}

// DepartmentActivity counts suggestions per configured department for
// the current year and month. Departments outside the configured list
// are not counted.
func (s *LeaderboardService) DepartmentActivity(now time.Time) ([]models.DepartmentActivity, error) {
	all, err := s.suggRepo.All()
	if err != nil {
		return nil, err
	}
	depts, err := s.userRepo.DepartmentsByID()
	if err != nil {
		return nil, err
	}

	yearCounts := make(map[string]int)
	monthCounts := make(map[string]int)
	for _, sg := range all {
		d, ok := store.AsDate(sg.CreatedOn)
		if !ok || d.Year() != now.Year() {
			continue
		}
		dept := depts[sg.AuthorID]
		yearCounts[dept]++
		if d.Month() == now.Month() {
			monthCounts[dept]++
		}
	}

	out := make([]models.DepartmentActivity, 0, len(s.departments))
	for _, dept := range s.departments {
		out = append(out, models.DepartmentActivity{
			Department: dept,
			YearCount:  yearCounts[dept],
			MonthCount: monthCounts[dept],
		})
	}
	return out, nil
}
