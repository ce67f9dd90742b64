package service

import (
	"context"
	"math"
	"time"

	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/repository"
	"github.com/rs/zerolog/log"
)

type AnalyticsService interface {
	Dashboard(ctx context.Context, caller auth.Identity) (*dto.DashboardResponse, error)
	// Churn reports users with no activity in the last inactiveDays days;
	// zero or less uses the configured default.
	Churn(ctx context.Context, inactiveDays int) (*dto.ChurnReport, error)
}

type analyticsService struct {
	repo        repository.AnalyticsRepository
	defaultDays int
	now         func() time.Time
}

func NewAnalyticsService(cfg *config.Config, repo repository.AnalyticsRepository) AnalyticsService {
	return &analyticsService{
		repo:        repo,
		defaultDays: cfg.Analytics.ChurnInactiveDays,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func (s *analyticsService) Dashboard(ctx context.Context, caller auth.Identity) (*dto.DashboardResponse, error) {
	totals, err := s.repo.SessionTotals(ctx, caller.UserID)
	if err != nil {
		return nil, apperror.FromStore("dashboard", err)
	}
	categories, err := s.repo.CategoryAccuracy(ctx, caller.UserID)
	if err != nil {
		return nil, apperror.FromStore("dashboard", err)
	}

	resp := &dto.DashboardResponse{
		SessionsStarted:   totals.Started,
		SessionsSubmitted: totals.Submitted,
		AveragePercentage: round1(totals.AveragePercentage),
		BestPercentage:    totals.BestPercentage,
		Categories:        make([]dto.CategoryAccuracy, 0, len(categories)),
	}
	for _, c := range categories {
		item := dto.CategoryAccuracy{Category: c.Category, Answered: c.Answered, Correct: c.Correct}
		if c.Answered > 0 {
			item.AccuracyPc = round1(100 * float64(c.Correct) / float64(c.Answered))
		}
		resp.Categories = append(resp.Categories, item)
	}
	return resp, nil
}

func (s *analyticsService) Churn(ctx context.Context, inactiveDays int) (*dto.ChurnReport, error) {
	if inactiveDays <= 0 {
		inactiveDays = s.defaultDays
	}
	cutoff := s.now().AddDate(0, 0, -inactiveDays)

	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, apperror.FromStore("users", err)
	}
	inactive, err := s.repo.InactiveSince(ctx, cutoff)
	if err != nil {
		return nil, apperror.FromStore("users", err)
	}

	report := &dto.ChurnReport{
		InactiveDays: inactiveDays,
		TotalUsers:   total,
		ChurnedUsers: int64(len(inactive)),
		Users:        make([]dto.ChurnedUser, 0, len(inactive)),
	}
	report.ActiveUsers = total - report.ChurnedUsers
	if total > 0 {
		report.ChurnRate = round1(100 * float64(report.ChurnedUsers) / float64(total))
	}
	for _, u := range inactive {
		report.Users = append(report.Users, dto.ChurnedUser{ID: u.ID.String(), Email: u.Email, LastActiveAt: u.LastActiveAt})
	}
	log.Info().Int("inactiveDays", inactiveDays).Int64("total", total).Int64("churned", report.ChurnedUsers).Msg("Churn report computed")
	return report, nil
}
