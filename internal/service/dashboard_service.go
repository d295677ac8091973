package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/repository"
)

const dashboardCacheKey = "dashboard:student:%d"

// DashboardService aggregates per-student activity counters.
type DashboardService interface {
	StudentSummary(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
	Invalidate(ctx context.Context, studentID uint)
}

type dashboardService struct {
	enrollments   repository.EnrollmentRepository
	assignments   repository.AssignmentRepository
	submissions   repository.SubmissionRepository
	notifications repository.NotificationRepository
	tickets       repository.TicketRepository
	cache         *redis.Client
	ttl           time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewDashboardService constructs a dashboard service. cache may be nil, in
// which case every request recomputes the summary.
func NewDashboardService(
	enrollments repository.EnrollmentRepository,
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	notifications repository.NotificationRepository,
	tickets repository.TicketRepository,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) DashboardService {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}

	return &dashboardService{
		enrollments:   enrollments,
		assignments:   assignments,
		submissions:   submissions,
		notifications: notifications,
		tickets:       tickets,
		cache:         cache,
		ttl:           ttl,
		logger:        logger.With().Str("component", "dashboard_service").Logger(),
		now:           time.Now,
	}
}

func (s *dashboardService) StudentSummary(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	key := fmt.Sprintf(dashboardCacheKey, studentID)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var cached dto.StudentDashboardResponse
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				cached.CacheHit = true
				return cached, nil
			}
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to decode cached dashboard, recomputing")
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("dashboard cache read failed")
		}
	}

	summary, err := s.compute(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("dashboard cache write failed")
			}
		}
	}

	return summary, nil
}

// Invalidate drops the cached summary so the next read recomputes it.
func (s *dashboardService) Invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, fmt.Sprintf(dashboardCacheKey, studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("dashboard cache invalidation failed")
	}
}

func (s *dashboardService) compute(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	courseIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}

	assignments, err := s.assignments.ListByCourseIDs(ctx, courseIDs)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	submissions, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	submitted := make(map[uint]struct{}, len(submissions))
	for _, sub := range submissions {
		submitted[sub.AssignmentID] = struct{}{}
	}

	now := s.now().UTC()
	pending := 0
	for _, a := range assignments {
		if _, done := submitted[a.ID]; done {
			continue
		}
		if a.DueDate.After(now) {
			pending++
		}
	}

	unread, err := s.notifications.CountUnread(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	openTickets, err := s.tickets.CountActiveByOwner(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	return dto.StudentDashboardResponse{
		StudentID:           studentID,
		EnrolledCourses:     len(enrollments),
		PendingAssignments:  pending,
		UnreadNotifications: unread,
		OpenTickets:         openTickets,
		GeneratedAt:         now,
	}, nil
}
