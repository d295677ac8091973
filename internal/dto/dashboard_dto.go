package dto

import "time"

// StudentDashboardResponse summarises a student's current workload.
type StudentDashboardResponse struct {
	StudentID           uint      `json:"student_id"`
	EnrolledCourses     int       `json:"enrolled_courses"`
	PendingAssignments  int       `json:"pending_assignments"`
	UnreadNotifications int64     `json:"unread_notifications"`
	OpenTickets         int64     `json:"open_tickets"`
	GeneratedAt         time.Time `json:"generated_at"`
	CacheHit            bool      `json:"cache_hit"`
}
