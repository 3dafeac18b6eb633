package service

import (
	"math"
	"time"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

// ComputeCourseStats derives attendance figures for one course from its sessions.
//
// The percentage only credits present sessions dated on or before today, while
// bunked sessions count regardless of date. The bunk quota is measured against
// every session of the course, cancelled and future ones included. Both rules are
// product policy and must stay as they are.
func ComputeCourseStats(course models.Course, sessions []models.Session, threshold int, today time.Time) models.CourseStats {
	stats := models.CourseStats{CourseID: course.ID, Name: course.Name}
	todayKey := today.Format("2006-01-02")
	for _, s := range sessions {
		stats.Total++
		switch s.Status {
		case models.SessionStatusPresent:
			if s.Date.Format("2006-01-02") <= todayKey {
				stats.Present++
			}
		case models.SessionStatusBunked:
			stats.Bunked++
		case models.SessionStatusCancelled:
			stats.Cancelled++
		}
	}
	stats.Percentage = attendancePercentage(stats.Present, stats.Bunked)
	stats.MustAttend = mustAttend(stats.Total, threshold)
	stats.BunksAvailable = stats.Total - stats.MustAttend - stats.Bunked
	return stats
}

// attendancePercentage rounds half away from zero; zero present yields zero.
func attendancePercentage(present, bunked int) int {
	if present == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(present+bunked) * 100))
}

// mustAttend is ceil(total * threshold / 100) in integer arithmetic.
func mustAttend(total, threshold int) int {
	if total <= 0 || threshold <= 0 {
		return 0
	}
	return (total*threshold + 99) / 100
}

// ComputeCollectionStats groups sessions by course and computes stats in course order.
func ComputeCollectionStats(courses []models.Course, sessions []models.Session, threshold int, today time.Time) []models.CourseStats {
	byCourse := make(map[string][]models.Session, len(courses))
	for _, s := range sessions {
		byCourse[s.CourseID] = append(byCourse[s.CourseID], s)
	}
	out := make([]models.CourseStats, 0, len(courses))
	for _, course := range courses {
		out = append(out, ComputeCourseStats(course, byCourse[course.ID], threshold, today))
	}
	return out
}
