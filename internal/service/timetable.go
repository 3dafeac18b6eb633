package service

import (
	"strings"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

const timetableDays = 5

// BuildCourseTrees turns a timetable grid into courses with their weekly schedules.
// Row i is period order i+1 and column j is day_of_week j+1. Cells holding the same
// course name become one course with several schedules, in order of first appearance.
func BuildCourseTrees(grid [][]string) []models.CourseTree {
	index := make(map[string]int)
	var trees []models.CourseTree
	for row, periods := range grid {
		for col, cell := range periods {
			name := strings.TrimSpace(cell)
			if name == "" || col >= timetableDays {
				continue
			}
			i, ok := index[name]
			if !ok {
				i = len(trees)
				index[name] = i
				trees = append(trees, models.CourseTree{Course: models.Course{Name: name}})
			}
			trees[i].Schedules = append(trees[i].Schedules, models.Schedule{
				DayOfWeek: models.DayOfWeek(col + 1),
				Order:     row + 1,
			})
		}
	}
	return trees
}

// BuildTimetableGrid reconstructs the weekly grid from schedule slots.
func BuildTimetableGrid(slots []models.TimetableSlot) [][]string {
	rows := 0
	for _, slot := range slots {
		if slot.Order > rows {
			rows = slot.Order
		}
	}
	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, timetableDays)
	}
	for _, slot := range slots {
		if slot.Order < 1 || !slot.DayOfWeek.Valid() {
			continue
		}
		grid[slot.Order-1][int(slot.DayOfWeek)-1] = slot.CourseName
	}
	return grid
}

// treeSlots flattens a collection tree into timetable slots.
func treeSlots(tree *models.CollectionTree) []models.TimetableSlot {
	var slots []models.TimetableSlot
	for _, course := range tree.Courses {
		for _, schedule := range course.Schedules {
			slots = append(slots, models.TimetableSlot{
				CourseID:   course.Course.ID,
				CourseName: course.Course.Name,
				DayOfWeek:  schedule.DayOfWeek,
				Order:      schedule.Order,
			})
		}
	}
	return slots
}

func dayNames() []string {
	names := make([]string, timetableDays)
	for i := range names {
		names[i] = models.DayOfWeek(i + 1).String()
	}
	return names
}
