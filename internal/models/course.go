package models

import "time"

// Course is a persisted course record.
type Course struct {
	ID                    string    `db:"id" json:"id"`
	Title                 string    `db:"title" json:"title"`
	Description           *string   `db:"description" json:"description"`
	TeacherID             *string   `db:"teacher_id" json:"teacher_id"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	MoreDetails           *string   `db:"more_details" json:"more_details"`
	Difficulty            *string   `db:"difficulty" json:"difficulty"`
	HelpfulPercentage     *float64  `db:"helpful_percentage" json:"helpful_percentage"`
	HelpfulPercentageWork *float64  `db:"helpful_percentage_work" json:"helpful_percentage_work"`
}

// CourseSummary is the subset of a course embedded in enrollments.
type CourseSummary struct {
	ID          string  `db:"id" json:"id"`
	Title       string  `db:"title" json:"title"`
	Description *string `db:"description" json:"description"`
	Difficulty  *string `db:"difficulty" json:"difficulty"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	TeacherID string
	Search    string
}

// CourseDetail pairs a course with its teacher's contact.
type CourseDetail struct {
	Course
	TeacherEmail string `json:"teacher_email,omitempty"`
}

// TextOrEmpty dereferences an optional text column.
func TextOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
