package models

import "time"

// Enrollment links a student identity to a course.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with the joined course.
type EnrollmentDetail struct {
	Enrollment
	Course CourseSummary `db:"course" json:"course"`
}
