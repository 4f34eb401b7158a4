package models

// TeacherCard is a directory entry for a teacher profile.
type TeacherCard struct {
	Profile
	DisplayName string `json:"display_name"`
}

// TeacherDetail bundles a teacher profile with the courses they teach.
type TeacherDetail struct {
	TeacherCard
	Courses []Course `json:"courses"`
}

// TeacherFilter narrows the teacher directory.
type TeacherFilter struct {
	Search string
}
