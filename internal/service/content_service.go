package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/search"
)

var defaultLessons = []models.Lesson{
	{Title: "Everyday English Conversation", Level: "Beginner", Duration: "4 weeks", Students: 120},
	{Title: "Business English Writing", Level: "Intermediate", Duration: "6 weeks", Students: 85},
	{Title: "Academic English Reading", Level: "Advanced", Duration: "8 weeks", Students: 45},
}

var lessonFields search.Fields[models.Lesson] = func(l models.Lesson) []string {
	return []string{l.Title, l.Level}
}

// ContentService serves the static pages: home and the lesson catalog.
type ContentService struct {
	lessons []models.Lesson
}

// NewContentService builds the service over the built-in lesson catalog.
func NewContentService() *ContentService {
	return &ContentService{lessons: defaultLessons}
}

// Home returns the landing page content.
func (s *ContentService) Home() models.HomeContent {
	return models.HomeContent{
		Title:       "Welcome to the English Teaching Platform",
		Subtitle:    "English Teaching Platform",
		Description: "Courses, teachers and tools that help you improve your English and reach your goals.",
		Features: []models.Feature{
			{Title: "Rich course content", Description: "Courses from beginner to advanced for every learning need.", Link: "/lessons"},
			{Title: "Professional teachers", Description: "Experienced teachers offering personal guidance.", Link: "/teachers"},
			{Title: "Progress tracking", Description: "Follow your enrollments and learning history.", Link: "/profile"},
			{Title: "File management", Description: "View and edit your study files at any time.", Link: "/files"},
		},
	}
}

// Lessons returns the catalog narrowed by term.
func (s *ContentService) Lessons(term string) []models.Lesson {
	return search.Filter(s.lessons, term, lessonFields)
}

// EnrollLesson acknowledges interest in a catalog lesson. Nothing is persisted.
func (s *ContentService) EnrollLesson(title string) (string, error) {
	for _, l := range s.lessons {
		if strings.EqualFold(l.Title, strings.TrimSpace(title)) {
			return fmt.Sprintf("Successfully enrolled in %q!", l.Title), nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
}
