package models

import "gorm.io/gorm"

// Course and Lesson are owned by the catalog; tests may hang off either.
type Course struct {
	gorm.Model
	Title       string
	ShortDesc   string
	Description string
	AuthorID    uint
	Lessons     []Lesson
	Tests       []Test
}

type Lesson struct {
	gorm.Model
	CourseID      uint
	Title         string
	Description   string
	Content       string
	SequenceOrder int
	Tests         []Test
}
