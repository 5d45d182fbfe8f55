package domain

import "time"

type Category string

const (
	CategoryStudyTips       Category = "Study Tips"
	CategoryCareerAdvice    Category = "Career Advice"
	CategoryTechnology      Category = "Technology"
	CategoryProductivity    Category = "Productivity"
	CategoryStudentLife     Category = "Student Life"
	CategoryMentalHealth    Category = "Mental Health"
	CategoryPersonalFinance Category = "Personal Finance"
	CategoryInternships     Category = "Internships"
)

// Categories is the default rotation used by the daily batch.
var Categories = []Category{
	CategoryStudyTips,
	CategoryCareerAdvice,
	CategoryTechnology,
	CategoryProductivity,
	CategoryStudentLife,
	CategoryMentalHealth,
	CategoryPersonalFinance,
	CategoryInternships,
}

// Article is a generated blog post. It is never modified after insertion.
type Article struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Slug        string    `db:"slug" json:"slug"`
	Excerpt     string    `db:"excerpt" json:"excerpt"`
	Content     string    `db:"content" json:"content"`
	Category    Category  `db:"category" json:"category"`
	ReadTime    string    `db:"read_time" json:"read_time"`
	ImageURL    string    `db:"image_url" json:"image_url"`
	Featured    bool      `db:"featured" json:"featured"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
}

type ListOptions struct {
	Category Category
	Limit    int
	Offset   int
}
