package content

import "dreamclerk/internal/domain"

const placeholderImage = "/images/blog/placeholder.jpg"

var categoryImages = map[domain.Category]string{
	domain.CategoryStudyTips:       "https://images.unsplash.com/photo-1434030216411-0b793f4b4173?w=1200",
	domain.CategoryCareerAdvice:    "https://images.unsplash.com/photo-1521791136064-7986c2920216?w=1200",
	domain.CategoryTechnology:      "https://images.unsplash.com/photo-1518770660439-4636190af475?w=1200",
	domain.CategoryProductivity:    "https://images.unsplash.com/photo-1484480974693-6ca0a78fb36b?w=1200",
	domain.CategoryStudentLife:     "https://images.unsplash.com/photo-1523050854058-8df90110c9f1?w=1200",
	domain.CategoryMentalHealth:    "https://images.unsplash.com/photo-1506126613408-eca07ce68773?w=1200",
	domain.CategoryPersonalFinance: "https://images.unsplash.com/photo-1554224155-6726b3ff858f?w=1200",
	domain.CategoryInternships:     "https://images.unsplash.com/photo-1556761175-5973dc0f32e7?w=1200",
}

// ImageFor returns the cover image for category, or a generic placeholder.
func ImageFor(category domain.Category) string {
	if url, ok := categoryImages[category]; ok {
		return url
	}
	return placeholderImage
}
