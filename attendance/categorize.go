package attendance

import "strings"

var consultantMarkers = []string{"dr.", "dr ", "doctor", "consultant"}

// InferCategory guesses a category from the employee's name when the upload
// does not carry one. Doctors and consultants are Consultants; nurses,
// technicians, RMOs and office staff all fall under Staff.
func InferCategory(name string) Category {
	lower := strings.ToLower(name)
	for _, marker := range consultantMarkers {
		if strings.Contains(lower, marker) {
			return CategoryConsultant
		}
	}
	return CategoryStaff
}
