package models

// campusAreas maps each known campus to the neighborhoods considered within
// reach of it. The sets are static; listings outside them are filtered out
// when a Dakar campus is selected.
var campusAreas = map[string][]string{
	"UCAD":      {"Fann", "Point E"},
	"UGB":       {"Fann"},
	"UASZ":      {"Point E"},
	"UADB":      {"Fann"},
	"UVS":       {"Point E", "Almadies"},
	"ESP":       {"Point E", "Fann"},
	"Sup de Co": {"Almadies", "Point E"},
	"ISM":       {"Point E", "Almadies"},
	"IAM":       {"Point E"},
}

// dakarCampuses are the campuses located in Dakar. The area filter only
// applies to these; a campus outside Dakar (or unknown entirely) bypasses
// the filter since its neighborhoods are not mapped.
var dakarCampuses = map[string]bool{
	"UCAD":      true,
	"ESP":       true,
	"Sup de Co": true,
	"ISM":       true,
	"IAM":       true,
	"UVS":       true,
}

// AreasForCampus returns the allowed areas for a campus, or nil when the
// campus is unknown.
func AreasForCampus(campus string) []string {
	return campusAreas[campus]
}

// CampusFiltersByArea reports whether selecting this campus should restrict
// results to its mapped neighborhoods.
func CampusFiltersByArea(campus string) bool {
	if campus == "" || !dakarCampuses[campus] {
		return false
	}
	return len(campusAreas[campus]) > 0
}
