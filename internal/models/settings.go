package models

type Hospital struct {
	Name string `json:"name"`
	Zone string `json:"zone"`
}

type TeamMember struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CategoryMap maps a main category to its subcategories.
type CategoryMap map[string][]string
