package models

import "strings"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type User struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Role                 string `json:"role"` // member | admin
	GoogleChatWebhookURL string `json:"googleChatWebhookUrl,omitempty"`
}

// NameFromEmail derives a default display name from the address local part:
// "asha.rao@x" becomes "Asha Rao".
func NameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	words := strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
