package patients

import "time"

// MainProfileName is the reserved name of the automatically created profile
// that owns documents with no readable patient name.
const MainProfileName = "Main profile"

// Patient is one profile under a user account. A user gets one main profile
// plus one profile per distinct patient name found on their documents.
type Patient struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	FullName  string     `json:"fullName"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	IsMain    bool       `json:"isMain"`
	CreatedAt time.Time  `json:"createdAt"`
}
