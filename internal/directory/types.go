package directory

import "time"

// Role is the explicit privilege level stored on an identity record.
// It is assigned at creation and never changes.
type Role string

const (
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

// ParseRole maps a string to a Role, defaulting to guest.
func ParseRole(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleGuest
}

// Profile holds the variant-dependent enrollment fields. The state machine
// treats it as opaque payload; only the web shell and the installation
// profile care which fields are populated.
type Profile struct {
	Gender         string     `json:"gender,omitempty"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	DateOfBirth    string     `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	PassportNumber string     `json:"passport_number,omitempty"`
	HotelName      string     `json:"hotel_name,omitempty"`
	RoomNumber     string     `json:"room_number,omitempty"`
	CheckIn        *time.Time `json:"check_in,omitempty"`
	CheckOut       *time.Time `json:"check_out,omitempty"`
}

// Identity is one enrolled person. ReferenceImage is set at registration
// and never mutated; the embedding is a cache derived from it.
type Identity struct {
	ID                 string
	Username           string
	Role               Role
	ReferenceImage     string // data URI, ground truth for verification
	ReferenceEmbedding []float32
	Profile            Profile
	CreatedAt          time.Time
}

// IsAdmin reports whether the identity carries administrative privilege.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
