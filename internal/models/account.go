package models

// Role is the closed set of account roles known to the messaging core.
type Role string

const (
	RoleParent  Role = "parent"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleParent, RoleTeacher, RoleStudent, RoleAdmin:
		return true
	}
	return false
}

// Account identifies a caller. Role and school affiliation are fixed for
// the lifetime of a session; role changes happen outside this service.
type Account struct {
	ID       int64  `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Role     Role   `db:"role" json:"role"`
	SchoolID int64  `db:"school_id" json:"school_id"`
}
