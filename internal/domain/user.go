package domain

// User roles, ordered by privilege: user < moderator < admin
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// roleRank maps each role to its position in the privilege order
var roleRank = map[string]int{
	RoleUser:      0,
	RoleModerator: 1,
	RoleAdmin:     2,
}

// User Model
type User struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Username         string `gorm:"size:150;unique;not null" json:"username"` // Unique login name
	Email            string `gorm:"size:254;unique;not null" json:"email"`    // Unique email address
	FirstName        string `gorm:"size:150" json:"first_name"`
	LastName         string `gorm:"size:150" json:"last_name"`
	Bio              string `gorm:"type:text" json:"bio"`
	Role             string `gorm:"size:9;default:user" json:"role"` // Role: user, moderator or admin
	Superuser        bool   `json:"-"`                               // Superusers count as admin everywhere
	Active           bool   `json:"-"`                               // Set on first successful token exchange
	ConfirmationCode string `gorm:"size:150" json:"-"`               // bcrypt hash of the mailed code
}

// IsAdmin reports whether the user has admin privileges.
// Superusers count as admin regardless of their role field.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Superuser
}

// IsModerator reports whether the user's role is moderator.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// RoleAtLeast reports whether the user's privileges meet the threshold role.
func (u *User) RoleAtLeast(threshold string) bool {
	rank := roleRank[u.Role]
	if u.Superuser {
		rank = roleRank[RoleAdmin]
	}
	return rank >= roleRank[threshold]
}

// CanModerate is the author-or-staff rule shared by reviews and comments:
// the author may edit their own record, moderators and admins may edit any.
func (u *User) CanModerate(authorID uint) bool {
	return u.ID == authorID || u.IsModerator() || u.IsAdmin()
}

// ValidRole reports whether value is one of the known roles.
func ValidRole(value string) bool {
	_, ok := roleRank[value]
	return ok
}
