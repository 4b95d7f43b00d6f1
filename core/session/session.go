// Package session holds the identity of whoever performs an operation.
// A Session is built by the transport layer (JWT claims, CLI flags) and passed explicitly to every mutating call.
package session

import (
	"net/mail"
	"strings"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Teachers: 20 - 11
		RoleTeacher: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// IsValidRole reports whether role is one of AllRoles.
func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Session struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// System is the Session used by operator tools acting outside of any user request.
var System = Session{UserID: "system", Name: "System", Roles: []string{RoleAdminOwner}}

func (s Session) IsZero() bool {
	return s.UserID == ""
}

func (s Session) roleStartsWith(prefix string) bool {
	for _, role := range s.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (s Session) IsAdmin() bool {
	return s.roleStartsWith(RoleAdmin)
}

func (s Session) IsTeacher() bool {
	return s.roleStartsWith(RoleTeacher)
}

func (s Session) IsStudent() bool {
	return s.roleStartsWith(RoleStudent)
}

// CanActFor reports whether the session may read or change the records of studentID.
func (s Session) CanActFor(studentID string) bool {
	return s.IsAdmin() || (s.UserID != "" && s.UserID == studentID)
}

// Address returns the mail.Address of the session user, if it has an email.
func (s Session) Address() (mail.Address, bool) {
	if s.Email == "" {
		return mail.Address{}, false
	}
	return mail.Address{Name: s.Name, Address: s.Email}, true
}
