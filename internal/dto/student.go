package dto

// CreateStudentRequest registers a new student in the directory.
type CreateStudentRequest struct {
	FullName     string `json:"full_name" validate:"required"`
	GuardianName string `json:"guardian_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	Grade        string `json:"grade"`
}

// UpdateStudentRequest updates directory fields; nil fields are left as-is.
type UpdateStudentRequest struct {
	FullName     *string `json:"full_name"`
	GuardianName *string `json:"guardian_name"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Grade        *string `json:"grade"`
	Active       *bool   `json:"active"`
}
