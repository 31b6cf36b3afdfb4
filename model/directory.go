package model

// User is an account from the directory.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	DepartmentID int64  `json:"departmentId,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	Active       bool   `json:"active"`
}

// Department groups users in the directory.
type Department struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ManagerID   int64  `json:"managerId,omitempty"`
}
