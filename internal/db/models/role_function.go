package models

// RoleFunction represents the many-to-many relationship between roles and
// functions. When a role is deleted, its function assignments are
// automatically removed (CASCADE).
type RoleFunction struct {
	// RoleCode is the code of the role in this mapping.
	RoleCode string `gorm:"primaryKey;size:100;column:role_code"`
	// FunctionCode is the code of the function in this mapping.
	FunctionCode string `gorm:"primaryKey;size:100;column:function_code"`
	// Role is the associated role (loaded via foreign key).
	Role Role `gorm:"foreignKey:RoleCode;references:Code;constraint:OnDelete:CASCADE"`
	// Function is the associated function (loaded via foreign key).
	Function Function `gorm:"foreignKey:FunctionCode;references:Code;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the RoleFunction model.
func (RoleFunction) TableName() string {
	return "role_functions"
}
