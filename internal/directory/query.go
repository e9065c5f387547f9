package directory

import "github.com/guardpost/guardpost/internal/db/models"

// SortDirection indicates the direction of a sorted listing.
type SortDirection string

const (
	// SortAscending sorts results in ascending order.
	SortAscending SortDirection = "asc"
	// SortDescending sorts results in descending order.
	SortDescending SortDirection = "desc"
)

// UserSortBy selects the user attribute a listing is sorted on.
type UserSortBy string

const (
	// UserSortByUsername sorts users by username.
	UserSortByUsername UserSortBy = "username"
	// UserSortByName sorts users by full name.
	UserSortByName UserSortBy = "name"
	// UserSortByPreferredName sorts users by preferred name.
	UserSortByPreferredName UserSortBy = "preferredName"
	// UserSortByEmail sorts users by email address.
	UserSortByEmail UserSortBy = "email"
)

// GroupMemberType identifies the kind of entity a group member is.
type GroupMemberType string

const (
	// GroupMemberTypeUser identifies a user group member.
	GroupMemberTypeUser GroupMemberType = "user"
)

// Attribute is a name-value predicate used by FindUsers to search on
// individual user attributes.
type Attribute struct {
	// Name is the user attribute name (username, name, preferredName, email, phone, mobile).
	Name string `json:"name"`
	// Value is the value to match (case-insensitive substring).
	Value string `json:"value"`
}

// GroupMember is a denormalized projection of one group membership. It is
// computed by query operations and never stored directly.
type GroupMember struct {
	// DirectoryID is the ID of the directory the group belongs to.
	DirectoryID string `json:"directoryId"`
	// GroupName is the name of the group.
	GroupName string `json:"groupName"`
	// MemberType is the kind of member.
	MemberType GroupMemberType `json:"memberType"`
	// MemberName identifies the member (the username for user members).
	MemberName string `json:"memberName"`
}

// GroupRole is a denormalized projection of one group-to-role assignment.
type GroupRole struct {
	// DirectoryID is the ID of the directory the group belongs to.
	DirectoryID string `json:"directoryId"`
	// GroupName is the name of the group.
	GroupName string `json:"groupName"`
	// RoleCode is the code of the assigned role.
	RoleCode string `json:"roleCode"`
}

// Users is one page of a filtered, sorted user listing.
type Users struct {
	// Users holds the page of user records.
	Users []models.User `json:"users"`
	// Total is the total number of users matching the filter.
	Total int64 `json:"total"`
	// Filter is the filter the listing was produced with.
	Filter string `json:"filter"`
	// SortBy is the attribute the listing is sorted on.
	SortBy UserSortBy `json:"sortBy"`
	// SortDirection is the direction the listing is sorted in.
	SortDirection SortDirection `json:"sortDirection"`
	// Page is the 1-based page index.
	Page int `json:"page"`
	// PageSize is the maximum number of records per page.
	PageSize int `json:"pageSize"`
}

// Groups is one page of a filtered, sorted group listing.
type Groups struct {
	// Groups holds the page of group records.
	Groups []models.Group `json:"groups"`
	// Total is the total number of groups matching the filter.
	Total int64 `json:"total"`
	// Filter is the filter the listing was produced with.
	Filter string `json:"filter"`
	// SortDirection is the direction the listing is sorted in.
	SortDirection SortDirection `json:"sortDirection"`
	// Page is the 1-based page index.
	Page int `json:"page"`
	// PageSize is the maximum number of records per page.
	PageSize int `json:"pageSize"`
}

// GroupMembers is one page of a filtered, sorted group member listing.
type GroupMembers struct {
	// Members holds the page of group member projections.
	Members []GroupMember `json:"members"`
	// Total is the total number of members matching the filter.
	Total int64 `json:"total"`
	// Filter is the filter the listing was produced with.
	Filter string `json:"filter"`
	// SortDirection is the direction the listing is sorted in.
	SortDirection SortDirection `json:"sortDirection"`
	// Page is the 1-based page index.
	Page int `json:"page"`
	// PageSize is the maximum number of records per page.
	PageSize int `json:"pageSize"`
}

const (
	// DefaultPageSize is used when a listing is requested without a page size.
	DefaultPageSize = 10
	// MaxPageSize caps the number of records returned per page.
	MaxPageSize = 100
)

// normalizePage clamps page and pageSize to sane values.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}

	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	return page, pageSize
}

// pageSlice returns the subslice of items for the given 1-based page.
func pageSlice[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}

	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	return items[start:end]
}
