package entity

// UserAuth is the authenticated principal resolved from an API key.
// Username doubles as the tenant identifier for seller accounts.
type UserAuth struct {
	Username string `json:"username" bson:"username"`
	Tenant   string `json:"tenant" bson:"tenant"`
	Role     string `json:"role" bson:"role"`
}
