package tenant

import "gorm.io/gorm"

// Scope restricts a query to rows belonging to one client organization. The
// authorization layer decides which client id applies; repositories only
// apply the predicate.
func Scope(clientID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("client_id = ?", clientID)
	}
}

// OwnerScope restricts a query to rows owned by one user, used when the
// caller may only see their own requests.
func OwnerScope(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}
