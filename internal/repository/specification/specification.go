package specification

import "gorm.io/gorm"

// Specification defines the interface for query specifications
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Matcher is implemented by specifications that can also be evaluated against
// an entity held in process (see repository/memory).
type Matcher interface {
	Matches(record interface{}) bool
}
