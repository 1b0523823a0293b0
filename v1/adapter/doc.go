// Package adapter connects the users service to a relational database
// through GORM.
package adapter
