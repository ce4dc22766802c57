// Package auth issues and checks the HS256 bearer tokens that guard
// protected gateway routes.
package auth
