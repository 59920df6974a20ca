// Package types holds the page request and page result shapes shared by
// repositories.
package types
