// Package sqlite contains the SQLite persistence for finished sessions,
// goals and the user profile.
//
// The schema is owned by the embedded migrations under migrations/ and
// applied with golang-migrate; Open never creates tables itself. Domain
// packages depend on history.Store, not on this package.
package sqlite
