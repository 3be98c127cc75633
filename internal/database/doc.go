// Package database holds the PostgreSQL adapters: the pgx connection
// pool, the embedded schema migrations, and the repository
// implementations behind the domain interfaces.
package database
