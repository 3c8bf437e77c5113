// Package types defines the schema data model, bound-parameter types,
// structured errors, and the Database, Executor, and SchemaEditor interfaces
// for the sqlschema SQLite driver.
package types
