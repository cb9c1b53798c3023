// Package app provides the application service layer.
//
// Orchestrates the session use cases: save, switch, rename, overwrite,
// delete, reorder, export/import. Sits between HTTP handlers and the
// store, persistence and agent bridge. Depends on domain interfaces, not
// concrete implementations.
package app
