// Package repository provides a generic Bun-backed repository for simple
// CRUD on a single model.
package repository
