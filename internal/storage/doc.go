package storage

// Package storage provides the SQLite-backed watchlist store: schema
// migrations, the storage handle, and one repository per record type.
// Cascading deletes are issued explicitly by the repositories inside a
// single transaction; the schema's foreign keys carry no ON DELETE actions.
