// Package models defines the request and response types of the HTTP API.
package models

import (
	"encoding/json"

	"github.com/maruel/tabledb/internal/table"
)

// HealthRequest is the request type for health check (empty).
type HealthRequest struct{}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status string `json:"status"`
	Tables int    `json:"tables"`
}

// TableInfo summarizes one table.
type TableInfo struct {
	Name   string            `json:"name"`
	Rows   int               `json:"rows"`
	Fields map[string]string `json:"fields"`
}

// ListTablesRequest is a request to list all tables.
type ListTablesRequest struct{}

// ListTablesResponse lists the tables in name order.
type ListTablesResponse struct {
	Tables []TableInfo `json:"tables"`
}

// CreateTableRequest is a request to create an empty table.
type CreateTableRequest struct {
	Name string `json:"name"`
}

// CreateTableResponse is a response from creating a table.
type CreateTableResponse struct {
	Name string `json:"name"`
}

// DropTableRequest is a request to remove a table and its rows.
type DropTableRequest struct {
	Table string `path:"table"`
}

// DropTableResponse reports how many rows the dropped table held.
type DropTableResponse struct {
	Count  int    `json:"count"`
	Notice string `json:"notice,omitempty"`
}

// PushRequest is a request to insert one record.
type PushRequest struct {
	Table  string         `path:"table"`
	Record map[string]any `json:"record"`
}

// PushResponse is a response from inserting a record.
type PushResponse struct {
	ID     table.RowID `json:"id"`
	Notice string      `json:"notice,omitempty"`
}

// PullRequest is a request to fetch the records matching a condition.
type PullRequest struct {
	Table string `path:"table"`
	Where string `query:"where"`
}

// PullResponse holds the matching records in row order.
type PullResponse struct {
	Records []table.Record `json:"records"`
	Notice  string         `json:"notice,omitempty"`
}

// CountRequest is a request to count the records matching a condition.
type CountRequest struct {
	Table string `path:"table"`
	Where string `query:"where"`
}

// SetRequest is a request to assign a value to a field of every matching record.
type SetRequest struct {
	Table string          `path:"table"`
	Where string          `json:"where"`
	Field string          `json:"field"`
	// Value is kept raw so that an absent value can be told apart from null.
	Value json.RawMessage `json:"value"`
}

// DeleteRequest is a request to delete the records matching a condition.
type DeleteRequest struct {
	Table string `path:"table"`
	Where string `query:"where"`
}

// CountResponse reports how many records were matched or affected.
type CountResponse struct {
	Count  int    `json:"count"`
	Notice string `json:"notice,omitempty"`
}
