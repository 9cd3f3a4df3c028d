package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/maruel/tabledb/internal/catalog"
	"github.com/maruel/tabledb/internal/errors"
	"github.com/maruel/tabledb/internal/models"
	"github.com/maruel/tabledb/internal/storage"
	"github.com/maruel/tabledb/internal/table"
)

// TableHandler handles table and record HTTP requests.
type TableHandler struct {
	db *storage.DatabaseService
}

// NewTableHandler creates a new table handler.
func NewTableHandler(db *storage.DatabaseService) *TableHandler {
	return &TableHandler{db: db}
}

// ListTables returns every table with its row count and field kinds.
func (h *TableHandler) ListTables(ctx context.Context, req models.ListTablesRequest) (*models.ListTablesResponse, error) {
	cat := h.db.Catalog()
	resp := &models.ListTablesResponse{Tables: []models.TableInfo{}}
	for _, name := range cat.Tables() {
		err := cat.View(name, func(t *table.Table) error {
			info := models.TableInfo{Name: t.Name(), Rows: t.Len(), Fields: map[string]string{}}
			for _, f := range t.Fields() {
				info.Fields[f.Name] = f.Kind.String()
			}
			resp.Tables = append(resp.Tables, info)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// CreateTable creates an empty table.
func (h *TableHandler) CreateTable(ctx context.Context, req models.CreateTableRequest) (*models.CreateTableResponse, error) {
	if req.Name == "" {
		return nil, errors.MissingField("name")
	}
	t, err := h.db.Catalog().CreateTable(req.Name)
	if err != nil {
		return nil, err
	}
	if err := h.save(ctx, "POST /api/tables "+t.Name()); err != nil {
		return nil, err
	}
	return &models.CreateTableResponse{Name: t.Name()}, nil
}

// DropTable removes a table.
func (h *TableHandler) DropTable(ctx context.Context, req models.DropTableRequest) (*models.DropTableResponse, error) {
	res, err := h.resolve(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	n, err := h.db.Catalog().DropTable(res.Name)
	if err != nil {
		return nil, err
	}
	if err := h.save(ctx, "DELETE /api/tables/"+res.Name); err != nil {
		return nil, err
	}
	return &models.DropTableResponse{Count: n, Notice: res.Notice()}, nil
}

// PushRecord inserts a record.
func (h *TableHandler) PushRecord(ctx context.Context, req models.PushRequest) (*models.PushResponse, error) {
	if req.Record == nil {
		return nil, errors.MissingField("record")
	}
	res, err := h.resolve(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	id, err := h.db.Catalog().Push(res.Name, req.Record)
	if err != nil {
		return nil, err
	}
	if err := h.save(ctx, "POST /api/tables/"+res.Name+"/records"); err != nil {
		return nil, err
	}
	return &models.PushResponse{ID: id, Notice: res.Notice()}, nil
}

// PullRecords returns the records matching the where condition.
func (h *TableHandler) PullRecords(ctx context.Context, req models.PullRequest) (*models.PullResponse, error) {
	res, err := h.resolve(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	recs, err := h.db.Catalog().Pull(res.Name, req.Where)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []table.Record{}
	}
	return &models.PullResponse{Records: recs, Notice: res.Notice()}, nil
}

// CountRecords counts the records matching the where condition.
func (h *TableHandler) CountRecords(ctx context.Context, req models.CountRequest) (*models.CountResponse, error) {
	res, err := h.resolve(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	n, err := h.db.Catalog().Count(res.Name, req.Where)
	if err != nil {
		return nil, err
	}
	return &models.CountResponse{Count: n, Notice: res.Notice()}, nil
}

// SetRecords assigns a value to a field of every matching record.
func (h *TableHandler) SetRecords(ctx context.Context, req models.SetRequest) (*models.CountResponse, error) {
	if req.Field == "" {
		return nil, errors.MissingField("field")
	}
	if len(req.Value) == 0 {
		return nil, errors.MissingField("value")
	}
	d := json.NewDecoder(bytes.NewReader(req.Value))
	d.UseNumber()
	var value any
	if err := d.Decode(&value); err != nil {
		return nil, errors.BadRequest("Invalid value").Wrap(err)
	}
	res, err := h.resolve(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	n, err := h.db.Catalog().Set(res.Name, req.Where, req.Field, value)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		if err := h.save(ctx, "PATCH /api/tables/"+res.Name+"/records "+req.Field); err != nil {
			return nil, err
		}
	}
	return &models.CountResponse{Count: n, Notice: res.Notice()}, nil
}

// DeleteRecords deletes the records matching the where condition.
func (h *TableHandler) DeleteRecords(ctx context.Context, req models.DeleteRequest) (*models.CountResponse, error) {
	res, err := h.resolve(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	n, err := h.db.Catalog().Delete(res.Name, req.Where)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		if err := h.save(ctx, "DELETE /api/tables/"+res.Name+"/records"); err != nil {
			return nil, err
		}
	}
	return &models.CountResponse{Count: n, Notice: res.Notice()}, nil
}

// resolve looks up a table name and logs a case-insensitive substitution.
func (h *TableHandler) resolve(ctx context.Context, name string) (catalog.Resolution, error) {
	res, err := h.db.Catalog().Resolve(name)
	if err != nil {
		return res, err
	}
	if res.Substituted() {
		slog.WarnContext(ctx, "Table name resolved case-insensitively", "requested", res.Requested, "table", res.Name)
	}
	return res, nil
}

// save persists the catalog; msg names the route in the history.
func (h *TableHandler) save(ctx context.Context, msg string) error {
	if err := h.db.Save(msg); err != nil {
		slog.ErrorContext(ctx, "Failed to save database", "path", h.db.FileStore().Path(), "err", err)
		return errors.InternalWithError("failed to save database", err)
	}
	return nil
}
