package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/pwysocki/fakturownica/internal/common"
	"github.com/pwysocki/fakturownica/internal/entity"
)

type InvoiceRepository interface {
	// ListAll returns every stored invoice ordered by ascending id.
	ListAll(ctx context.Context) ([]*entity.Invoice, error)
	// Insert stores one raw payload, extracting the indexed columns.
	Insert(ctx context.Context, payload []byte) (int64, error)
	// UpdateField sets a dot-separated path inside the payload of the
	// invoice identified by its number and re-derives the columns.
	UpdateField(ctx context.Context, invoiceNumber, fieldPath string, value any) error
	// DeleteAll purges the table in a single statement.
	DeleteAll(ctx context.Context) error
}

type invoiceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *sql.DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) ListAll(ctx context.Context) ([]*entity.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, json_data FROM faktury ORDER BY id ASC`)
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Invoice
	for rows.Next() {
		var inv entity.Invoice
		var raw string
		if err := rows.Scan(&inv.ID, &raw); err != nil {
			return nil, err
		}
		inv.JSON = []byte(raw)
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func (r *invoiceRepository) Insert(ctx context.Context, payload []byte) (int64, error) {
	f := entity.ExtractFields(payload)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO faktury (
			firma, numer_faktury, data_wystawienia, termin_platnosci,
			waluta, suma_netto, suma_vat, suma_brutto, json_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Seller, f.Number, f.IssueDate, f.DueDate,
		f.Currency, f.Net, f.VAT, f.Gross, string(payload),
	)
	if err != nil {
		r.logger.Error("failed to insert invoice", "numer_faktury", f.Number, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.logger.Info("invoice stored", "id", id, "numer_faktury", f.Number)
	return id, nil
}

func (r *invoiceRepository) UpdateField(ctx context.Context, invoiceNumber, fieldPath string, value any) error {
	var id int64
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, json_data FROM faktury WHERE numer_faktury = ?`, invoiceNumber,
	).Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return err
	}

	updated, err := entity.SetPayloadField([]byte(raw), fieldPath, value)
	if err != nil {
		return err
	}
	f := entity.ExtractFields(updated)

	_, err = r.db.ExecContext(ctx, `
		UPDATE faktury
		SET json_data = ?, firma = ?, data_wystawienia = ?, termin_platnosci = ?,
		    waluta = ?, suma_netto = ?, suma_vat = ?, suma_brutto = ?
		WHERE id = ?`,
		string(updated), f.Seller, f.IssueDate, f.DueDate,
		f.Currency, f.Net, f.VAT, f.Gross, id,
	)
	if err != nil {
		r.logger.Error("failed to update invoice", "id", id, "field", fieldPath, "error", err)
		return err
	}
	r.logger.Info("invoice updated", "id", id, "field", fieldPath)
	return nil
}

func (r *invoiceRepository) DeleteAll(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM faktury`)
	if err != nil {
		r.logger.Error("failed to purge invoices", "error", err)
		return err
	}
	n, _ := res.RowsAffected()
	r.logger.Info("invoices purged", "count", n)
	return nil
}
