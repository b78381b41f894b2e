package export

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwysocki/fakturownica/internal/common"
	"github.com/pwysocki/fakturownica/internal/entity"
)

// fakeRepo is an in-memory stand-in for the SQLite store.
type fakeRepo struct {
	invoices []*entity.Invoice
	listErr  error
	deletes  int
}

func (f *fakeRepo) ListAll(context.Context) ([]*entity.Invoice, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.invoices, nil
}

func (f *fakeRepo) Insert(_ context.Context, payload []byte) (int64, error) {
	inv := &entity.Invoice{ID: int64(len(f.invoices) + 1), JSON: payload}
	f.invoices = append(f.invoices, inv)
	return inv.ID, nil
}

func (f *fakeRepo) UpdateField(context.Context, string, string, any) error { return nil }

func (f *fakeRepo) DeleteAll(context.Context) error {
	f.deletes++
	f.invoices = nil
	return nil
}

func invoice(id int64, seller, buyer string) *entity.Invoice {
	return &entity.Invoice{
		ID: id,
		JSON: []byte(fmt.Sprintf(
			`{"sprzedawca":{"nazwa":%q},"nabywca":{"nazwa":%q},"numer_faktury":"FV/%d","suma_netto":100,"suma_vat":23,"suma_brutto":123}`,
			seller, buyer, id,
		)),
	}
}

func TestRowsClassification(t *testing.T) {
	repo := &fakeRepo{invoices: []*entity.Invoice{
		invoice(1, "A", "B"),
		invoice(2, "C", "A"),
	}}
	svc := NewService(repo, "", nil)

	rows, err := svc.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// "A" appears twice, so it is the primary entity of this run
	assert.Equal(t, TypeSale, rows[0].Type)
	assert.Equal(t, TypePurchase, rows[1].Type)
}

func TestRowsTieBreaksOnFirstEncounter(t *testing.T) {
	repo := &fakeRepo{invoices: []*entity.Invoice{
		invoice(1, "A", "B"),
		invoice(2, "B", "A"),
	}}
	svc := NewService(repo, "", nil)

	rows, err := svc.Rows(context.Background())
	require.NoError(t, err)
	// A and B both score 2; A was seen first
	assert.Equal(t, TypeSale, rows[0].Type)
	assert.Equal(t, TypePurchase, rows[1].Type)
}

func TestRowsUnclassified(t *testing.T) {
	repo := &fakeRepo{invoices: []*entity.Invoice{
		invoice(1, "A", "B"),
		invoice(2, "A", "C"),
		invoice(3, "X", "Y"),
	}}
	svc := NewService(repo, "", nil)

	rows, err := svc.Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, rows[2].Type)
}

func TestRowsMalformedRecordStillListed(t *testing.T) {
	repo := &fakeRepo{invoices: []*entity.Invoice{
		invoice(1, "A", "B"),
		{ID: 2, JSON: []byte(`{broken`)},
	}}
	svc := NewService(repo, "", nil)

	rows, err := svc.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, entity.Fields{}, rows[1].Fields)
	assert.Equal(t, TypeUnknown, rows[1].Type)
}

func TestExportXMLEmptyStore(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, t.TempDir(), nil)

	_, _, err := svc.ExportXML(context.Background())
	assert.ErrorIs(t, err, common.ErrNoRecordsToExport)
	assert.Zero(t, repo.deletes, "empty export must not touch the store")
}

func TestExportXMLDocumentShape(t *testing.T) {
	repo := &fakeRepo{invoices: []*entity.Invoice{
		invoice(1, "A", "B"),
		invoice(2, "C", "A"),
	}}
	svc := NewService(repo, t.TempDir(), nil)

	filename, data, err := svc.ExportXML(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "faktury_export_"))
	assert.True(t, strings.HasSuffix(filename, ".xml"))

	var doc xmlDocument
	require.NoError(t, xml.Unmarshal(data, &doc))
	require.Len(t, doc.Invoices, 2)
	assert.Equal(t, int64(1), doc.Invoices[0].ID)
	assert.Equal(t, TypeSale, doc.Invoices[0].Type)
	assert.Equal(t, TypePurchase, doc.Invoices[1].Type)
	assert.Equal(t, "FV/1", doc.Invoices[0].Number)
	assert.Equal(t, 123.0, doc.Invoices[0].Gross)
}

func TestExportXMLEscapesSpecialCharacters(t *testing.T) {
	nasty := `Spółka "A" & <B> 'C'`
	repo := &fakeRepo{invoices: []*entity.Invoice{invoice(1, nasty, "B")}}
	svc := NewService(repo, "", nil)

	_, data, err := svc.ExportXML(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, string(data), `<Sprzedawca>Spółka "A" &`)
	assert.Contains(t, string(data), "&amp;")

	// escaped content must round-trip through a standard parser
	var doc xmlDocument
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, nasty, doc.Invoices[0].Seller)
}

func TestPurgeAfterHandoff(t *testing.T) {
	repo := &fakeRepo{invoices: []*entity.Invoice{invoice(1, "A", "B")}}
	svc := NewService(repo, "", nil)
	ctx := context.Background()

	_, _, err := svc.ExportXML(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Purge(ctx))
	assert.Equal(t, 1, repo.deletes)

	// a second export finds nothing
	_, _, err = svc.ExportXML(ctx)
	assert.ErrorIs(t, err, common.ErrNoRecordsToExport)
}

func TestExportXLSX(t *testing.T) {
	repo := &fakeRepo{invoices: []*entity.Invoice{
		invoice(1, "A", "B"),
		invoice(2, "C", "A"),
	}}
	svc := NewService(repo, "", nil)

	data, err := svc.ExportXLSX(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx is a zip container
	assert.Equal(t, "PK", string(data[:2]))
	assert.Zero(t, repo.deletes, "the workbook is a report, not the archival hand-off")
}

func TestExportXLSXEmptyStore(t *testing.T) {
	svc := NewService(&fakeRepo{}, "", nil)
	_, err := svc.ExportXLSX(context.Background())
	assert.ErrorIs(t, err, common.ErrNoRecordsToExport)
}
