package export

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pwysocki/fakturownica/internal/common"
	"github.com/pwysocki/fakturownica/internal/entity"
	"github.com/pwysocki/fakturownica/internal/repository"
)

// Invoice type labels used in the typ attribute.
const (
	TypeSale     = "sprzedaz"
	TypePurchase = "zakup"
	TypeUnknown  = "nieznany"
)

// Row is one classified invoice, shared by the XML and XLSX renderers.
type Row struct {
	ID     int64
	Fields entity.Fields
	Type   string
}

type xmlInvoice struct {
	XMLName xml.Name `xml:"Faktura"`
	ID      int64    `xml:"id,attr"`
	Type    string   `xml:"typ,attr"`
	Number  string   `xml:"Numer"`
	Seller  string   `xml:"Sprzedawca"`
	Buyer   string   `xml:"Nabywca"`
	Net     float64  `xml:"Netto"`
	VAT     float64  `xml:"VAT"`
	Gross   float64  `xml:"Brutto"`
}

type xmlDocument struct {
	XMLName  xml.Name     `xml:"Faktury"`
	Invoices []xmlInvoice `xml:"Faktura"`
}

// Service reads the invoice store, classifies each record as sale or
// purchase, and renders export documents. Purging after a successful
// hand-off is the caller's responsibility, so a failed hand-off leaves
// the store untouched and a retry re-reads the same records.
type Service struct {
	repo       repository.InvoiceRepository
	exportsDir string
	logger     *slog.Logger
}

func NewService(repo repository.InvoiceRepository, exportsDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, exportsDir: exportsDir, logger: logger}
}

// Rows returns every stored invoice in id order, classified against the
// primary entity of this run. Empty store -> ErrNoRecordsToExport.
func (s *Service) Rows(ctx context.Context) ([]Row, error) {
	invs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if len(invs) == 0 {
		return nil, common.ErrNoRecordsToExport
	}

	rows := make([]Row, len(invs))
	for i, inv := range invs {
		rows[i] = Row{ID: inv.ID, Fields: inv.ExtractFields()}
	}

	primary := primaryEntity(rows)
	for i := range rows {
		switch {
		case rows[i].Fields.Seller != "" && rows[i].Fields.Seller == primary:
			rows[i].Type = TypeSale
		case rows[i].Fields.Buyer != "" && rows[i].Fields.Buyer == primary:
			rows[i].Type = TypePurchase
		default:
			rows[i].Type = TypeUnknown
		}
	}
	return rows, nil
}

// primaryEntity picks the most frequent counterparty name across all
// sellers and buyers. Ties go to the name encountered first.
func primaryEntity(rows []Row) string {
	freq := make(map[string]int)
	var order []string
	count := func(name string) {
		if name == "" {
			return
		}
		if _, seen := freq[name]; !seen {
			order = append(order, name)
		}
		freq[name]++
	}
	for _, r := range rows {
		count(r.Fields.Seller)
		count(r.Fields.Buyer)
	}

	best := ""
	for _, name := range order {
		if best == "" || freq[name] > freq[best] {
			best = name
		}
	}
	return best
}

// ExportXML renders the classified invoices as a downloadable XML
// document and drops an archive copy into the exports directory.
func (s *Service) ExportXML(ctx context.Context) (filename string, data []byte, err error) {
	start := time.Now()

	rows, err := s.Rows(ctx)
	if err != nil {
		return "", nil, err
	}

	doc := xmlDocument{Invoices: make([]xmlInvoice, len(rows))}
	for i, r := range rows {
		doc.Invoices[i] = xmlInvoice{
			ID:     r.ID,
			Type:   r.Type,
			Number: r.Fields.Number,
			Seller: r.Fields.Seller,
			Buyer:  r.Fields.Buyer,
			Net:    r.Fields.Net,
			VAT:    r.Fields.VAT,
			Gross:  r.Fields.Gross,
		}
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("render xml: %w", err)
	}
	data = append([]byte(xml.Header), body...)
	data = append(data, '\n')

	filename = fmt.Sprintf("faktury_export_%d.xml", time.Now().UnixMilli())
	if s.exportsDir != "" {
		// archive copy only; the client still gets the document if this fails
		if werr := os.WriteFile(filepath.Join(s.exportsDir, filename), data, 0o644); werr != nil {
			s.logger.Warn("failed to write export archive copy", "file", filename, "error", werr)
		}
	}

	s.logger.Info("export.xml.ok",
		"rows", len(rows),
		"file", filename,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return filename, data, nil
}

// Purge deletes every stored invoice. Call it only after the export
// document has actually reached the requester.
func (s *Service) Purge(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}
