// Package report renders order result sets into paginated PDF reports.
package report

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/order-report/pkg/logging"
	"github.com/Sternrassler/order-report/pkg/order"
	"github.com/go-pdf/fpdf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for report rendering.
var (
	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_report_renders_total",
		Help: "Total report renders by result (ok, empty, error)",
	}, []string{"result"})

	fieldErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_report_field_errors_total",
		Help: "Summary fields and charts skipped because of errors, by operation",
	}, []string{"operation"})
)

// NoRecordsNotice is the body of a report over an empty result set.
const NoRecordsNotice = "No records found for the specified period."

// Layout, in points.
const (
	pageMargin = 72

	titleSize   = 18
	heading2    = 14
	heading3    = 12
	normalSize  = 10
	footerSize  = 8
	headerSize  = 12
	cellSize    = 10
	lineHeight  = 14
	headerRowH  = 20
	dataRowH    = 16
	summaryRowH = 22

	summaryLabelW = 300
	summaryValueW = 200

	chartW = 432 // 6in
	chartH = 216 // 3in

	tableBudget = 600
	minColW     = 100
	maxColW     = 200
)

type rgb struct{ r, g, b int }

var (
	black      = rgb{0, 0, 0}
	blue       = rgb{0, 0, 255}
	whiteSmoke = rgb{245, 245, 245}
	lightGrey  = rgb{211, 211, 211}
	white      = rgb{255, 255, 255}
)

// Options configures a Renderer.
type Options struct {
	// OutputDir receives the PDF files. Defaults to os.TempDir().
	OutputDir string

	// Compress enables PDF stream compression.
	Compress bool

	// Creator is written to the document metadata.
	Creator string

	// Now is used when no as-of date is given. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the standard renderer options.
func DefaultOptions() Options {
	return Options{
		OutputDir: os.TempDir(),
		Compress:  true,
		Creator:   "order-report",
		Now:       time.Now,
	}
}

// Document describes a rendered report.
type Document struct {
	Path        string
	Pages       int
	Records     int
	GeneratedAt time.Time
}

// Renderer turns result sets into PDF documents.
type Renderer struct {
	opts   Options
	logger zerolog.Logger
}

// NewRenderer creates a renderer. Zero option fields take their defaults.
func NewRenderer(opts Options) *Renderer {
	defaults := DefaultOptions()
	if opts.OutputDir == "" {
		opts.OutputDir = defaults.OutputDir
	}
	if opts.Creator == "" {
		opts.Creator = defaults.Creator
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}

	return &Renderer{
		opts:   opts,
		logger: logging.NewLogger(logging.ComponentRenderer),
	}
}

// OutputPath returns {output_dir}/{report_id}_{YYYYMMDD}.pdf. A zero asOf means now.
func (r *Renderer) OutputPath(cfg *Config, asOf time.Time) string {
	asOf = r.asOf(asOf)
	return filepath.Join(r.opts.OutputDir, fmt.Sprintf("%s_%s.pdf", cfg.ID(), asOf.Format("20060102")))
}

func (r *Renderer) asOf(t time.Time) time.Time {
	if t.IsZero() {
		return r.opts.Now()
	}
	return t
}

// Render writes the report for rs and returns the document. An existing file
// at the output path is overwritten. Failures of individual summary fields or
// charts are logged and skipped.
func (r *Renderer) Render(title string, rs order.ResultSet, cfg *Config, asOf time.Time) (*Document, error) {
	asOf = r.asOf(asOf)
	path := r.OutputPath(cfg, asOf)
	heading := fmt.Sprintf("%s - %s", title, asOf.Format("2006-01-02"))

	logger := r.logger.With().Str("report_id", cfg.ID()).Str("path", path).Logger()

	var d *document
	if len(rs) == 0 {
		logger.Warn().Str("title", title).Msg("No results found for report generation")
		d = r.newDocument("P", heading)
		d.title(heading)
		d.paragraph(NoRecordsNotice)
	} else {
		d = r.newDocument("L", heading)
		d.title(heading)
		if cfg != nil && cfg.Description != "" {
			d.paragraph(cfg.Description)
		}
		if cfg != nil && len(cfg.SummaryFields) > 0 {
			r.summarySection(d, rs, cfg.SummaryFields, logger)
		}
		r.detailSection(d, rs, cfg, logger)
	}

	doc, err := d.save(path)
	if err != nil {
		rendersTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("Failed to write report")
		return nil, err
	}
	doc.Records = len(rs)
	doc.GeneratedAt = asOf

	result := "ok"
	if len(rs) == 0 {
		result = "empty"
	}
	rendersTotal.WithLabelValues(result).Inc()
	logger.Info().Int("records", doc.Records).Int("pages", doc.Pages).Msg("Report generated")

	return doc, nil
}

func (r *Renderer) summarySection(d *document, rs order.ResultSet, fields []SummaryField, logger zerolog.Logger) {
	d.heading("Summary", heading2)

	rows, errs := ComputeSummary(rs, fields)
	for _, err := range errs {
		r.logFieldError(logger, err)
	}
	if len(rows) > 0 {
		d.summaryTable(rows)
	}

	for i, sf := range fields {
		if sf.Operation != OpGroup || !rs.HasColumn(sf.Field) {
			continue
		}
		if err := d.chart(fmt.Sprintf("chart-%d", i), sf, TopValueCounts(rs, sf.Field, TopValues)); err != nil {
			r.logFieldError(logger, &FieldComputationError{Field: sf.Field, Operation: sf.Operation, Err: err})
		}
	}
}

func (r *Renderer) logFieldError(logger zerolog.Logger, err error) {
	fe, ok := err.(*FieldComputationError)
	if !ok {
		logger.Error().Err(err).Msg("Summary computation failed")
		return
	}

	fieldErrorsTotal.WithLabelValues(string(fe.Operation)).Inc()
	event := logger.Error()
	msg := "Error calculating summary"
	switch {
	case !fe.Operation.Known():
		event = logger.Warn()
		msg = "Unknown summary operation"
	case fe.Operation == OpGroup:
		msg = "Error generating chart"
	}
	event.Str("field", fe.Field).Str("operation", string(fe.Operation)).Err(fe.Err).Msg(msg)
}

func (r *Renderer) detailSection(d *document, rs order.ResultSet, cfg *Config, logger zerolog.Logger) {
	d.heading("Detailed Data", heading2)

	columns := TableColumns(rs, cfg)
	if len(columns) == 0 {
		logger.Warn().Msg("None of the configured report fields are present in the data")
		return
	}

	rows := make([][]string, len(rs))
	for i, rec := range rs {
		row := make([]string, len(columns))
		for j, col := range columns {
			if v, ok := rec.Get(col); ok {
				row[j] = v.Format()
			}
		}
		rows[i] = row
	}

	d.dataTable(columns, ColumnWidths(len(columns)), rows)
}

// TableColumns returns the configured report fields present in rs, in
// configured order, or the first record's keys when none are configured.
func TableColumns(rs order.ResultSet, cfg *Config) []string {
	if cfg != nil && len(cfg.ReportFields) > 0 {
		var cols []string
		for _, f := range cfg.ReportFields {
			if rs.HasColumn(f) {
				cols = append(cols, f)
			}
		}
		return cols
	}
	if len(rs) == 0 {
		return nil
	}
	return rs[0].Keys()
}

// ColumnWidths splits the table budget evenly, clamping each column to [100, 200] points.
func ColumnWidths(n int) []float64 {
	if n <= 0 {
		return nil
	}
	w := tableBudget / n
	if w < minColW {
		w = minColW
	}
	if w > maxColW {
		w = maxColW
	}
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = float64(w)
	}
	return widths
}

// document wraps an fpdf document with the report's layout helpers.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (r *Renderer) newDocument(orientation, title string) *document {
	pdf := fpdf.New(orientation, "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCompression(r.opts.Compress)
	pdf.SetCreator(r.opts.Creator, true)
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("{nb}")

	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin / 2)
		pdf.SetFont("Helvetica", "", footerSize)
		pdf.SetTextColor(108, 117, 125)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	return d
}

func (d *document) setFill(c rgb) { d.pdf.SetFillColor(c.r, c.g, c.b) }
func (d *document) setText(c rgb) { d.pdf.SetTextColor(c.r, c.g, c.b) }
func (d *document) setDraw(c rgb) { d.pdf.SetDrawColor(c.r, c.g, c.b) }

func (d *document) bottom() float64 {
	_, h := d.pdf.GetPageSize()
	_, _, _, b := d.pdf.GetMargins()
	return h - b
}

// ensureSpace starts a new page unless h points fit below the cursor.
func (d *document) ensureSpace(h float64) bool {
	if d.pdf.GetY()+h > d.bottom() {
		d.pdf.AddPage()
		return true
	}
	return false
}

func (d *document) title(text string) {
	d.pdf.SetFont("Helvetica", "B", titleSize)
	d.setText(black)
	d.pdf.MultiCell(0, titleSize+4, d.tr(text), "", "C", false)
	d.pdf.Ln(12)
}

func (d *document) heading(text string, size float64) {
	d.ensureSpace(size + 4 + headerRowH)
	d.pdf.SetFont("Helvetica", "B", size)
	d.setText(black)
	d.pdf.CellFormat(0, size+4, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.Ln(6)
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", normalSize)
	d.setText(black)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "L", false)
	d.pdf.Ln(12)
}

// tableLeft centers a table of width w, never starting left of the margin.
func (d *document) tableLeft(w float64) float64 {
	pageW, _ := d.pdf.GetPageSize()
	left, _, _, _ := d.pdf.GetMargins()
	x := (pageW - w) / 2
	if x < left {
		x = left
	}
	return x
}

func (d *document) summaryTable(rows []SummaryRow) {
	pdf := d.pdf
	x := d.tableLeft(summaryLabelW + summaryValueW)

	pdf.SetFont("Helvetica", "", normalSize)
	pdf.SetLineWidth(1)
	d.setDraw(black)
	d.setText(black)

	for _, row := range rows {
		d.ensureSpace(summaryRowH)
		y := pdf.GetY()

		d.setFill(lightGrey)
		pdf.SetXY(x, y)
		pdf.CellFormat(summaryLabelW, summaryRowH, d.fit(row.Label, summaryLabelW), "1", 0, "L", true, 0, "")
		pdf.CellFormat(summaryValueW, summaryRowH, d.fit(row.Value, summaryValueW), "1", 0, "L", false, 0, "")
		pdf.SetXY(pdf.GetX(), y+summaryRowH)
	}

	left, _, _, _ := pdf.GetMargins()
	pdf.SetX(left)
	pdf.Ln(24)
}

func (d *document) chart(name string, sf SummaryField, counts []ValueCount) error {
	img, err := renderBarChart(sf.Label, counts)
	if err != nil {
		return err
	}
	if _, err := png.DecodeConfig(bytes.NewReader(img)); err != nil {
		return fmt.Errorf("invalid chart image: %w", err)
	}

	pdf := d.pdf
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
	if err := pdf.Error(); err != nil {
		pdf.ClearError()
		return fmt.Errorf("embed chart: %w", err)
	}

	d.ensureSpace(heading3 + 10 + chartH + lineHeight)
	pdf.SetFont("Helvetica", "B", heading3)
	d.setText(black)
	pdf.CellFormat(0, heading3+4, d.tr(sf.Label), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	y := pdf.GetY()
	pdf.ImageOptions(name, d.tableLeft(chartW), y, chartW, chartH, false, opts, 0, "")
	pdf.SetY(y + chartH)

	pdf.SetFont("Helvetica", "", footerSize)
	pdf.CellFormat(0, lineHeight, d.tr(fmt.Sprintf("Count by %s (top %d)", sf.Field, TopValues)), "", 1, "C", false, 0, "")
	pdf.Ln(12)
	return nil
}

// dataTable draws the detail table. Column widths that overflow the page are
// scaled down to fit, and the header row is repeated on every page.
func (d *document) dataTable(columns []string, widths []float64, rows [][]string) {
	pdf := d.pdf
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()

	total := 0.0
	for _, w := range widths {
		total += w
	}
	if avail := pageW - left - right; total > avail {
		scale := avail / total
		for i := range widths {
			widths[i] *= scale
		}
		total = avail
	}
	x := d.tableLeft(total)

	pdf.SetLineWidth(1)
	d.setDraw(black)

	header := func() {
		y := pdf.GetY()
		pdf.SetFont("Helvetica", "B", headerSize)
		d.setFill(blue)
		d.setText(whiteSmoke)
		pdf.SetXY(x, y)
		for i, col := range columns {
			pdf.CellFormat(widths[i], headerRowH, d.fit(col, widths[i]), "1", 0, "C", true, 0, "")
		}
		pdf.SetXY(x, y+headerRowH)
	}

	d.ensureSpace(headerRowH + dataRowH)
	header()

	for i, row := range rows {
		if d.ensureSpace(dataRowH) {
			header()
		}

		pdf.SetFont("Helvetica", "", cellSize)
		d.setText(black)
		zebra := i%2 == 1
		if zebra {
			d.setFill(lightGrey)
		} else {
			d.setFill(white)
		}

		y := pdf.GetY()
		pdf.SetXY(x, y)
		for j, cell := range row {
			pdf.CellFormat(widths[j], dataRowH, d.fit(cell, widths[j]), "1", 0, "L", zebra, 0, "")
		}
		pdf.SetXY(x, y+dataRowH)
	}

	pdf.SetX(left)
}

// fit translates s for the core fonts and truncates it with "..." to fit width w
// in the current font.
func (d *document) fit(s string, w float64) string {
	t := d.tr(s)
	avail := w - 2*d.pdf.GetCellMargin()
	if d.pdf.GetStringWidth(t) <= avail {
		return t
	}
	for len(t) > 0 && d.pdf.GetStringWidth(t+"...") > avail {
		t = t[:len(t)-1]
	}
	return t + "..."
}

func (d *document) save(path string) (*Document, error) {
	if err := d.pdf.Error(); err != nil {
		return nil, fmt.Errorf("build pdf: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	pages := d.pdf.PageCount()
	if err := d.pdf.OutputFileAndClose(path); err != nil {
		return nil, fmt.Errorf("write pdf %s: %w", path, err)
	}

	return &Document{Path: path, Pages: pages}, nil
}
