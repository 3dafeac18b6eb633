package service

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/pkg/export"
)

var statsHeaders = []string{"Course", "Attendance (%)", "Bunks Available", "Present", "Bunked", "Cancelled", "Total", "Must Attend"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders collection statistics into downloadable documents.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger}
}

// Render builds the statistics table and encodes it in the requested format.
func (s *ExportService) Render(stats *dto.StatsResponse, title string, format dto.ExportFormat) (*dto.ExportFile, error) {
	if stats == nil {
		return nil, fmt.Errorf("stats nil")
	}
	dataset := statsDataset(stats)
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case dto.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case dto.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Attendance %s (%s)", title, stats.AsOf))
		contentType = "application/pdf"
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug("stats exported", zap.String("collection_id", stats.CollectionID), zap.String("format", string(format)), zap.Int("bytes", len(payload)))
	return &dto.ExportFile{
		Filename:    buildFilename(title, stats.AsOf, format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func statsDataset(stats *dto.StatsResponse) export.Dataset {
	rows := make([][]string, 0, len(stats.Courses))
	flagged := make([]bool, 0, len(stats.Courses))
	for _, c := range stats.Courses {
		rows = append(rows, []string{
			c.Name,
			strconv.Itoa(c.Percentage),
			strconv.Itoa(c.BunksAvailable),
			strconv.Itoa(c.Present),
			strconv.Itoa(c.Bunked),
			strconv.Itoa(c.Cancelled),
			strconv.Itoa(c.Total),
			strconv.Itoa(c.MustAttend),
		})
		flagged = append(flagged, c.BunksAvailable < 0)
	}
	return export.Dataset{Headers: statsHeaders, Rows: rows, Flagged: flagged}
}

func buildFilename(title, asOf string, format dto.ExportFormat) string {
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(strings.ToLower(title)), asOf, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "stats"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
