package service

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/export"
)

type failingCSV struct{}

func (failingCSV) Render(export.Dataset) ([]byte, error) {
	return nil, errors.New("disk full")
}

func sampleStats() *dto.StatsResponse {
	return &dto.StatsResponse{
		CollectionID: "col-1",
		Threshold:    75,
		AsOf:         "2024-02-10",
		Courses: []models.CourseStats{
			{CourseID: "math", Name: "Math", Percentage: 75, BunksAvailable: 0, Present: 3, Bunked: 1, Total: 5, MustAttend: 4},
			{CourseID: "phy", Name: "Physics", Percentage: 0, BunksAvailable: -1, Bunked: 1, Total: 1, MustAttend: 1},
		},
	}
}

func TestExportServiceRenderCSV(t *testing.T) {
	svc := NewExportService(zap.NewNop(), nil, nil)

	file, err := svc.Render(sampleStats(), "Sem 1: Core", dto.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "sem_1-_core_2024-02-10.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	lines := bytes.Split(bytes.TrimSpace(file.Data), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "Course,Attendance (%),Bunks Available,Present,Bunked,Cancelled,Total,Must Attend,Below Threshold", string(lines[0]))
	assert.Equal(t, "Physics,0,-1,0,1,0,1,1,yes", string(lines[2]))
}

func TestStatsDatasetFlagsCoursesOverBudget(t *testing.T) {
	dataset := statsDataset(sampleStats())
	assert.Equal(t, []bool{false, true}, dataset.Flagged)
	assert.Equal(t, "Math", dataset.Rows[0][0])
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc := NewExportService(zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())

	file, err := svc.Render(sampleStats(), "Sem 1", dto.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceRenderErrors(t *testing.T) {
	svc := NewExportService(zap.NewNop(), failingCSV{}, nil)

	_, err := svc.Render(sampleStats(), "Sem 1", dto.ExportFormatCSV)
	assert.EqualError(t, err, "disk full")

	_, err = svc.Render(sampleStats(), "Sem 1", "xlsx")
	assert.Error(t, err)

	_, err = svc.Render(nil, "Sem 1", dto.ExportFormatCSV)
	assert.Error(t, err)
	assert.Equal(t, "stats", sanitizeFilename(""))
}
