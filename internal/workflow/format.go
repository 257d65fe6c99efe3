package workflow

import (
	"math"
	"strconv"
	"strings"

	"github.com/memorial-automator/client/internal/config"
	"github.com/memorial-automator/client/internal/models"
)

const placeholder = "-"

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count in binary units with at most two
// decimals, e.g. 1500 -> "1.46 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	const k = 1024
	i := 0
	div := int64(1)
	for i < len(sizeUnits)-1 && bytes >= div*k {
		div *= k
		i++
	}

	v := math.Round(float64(bytes)/float64(div)*100) / 100
	return formatNumber(v) + " " + sizeUnits[i]
}

// BuildResultView converts a result into its display strings. Absent or
// zero values show as a dash.
func BuildResultView(r *models.MemorialResult) *models.ResultView {
	v := &models.ResultView{
		Pages:        placeholder,
		Time:         placeholder,
		Project:      placeholder,
		Area:         placeholder,
		MemorialText: r.MemorialText,
	}

	if r.PagesProcessed != nil && *r.PagesProcessed != 0 {
		v.Pages = strconv.Itoa(*r.PagesProcessed)
	}
	if r.ProcessingTimeSeconds != nil && *r.ProcessingTimeSeconds != 0 {
		v.Time = formatNumber(*r.ProcessingTimeSeconds) + "s"
	}
	if sd := r.StructuredData; sd != nil {
		if sd.ProjectName != nil && *sd.ProjectName != "" {
			v.Project = *sd.ProjectName
		}
		if sd.AreaTotalM2 != nil && *sd.AreaTotalM2 != 0 {
			v.Area = formatNumber(*sd.AreaTotalM2) + " m²"
		}
	}
	if len(r.Warnings) > 0 {
		v.Warnings = append([]string(nil), r.Warnings...)
		v.ShowWarnings = true
	}

	return v
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MaxSizePlaceholder in Messages.FileTooLarge is replaced by the configured
// limit, written without a space ("50MB").
const MaxSizePlaceholder = "{max}"

// ResolveMessages fills the size limit into the catalog.
func ResolveMessages(m config.Messages, maxSize int64) config.Messages {
	limit := strings.ReplaceAll(FormatFileSize(maxSize), " ", "")
	m.FileTooLarge = strings.ReplaceAll(m.FileTooLarge, MaxSizePlaceholder, limit)
	return m
}
