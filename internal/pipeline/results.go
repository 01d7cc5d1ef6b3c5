package pipeline

import (
	"bytes"
	"cmp"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ToJSON serializes a page result to indented JSON.
func ToJSON(page *ProcessedPage) (string, error) {
	if page == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONPages serializes several page results to indented JSON.
func ToJSONPages(pages []*ProcessedPage) (string, error) {
	b, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText lists regions in reading order as "source => translation" lines.
func ToPlainText(page *ProcessedPage) (string, error) {
	if page == nil {
		return "", errors.New("nil result")
	}
	regions := slices.Clone(page.Regions)
	slices.SortStableFunc(regions, func(a, b RegionResult) int { return cmp.Compare(a.ReadingIndex, b.ReadingIndex) })
	lines := make([]string, 0, len(regions))
	for _, r := range regions {
		if !r.HasText() {
			continue
		}
		switch {
		case r.Translation != "":
			lines = append(lines, fmt.Sprintf("%d: %s => %s", r.Index+1, r.Text, r.Translation))
		default:
			lines = append(lines, fmt.Sprintf("%d: %s [%s]", r.Index+1, r.Text, r.Status))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// ToCSV exports one row per region with a header.
func ToCSV(page *ProcessedPage) (string, error) {
	if page == nil {
		return "", errors.New("nil result")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"index", "x1", "y1", "x2", "y2", "det_conf", "engine", "tier", "text", "rec_conf", "translation", "status"})
	for _, r := range page.Regions {
		_ = w.Write([]string{
			strconv.Itoa(r.Index + 1),
			fmt.Sprintf("%.0f", r.Box.MinX),
			fmt.Sprintf("%.0f", r.Box.MinY),
			fmt.Sprintf("%.0f", r.Box.MaxX),
			fmt.Sprintf("%.0f", r.Box.MaxY),
			fmt.Sprintf("%.3f", r.DetectionConfidence),
			r.Engine,
			string(r.Tier),
			r.Text,
			fmt.Sprintf("%.3f", r.Confidence),
			r.Translation,
			string(r.Status),
		})
	}
	w.Flush()
	return buf.String(), w.Error()
}
