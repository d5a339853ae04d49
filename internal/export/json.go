package export

import (
	"encoding/json"
	"time"

	"github.com/lotas/matdash/internal/types"
)

type jsonExport struct {
	Query      jsonQuery `json:"query"`
	ExportedAt time.Time `json:"exported_at"`
	Rows       []jsonRow `json:"rows"`
}

type jsonQuery struct {
	TestName     string `json:"test_name,omitempty"`
	AxisX        string `json:"axis_x,omitempty"`
	AxisY        string `json:"axis_y,omitempty"`
	ProbeCC      string `json:"probe_cc,omitempty"`
	ProbeASN     string `json:"probe_asn,omitempty"`
	CategoryCode string `json:"category_code,omitempty"`
	Input        string `json:"input,omitempty"`
	Since        string `json:"since,omitempty"`
	Until        string `json:"until,omitempty"`
}

type jsonRow struct {
	Key   types.GroupKey `json:"key"`
	Label string         `json:"label,omitempty"`
	types.Counts
	OKCount int64 `json:"ok_count"`
}

// JSON formats table rows as a JSON document.
func JSON(q types.Query, rows []types.TableRow) (string, error) {
	out := jsonExport{
		Query: jsonQuery{
			TestName:     q.TestName,
			AxisX:        string(q.AxisX),
			AxisY:        string(q.AxisY),
			ProbeCC:      q.ProbeCC,
			ProbeASN:     q.ProbeASN,
			CategoryCode: q.CategoryCode,
			Input:        q.Input,
			Since:        q.Since,
			Until:        q.Until,
		},
		ExportedAt: time.Now(),
		Rows:       make([]jsonRow, 0, len(rows)),
	}

	for _, r := range rows {
		out.Rows = append(out.Rows, jsonRow{
			Key:     r.Key,
			Label:   r.Label,
			Counts:  r.Counts,
			OKCount: r.OK(),
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// axisTitle is the column heading for the grouping axis.
func axisTitle(a types.Axis) string {
	switch a {
	case types.AxisProbeCC:
		return "Country"
	case types.AxisProbeASN:
		return "ASN"
	case types.AxisCategoryCode:
		return "Category"
	case types.AxisInput:
		return "Input"
	case types.AxisDay:
		return "Day"
	default:
		return "Group"
	}
}

// display is the text shown for a row: its label, or the key when there is
// no label.
func display(r types.TableRow) string {
	if r.Label != "" {
		return r.Label
	}
	if r.Key == "" {
		return "All"
	}
	return string(r.Key)
}
