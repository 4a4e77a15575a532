package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
)

// printer writes either indented JSON or the text rendering of a value.
type printer struct {
	format string
	w      io.Writer
}

func (p printer) print(v interface{}, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.w)
	return nil
}

type outcomeView struct {
	Field    string   `json:"field,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Reaction string   `json:"reaction"`
	Status   string   `json:"status"`
	Records  int      `json:"records"`
	Error    string   `json:"error,omitempty"`
}

type reportView struct {
	OperationID  string        `json:"operationId,omitempty"`
	RowsAffected int64         `json:"rowsAffected"`
	Outcomes     []outcomeView `json:"outcomes"`
}

func newReportView(report *domain.DispatchReport, rows int64) reportView {
	view := reportView{RowsAffected: rows, Outcomes: []outcomeView{}}
	if report == nil {
		return view
	}
	view.OperationID = report.OperationID
	for _, o := range report.Outcomes {
		ov := outcomeView{
			Field:    o.Field,
			Fields:   o.Fields,
			Reaction: o.Reaction,
			Status:   string(o.Status),
			Records:  o.Records,
		}
		if o.Err != nil {
			ov.Error = o.Err.Error()
		}
		view.Outcomes = append(view.Outcomes, ov)
	}
	return view
}

func (v reportView) text(w io.Writer) {
	fmt.Fprintf(w, "%d row(s) written\n", v.RowsAffected)
	if len(v.Outcomes) == 0 {
		fmt.Fprintln(w, "no watched field changed")
		return
	}
	fmt.Fprintf(w, "operation %s\n", v.OperationID)
	for _, o := range v.Outcomes {
		field := o.Field
		if field == "" {
			field = strings.Join(o.Fields, ",")
		}
		fmt.Fprintf(w, "  %-12s %-20s %-13s %d record(s)", field, o.Reaction, o.Status, o.Records)
		if o.Error != "" {
			fmt.Fprintf(w, "  %s", o.Error)
		}
		fmt.Fprintln(w)
	}
}
