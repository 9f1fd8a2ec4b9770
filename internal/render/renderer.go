package render

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	mconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/zap"
)

var (
	labelText = props.Text{Size: 8, Style: fontstyle.Bold}
	bodyText  = props.Text{Size: 9}
	rightText = props.Text{Size: 9, Align: align.Right}
	headText  = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
)

type Renderer struct {
	log *zap.Logger
}

func NewRenderer(log *zap.Logger) *Renderer {
	return &Renderer{log: log.Named("render")}
}

// Invoice renders doc as a PDF.
func (r *Renderer) Invoice(ctx context.Context, doc InvoiceDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := mconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	inv := doc.Invoice
	m.AddRow(12,
		text.NewCol(8, "Invoice", props.Text{Size: 20, Style: fontstyle.Bold}),
		text.NewCol(4, inv.Status.Label(), props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right, Top: 3}),
	)

	m.AddRow(32,
		col.New(6).Add(stack(
			inv.InvoiceNumber,
			"Issue date: "+inv.Date,
			"Due date: "+inv.DueDate,
			optionalLine("Service: ", inv.ServiceType),
			optionalLine("Time period: ", inv.TimePeriod),
		)...),
		col.New(6).Add(stack(
			doc.Company.Name,
			doc.Company.Address,
			doc.Company.Email,
			doc.Company.Phone,
		)...),
	)

	emp := doc.Employee
	m.AddRow(30,
		col.New(12).Add(append(
			[]core.Component{text.New("Bill to", labelText)},
			stackFrom(4, emp.Name, emp.Address, emp.Email, "CNIC: "+emp.CNIC)...,
		)...),
	)

	m.AddRow(8,
		text.NewCol(6, "Description", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, "Qty", headText),
		text.NewCol(2, "Unit price", headText),
		text.NewCol(2, "Amount", headText),
	)
	m.AddRow(2, line.NewCol(12))
	for _, item := range inv.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, bodyText),
			text.NewCol(2, item.Quantity.String(), rightText),
			text.NewCol(2, inv.Currency.Format(item.UnitPrice), rightText),
			text.NewCol(2, inv.Currency.Format(item.Amount()), rightText),
		)
	}
	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(2, inv.Currency.Format(inv.Total()), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	bank := emp.BankDetails
	m.AddRow(30,
		col.New(12).Add(append(
			[]core.Component{text.New("Bank details", labelText)},
			stackFrom(4,
				"Account holder: "+bank.AccountHolder,
				"SWIFT/BIC: "+bank.SwiftBic,
				"IBAN: "+bank.IBAN,
				fmt.Sprintf("%s, %s", bank.BankName, bank.BankAddress),
			)...,
		)...),
	)

	if inv.Notes != nil {
		m.AddRow(16,
			col.New(12).Add(
				text.New("Notes", labelText),
				text.New(*inv.Notes, props.Text{Size: 9, Top: 4}),
			),
		)
	}
	if inv.ApprovedBy != nil {
		m.AddRow(8, text.NewCol(12, "Approved by: "+*inv.ApprovedBy, bodyText))
	}

	out, err := m.Generate()
	if err != nil {
		r.log.Error("invoice pdf generation failed", zap.String("invoice_id", inv.ID), zap.Error(err))
		return nil, err
	}
	return out.GetBytes(), nil
}

func stack(lines ...string) []core.Component {
	return stackFrom(0, lines...)
}

// stackFrom lays out non-empty lines top to bottom starting at offset millimetres.
func stackFrom(offset float64, lines ...string) []core.Component {
	components := make([]core.Component, 0, len(lines))
	top := offset
	for _, l := range lines {
		if l == "" {
			continue
		}
		components = append(components, text.New(l, props.Text{Size: 9, Top: top}))
		top += 5
	}
	return components
}

func optionalLine(label string, value *string) string {
	if value == nil || *value == "" {
		return ""
	}
	return label + *value
}
