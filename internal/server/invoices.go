package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	"github.com/smallbiznis/invoicenexus/internal/form"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
	"github.com/smallbiznis/invoicenexus/internal/render"
	"github.com/smallbiznis/invoicenexus/internal/workspace"
)

type invoiceResponse struct {
	invoicedomain.Invoice
	Total          decimal.Decimal          `json:"total"`
	FormattedTotal string                   `json:"formattedTotal"`
	Employee       *employeedomain.Employee `json:"employee,omitempty"`
}

func newInvoiceResponse(inv invoicedomain.Invoice, employee *employeedomain.Employee) invoiceResponse {
	total := inv.Total()
	return invoiceResponse{
		Invoice:        inv,
		Total:          total,
		FormattedTotal: inv.Currency.Format(total),
		Employee:       employee,
	}
}

type draftResponse struct {
	*form.InvoiceDraft
	Total string `json:"total"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) ListInvoices(c *gin.Context) {
	ws := workspaceFrom(c)
	status := invoicedomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	if status == "all" {
		status = ""
	}
	if status != "" && !status.Valid() {
		AbortWithError(c, newValidationError("status", "oneof", "Status is not supported"))
		return
	}

	invoices := ws.FilterInvoices(workspace.InvoiceFilter{Term: c.Query("search"), Status: status})
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		var employee *employeedomain.Employee
		if e, ok := ws.GetEmployeeByID(inv.EmployeeID); ok {
			employee = &e
		}
		out = append(out, newInvoiceResponse(inv, employee))
	}
	c.JSON(http.StatusOK, gin.H{"invoices": out, "loading": ws.Loading()})
}

func (s *Server) InvoiceDefaults(c *gin.Context) {
	draft := form.NewInvoiceDraft(s.clock, nil)
	c.JSON(http.StatusOK, draftResponse{InvoiceDraft: draft, Total: draft.TotalString()})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	ws := workspaceFrom(c)
	draft, ok := s.bindDraft(c, ws)
	if !ok {
		return
	}

	created, err := ws.AddInvoice(c.Request.Context(), draft.Invoice(""))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newInvoiceResponse(created, nil))
}

func (s *Server) GetInvoice(c *gin.Context) {
	ws := workspaceFrom(c)
	inv, ok := ws.GetInvoiceByID(strings.TrimSpace(c.Param("id")))
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	var employee *employeedomain.Employee
	if e, ok := ws.GetEmployeeByID(inv.EmployeeID); ok {
		employee = &e
	}
	c.JSON(http.StatusOK, newInvoiceResponse(inv, employee))
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	ws := workspaceFrom(c)
	id := strings.TrimSpace(c.Param("id"))
	if _, ok := ws.GetInvoiceByID(id); !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	draft, ok := s.bindDraft(c, ws)
	if !ok {
		return
	}

	updated, err := ws.UpdateInvoice(c.Request.Context(), draft.Invoice(id))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newInvoiceResponse(updated, nil))
}

func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	status := invoicedomain.InvoiceStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		AbortWithError(c, newValidationError("status", "oneof", "Status is not supported"))
		return
	}

	updated, err := workspaceFrom(c).UpdateInvoiceStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newInvoiceResponse(updated, nil))
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := workspaceFrom(c).DeleteInvoice(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) InvoicePDF(c *gin.Context) {
	ws := workspaceFrom(c)
	inv, ok := ws.GetInvoiceByID(strings.TrimSpace(c.Param("id")))
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	employee, ok := ws.GetEmployeeByID(inv.EmployeeID)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	pdf, err := s.renderer.Invoice(c.Request.Context(), render.InvoiceDocument{
		Company:  s.company.Get(),
		Invoice:  inv,
		Employee: employee,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.Filename(inv.InvoiceNumber)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// bindDraft decodes and validates an invoice draft. The employee must be known to the workspace.
func (s *Server) bindDraft(c *gin.Context, ws *workspace.Workspace) (*form.InvoiceDraft, bool) {
	var draft form.InvoiceDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		AbortWithError(c, invalidRequestError())
		return nil, false
	}
	if err := draft.Validate(); err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	if _, ok := ws.GetEmployeeByID(draft.EmployeeID); !ok {
		AbortWithError(c, newValidationError("employeeId", "exists", "Employee is required"))
		return nil, false
	}
	return &draft, true
}
