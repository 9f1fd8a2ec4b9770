package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	"github.com/smallbiznis/invoicenexus/internal/form"
)

type employeeDetailResponse struct {
	Employee employeedomain.Employee `json:"employee"`
	Invoices []invoiceResponse       `json:"invoices"`
}

func (s *Server) ListEmployees(c *gin.Context) {
	ws := workspaceFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"employees": ws.SearchEmployees(c.Query("search")),
		"loading":   ws.Loading(),
	})
}

func (s *Server) CreateEmployee(c *gin.Context) {
	var in form.EmployeeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := in.Validate(); err != nil {
		AbortWithError(c, err)
		return
	}

	created, err := workspaceFrom(c).AddEmployee(c.Request.Context(), in.Employee(""))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) GetEmployee(c *gin.Context) {
	ws := workspaceFrom(c)
	e, ok := ws.GetEmployeeByID(strings.TrimSpace(c.Param("id")))
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	invoices := ws.GetInvoicesByEmployeeID(e.ID)
	resp := employeeDetailResponse{Employee: e, Invoices: make([]invoiceResponse, 0, len(invoices))}
	for _, inv := range invoices {
		resp.Invoices = append(resp.Invoices, newInvoiceResponse(inv, nil))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateEmployee(c *gin.Context) {
	ws := workspaceFrom(c)
	id := strings.TrimSpace(c.Param("id"))
	if _, ok := ws.GetEmployeeByID(id); !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	var in form.EmployeeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := in.Validate(); err != nil {
		AbortWithError(c, err)
		return
	}

	updated, err := ws.UpdateEmployee(c.Request.Context(), in.Employee(id))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) DeleteEmployee(c *gin.Context) {
	if err := workspaceFrom(c).DeleteEmployee(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
