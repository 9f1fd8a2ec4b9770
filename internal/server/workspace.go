package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) Dashboard(c *gin.Context) {
	ws := workspaceFrom(c)
	c.JSON(http.StatusOK, ws.Dashboard(s.cfg.DashboardRecentLimit))
}

// Refresh refetches every collection of the caller's workspace.
func (s *Server) Refresh(c *gin.Context) {
	ws := workspaceFrom(c)
	if err := ws.RefreshData(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employees": len(ws.Employees()),
		"invoices":  len(ws.Invoices()),
	})
}

func (s *Server) Notifications(c *gin.Context) {
	ws := workspaceFrom(c)
	c.JSON(http.StatusOK, gin.H{"notifications": ws.Inbox.Drain()})
}

func (s *Server) CompanySettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.company.Get())
}
