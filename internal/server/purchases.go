package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreatePurchase answers 201 for a fresh checkout and 200 when an open
// checkout is reused or the template is already owned.
func (s *Server) CreatePurchase(c *gin.Context) {
	principal, _ := principalFrom(c)

	resp, err := s.orderSvc.InitiatePurchase(c.Request.Context(), principal, c.Param("template_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Reused || resp.AlreadyOwned {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (s *Server) ListPurchases(c *gin.Context) {
	principal, _ := principalFrom(c)

	items, err := s.orderSvc.ListOwned(c.Request.Context(), principal)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}
