package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	"github.com/smallbiznis/scrollvite/internal/schema"
)

type updateInviteRequest struct {
	Schema json.RawMessage `json:"schema"`
}

func (s *Server) GetPublicInvite(c *gin.Context) {
	invite, err := s.inviteSvc.GetPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invite)
}

func (s *Server) ListInvites(c *gin.Context) {
	principal, _ := principalFrom(c)

	items, err := s.inviteSvc.ListOwned(c.Request.Context(), principal)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetInvite(c *gin.Context) {
	principal, _ := principalFrom(c)

	invite, err := s.inviteSvc.GetOwned(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invite)
}

func (s *Server) UpdateInvite(c *gin.Context) {
	var req updateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := schema.Parse(req.Schema)
	if err != nil {
		AbortWithError(c, invitedomain.ErrInvalidSchema)
		return
	}

	principal, _ := principalFrom(c)
	res, err := s.inviteSvc.UpdateSchema(c.Request.Context(), principal, c.Param("id"), doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
