package api

import (
	"net/http"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/lexiconadmin"

	"github.com/gin-gonic/gin"
)

// LexiconHandler implements the admin-gated lexicon-term management
// surface: list lexicon ids, list/create/update/delete terms within one.
type LexiconHandler struct {
	admin *lexiconadmin.Service
}

// NewLexiconHandler constructs a LexiconHandler.
func NewLexiconHandler(svc *lexiconadmin.Service) *LexiconHandler {
	return &LexiconHandler{admin: svc}
}

// ListLexicons handles GET /lexicons.
func (h *LexiconHandler) ListLexicons(c *gin.Context) {
	ids, err := h.admin.ListLexiconIDs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lexicons": ids})
}

// ListTerms handles GET /lexicons/{lexicon_id}/terms.
func (h *LexiconHandler) ListTerms(c *gin.Context) {
	terms, err := h.admin.ListTerms(c.Request.Context(), c.Param("lexicon_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"terms": terms})
}

type termRequest struct {
	Term        string `json:"term" binding:"required"`
	Replacement string `json:"replacement" binding:"required"`
}

// CreateTerm handles POST /lexicons/{lexicon_id}/terms.
func (h *LexiconHandler) CreateTerm(c *gin.Context) {
	var body termRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apierr.New(apierr.KindClient, "invalid request body"))
		return
	}

	term, err := h.admin.CreateTerm(c.Request.Context(), lexiconadmin.TermInput{
		LexiconID:   c.Param("lexicon_id"),
		Term:        body.Term,
		Replacement: body.Replacement,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, term)
}

// UpdateTerm handles PUT /lexicons/{lexicon_id}/terms/{id}.
func (h *LexiconHandler) UpdateTerm(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, apierr.New(apierr.KindClient, "invalid term id"))
		return
	}

	var body termRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apierr.New(apierr.KindClient, "invalid request body"))
		return
	}

	term, err := h.admin.UpdateTerm(c.Request.Context(), id, lexiconadmin.TermInput{
		LexiconID:   c.Param("lexicon_id"),
		Term:        body.Term,
		Replacement: body.Replacement,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}

// DeleteTerm handles DELETE /lexicons/{lexicon_id}/terms/{id}.
func (h *LexiconHandler) DeleteTerm(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, apierr.New(apierr.KindClient, "invalid term id"))
		return
	}

	if err := h.admin.DeleteTerm(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
