package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/services"
)

type CompoundHandler struct {
	compoundService services.CompoundService
}

func NewCompoundHandler(compoundService services.CompoundService) *CompoundHandler {
	return &CompoundHandler{compoundService: compoundService}
}

// List handles the compound query endpoint. Every filter is optional; ID
// parameters win over their name counterpart.
func (ch *CompoundHandler) List(c *gin.Context) {
	filter := repos.CompoundFilter{
		ClassName:     c.Query("class_name"),
		SubclassName:  c.Query("subclass_name"),
		Type:          c.Query("type"),
		TreatmentName: c.Query("treatment_name"),
		Name:          c.Query("name"),
	}

	var badParam string
	parseID := func(param string) *uuid.UUID {
		raw := c.Query(param)
		if raw == "" {
			return nil
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			badParam = param
			return nil
		}
		return &id
	}
	filter.CompoundID = parseID("compound_id")
	filter.ClassID = parseID("class_id")
	filter.SubclassID = parseID("subclass_id")
	filter.OriginID = parseID("origin_id")
	filter.TreatmentID = parseID("treatment_id")
	if badParam != "" {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New(badParam+" is not a valid UUID"))
		return
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	page, err := ch.compoundService.List(c.Request.Context(), filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	// Echo the applied filters so clients can see what the page reflects.
	applied := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if key == "page" || key == "page_size" || len(values) == 0 || values[0] == "" {
			continue
		}
		applied[key] = values[0]
	}
	RespondOK(c, gin.H{
		"compounds": page.Compounds,
		"pagination": gin.H{
			"total":        page.Total,
			"page":         page.Page,
			"page_size":    page.PageSize,
			"total_pages":  page.TotalPages,
			"has_next":     page.HasNext,
			"has_previous": page.HasPrevious,
		},
		"query": applied,
	})
}

func (ch *CompoundHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("id is not a valid UUID"))
		return
	}
	compound, err := ch.compoundService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, compound)
}

// Metadata serves the filter dropdown values.
func (ch *CompoundHandler) Metadata(c *gin.Context) {
	meta, err := ch.compoundService.Metadata(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, meta)
}
