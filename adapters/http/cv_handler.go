package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cvUC "github.com/khoahotran/talentsin/internal/application/usecase/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
)

type CVHandler struct {
	createUC     *cvUC.CreateCVUseCase
	updateUC     *cvUC.UpdateCVUseCase
	setPrimaryUC *cvUC.SetPrimaryCVUseCase
	listUC       *cvUC.ListCVsUseCase
	getUC        *cvUC.GetCVUseCase
	deleteUC     *cvUC.DeleteCVUseCase
}

func NewCVHandler(
	createUC *cvUC.CreateCVUseCase,
	updateUC *cvUC.UpdateCVUseCase,
	setPrimaryUC *cvUC.SetPrimaryCVUseCase,
	listUC *cvUC.ListCVsUseCase,
	getUC *cvUC.GetCVUseCase,
	deleteUC *cvUC.DeleteCVUseCase,
) *CVHandler {
	return &CVHandler{
		createUC:     createUC,
		updateUC:     updateUC,
		setPrimaryUC: setPrimaryUC,
		listUC:       listUC,
		getUC:        getUC,
		deleteUC:     deleteUC,
	}
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid "+what+" ID", err))
		return uuid.Nil, false
	}
	return id, true
}

func (h *CVHandler) ListCVs(c *gin.Context) {
	out, err := h.listUC.Execute(c.Request.Context(), cvUC.ListCVsInput{OwnerID: ownerOrNil(c)})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ToCVDTOs(out.CVs)})
}

func (h *CVHandler) CreateCV(c *gin.Context) {
	var req CreateCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	out, err := h.createUC.Execute(c.Request.Context(), cvUC.CreateCVInput{
		OwnerID:   ownerOrNil(c),
		Title:     req.Title,
		Body:      req.Body,
		IsPrimary: req.IsPrimary,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToCVDTO(out.CV))
}

func (h *CVHandler) GetCV(c *gin.Context) {
	id, ok := parseID(c, "CV")
	if !ok {
		return
	}
	found, err := h.getUC.Execute(c.Request.Context(), cvUC.GetCVInput{OwnerID: ownerOrNil(c), CVID: id})
	if err != nil {
		c.Error(err)
		return
	}
	if c.Query("view") == "display" {
		c.JSON(http.StatusOK, ToCVDisplayDTO(found))
		return
	}
	c.JSON(http.StatusOK, ToCVDTO(found))
}

func (h *CVHandler) UpdateCV(c *gin.Context) {
	id, ok := parseID(c, "CV")
	if !ok {
		return
	}
	var req UpdateCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	out, err := h.updateUC.Execute(c.Request.Context(), cvUC.UpdateCVInput{
		OwnerID: ownerOrNil(c),
		CVID:    id,
		Patch:   req.ToPatch(),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToCVDTO(out.CV))
}

func (h *CVHandler) SetPrimary(c *gin.Context) {
	id, ok := parseID(c, "CV")
	if !ok {
		return
	}
	out, err := h.setPrimaryUC.Execute(c.Request.Context(), cvUC.SetPrimaryCVInput{OwnerID: ownerOrNil(c), CVID: id})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToCVDTO(out.CV))
}

func (h *CVHandler) DeleteCV(c *gin.Context) {
	id, ok := parseID(c, "CV")
	if !ok {
		return
	}
	if err := h.deleteUC.Execute(c.Request.Context(), cvUC.DeleteCVInput{OwnerID: ownerOrNil(c), CVID: id}); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
