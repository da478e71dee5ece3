package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/api/view"
	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/response"
)

// Countries 国家下拉列表，转发 countryinfo
// @Summary 国家列表
// @Tags countries
// @Produce json
// @Success 200 {object} response.Response{data=[]country.CountrySummary}
// @Failure 502 {object} response.Response
// @Router /api/countries [get]
func (h *Handler) Countries(c *gin.Context) {
	list, err := h.countries.ListCountries(c.Request.Context())
	if err != nil {
		h.countryFailed(c, err, "Countries not found", "Failed to fetch countries list")
		return
	}
	response.Success(c, list)
}

// CountryDetails 国家详情
// @Summary 国家详情
// @Tags countries
// @Produce json
// @Param name query string true "国家名称"
// @Success 200 {object} response.Response{data=country.CountryDetails}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/country-details [get]
func (h *Handler) CountryDetails(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		response.BadRequest(c, "Country name is required")
		return
	}
	d, err := h.countries.Details(c.Request.Context(), name)
	if err != nil {
		h.countryFailed(c, err, "Country not found", "Failed to fetch country details")
		return
	}
	response.Success(c, d)
}

func (h *Handler) countryFailed(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, apperr.ErrNotFound) {
		response.NotFound(c, notFound)
		return
	}
	logger.Error("country lookup failed", zap.Error(err), zap.String("request_id", middleware.RequestIDFrom(c)))
	_ = c.Error(err)
	response.Fail(c, apperr.HTTPStatus(err), failed)
}

// CountryPage 国家详情页
func (h *Handler) CountryPage(c *gin.Context) {
	d, err := h.countries.Details(c.Request.Context(), c.Param("name"))
	if err != nil {
		if middleware.WantsJSON(c) {
			h.countryFailed(c, err, "Country not found", "Failed to load country details")
			return
		}
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			view.Error(c, http.StatusNotFound, "Country not found")
		case errors.Is(err, apperr.ErrInvalidInput):
			view.Error(c, http.StatusBadRequest, "Country name is required")
		default:
			logger.Error("country page failed", zap.Error(err))
			_ = c.Error(err)
			view.Error(c, apperr.HTTPStatus(err), "Failed to load country details")
		}
		return
	}
	if middleware.WantsJSON(c) {
		response.Success(c, d)
		return
	}
	view.Page(c, http.StatusOK, "country", gin.H{"Country": d})
}
