package api

import (
	"net/http"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/service/passengers"
	"github.com/gin-gonic/gin"
)

type PassengerHandler struct {
	service passengers.PassengerUseCase
}

func NewPassengerHandler(service passengers.PassengerUseCase) *PassengerHandler {
	return &PassengerHandler{service: service}
}

func (h *PassengerHandler) Register(router *gin.RouterGroup) {
	router.GET("", RequireUser(), h.list)
	router.POST("", RequireUser(), h.save)
	router.GET("/:id", h.get)
}

func (h *PassengerHandler) save(c *gin.Context) {
	var p domain.Passenger
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	saved, err := h.service.Save(c.Request.Context(), *currentUser(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "passenger saved", gin.H{"passenger": saved})
}

func (h *PassengerHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), *currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"passengers": list, "count": len(list)})
}

func (h *PassengerHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"passenger": p})
}
