package auction

import (
	"strconv"

	"github.com/Nixend-creator/DynamicEconomy/pkg/middleware"
	"github.com/Nixend-creator/DynamicEconomy/pkg/response"
	"github.com/gin-gonic/gin"
)

type ListRequest struct {
	Good     string  `json:"good" binding:"required"`
	Quantity int     `json:"quantity" binding:"required"`
	Price    float64 `json:"price" binding:"required"`
}

// GinHandlers contains HTTP handlers for the auction board
type GinHandlers struct {
	board *Board
}

func NewGinHandlers(board *Board) *GinHandlers {
	return &GinHandlers{board: board}
}

// PageHandler returns a page of live listings. Without query parameters it
// reopens the page and filter the session last looked at.
func (h *GinHandlers) PageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := middleware.SessionFrom(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}

		nav := s.Navigation()
		if raw := c.Query("page"); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil {
				response.BadRequest(c, "page must be a number")
				return
			}
			nav.AuctionPage = page
		}
		if raw := c.Query("mine"); raw != "" {
			mine, err := strconv.ParseBool(raw)
			if err != nil {
				response.BadRequest(c, "mine must be a boolean")
				return
			}
			nav.AuctionMine = mine
		}

		seller := ""
		if nav.AuctionMine {
			seller = s.ID()
		}
		page := h.board.Page(nav.AuctionPage, seller)
		nav.AuctionPage = page.Page
		s.SetNavigation(nav)
		response.Success(c, page)
	}
}

func (h *GinHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := middleware.SessionFrom(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}
		var req ListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		l, err := h.board.List(s, req.Good, req.Quantity, req.Price)
		response.Handle(c, l, err)
	}
}

func (h *GinHandlers) BuyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := middleware.SessionFrom(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}
		l, err := h.board.Buy(s, c.Param("id"))
		response.Handle(c, l, err)
	}
}

func (h *GinHandlers) CancelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := middleware.SessionFrom(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}
		l, err := h.board.Cancel(s, c.Param("id"))
		response.Handle(c, l, err)
	}
}
