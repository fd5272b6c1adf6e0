package market

import (
	"strconv"
	"strings"

	"github.com/Nixend-creator/DynamicEconomy/internal/contracts"
	"github.com/Nixend-creator/DynamicEconomy/internal/players"
	"github.com/Nixend-creator/DynamicEconomy/internal/pricing"
	"github.com/Nixend-creator/DynamicEconomy/internal/reputation"
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/Nixend-creator/DynamicEconomy/pkg/middleware"
	"github.com/Nixend-creator/DynamicEconomy/pkg/response"
	"github.com/gin-gonic/gin"
)

// Sell modes remembered per session.
const (
	ModeOne   = "ONE"
	ModeStack = "STACK"
	ModeAll   = "ALL"
)

type SellRequest struct {
	Good   string `json:"good" binding:"required"`
	Amount int    `json:"amount"`
	All    bool   `json:"all"`
	Mode   string `json:"mode"`
}

type BuyRequest struct {
	Good   string `json:"good" binding:"required"`
	Amount int    `json:"amount" binding:"required"`
}

type ResetRequest struct {
	Good string `json:"good" binding:"required"`
}

// Multiplier is a pointer so an explicit 0 binds and gets clamped.
type SetPriceRequest struct {
	Good       string   `json:"good" binding:"required"`
	Multiplier *float64 `json:"multiplier" binding:"required"`
}

type FireEventRequest struct {
	Type    string `json:"type" binding:"required"`
	Good    string `json:"good" binding:"required"`
	Minutes int    `json:"minutes"`
}

type GiveRequest struct {
	PlayerID string  `json:"player_id" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
}

type GiveAllRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

type GrantRequest struct {
	PlayerID string  `json:"player_id" binding:"required"`
	Good     string  `json:"good"`
	Amount   int     `json:"amount"`
	Balance  float64 `json:"balance"`
}

// ContractView is an active contract with its remaining time.
type ContractView struct {
	contracts.Contract
	RemainingMinutes int `json:"remaining_minutes"`
}

// AccountView is what a player sees of their own account.
type AccountView struct {
	players.Snapshot
	SessionID     string              `json:"session_id"`
	Reputation    reputation.Standing `json:"reputation"`
	TaxRate       float64             `json:"tax_rate"`
	MaxSellAmount int                 `json:"max_sell_amount"`
	Tiers         []reputation.Tier   `json:"tiers"`
	Navigation    players.Navigation  `json:"navigation"`
}

// GinHandlers contains HTTP handlers for the market, its side stores and
// the admin routes.
type GinHandlers struct {
	admin *Admin
}

func NewGinHandlers(admin *Admin) *GinHandlers {
	return &GinHandlers{admin: admin}
}

func session(c *gin.Context) (*players.Session, bool) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		response.Unauthorized(c, "Missing session")
	}
	return s, ok
}

// sellAmount resolves a request to a unit count. An explicit amount wins
// over a mode; a mode is remembered on the session for later requests.
func sellAmount(s *players.Session, req SellRequest) (int, bool) {
	if req.All {
		return SellAll, true
	}
	if req.Amount != 0 {
		return req.Amount, true
	}
	mode := strings.ToUpper(req.Mode)
	if mode == "" {
		mode = s.Navigation().SellMode
	} else {
		nav := s.Navigation()
		nav.SellMode = mode
		s.SetNavigation(nav)
	}
	switch mode {
	case ModeOne:
		return 1, true
	case ModeStack:
		return pricing.StackSize, true
	case ModeAll:
		return SellAll, true
	default:
		return 0, false
	}
}

// CategoriesHandler lists categories with their hot flag.
func (h *GinHandlers) CategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		hot, since := h.admin.Seasonal.Hot()
		response.Success(c, gin.H{
			"categories":   h.admin.Engine.Categories(),
			"hot_category": hot,
			"hot_since":    since,
		})
	}
}

// CategoryGoodsHandler lists a category's goods and records it as the
// session's current category.
func (h *GinHandlers) CategoryGoodsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := session(c)
		if !ok {
			return
		}
		key := c.Param("key")
		goods, found := h.admin.Engine.CategoryGoods(key)
		if !found {
			response.NotFound(c, "Category not found")
			return
		}
		page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
		nav := s.Navigation()
		nav.Category = key
		nav.Page = max(0, page)
		s.SetNavigation(nav)
		response.Success(c, goods)
	}
}

func (h *GinHandlers) GoodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, ok := h.admin.Engine.Good(c.Param("key"))
		if !ok {
			response.Outcome(c, nil, types.OutcomeItemNotFound)
			return
		}
		response.Success(c, view)
	}
}

// PreviewHandler prices a sale without committing it. amount may be a
// number or "all"; absent, the session's sell mode applies.
func (h *GinHandlers) PreviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := session(c)
		if !ok {
			return
		}
		req := SellRequest{Good: c.Param("key")}
		switch raw := c.Query("amount"); {
		case strings.EqualFold(raw, "all"):
			req.All = true
		case raw != "":
			n, err := strconv.Atoi(raw)
			if err != nil {
				response.BadRequest(c, "amount must be a number or \"all\"")
				return
			}
			req.Amount = n
		}
		if req.Amount < 0 {
			response.Outcome(c, nil, types.OutcomeInvalidAmount)
			return
		}
		amount, ok := sellAmount(s, req)
		if !ok {
			response.BadRequest(c, "amount or sell mode required")
			return
		}
		res := h.admin.Engine.PreviewSell(s, req.Good, amount)
		response.Outcome(c, res, res.Outcome)
	}
}

func (h *GinHandlers) SellHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := session(c)
		if !ok {
			return
		}
		var req SellRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		// A negative amount would alias SellAll.
		if req.Amount < 0 {
			response.Outcome(c, nil, types.OutcomeInvalidAmount)
			return
		}
		amount, ok := sellAmount(s, req)
		if !ok {
			response.BadRequest(c, "amount or sell mode required")
			return
		}
		res := h.admin.Engine.Sell(s, req.Good, amount)
		response.Outcome(c, res, res.Outcome)
	}
}

func (h *GinHandlers) BuyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := session(c)
		if !ok {
			return
		}
		var req BuyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		res := h.admin.Engine.Buy(s, req.Good, req.Amount)
		response.Outcome(c, res, res.Outcome)
	}
}

func (h *GinHandlers) SnapshotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.admin.Engine.Snapshot())
	}
}

func (h *GinHandlers) ContractsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := h.admin.Contracts.Now()
		active := h.admin.Contracts.Active()
		out := make([]ContractView, 0, len(active))
		for _, ct := range active {
			out = append(out, ContractView{Contract: ct, RemainingMinutes: ct.RemainingMinutes(now)})
		}
		response.Success(c, out)
	}
}

func (h *GinHandlers) EventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.admin.ActiveEvents())
	}
}

func (h *GinHandlers) AccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := session(c)
		if !ok {
			return
		}
		rep := h.admin.Reputation
		response.Success(c, AccountView{
			Snapshot:      s.Snapshot(),
			SessionID:     s.SessionID,
			Reputation:    rep.Standing(s.ID()),
			TaxRate:       rep.TaxRate(s.ID()),
			MaxSellAmount: rep.MaxSellAmount(s.ID()),
			Tiers:         rep.Tiers(),
			Navigation:    s.Navigation(),
		})
	}
}

// Admin routes.

func (h *GinHandlers) InfoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.admin.Info())
	}
}

func (h *GinHandlers) ReloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := h.admin.Reload()
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, info)
	}
}

func (h *GinHandlers) ResetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		n, err := h.admin.Reset(req.Good)
		response.Handle(c, gin.H{"reset": n}, err)
	}
}

func (h *GinHandlers) SetPriceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetPriceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		m, err := h.admin.SetPrice(req.Good, *req.Multiplier)
		response.Handle(c, gin.H{"good": req.Good, "multiplier": m}, err)
	}
}

func (h *GinHandlers) FireEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FireEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if req.Minutes == 0 {
			req.Minutes = h.admin.Engine.Config().MarketEvents.DurationMinutes
		}
		ev, err := h.admin.FireEvent(req.Type, req.Good, req.Minutes)
		response.Handle(c, ev, err)
	}
}

func (h *GinHandlers) TreasuryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.admin.Treasury.Summary())
	}
}

func (h *GinHandlers) GiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		err := h.admin.Give(req.PlayerID, req.Amount)
		response.Handle(c, gin.H{"player_id": req.PlayerID, "amount": req.Amount, "treasury": h.admin.Treasury.Summary()}, err)
	}
}

func (h *GinHandlers) GiveAllHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GiveAllRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		share, n, err := h.admin.GiveAll(req.Amount)
		response.Handle(c, gin.H{"share": share, "recipients": n, "treasury": h.admin.Treasury.Summary()}, err)
	}
}

func (h *GinHandlers) GrantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GrantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		snap, err := h.admin.Grant(req.PlayerID, req.Good, req.Amount, req.Balance)
		response.Handle(c, snap, err)
	}
}
