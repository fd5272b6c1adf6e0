package response

import (
	"errors"
	"net/http"

	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// outcomeMessages are the player-facing texts of each failure outcome.
var outcomeMessages = map[types.Outcome]string{
	types.OutcomeCooldown:         "Please wait before selling again",
	types.OutcomeItemNotSold:      "This item is not traded on the market",
	types.OutcomeItemNotFound:     "Item not found",
	types.OutcomeNotEnoughItems:   "You do not have enough of this item",
	types.OutcomeInsufficientFund: "Insufficient funds",
	types.OutcomeInventoryFull:    "Not enough storage space",
	types.OutcomeBuyModeDisabled:  "Buying from the market is disabled",
	types.OutcomeNotFound:         "Not found",
	types.OutcomeOwnListing:       "You cannot buy your own listing",
	types.OutcomeInvalidAmount:    "Invalid amount",
	types.OutcomeNoPlayersOnline:  "No players online",
	types.OutcomeListingLimit:     "Listing limit reached",
}

// OutcomeStatus maps a failure outcome to its HTTP status.
func OutcomeStatus(o types.Outcome) int {
	switch o {
	case types.OutcomeSuccess:
		return http.StatusOK
	case types.OutcomeItemNotFound, types.OutcomeNotFound:
		return http.StatusNotFound
	case types.OutcomeCooldown, types.OutcomeOwnListing:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// Handle processes the error and returns appropriate response
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	var outcome types.Outcome
	switch {
	case errors.As(err, &outcome):
		Outcome(c, nil, outcome)
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "Resource not found")
	default:
		handleError(c, err)
	}
}

// Outcome sends data with the status of a transaction outcome. Failed
// outcomes still carry data so clients can show what was attempted.
func Outcome(c *gin.Context, data interface{}, outcome types.Outcome) {
	if outcome.OK() {
		Success(c, data)
		return
	}
	msg, ok := outcomeMessages[outcome]
	if !ok {
		msg = string(outcome)
	}
	c.JSON(OutcomeStatus(outcome), Response{
		Success: false,
		Data:    data,
		Error: &Error{
			Code:    string(outcome),
			Message: msg,
		},
	})
}

// Success sends data. POST requests answer 201.
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// Fail sends an error envelope with the given status and code.
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   &Error{Code: code, Message: message},
	})
}

func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, ErrCodeNotFound, message)
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, ErrCodeForbidden, message)
}

func TooManyRequests(c *gin.Context, message string) {
	Fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, message)
}

func InternalError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// handleError records err on the context and hides it from the client.
func handleError(c *gin.Context, err error) {
	c.Error(err)
	InternalError(c, "An unexpected error occurred")
}
