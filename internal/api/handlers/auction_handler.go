package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"auction-house/internal/domain"
	"auction-house/internal/engine"
	"auction-house/pkg/logger"
)

// callerHeader carries the caller's account identity. There is no auth layer;
// identities are taken at face value like everywhere else in the engine.
const callerHeader = "X-Account-ID"

type AuctionHandler struct {
	engine *engine.Engine
	log    logger.Logger
}

func NewAuctionHandler(eng *engine.Engine, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{engine: eng, log: log}
}

type CreateAuctionRequest struct {
	Asset           domain.AssetRef `json:"asset"`
	DurationSeconds int64           `json:"duration_seconds"`
	ReservePrice    string          `json:"reserve_price"`
	Medium          string          `json:"medium"`
}

type AuctionResponse struct {
	AuctionID     uint64          `json:"auction_id"`
	Seller        string          `json:"seller"`
	Asset         domain.AssetRef `json:"asset"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	ReservePrice  string          `json:"reserve_price"`
	Medium        string          `json:"medium"`
	HighestBidder string          `json:"highest_bidder,omitempty"`
	HighestBid    string          `json:"highest_bid"`
	HighestBidUsd string          `json:"highest_bid_usd,omitempty"`
	Status        string          `json:"status"`
}

func auctionResponse(a *domain.Auction) AuctionResponse {
	resp := AuctionResponse{
		AuctionID:     a.ID,
		Seller:        a.Seller,
		Asset:         a.Asset,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		ReservePrice:  a.ReservePrice.String(),
		Medium:        string(a.Medium),
		HighestBidder: a.HighestBidder,
		Status:        a.Status.String(),
	}
	if a.HighestBid != nil {
		resp.HighestBid = a.HighestBid.String()
	} else {
		resp.HighestBid = "0"
	}
	return resp
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, errorBody("missing "+callerHeader+" header"))
	}

	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	reserve, err := parseAmount(req.ReservePrice)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid reserve_price"))
	}
	medium := domain.Medium(req.Medium)
	if medium == "" {
		medium = domain.MediumNative
	}

	auction, err := h.engine.CreateAuction(c.Request().Context(), engine.CreateAuctionParams{
		Seller:       caller,
		Asset:        req.Asset,
		Duration:     time.Duration(req.DurationSeconds) * time.Second,
		ReservePrice: reserve,
		Medium:       medium,
	})
	if err != nil {
		return h.fail(c, "create auction", err)
	}

	return c.JSON(http.StatusCreated, auctionResponse(auction))
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	details, err := h.engine.GetAuctionDetails(c.Request().Context(), auctionID)
	if err != nil {
		return h.fail(c, "get auction", err)
	}

	resp := auctionResponse(details.Auction)
	if details.HighestBidUsd != nil {
		resp.HighestBidUsd = engine.UsdText(details.HighestBidUsd)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuctionHandler) ListActiveAuctions(c echo.Context) error {
	auctions, err := h.engine.GetActiveAuctions(c.Request().Context())
	if err != nil {
		return h.fail(c, "list active auctions", err)
	}

	resp := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, auctionResponse(a))
	}
	return c.JSON(http.StatusOK, resp)
}

type PlaceBidRequest struct {
	Amount  string `json:"amount"`
	Payment string `json:"payment,omitempty"`
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, errorBody("missing "+callerHeader+" header"))
	}
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid amount"))
	}
	var payment *big.Int
	if req.Payment != "" {
		if payment, err = parseAmount(req.Payment); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid payment"))
		}
	}

	auction, err := h.engine.PlaceBid(c.Request().Context(), engine.BidParams{
		Bidder:    caller,
		AuctionID: auctionID,
		Amount:    amount,
		Payment:   payment,
	})
	if err != nil {
		return h.fail(c, "place bid", err)
	}

	return c.JSON(http.StatusOK, auctionResponse(auction))
}

func (h *AuctionHandler) EndAuction(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	auction, err := h.engine.EndAuction(c.Request().Context(), caller, auctionID)
	if err != nil {
		return h.fail(c, "end auction", err)
	}
	return c.JSON(http.StatusOK, auctionResponse(auction))
}

func (h *AuctionHandler) CancelAuction(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	auction, err := h.engine.CancelAuction(c.Request().Context(), caller, auctionID)
	if err != nil {
		return h.fail(c, "cancel auction", err)
	}
	return c.JSON(http.StatusOK, auctionResponse(auction))
}

func (h *AuctionHandler) WithdrawPendingReturn(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, errorBody("missing "+callerHeader+" header"))
	}
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	amount, err := h.engine.WithdrawPendingReturn(c.Request().Context(), caller, auctionID)
	if err != nil {
		return h.fail(c, "withdraw pending return", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"amount": amount.String()})
}

func (h *AuctionHandler) fail(c echo.Context, op string, err error) error {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Operation failed", "op", op, "error", err)
	}
	return c.JSON(status, errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func parseAuctionID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// parseAmount accepts a base-10 unsigned integer with 18 implied fractional
// digits.
func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() < 0 {
		return nil, errors.New("malformed amount")
	}
	return amount, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidReserve),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidFeeRate),
		errors.Is(err, domain.ErrUnknownMedium):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAssetNotOwned),
		errors.Is(err, domain.ErrAuthorizationMissing),
		errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAssetAlreadyLocked),
		errors.Is(err, domain.ErrAssetLocked),
		errors.Is(err, domain.ErrAuctionNotActive),
		errors.Is(err, domain.ErrAuctionNotStarted),
		errors.Is(err, domain.ErrAuctionExpired),
		errors.Is(err, domain.ErrAuctionNotEnded),
		errors.Is(err, domain.ErrNoBids),
		errors.Is(err, domain.ErrAuctionHasBids):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentMismatch),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrBelowReserve),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrNoPendingReturn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrOracleUnavailable),
		errors.Is(err, domain.ErrInvalidPrice):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
