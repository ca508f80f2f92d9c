package handlers

import (
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"auction-house/internal/domain"
	"auction-house/internal/engine"
	"auction-house/internal/infrastructure/memory"
	"auction-house/pkg/logger"
)

// AdminHandler exposes the administrative surface. The engine enforces the
// administrator identity; the handler only shapes requests.
type AdminHandler struct {
	engine *engine.Engine
	log    logger.Logger

	// Manual price sources registered over the API, one per medium, so a
	// price update does not re-register a feed.
	mu      sync.Mutex
	sources map[domain.Medium]*memory.PriceSource
}

func NewAdminHandler(eng *engine.Engine, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		engine:  eng,
		log:     log,
		sources: make(map[domain.Medium]*memory.PriceSource),
	}
}

type SetFeeRateRequest struct {
	FeeRateBps uint64 `json:"fee_rate_bps"`
}

func (h *AdminHandler) SetFeeRate(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)

	var req SetFeeRateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := h.engine.SetFeeRate(c.Request().Context(), caller, req.FeeRateBps); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]uint64{"fee_rate_bps": req.FeeRateBps})
}

type SetFeeRecipientRequest struct {
	Recipient string `json:"recipient"`
}

func (h *AdminHandler) SetFeeRecipient(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)

	var req SetFeeRecipientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := h.engine.SetFeeRecipient(c.Request().Context(), caller, req.Recipient); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"recipient": req.Recipient})
}

type UpdatePriceRequest struct {
	Medium string `json:"medium"`
	// Price carries 8 fractional digits, e.g. "300000000000" for $3000.
	Price string `json:"price"`
}

// UpdatePrice registers (on first sight) and updates the manual price source
// for a medium.
func (h *AdminHandler) UpdatePrice(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)

	var req UpdatePriceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	price, ok := new(big.Int).SetString(req.Price, 10)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("invalid price"))
	}
	medium := domain.Medium(req.Medium)
	if medium == "" {
		medium = domain.MediumNative
	}

	h.mu.Lock()
	source, exists := h.sources[medium]
	if !exists {
		// Cached only once the engine accepts the registration; a rejected
		// attempt must not shadow later ones.
		source = memory.NewPriceSource(price)
		if err := h.engine.RegisterPriceSource(c.Request().Context(), caller, medium, source); err != nil {
			h.mu.Unlock()
			return h.fail(c, err)
		}
		h.sources[medium] = source
	}
	h.mu.Unlock()

	source.SetPrice(price, time.Now())

	return c.JSON(http.StatusOK, map[string]string{
		"medium": string(medium),
		"price":  price.String(),
	})
}

type RecoveryRequest struct {
	Asset domain.AssetRef `json:"asset"`
	To    string          `json:"to"`
}

func (h *AdminHandler) EmergencyAssetRecovery(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)

	var req RecoveryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := h.engine.EmergencyAssetRecovery(c.Request().Context(), caller, req.Asset, req.To); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"asset": req.Asset.Key(), "to": req.To})
}

type AuthorizeUpgradeRequest struct {
	Version string `json:"version"`
}

func (h *AdminHandler) AuthorizeUpgrade(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)

	var req AuthorizeUpgradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := h.engine.AuthorizeUpgrade(c.Request().Context(), caller, req.Version); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"version": req.Version})
}

func (h *AdminHandler) fail(c echo.Context, err error) error {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Admin operation failed", "error", err)
	}
	return c.JSON(status, errorBody(err.Error()))
}
