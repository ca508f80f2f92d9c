package handlers

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-house/internal/domain"
	"auction-house/internal/engine"
	"auction-house/internal/infrastructure/memory"
	"auction-house/pkg/logger"
)

func newAdminFixture(t *testing.T) (*AdminHandler, *engine.PriceOracleAdapter) {
	t.Helper()

	oracle := engine.NewPriceOracleAdapter()
	eng, err := engine.New(memory.NewStore(), memory.NewAssetRegistry(), oracle,
		memory.NewEventLog(), engine.Params{
			Admin:  "admin",
			Escrow: "escrow",
		}, logger.NewNop())
	require.NoError(t, err)

	return NewAdminHandler(eng, logger.NewNop()), oracle
}

func postJSON(handler echo.HandlerFunc, caller, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))
	return rec
}

func TestUpdatePrice(t *testing.T) {
	h, oracle := newAdminFixture(t)
	ctx := context.Background()
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	rec := postJSON(h.UpdatePrice, "admin", `{"medium":"native","price":"300000000000"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	usd, err := oracle.ConvertToUsd(ctx, unit, domain.MediumNative)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(3000), unit), usd)

	// A later update moves the registered feed, not a fresh one.
	rec = postJSON(h.UpdatePrice, "admin", `{"medium":"native","price":"150000000000"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	usd, err = oracle.ConvertToUsd(ctx, unit, domain.MediumNative)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(1500), unit), usd)
}

func TestUpdatePriceRejectedRegistrationLeavesNoOrphan(t *testing.T) {
	h, oracle := newAdminFixture(t)
	ctx := context.Background()
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	body := `{"medium":"native","price":"300000000000"}`

	rec := postJSON(h.UpdatePrice, "mallory", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The rejection left nothing registered.
	_, err := oracle.ConvertToUsd(ctx, unit, domain.MediumNative)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)

	// The admin's next call must go through and reach the oracle.
	rec = postJSON(h.UpdatePrice, "admin", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	usd, err := oracle.ConvertToUsd(ctx, unit, domain.MediumNative)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(3000), unit), usd)
}

func TestUpdatePriceInvalidBody(t *testing.T) {
	h, _ := newAdminFixture(t)

	rec := postJSON(h.UpdatePrice, "admin", `{"medium":"native","price":"not-a-number"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
