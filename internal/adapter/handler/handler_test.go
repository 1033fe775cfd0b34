package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/govend/internal/adapter/storage"
	"github.com/ibrahimkeyboad/govend/internal/core/domain"
	"github.com/ibrahimkeyboad/govend/internal/core/logger"
	"github.com/ibrahimkeyboad/govend/internal/core/security"
	"github.com/ibrahimkeyboad/govend/internal/core/service"
	"github.com/ibrahimkeyboad/govend/internal/core/vending"
)

const goodPIN = 1234

type apiHarness struct {
	t       *testing.T
	app     *fiber.App
	key     string
	machine *vending.Machine
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()

	registry := storage.NewRegistry()
	validator := vending.PinValidatorFunc(func(pin int) bool { return pin == goodPIN })
	machine := vending.NewMachine(validator, 25, domain.MustMoney("0.50"))
	require.NoError(t, registry.AddMachine(machine))

	journal := storage.NewMemoryJournal(100)
	keys := security.NewKeyRing()
	key, err := keys.Issue()
	require.NoError(t, err)

	app := fiber.New()
	Register(app, Deps{
		Registry:    registry,
		Journal:     journal,
		Idempotency: storage.NewMemoryIdempotencyStore(),
		Keys:        keys,
		Service:     service.NewVendService(registry, journal, service.WithLogger(logger.Discard())),
	})
	return &apiHarness{t: t, app: app, key: key, machine: machine}
}

func (h *apiHarness) do(method, path, body string, headers ...string) (int, map[string]any) {
	h.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.key)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := h.app.Test(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (h *apiHarness) newCard(balance string) (accountID, cardID string) {
	h.t.Helper()
	status, acc := h.do(http.MethodPost, "/v1/accounts", `{"balance":"`+balance+`"}`)
	require.Equal(h.t, http.StatusCreated, status)
	accountID = acc["id"].(string)

	status, card := h.do(http.MethodPost, "/v1/cards", `{"account_id":"`+accountID+`"}`)
	require.Equal(h.t, http.StatusCreated, status)
	return accountID, card["id"].(string)
}

func (h *apiHarness) vendPath() string {
	return "/v1/machines/" + h.machine.ID().String() + "/vend"
}

func TestAPI_VendApproved(t *testing.T) {
	h := newHarness(t)
	accountID, cardID := h.newCard("5.00")

	status, receipt := h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+cardID+`","pin":1234,"quantity":1}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, receipt["approved"])
	assert.Equal(t, "approved", receipt["reason"])
	assert.Equal(t, "4.50", receipt["balance_after"])
	assert.Equal(t, float64(24), receipt["stock_after"])

	status, acc := h.do(http.MethodGet, "/v1/accounts/"+accountID, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "4.50", acc["balance"])
}

func TestAPI_VendRejectionsCarryReason(t *testing.T) {
	h := newHarness(t)
	accountID, cardID := h.newCard("5.00")

	status, r := h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+cardID+`","pin":1111,"quantity":1}`)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "invalid_pin", r["reason"])

	status, r = h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+cardID+`","pin":1234,"quantity":26}`)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient_stock", r["reason"])

	status, _ = h.do(http.MethodPut, "/v1/accounts/"+accountID+"/balance", `{"balance":"0.49"}`)
	require.Equal(t, http.StatusOK, status)

	status, r = h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+cardID+`","pin":1234,"quantity":1}`)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient_balance", r["reason"])
	assert.Equal(t, "0.49", r["balance_after"])

	assert.Equal(t, 25, h.machine.Stock())
}

func TestAPI_VendIsIdempotent(t *testing.T) {
	h := newHarness(t)
	_, cardID := h.newCard("5.00")
	body := `{"card_id":"` + cardID + `","pin":1234,"quantity":2}`

	_, first := h.do(http.MethodPost, h.vendPath(), body, "Idempotency-Key", "vend-1")
	_, second := h.do(http.MethodPost, h.vendPath(), body, "Idempotency-Key", "vend-1")

	assert.Equal(t, first["id"], second["id"])
	assert.Equal(t, 23, h.machine.Stock())
}

func TestAPI_VendBadRequests(t *testing.T) {
	h := newHarness(t)
	_, cardID := h.newCard("5.00")

	status, _ := h.do(http.MethodPost, "/v1/machines/not-a-uuid/vend", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, h.vendPath(), `{"card_id":"nope","pin":1234,"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+cardID+`","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/v1/machines/"+uuid.NewString()+"/vend", `{"card_id":"`+cardID+`","pin":1234,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+uuid.NewString()+`","pin":1234,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_Receipts(t *testing.T) {
	h := newHarness(t)
	_, cardID := h.newCard("5.00")
	h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+cardID+`","pin":1234,"quantity":1}`)
	h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+cardID+`","pin":9,"quantity":1}`)

	status, body := h.do(http.MethodGet, "/v1/machines/"+h.machine.ID().String()+"/receipts", "")
	require.Equal(t, http.StatusOK, status)

	receipts := body["receipts"].([]any)
	require.Len(t, receipts, 2)
	assert.Equal(t, "invalid_pin", receipts[0].(map[string]any)["reason"])
	assert.Equal(t, "approved", receipts[1].(map[string]any)["reason"])
}

func TestAPI_Machines(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodGet, "/v1/machines", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["machines"].([]any), 1)

	status, m := h.do(http.MethodGet, "/v1/machines/"+h.machine.ID().String(), "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(25), m["stock"])
	assert.Equal(t, "0.50", m["unit_price"])
	assert.Equal(t, "flat", m["charge_policy"])
}

func TestAPI_CardRequiresKnownAccountAndValidNumber(t *testing.T) {
	h := newHarness(t)
	accountID, _ := h.newCard("1.00")

	status, _ := h.do(http.MethodPost, "/v1/cards", `{"account_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(http.MethodPost, "/v1/cards", `{"account_id":"`+accountID+`","number":"4111111111111112"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, card := h.do(http.MethodPost, "/v1/cards", `{"account_id":"`+accountID+`","number":"4111 1111 1111 1111"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "************1111", card["number"])
	assert.Equal(t, "VISA", card["brand"])
}

func TestAPI_RequiresKey(t *testing.T) {
	h := newHarness(t)
	operatorKey := h.key
	h.key = "gv_live_wrong"

	status, _ := h.do(http.MethodGet, "/v1/machines", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.do(http.MethodPost, "/v1/keys", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	h.key = operatorKey
	status, body := h.do(http.MethodPost, "/v1/keys", "")
	require.Equal(t, http.StatusCreated, status)
	minted := body["api_key"].(string)
	assert.True(t, strings.HasPrefix(minted, security.KeyPrefix))

	h.key = minted
	status, _ = h.do(http.MethodGet, "/v1/machines", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_BalanceKeepsExactAmount(t *testing.T) {
	h := newHarness(t)
	accountID, cardID := h.newCard("5.00")

	status, _ := h.do(http.MethodPut, "/v1/accounts/"+accountID+"/balance", `{"balance":"0.495"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/v1/accounts", `{"balance":0.495}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, acc := h.do(http.MethodGet, "/v1/accounts/"+accountID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "5.00", acc["balance"])

	status, _ = h.do(http.MethodPut, "/v1/accounts/"+accountID+"/balance", `{"balance":"0.49"}`)
	require.Equal(t, http.StatusOK, status)

	status, r := h.do(http.MethodPost, h.vendPath(), `{"card_id":"`+cardID+`","pin":1234,"quantity":1}`)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient_balance", r["reason"])
	assert.Equal(t, "0.49", r["balance_after"])
}

func TestAPI_ConcurrentVendsWithSameKeyDebitOnce(t *testing.T) {
	h := newHarness(t)
	accountID, cardID := h.newCard("5.00")
	body := `{"card_id":"` + cardID + `","pin":1234,"quantity":1}`

	const callers = 20
	statuses := make(chan int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, h.vendPath(), strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+h.key)
			req.Header.Set("Idempotency-Key", "same-vend")
			resp, err := h.app.Test(req, -1)
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Contains(t, []int{http.StatusOK, http.StatusConflict}, status)
	}
	assert.Equal(t, 24, h.machine.Stock())

	_, acc := h.do(http.MethodGet, "/v1/accounts/"+accountID, "")
	assert.Equal(t, "4.50", acc["balance"])
}

func TestAPI_CreateAccountNeedsBalance(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(http.MethodPost, "/v1/accounts", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodGet, "/v1/accounts/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, status)
}
