package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/receipt"
	"inventra/backend/internal/service"
	"inventra/backend/internal/store/memory"
)

const testActor = "gudang@inventra.co.id"

// newTestAPI builds the full request path over the seeded memory store in
// header actor mode.
func newTestAPI(t *testing.T) (*API, *receipt.MemoryStore) {
	t.Helper()
	receipts := receipt.NewMemoryStore()
	svc := service.New(memory.NewSeeded(), service.WithReceiptStore(receipts))
	return New(svc, NewActorResolver(""), "*"), receipts
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(actorHeader, testActor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rec, &body)
	return body["error"]
}

func TestHandleHealth(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := do(t, api.Handler(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, true, body["ok"])
}

func TestInboundLifecycleOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := do(t, h, http.MethodPost, "/inbound", map[string]any{
		"productId":     "prd-psu-650",
		"supplierId":    "sup-001",
		"qty":           10,
		"purchasePrice": 5000,
		"note":          "PO-118",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.InboundRecord
	decodeBody(t, rec, &created)
	assert.Equal(t, domain.InboundReceived, created.Status)
	assert.Equal(t, "50000", created.TotalPrice.String())
	assert.Equal(t, testActor, created.CreatedBy)

	rec = do(t, h, http.MethodPost, "/inbound/tracking", map[string]any{
		"id":         created.ID,
		"storedDate": time.Now().UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stored domain.InboundRecord
	decodeBody(t, rec, &stored)
	assert.Equal(t, domain.InboundStored, stored.Status)

	rec = do(t, h, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var products []domain.Product
	decodeBody(t, rec, &products)
	for _, p := range products {
		if p.ID == "prd-psu-650" {
			assert.Equal(t, 10, p.Stock)
		}
	}

	rec = do(t, h, http.MethodPost, "/inbound/cancel", map[string]any{"id": created.ID, "canceledNote": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/inbound", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.InboundSummary
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "PSU 650W 80+ Bronze", list[0].ProductName)
	assert.Equal(t, "PT Astrindo Senayasa", list[0].SupplierName)

	rec = do(t, h, http.MethodGet, "/inbound/tracking?id="+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOutboundLifecycleOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := do(t, h, http.MethodPost, "/outbound", map[string]any{
		"productId":       "prd-kb-mech",
		"qty":             5,
		"operationalCost": 10000,
		"reason":          "SALES",
		"isShipping":      true,
		"courier":         "SiCepat",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.OutboundRecord
	decodeBody(t, rec, &created)
	assert.Equal(t, domain.OutboundShipped, created.Status)

	rec = do(t, h, http.MethodPut, "/outbound?id="+created.ID, map[string]any{
		"productId":  "prd-kb-mech",
		"qty":        3,
		"reason":     "SALES",
		"isShipping": true,
		"courier":    "SiCepat",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/outbound/deliver", map[string]any{"id": created.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var delivered domain.OutboundRecord
	decodeBody(t, rec, &delivered)
	assert.Equal(t, domain.OutboundDelivered, delivered.Status)

	rec = do(t, h, http.MethodPost, "/outbound/cancel", map[string]any{"id": created.ID, "canceledNote": "too late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/outbound", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.OutboundSummary
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Qty)
}

func TestErrorStatusMapping(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	cases := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"validation", http.MethodPost, "/outbound", map[string]any{"productId": "prd-ssd-512", "qty": 1, "reason": "SALES", "isShipping": true, "isPickup": true}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/inbound", map[string]any{"productId": "prd-ssd-512", "bogus": 1}, http.StatusBadRequest},
		{"not found", http.MethodPost, "/inbound/cancel", map[string]any{"id": "inb-missing", "canceledNote": "x"}, http.StatusNotFound},
		{"insufficient stock", http.MethodPost, "/outbound", map[string]any{"productId": "prd-psu-650", "qty": 1, "reason": "WASTE"}, http.StatusConflict},
		{"invariant", http.MethodPost, "/stock-adjustment", map[string]any{"productId": "prd-psu-650", "type": "Decrease", "quantity": 1}, http.StatusInternalServerError},
		{"missing product id", http.MethodGet, "/stock-adjustment", nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nowhere", nil, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/inbound", nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.target, tc.body)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
			msg := errorMessage(t, rec)
			assert.NotEmpty(t, msg)
			if tc.want == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", msg)
			}
		})
	}
}

func TestAdjustmentOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := do(t, h, http.MethodPost, "/stock-adjustment", map[string]any{
		"productId": "prd-ram-16",
		"type":      "Decrease",
		"quantity":  3,
		"reason":    "damaged",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry domain.StockAdjustment
	decodeBody(t, rec, &entry)
	assert.Equal(t, 60, entry.OldQty)
	assert.Equal(t, 57, entry.NewQty)

	rec = do(t, h, http.MethodGet, "/stock-adjustment?productId=prd-ram-16", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []domain.StockAdjustment
	decodeBody(t, rec, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestMasterDataOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := do(t, h, http.MethodPost, "/storage-locations", map[string]any{"code": "B-09", "name": "Bin 9", "type": "bin", "maxCapacity": 20})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var loc domain.StorageLocation
	decodeBody(t, rec, &loc)

	rec = do(t, h, http.MethodPost, "/products", map[string]any{
		"code":              "CBL-HDMI",
		"name":              "HDMI Cable 2m",
		"price":             35000,
		"stock":             15,
		"productCategoryId": "cat-cable",
		"storageLocationId": loc.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/storage-locations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var locations []domain.StorageLocation
	decodeBody(t, rec, &locations)
	var found bool
	for _, l := range locations {
		if l.ID == loc.ID {
			found = true
			assert.Equal(t, 15, l.CurrentCapacity)
		}
	}
	assert.True(t, found)

	rec = do(t, h, http.MethodGet, "/suppliers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var suppliers []domain.Supplier
	decodeBody(t, rec, &suppliers)
	assert.NotEmpty(t, suppliers)
}

func TestInboundEditOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := do(t, h, http.MethodPost, "/inbound", map[string]any{"productId": "prd-psu-650", "qty": 10, "purchasePrice": 5000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.InboundRecord
	decodeBody(t, rec, &created)

	rec = do(t, h, http.MethodPut, "/inbound?id="+created.ID, map[string]any{"productId": "prd-psu-650", "qty": 4, "purchasePrice": 6000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited domain.InboundRecord
	decodeBody(t, rec, &edited)
	assert.Equal(t, 4, edited.Qty)
	assert.Equal(t, "24000", edited.TotalPrice.String())

	rec = do(t, h, http.MethodPut, "/inbound?id="+created.ID, map[string]any{"productId": "prd-psu-650", "qty": math.MaxInt, "purchasePrice": 6000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/inbound/cancel", map[string]any{"id": created.ID, "canceledNote": "duplicate PO"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/inbound?id="+created.ID, map[string]any{"productId": "prd-psu-650", "qty": 5, "purchasePrice": 6000})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProductStatusAndDeleteOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rec := do(t, h, http.MethodPatch, "/products?id=prd-kb-mech", map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var product domain.Product
	decodeBody(t, rec, &product)
	assert.False(t, product.Active)
	assert.Equal(t, 25, product.Stock)

	rec = do(t, h, http.MethodPatch, "/products?id=prd-kb-mech", map[string]any{"isActive": true, "stock": 999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/stock-adjustment", map[string]any{"productId": "prd-psu-650", "type": "Increase", "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, "/stock-adjustment", map[string]any{"productId": "prd-psu-650", "type": "Decrease", "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodDelete, "/products?id=prd-psu-650", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/products", map[string]any{
		"code":              "FAN-80",
		"name":              "Case Fan 80mm",
		"productCategoryId": "cat-cooling",
		"storageLocationId": "loc-cabinet-c1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var fan domain.Product
	decodeBody(t, rec, &fan)

	rec = do(t, h, http.MethodDelete, "/products?id="+fan.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodDelete, "/products?id="+fan.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func receiptRequest(t *testing.T, target, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="resi.jpg"`},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(actorHeader, testActor)
	return req
}

func TestOutboundReceiptUpload(t *testing.T) {
	api, receipts := newTestAPI(t)
	h := api.Handler()

	rec := do(t, h, http.MethodPost, "/outbound", map[string]any{
		"productId":  "prd-mouse-wl",
		"qty":        2,
		"reason":     "SALES",
		"isShipping": true,
		"courier":    "JNE",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.OutboundRecord
	decodeBody(t, rec, &created)

	image := []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'f', 'i', 'f'}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, receiptRequest(t, "/outbound/receipt?id="+created.ID, "image/jpeg", image))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated domain.OutboundRecord
	decodeBody(t, rec, &updated)
	assert.True(t, updated.IsReceipt)
	stored, ok := receipts.Object(updated.ReceiptPath)
	require.True(t, ok)
	assert.Equal(t, image, stored)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, receiptRequest(t, "/outbound/receipt?id="+created.ID, "text/plain", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	big := bytes.Repeat([]byte{0x01}, service.MaxReceiptBytes+receiptFormOverhead)
	h.ServeHTTP(rec, receiptRequest(t, "/outbound/receipt?id="+created.ID, "image/jpeg", big))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
