package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pawtrait_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type fakeOrderHandler struct {
	calls    int
	sessions []string
}

func (f *fakeOrderHandler) HandleCheckoutCompleted(_ context.Context, session *CheckoutSession) error {
	f.calls++
	f.sessions = append(f.sessions, session.ID)
	return nil
}

func newWebhookTest(t *testing.T) (*gin.Engine, *Module, *fakeOrderHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	module := &Module{secret: "whsec_test", log: logger.New("test")}
	orders := &fakeOrderHandler{}
	module.SetCheckoutCompletedHandler(orders)

	engine := gin.New()
	engine.POST("/api/webhooks/payment", module.handleWebhook)
	return engine, module, orders
}

func postWebhook(engine *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

const completedEvent = `{
	"id": "evt_1",
	"type": "checkout.session.completed",
	"data": {"object": {
		"id": "cs_test_123",
		"payment_status": "paid",
		"payment_intent": "pi_123",
		"amount_total": 5900,
		"customer_details": {"email": "jamie@example.com", "name": "Jamie"},
		"metadata": {"artworkId": "a-1", "productType": "art_print", "size": "20x30"}
	}}
}`

func TestWebhookRejectsBadSignatureBeforeProcessing(t *testing.T) {
	engine, _, orders := newWebhookTest(t)

	recorder := postWebhook(engine, completedEvent, "t=1,v1=deadbeef")
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", recorder.Code)
	}
	if orders.calls != 0 {
		t.Error("order handler invoked despite invalid signature")
	}

	recorder = postWebhook(engine, completedEvent, "")
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status without header = %d, want 401", recorder.Code)
	}
	if orders.calls != 0 {
		t.Error("order handler invoked despite missing signature")
	}
}

func TestWebhookProcessesCompletedCheckout(t *testing.T) {
	engine, _, orders := newWebhookTest(t)

	signature := SignPayload("whsec_test", []byte(completedEvent), time.Now())
	recorder := postWebhook(engine, completedEvent, signature)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", recorder.Code, recorder.Body.String())
	}
	if orders.calls != 1 {
		t.Fatalf("order handler called %d times, want 1", orders.calls)
	}
	if orders.sessions[0] != "cs_test_123" {
		t.Errorf("handler received session %q", orders.sessions[0])
	}
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	engine, _, orders := newWebhookTest(t)

	body := `{"id":"evt_2","type":"invoice.paid","data":{"object":{}}}`
	signature := SignPayload("whsec_test", []byte(body), time.Now())
	recorder := postWebhook(engine, body, signature)

	if recorder.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", recorder.Code)
	}
	if orders.calls != 0 {
		t.Error("order handler invoked for an unrelated event type")
	}
}

func TestParseOrderMetadata(t *testing.T) {
	session := &CheckoutSession{
		ID: "cs_1",
		Metadata: map[string]string{
			"artworkId":    "a-1",
			"productType":  "framed_canvas",
			"size":         "16x24",
			"imageUrl":     "https://img.example.com/full.jpg",
			"customerName": "Jamie",
			"petName":      "Biscuit",
		},
	}

	meta, ok := ParseOrderMetadata(session)
	if !ok {
		t.Fatal("ParseOrderMetadata returned false for complete metadata")
	}
	if meta.ProductType != "framed_canvas" || meta.Size != "16x24" || meta.PetName != "Biscuit" {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	if _, ok := ParseOrderMetadata(&CheckoutSession{ID: "cs_2"}); ok {
		t.Error("ParseOrderMetadata returned true for a session without metadata")
	}
	if _, ok := ParseOrderMetadata(&CheckoutSession{ID: "cs_3", Metadata: map[string]string{"customerName": "X"}}); ok {
		t.Error("ParseOrderMetadata returned true without product metadata")
	}
}
