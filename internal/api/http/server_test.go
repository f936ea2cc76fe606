package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitcore/fitness-gatekeeper/internal/api/http/handlers"
	"github.com/fitcore/fitness-gatekeeper/internal/auth"
	"github.com/fitcore/fitness-gatekeeper/internal/config"
	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/events"
	"github.com/fitcore/fitness-gatekeeper/internal/observability"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
	"github.com/fitcore/fitness-gatekeeper/internal/repository/memory"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
	"github.com/fitcore/fitness-gatekeeper/internal/worker"
)

const (
	jwtSecret     = "jwt-secret"
	webhookSecret = "whsec"
	operatorKey   = "operator-key"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.New()
	dispatcher := events.NewInMemoryDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	worker.StartNotificationWorker(ctx, dispatcher, service.NewNotificationService(logger, config.NotificationConfig{}), logger)

	transitions := service.NewTransitionService(service.TransitionDependencies{
		Store: store, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	assessments := service.NewAssessmentService(service.AssessmentDependencies{
		Store: store, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	billing := service.NewBillingWebhookService(service.BillingWebhookDependencies{
		Secret:      webhookSecret,
		Events:      repository.NewMemoryWebhookEventRepository(time.Hour),
		Transitions: transitions,
		Logger:      logger,
	})
	hash, err := bcrypt.GenerateFromPassword([]byte(operatorKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash operator key: %v", err)
	}
	tokens := auth.NewTokenManager(jwtSecret, 5)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("test", "dev", nil, nil, metrics),
		Status:          handlers.NewStatusHandler(service.NewGatekeeperService(store, logger)),
		Assessments:     handlers.NewAssessmentHandler(assessments),
		Questions:       handlers.NewQuestionHandler(service.NewQuestionService(store, logger)),
		Admin:           handlers.NewAdminHandler(transitions),
		Operator:        handlers.NewOperatorHandler(transitions),
		Webhooks:        handlers.NewWebhookHandler(billing, "X-Signature"),
		AuthMiddleware:  auth.NewAuthMiddleware(tokens, store.Repositories().Profiles),
		OperatorKeyHash: string(hash),
	})
	return &testServer{app: app, tokens: tokens, store: store}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(userID, userID+"@example.com", role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

type response struct {
	status int
	body   map[string]any
}

func (r response) data() map[string]any {
	d, _ := r.body["data"].(map[string]any)
	return d
}

func (r response) errorCode() string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) response {
	t.Helper()
	var reader io.Reader
	if raw, ok := body.([]byte); ok {
		reader = bytes.NewReader(raw)
	} else if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := response{status: resp.StatusCode, body: map[string]any{}}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return out
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestPremiumJourney(t *testing.T) {
	s := newTestServer(t)
	userID := uuid.NewString()
	user := bearer(s.token(t, userID, ""))

	if r := s.do(t, stdhttp.MethodGet, "/me/premium-status", nil, nil); r.status != stdhttp.StatusUnauthorized || r.errorCode() != "UNAUTHORIZED" {
		t.Fatalf("expected 401 envelope, got %d %+v", r.status, r.body)
	}

	r := s.do(t, stdhttp.MethodGet, "/me/premium-status", nil, user)
	if r.status != stdhttp.StatusOK || r.data()["gatekeeper_state"] != "upsell" {
		t.Fatalf("expected upsell, got %d %+v", r.status, r.body)
	}

	event := []byte(fmt.Sprintf(`{"id":"evt_1","type":"tier.changed","user_id":%q,"tier":"premium"}`, userID))
	r = s.do(t, stdhttp.MethodPost, "/webhooks/billing", event, map[string]string{"X-Signature": "deadbeef"})
	if r.status != stdhttp.StatusUnauthorized || r.errorCode() != "SIGNATURE_INVALID" {
		t.Fatalf("expected signature failure, got %d %+v", r.status, r.body)
	}
	if p, _ := s.store.Profile(userID); p.SubscriptionTier != domain.TierFree {
		t.Fatalf("unsigned webhook mutated profile: %s", p.SubscriptionTier)
	}

	r = s.do(t, stdhttp.MethodPost, "/webhooks/billing", event, map[string]string{"X-Signature": service.Sign([]byte(webhookSecret), event)})
	if r.status != stdhttp.StatusOK || r.body["applied"] != true {
		t.Fatalf("expected applied webhook, got %d %+v", r.status, r.body)
	}
	r = s.do(t, stdhttp.MethodGet, "/me/premium-status", nil, user)
	if r.data()["gatekeeper_state"] != "needs_assessment" || r.data()["has_active_diet_plan"] != false {
		t.Fatalf("expected needs_assessment, got %+v", r.body)
	}

	r = s.do(t, stdhttp.MethodGet, "/assessment/questions", nil, user)
	if qs, _ := r.body["data"].([]any); len(qs) != len(domain.LegacyQuestions()) {
		t.Fatalf("expected legacy catalog, got %d %+v", r.status, r.body)
	}

	bad := domain.SampleAnswers()
	delete(bad, domain.KeyAge)
	delete(bad, domain.KeyWeightKG)
	bad[domain.KeyWorkoutDaysPerWeek] = 9
	r = s.do(t, stdhttp.MethodPost, "/me/assessment", map[string]any{"answers": bad}, user)
	if r.status != stdhttp.StatusBadRequest || r.errorCode() != "VALIDATION_FAILED" {
		t.Fatalf("expected validation failure, got %d %+v", r.status, r.body)
	}
	details, _ := r.body["error"].(map[string]any)["details"].(map[string]any)
	if fields, _ := details["fields"].(map[string]any); len(fields) != 3 {
		t.Fatalf("expected three field errors, got %+v", details)
	}

	r = s.do(t, stdhttp.MethodPost, "/me/assessment", map[string]any{"answers": domain.SampleAnswers()}, user)
	if r.status != stdhttp.StatusCreated || r.data()["gatekeeper_state"] != "pending" {
		t.Fatalf("expected pending, got %d %+v", r.status, r.body)
	}

	plans := map[string]any{
		"diet_plan":    map[string]any{"title": "Diet", "weeks": []any{}},
		"workout_plan": map[string]any{"title": "Workout", "weeks": []any{}},
	}
	path := "/operator/users/" + userID + "/activate"
	if r = s.do(t, stdhttp.MethodPost, path, plans, nil); r.status != stdhttp.StatusUnauthorized {
		t.Fatalf("expected operator key to be required, got %d", r.status)
	}
	r = s.do(t, stdhttp.MethodPost, path, plans, map[string]string{auth.OperatorKeyHeader: operatorKey})
	if r.status != stdhttp.StatusOK || r.data()["gatekeeper_state"] != "active" {
		t.Fatalf("expected active, got %d %+v", r.status, r.body)
	}

	r = s.do(t, stdhttp.MethodGet, "/me/plans", nil, user)
	if r.data()["diet_plan"] == nil || r.data()["workout_plan"] == nil {
		t.Fatalf("expected both plans, got %+v", r.body)
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := bearer(s.token(t, uuid.NewString(), auth.RoleAdmin))
	userID := uuid.NewString()
	user := bearer(s.token(t, userID, ""))

	if r := s.do(t, stdhttp.MethodGet, "/admin/questions", nil, user); r.status != stdhttp.StatusForbidden || r.errorCode() != "FORBIDDEN" {
		t.Fatalf("expected 403 for non-admin, got %d %+v", r.status, r.body)
	}

	question := map[string]any{
		"field_key":  "Sleep_Quality",
		"label":      "Sleep quality",
		"field_type": "select",
		"options":    []any{map[string]any{"value": "good", "label": "Good"}},
	}
	r := s.do(t, stdhttp.MethodPost, "/admin/questions", question, admin)
	if r.status != stdhttp.StatusBadRequest || r.errorCode() != "FIELD_KEY_FORMAT" {
		t.Fatalf("expected field key format error, got %d %+v", r.status, r.body)
	}
	question["field_key"] = "sleep_quality"
	if r = s.do(t, stdhttp.MethodPost, "/admin/questions", question, admin); r.status != stdhttp.StatusCreated {
		t.Fatalf("expected created, got %d %+v", r.status, r.body)
	}
	if r = s.do(t, stdhttp.MethodPost, "/admin/questions", question, admin); r.errorCode() != "DUPLICATE_FIELD_KEY" {
		t.Fatalf("expected duplicate key conflict, got %d %+v", r.status, r.body)
	}

	r = s.do(t, stdhttp.MethodGet, "/admin/questions", nil, admin)
	var legacyID string
	for _, item := range r.body["data"].([]any) {
		q := item.(map[string]any)
		if q["field_key"] == domain.KeyGender {
			legacyID = q["id"].(string)
		}
	}
	r = s.do(t, stdhttp.MethodPatch, "/admin/questions/"+legacyID, map[string]any{"field_type": "text"}, admin)
	if r.errorCode() != "LEGACY_FIELD_IMMUTABLE" {
		t.Fatalf("expected legacy immutability, got %d %+v", r.status, r.body)
	}
	if r = s.do(t, stdhttp.MethodDelete, "/admin/questions/"+legacyID, nil, admin); r.errorCode() != "LEGACY_FIELD_UNDELETABLE" {
		t.Fatalf("expected legacy delete to fail, got %d %+v", r.status, r.body)
	}

	// the user's profile exists once they have authenticated
	s.do(t, stdhttp.MethodGet, "/me/premium-status", nil, user)
	for _, state := range []string{"active", "pending", "needs_assessment", "upsell"} {
		r = s.do(t, stdhttp.MethodPost, "/admin/users/"+userID+"/state", map[string]any{"state": state}, admin)
		if r.status != stdhttp.StatusOK {
			t.Fatalf("set %s: %d %+v", state, r.status, r.body)
		}
		r = s.do(t, stdhttp.MethodGet, "/admin/users/"+userID+"/premium-status", nil, admin)
		if r.data()["gatekeeper_state"] != state {
			t.Fatalf("expected %s, got %+v", state, r.body)
		}
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)
	r := s.do(t, stdhttp.MethodGet, "/nope", nil, nil)
	if r.status != stdhttp.StatusNotFound || r.errorCode() != "NOT_FOUND" {
		t.Fatalf("expected 404 envelope, got %d %+v", r.status, r.body)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	if r := s.do(t, stdhttp.MethodGet, "/health/live", nil, nil); r.status != stdhttp.StatusOK {
		t.Fatalf("live: %d", r.status)
	}
	r := s.do(t, stdhttp.MethodGet, "/health/ready", nil, nil)
	if r.status != stdhttp.StatusOK || r.body["status"] != "ready" {
		t.Fatalf("ready: %d %+v", r.status, r.body)
	}

	if r := s.do(t, stdhttp.MethodGet, "/operator/metrics", nil, nil); r.status != stdhttp.StatusUnauthorized {
		t.Fatalf("metrics without operator key: %d", r.status)
	}
	r = s.do(t, stdhttp.MethodGet, "/operator/metrics", nil, map[string]string{auth.OperatorKeyHeader: operatorKey})
	if r.status != stdhttp.StatusOK {
		t.Fatalf("metrics: %d %+v", r.status, r.body)
	}
	requests, ok := r.body["requests"].(map[string]any)
	if !ok || requests["/health/live|GET|200"] != float64(1) {
		t.Fatalf("expected the live probe to be counted, got %+v", r.body["requests"])
	}
	if _, ok := r.body["request_duration_ms"].(map[string]any); !ok {
		t.Fatalf("expected request durations, got %+v", r.body)
	}
}
