package httptransport

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tradevault/internal/blobstore"
	"tradevault/internal/custody"
	documenthandler "tradevault/internal/document/handler"
	documentservice "tradevault/internal/document/service"
	documentstore "tradevault/internal/document/store"
	integrityhandler "tradevault/internal/integrity/handler"
	integrityservice "tradevault/internal/integrity/service"
	integritystore "tradevault/internal/integrity/store"
	jwttoken "tradevault/internal/jwt_token"
	ledgerhandler "tradevault/internal/ledger/handler"
	ledgerservice "tradevault/internal/ledger/service"
	ledgerstore "tradevault/internal/ledger/store"
	"tradevault/internal/platform/logger"
	tradehandler "tradevault/internal/trade/handler"
	tradeservice "tradevault/internal/trade/service"
	tradestore "tradevault/internal/trade/store"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/tx"
)

const testAdminToken = "test-admin-token"

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	jwt    *jwttoken.JWTService

	buyerID  id.UserID
	sellerID id.UserID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := logger.New()

	docStore := documentstore.NewInMemory()
	ledgerStore := ledgerstore.NewInMemory()
	tradeStore := tradestore.NewInMemory()
	checkStore := integritystore.NewInMemory()
	blobs := blobstore.NewLocal(s.T().TempDir())

	docs, err := documentservice.New(docStore, blobs, log)
	s.Require().NoError(err)
	ledger, err := ledgerservice.New(ledgerStore, docStore, log)
	s.Require().NoError(err)
	trades, err := tradeservice.New(tradeStore, log)
	s.Require().NoError(err)
	integrity, err := integrityservice.New(checkStore, docStore, blobs, ledgerStore, tx.NoopRunner{}, log)
	s.Require().NoError(err)
	coordinator, err := custody.New(docs, ledger, trades, tx.NoopRunner{}, log)
	s.Require().NoError(err)

	s.jwt = jwttoken.NewJWTService("test-signing-key", "tradevault", "tradevault-api")
	s.buyerID = id.UserID(uuid.New())
	s.sellerID = id.UserID(uuid.New())

	router := NewRouter(Deps{
		Documents:      documenthandler.New(coordinator, docs, log),
		Ledger:         ledgerhandler.New(ledger, log),
		Trades:         tradehandler.New(trades, coordinator, log),
		Integrity:      integrityhandler.New(integrity, log),
		TokenValidator: jwttoken.NewJWTServiceAdapter(s.jwt),
		AdminToken:     testAdminToken,
		Logger:         log,
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

func (s *RouterSuite) token(userID id.UserID, role id.Role, org string) string {
	token, err := s.jwt.GenerateAccessToken(userID, role, org, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path, token string, body any) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	_ = resp.Body.Close()
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func (s *RouterSuite) doList(method, path, token string) (*http.Response, []map[string]any) {
	req, err := http.NewRequest(method, s.server.URL+path, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()

	var decoded []map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (s *RouterSuite) uploadBody(content, docNumber string) map[string]any {
	return map[string]any{
		"content_base64": base64.StdEncoding.EncodeToString([]byte(content)),
		"doc_type":       "INVOICE",
		"doc_number":     docNumber,
	}
}

func (s *RouterSuite) TestHealthzIsPublic() {
	resp, err := s.server.Client().Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestMissingTokenRejected() {
	resp, body := s.do(http.MethodGet, "/documents", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthorized", body["error"])
}

func (s *RouterSuite) TestInvalidTokenRejected() {
	resp, _ := s.do(http.MethodGet, "/documents", "not-a-token", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestUploadAndFetchDocument() {
	token := s.token(s.buyerID, id.RoleCorporate, "acme-exports")

	resp, created := s.do(http.MethodPost, "/documents", token, s.uploadBody("invoice body", "INV-100"))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("INV-100", created["doc_number"])
	s.NotEmpty(created["digest"])

	docID := created["id"].(string)
	resp, fetched := s.do(http.MethodGet, "/documents/"+docID, token, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(created["digest"], fetched["digest"])

	// The upload left an UPLOADED entry on the trail.
	resp, trail := s.doList(http.MethodGet, "/documents/"+docID+"/ledger", token)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(trail, 1)
	s.Equal("UPLOADED", trail[0]["event_kind"])
}

func (s *RouterSuite) TestDuplicateUploadConflicts() {
	token := s.token(s.buyerID, id.RoleCorporate, "acme-exports")

	resp, _ := s.do(http.MethodPost, "/documents", token, s.uploadBody("same bytes", "INV-1"))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/documents", token, s.uploadBody("same bytes", "INV-2"))
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("conflict", body["error"])
}

func (s *RouterSuite) TestOrgScopeOnDigestLookup() {
	owner := s.token(s.buyerID, id.RoleCorporate, "acme-exports")
	resp, created := s.do(http.MethodPost, "/documents", owner, s.uploadBody("scoped content", "INV-7"))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	digest := created["digest"].(string)

	outsider := s.token(id.UserID(uuid.New()), id.RoleCorporate, "other-org")
	resp, _ = s.do(http.MethodGet, "/documents/digest/"+digest, outsider, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	auditor := s.token(id.UserID(uuid.New()), id.RoleAuditor, "audit-firm")
	resp, _ = s.do(http.MethodGet, "/documents/digest/"+digest, auditor, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestTradeWorkflowOverHTTP() {
	buyer := s.token(s.buyerID, id.RoleCorporate, "acme-exports")
	seller := s.token(s.sellerID, id.RoleCorporate, "globex-imports")

	resp, trade := s.do(http.MethodPost, "/trades", buyer, map[string]any{
		"seller_id":   s.sellerID.String(),
		"seller_org":  "globex-imports",
		"description": "5000 units of copper wire",
		"amount":      "125000.50",
		"currency":    "usd",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("INITIATED", trade["status"])
	s.Equal("USD", trade["currency"])
	tradeID := trade["id"].(string)

	// The buyer cannot confirm on the seller's behalf.
	resp, body := s.do(http.MethodPatch, "/trades/"+tradeID+"/status", buyer, map[string]any{
		"status": "SELLER_CONFIRMED",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("invalid_transition", body["error"])

	resp, updated := s.do(http.MethodPatch, "/trades/"+tradeID+"/status", seller, map[string]any{
		"status": "SELLER_CONFIRMED",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("SELLER_CONFIRMED", updated["status"])

	resp, history := s.doList(http.MethodGet, "/trades/"+tradeID+"/history", buyer)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(history, 2)
}

func (s *RouterSuite) TestUploadToTradeAutoAdvances() {
	buyer := s.token(s.buyerID, id.RoleCorporate, "acme-exports")
	seller := s.token(s.sellerID, id.RoleCorporate, "globex-imports")

	resp, trade := s.do(http.MethodPost, "/trades", buyer, map[string]any{
		"seller_id":   s.sellerID.String(),
		"seller_org":  "globex-imports",
		"description": "machine parts",
		"amount":      "4200",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	tradeID := trade["id"].(string)

	upload := s.uploadBody("bill of lading", "BOL-9")
	upload["doc_type"] = "BILL_OF_LADING"
	upload["trade_id"] = tradeID
	resp, _ = s.do(http.MethodPost, "/documents", seller, upload)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, fetched := s.do(http.MethodGet, "/trades/"+tradeID, buyer, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("DOCUMENTS_UPLOADED", fetched["status"])
}

func (s *RouterSuite) TestIntegrityEndpointsRoleGated() {
	corporate := s.token(s.buyerID, id.RoleCorporate, "acme-exports")
	resp, body := s.do(http.MethodPost, "/integrity/verify", corporate, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("forbidden", body["error"])

	admin := s.token(id.UserID(uuid.New()), id.RoleAdmin, "platform-ops")
	resp, report := s.do(http.MethodPost, "/integrity/verify", admin, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(float64(0), report["total_checked"])
}

func (s *RouterSuite) TestIntegrityVerifyFindsUploadedDocument() {
	owner := s.token(s.buyerID, id.RoleCorporate, "acme-exports")
	resp, _ := s.do(http.MethodPost, "/documents", owner, s.uploadBody("verify me", "INV-55"))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	admin := s.token(id.UserID(uuid.New()), id.RoleAdmin, "platform-ops")
	resp, report := s.do(http.MethodPost, "/integrity/verify", admin, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(float64(1), report["total_checked"])
	s.Equal(float64(1), report["passed"])
}

func (s *RouterSuite) TestAdminBackfillRequiresToken() {
	owner := s.token(s.buyerID, id.RoleCorporate, "acme-exports")
	resp, created := s.do(http.MethodPost, "/documents", owner, s.uploadBody("chain me", "INV-77"))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	docID := created["id"].(string)

	_, trail := s.doList(http.MethodGet, "/documents/"+docID+"/ledger", owner)
	s.Require().Len(trail, 1)
	entryID := trail[0]["id"].(string)

	priorDigest := fmt.Sprintf("%064x", 7)
	payload, err := json.Marshal(map[string]string{"hash_before": priorDigest})
	s.Require().NoError(err)

	// No admin token.
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/admin/ledger/"+entryID+"/hash-before", bytes.NewReader(payload))
	s.Require().NoError(err)
	resp, err = s.server.Client().Do(req)
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, s.server.URL+"/admin/ledger/"+entryID+"/hash-before", bytes.NewReader(payload))
	s.Require().NoError(err)
	req.Header.Set("X-Admin-Token", testAdminToken)
	resp, err = s.server.Client().Do(req)
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)
}
