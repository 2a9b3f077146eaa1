package handler_test

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradevault/internal/blobstore"
	"tradevault/internal/custody"
	"tradevault/internal/document/handler"
	documentservice "tradevault/internal/document/service"
	documentstore "tradevault/internal/document/store"
	ledgerservice "tradevault/internal/ledger/service"
	ledgerstore "tradevault/internal/ledger/store"
	"tradevault/internal/platform/logger"
	tradeservice "tradevault/internal/trade/service"
	tradestore "tradevault/internal/trade/store"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/tx"
	"tradevault/pkg/testutil"
)

type fixture struct {
	router chi.Router
	owner  id.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New()

	docStore := documentstore.NewInMemory()
	blobs := blobstore.NewLocal(t.TempDir())

	docs, err := documentservice.New(docStore, blobs, log)
	require.NoError(t, err)
	ledger, err := ledgerservice.New(ledgerstore.NewInMemory(), docStore, log)
	require.NoError(t, err)
	trades, err := tradeservice.New(tradestore.NewInMemory(), log)
	require.NoError(t, err)
	coordinator, err := custody.New(docs, ledger, trades, tx.NoopRunner{}, log)
	require.NoError(t, err)

	router := chi.NewRouter()
	handler.New(coordinator, docs, log).Register(router)

	return &fixture{
		router: router,
		owner:  id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleCorporate, Org: "acme-exports"},
	}
}

func uploadBody(content, docNumber string) map[string]any {
	return map[string]any{
		"content_base64": base64.StdEncoding.EncodeToString([]byte(content)),
		"doc_type":       "INVOICE",
		"doc_number":     docNumber,
	}
}

func TestHandleUpload(t *testing.T) {
	testutil.Given(t, "an authenticated document owner", func(t *testing.T) {
		f := newFixture(t)

		testutil.When(t, "uploading a valid document", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/documents", uploadBody("invoice bytes", "INV-100"))
			rr := testutil.DoRequest(f.router, testutil.WithActor(req, f.owner))

			testutil.AssertStatus(t, rr, http.StatusCreated)
			doc := testutil.UnmarshalResponse[handler.DocumentResponse](t, rr)
			assert.Equal(t, string(id.ComputeDigest([]byte("invoice bytes"))), doc.Digest)
			assert.Equal(t, f.owner.UserID.String(), doc.OwnerID)
			assert.Equal(t, "acme-exports", doc.Org)

			testutil.Then(t, "re-uploading identical content conflicts", func(t *testing.T) {
				req := testutil.NewJSONRequest(t, http.MethodPost, "/documents", uploadBody("invoice bytes", "INV-101"))
				rr := testutil.DoRequest(f.router, testutil.WithActor(req, f.owner))
				testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
			})
		})

		testutil.When(t, "the body is not valid base64", func(t *testing.T) {
			body := uploadBody("x", "INV-102")
			body["content_base64"] = "not base64!!!"
			req := testutil.NewJSONRequest(t, http.MethodPost, "/documents", body)
			rr := testutil.DoRequest(f.router, testutil.WithActor(req, f.owner))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
		})

		testutil.When(t, "doc_number is missing", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/documents", uploadBody("other bytes", ""))
			rr := testutil.DoRequest(f.router, testutil.WithActor(req, f.owner))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
		})
	})

	testutil.Given(t, "no authenticated actor", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/documents", uploadBody("anything", "INV-1"))
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestHandleVerify(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/documents", uploadBody("signed original", "INV-200"))
	rr := testutil.DoRequest(f.router, testutil.WithActor(req, f.owner))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	doc := testutil.UnmarshalResponse[handler.DocumentResponse](t, rr)

	verify := func(content string) *handler.VerifyResponse {
		body := map[string]any{"content_base64": base64.StdEncoding.EncodeToString([]byte(content))}
		req := testutil.NewJSONRequest(t, http.MethodPost, "/documents/"+doc.ID+"/verify", body)
		rr := testutil.DoRequest(f.router, testutil.WithActor(req, f.owner))
		testutil.AssertStatusOK(t, rr)
		return testutil.UnmarshalResponse[handler.VerifyResponse](t, rr)
	}

	assert.True(t, verify("signed original").Match)
	assert.False(t, verify("tampered copy").Match)
}

func TestHandleGetRejectsMalformedID(t *testing.T) {
	f := newFixture(t)
	req := testutil.NewRequest(t, http.MethodGet, "/documents/not-a-uuid")
	rr := testutil.DoRequest(f.router, testutil.WithActor(req, f.owner))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestHandleLookupByDigestUnknown(t *testing.T) {
	f := newFixture(t)
	digest := id.ComputeDigest([]byte("never registered"))
	req := testutil.NewRequest(t, http.MethodGet, "/documents/digest/"+string(digest))
	rr := testutil.DoRequest(f.router, testutil.WithActor(req, f.owner))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
