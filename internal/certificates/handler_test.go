package certificates

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trainhub/admin-portal/admin-portal-backend/pkg/pdfrender"
)

func newVerifyRouter(repo Repository, tpls TemplateSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := newTestService(repo, new(mockPrograms), tpls, new(mockAssets))
	router := gin.New()
	RegisterPublicRoutes(router.Group(""), NewHandler(svc, zap.NewNop()))
	return router
}

func TestVerifyEndpointReturnsResult(t *testing.T) {
	repo := new(mockRepository)
	tpls := new(mockTemplates)
	cert := &Certificate{
		ID:            uuid.New(),
		Number:        "TRN-20250101-ABCDEF",
		Status:        StatusValid,
		TemplateID:    uuid.New(),
		RecipientName: "Dewi Santoso",
	}

	repo.On("GetByNumber", mock.Anything, cert.Number).Return(cert, nil)
	repo.On("LogVerification", mock.Anything, mock.Anything).Return(nil)
	tpls.On("Resolve", mock.Anything, mock.Anything).Return(templateFixture(), nil)

	router := newVerifyRouter(repo, tpls)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/certificate/verify/"+cert.Number, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// Certificate fields sit directly under data, next to the verification
	// outcome and signatories.
	var body struct {
		Data struct {
			Number             string `json:"number"`
			RecipientName      string `json:"recipient_name"`
			Status             string `json:"status"`
			VerificationResult string `json:"verification_result"`
			Signatories        []struct {
				Name string `json:"name"`
			} `json:"signatories"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, cert.Number, body.Data.Number)
	assert.Equal(t, "Dewi Santoso", body.Data.RecipientName)
	assert.Equal(t, string(StatusValid), body.Data.VerificationResult)
	require.Len(t, body.Data.Signatories, 1)
	assert.Equal(t, "Rina Wijaya", body.Data.Signatories[0].Name)
}

func TestVerifyEndpointUnknownNumber(t *testing.T) {
	repo := new(mockRepository)
	repo.On("GetByNumber", mock.Anything, "TRN-20250101-XXXXXX").Return(nil, ErrNotFound)

	router := newVerifyRouter(repo, new(mockTemplates))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/certificate/verify/TRN-20250101-XXXXXX", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "certificate not found")
}

func TestVerifyEndpointHidesInternalFailureDetail(t *testing.T) {
	repo := new(mockRepository)
	repo.On("GetByNumber", mock.Anything, "TRN-20250101-ABCDEF").
		Return(nil, errors.New("pq: connection reset at host db-internal-1"))

	router := newVerifyRouter(repo, new(mockTemplates))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/certificate/verify/TRN-20250101-ABCDEF", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
	assert.NotContains(t, w.Body.String(), "db-internal-1")
}

func TestRenderInfoEndpointReturnsCertificateAndFields(t *testing.T) {
	repo := new(mockRepository)
	tpls := new(mockTemplates)
	tpl := templateFixture()
	cert := &Certificate{
		ID:            uuid.New(),
		Number:        "TRN-20250101-ABCDEF",
		Status:        StatusValid,
		TemplateID:    tpl.ID,
		RecipientName: "Dewi Santoso",
	}

	repo.On("GetByNumber", mock.Anything, cert.Number).Return(cert, nil)
	tpls.On("Resolve", mock.Anything, mock.Anything).Return(tpl, nil)
	tpls.On("FieldMap", tpl).Return(map[string]pdfrender.FieldConfig{
		pdfrender.FieldRecipientName: {Kind: pdfrender.KindText, X: 421, Y: 280, Page: 1, Align: pdfrender.AlignCenter, Size: 28},
	}, nil)

	router := newVerifyRouter(repo, tpls)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/certificate/render/"+cert.Number, nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Certificate struct {
				Number string `json:"number"`
			} `json:"certificate"`
			Fields map[string]struct {
				X    float64 `json:"x"`
				Page int     `json:"page"`
			} `json:"fields"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, cert.Number, body.Data.Certificate.Number)
	require.Contains(t, body.Data.Fields, pdfrender.FieldRecipientName)
	assert.Equal(t, 421.0, body.Data.Fields[pdfrender.FieldRecipientName].X)
	assert.Equal(t, 1, body.Data.Fields[pdfrender.FieldRecipientName].Page)
}

func newGenerateRouter(repo Repository, progs *mockPrograms, tpls TemplateSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := newTestService(repo, progs, tpls, new(mockAssets))
	router := gin.New()
	router.POST("/certificates/generate", NewHandler(svc, zap.NewNop()).Generate)
	return router
}

func TestGenerateEndpointReturnsOKForExistingCertificate(t *testing.T) {
	repo := new(mockRepository)
	progs := new(mockPrograms)
	detail := enrollmentFixture()
	existing := &Certificate{ID: uuid.New(), Number: "TRN-20250101-ABCDEF"}

	progs.On("GetEnrollmentDetail", mock.Anything, detail.EnrollmentID).Return(detail, nil)
	repo.On("GetByRecipient", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(existing, nil)

	router := newGenerateRouter(repo, progs, new(mockTemplates))
	w := httptest.NewRecorder()
	body := strings.NewReader(`{"enrollment_id": "` + detail.EnrollmentID.String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/certificates/generate", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), existing.Number)
}

func TestGenerateEndpointReturnsCreatedForNewCertificate(t *testing.T) {
	repo := new(mockRepository)
	progs := new(mockPrograms)
	tpls := new(mockTemplates)
	detail := enrollmentFixture()

	progs.On("GetEnrollmentDetail", mock.Anything, detail.EnrollmentID).Return(detail, nil)
	repo.On("GetByRecipient", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ErrNotFound)
	tpls.On("Resolve", mock.Anything, mock.Anything).Return(templateFixture(), nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	tpls.On("LoadRenderMaterial", mock.Anything, mock.Anything).
		Return(pdfrender.Template{}, nil, errors.New("store unreachable"))

	router := newGenerateRouter(repo, progs, tpls)
	w := httptest.NewRecorder()
	body := strings.NewReader(`{"enrollment_id": "` + detail.EnrollmentID.String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/certificates/generate", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}
