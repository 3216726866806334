package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/application/service"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
	"github.com/garyjia/expense-wizard/internal/infrastructure/document"
	"github.com/garyjia/expense-wizard/internal/infrastructure/export"
	"github.com/garyjia/expense-wizard/internal/infrastructure/persistence/memory"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type mockGateway struct {
	extracted *entity.ExtractedLine
	rules     string
	verdict   *port.ComplianceVerdict
	err       error
}

func (m *mockGateway) ParseReceipt(context.Context, port.Document) (*entity.ExtractedLine, error) {
	return m.extracted, m.err
}

func (m *mockGateway) ExtractPolicyRules(context.Context, port.Document) (string, error) {
	return m.rules, m.err
}

func (m *mockGateway) CheckPolicyCompliance(context.Context, *entity.ExpenseLineItem, string) (*port.ComplianceVerdict, error) {
	return m.verdict, m.err
}

type testServer struct {
	router  *gin.Engine
	gateway *mockGateway
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gateway := &mockGateway{
		extracted: &entity.ExtractedLine{Amount: 18.25, ExpenseItem: entity.CategoryMeals, Memo: "Cafe"},
		verdict:   &port.ComplianceVerdict{Compliant: true},
	}
	svc := service.NewWizardService(
		service.Config{Company: "Avo.ai", AITimeout: time.Second, DraftTTL: time.Hour},
		memory.NewStore(), gateway, export.NewXLSXExporter(nil), nil, zap.NewNop(),
	)

	logger := zap.NewNop().Sugar()
	handlers := NewHandlers(svc, document.NewNormalizer(maxUpload), "Avo.ai", logger)

	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	cfg.MaxUploadBytes = maxUpload
	server := NewServer(cfg, handlers, logger)
	return &testServer{router: server.Router(), gateway: gateway}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Missing []string        `json:"missing"`
	Notice  *service.Notice `json:"notice"`
}

type viewData struct {
	Draft      wizard.Draft        `json:"draft"`
	Busy       []service.Operation `json:"busy"`
	StaleLines []int               `json:"staleLines"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.serve(t, req)
}

func (s *testServer) upload(t *testing.T, method, path, filename, contentType string, data []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeView(t *testing.T, env envelope) viewData {
	t.Helper()
	var v viewData
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// linesReport creates a report past the header step and returns its id
func (s *testServer) linesReport(t *testing.T) string {
	t.Helper()

	w, env := s.do(t, http.MethodPost, "/api/reports", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeView(t, env).Draft.Report.ID

	w, _ = s.do(t, http.MethodPatch, "/api/reports/"+id+"/header", map[string]string{
		"businessPurpose":   "Conference",
		"reimbursementType": entity.ReimbursementDirectDeposit,
	})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/reports/"+id+"/header/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	return id
}

func TestHealthAndCatalog(t *testing.T) {
	s := newTestServer(t, 1<<20)

	w, env := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = s.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var catalog CatalogResponse
	require.NoError(t, json.Unmarshal(env.Data, &catalog))
	assert.Equal(t, "Avo.ai", catalog.Company)
	assert.Equal(t, entity.Categories(), catalog.Categories)
	assert.Equal(t, entity.MileageRate, catalog.MileageRate)
	assert.Equal(t, entity.ReceiptThreshold, catalog.ReceiptThreshold)
}

func TestWizardFlow(t *testing.T) {
	s := newTestServer(t, 1<<20)

	w, env := s.do(t, http.MethodPost, "/api/reports", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeView(t, env).Draft.Report.ID
	base := "/api/reports/" + id

	w, env = s.do(t, http.MethodPost, base+"/header/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, env.Success)
	assert.ElementsMatch(t, []string{"businessPurpose", "reimbursementType"}, env.Missing)

	w, _ = s.do(t, http.MethodPost, base+"/lines", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "lines are not reachable from the header step")

	w, _ = s.do(t, http.MethodPatch, base+"/header", map[string]string{
		"businessPurpose":   "Conference",
		"reimbursementType": entity.ReimbursementCheck,
	})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, base+"/header/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, base+"/lines", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPatch, base+"/editor", map[string]interface{}{
		"expenseItem": entity.CategoryMeals,
		"amount":      24.5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, base+"/editor/compliance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Notice)
	assert.Equal(t, service.MsgCompliant, env.Notice.Message)

	w, env = s.do(t, http.MethodPost, base+"/editor/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decodeView(t, env)
	require.Len(t, v.Draft.Report.LineItems, 1)
	assert.Equal(t, 24.5, v.Draft.Report.Total)

	w, env = s.do(t, http.MethodPost, base+"/finalize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ack wizard.Acknowledgment
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.Equal(t, wizard.SubmittedMessage, ack.Message)
	assert.Equal(t, 1, ack.LineCount)
	assert.Equal(t, wizard.SubmittedMessage, env.Notice.Message)

	w, _ = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReceiptRequired(t *testing.T) {
	s := newTestServer(t, 1<<20)
	base := "/api/reports/" + s.linesReport(t)

	s.do(t, http.MethodPost, base+"/lines", nil)
	s.do(t, http.MethodPatch, base+"/editor", map[string]interface{}{"expenseItem": entity.CategoryLodging, "amount": 180})

	w, env := s.do(t, http.MethodPost, base+"/editor/save", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, wizard.ErrReceiptRequired.Error(), env.Error)
}

func TestScanReceipt(t *testing.T) {
	s := newTestServer(t, 1<<20)
	base := "/api/reports/" + s.linesReport(t)

	w, env := s.upload(t, http.MethodPost, base+"/receipts", "lunch.png", "image/png", pngBytes)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Notice)
	assert.Equal(t, service.MsgReceiptFilled, env.Notice.Message)

	v := decodeView(t, env)
	assert.Equal(t, 18.25, v.Draft.Editor.Line.Amount)
	assert.True(t, v.Draft.Editor.Line.ReceiptAttached)

	s.gateway.err = errors.New("model down")
	w, env = s.upload(t, http.MethodPost, base+"/receipts", "lunch.png", "image/png", pngBytes)
	require.Equal(t, http.StatusOK, w.Code, "extraction failures are notices, not errors")
	assert.Equal(t, service.NoticeError, env.Notice.Level)
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t, 64)
	base := "/api/reports/" + s.linesReport(t)

	w, _ := s.upload(t, http.MethodPost, base+"/receipts", "setup.exe", "application/octet-stream", []byte("MZ\x90\x00"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w, _ = s.upload(t, http.MethodPut, base+"/policy", "policy.txt", "text/plain", bytes.Repeat([]byte("a"), 200))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w, _ = s.upload(t, http.MethodPost, base+"/receipts", "empty.png", "image/png", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodPost, base+"/receipts", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadAndResetPolicy(t *testing.T) {
	s := newTestServer(t, 1<<20)
	base := "/api/reports/" + s.linesReport(t)
	s.gateway.rules = "1. Taxis need a business reason."

	w, env := s.upload(t, http.MethodPut, base+"/policy", "travel.txt", "text/plain", []byte("Taxis need a reason."))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.MsgPolicyUpdated, env.Notice.Message)
	assert.True(t, decodeView(t, env).Draft.Policy.IsCustom())

	w, env = s.do(t, http.MethodDelete, base+"/policy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeView(t, env).Draft.Policy.IsCustom())
}

func TestLineRoutes(t *testing.T) {
	s := newTestServer(t, 1<<20)
	base := "/api/reports/" + s.linesReport(t)

	w, _ := s.do(t, http.MethodPost, base+"/lines/abc/edit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodPost, base+"/lines/0/edit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodPost, base+"/editor/save", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	s.do(t, http.MethodPost, base+"/lines", nil)
	s.do(t, http.MethodPatch, base+"/editor", map[string]interface{}{"expenseItem": entity.CategoryTravel, "amount": 30})
	s.do(t, http.MethodPost, base+"/editor/save", nil)

	w, _ = s.do(t, http.MethodPost, base+"/lines/0/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, base+"/editor", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodDelete, base+"/lines/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeView(t, env).Draft.Report.LineItems)

	w, _ = s.do(t, http.MethodPatch, base+"/editor", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t, 1<<20)
	base := "/api/reports/" + s.linesReport(t)

	w, _ := s.do(t, http.MethodGet, base+"/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestAbandon(t *testing.T) {
	s := newTestServer(t, 1<<20)
	id := s.linesReport(t)

	w, _ := s.do(t, http.MethodDelete, "/api/reports/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/reports/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{port.ErrDraftNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", service.ErrOperationInProgress), http.StatusConflict},
		{wizard.ErrWrongStep, http.StatusConflict},
		{wizard.ErrNotEditing, http.StatusConflict},
		{&wizard.HeaderIncompleteError{Missing: []string{"company"}}, http.StatusUnprocessableEntity},
		{wizard.ErrReceiptRequired, http.StatusUnprocessableEntity},
		{wizard.ErrNoLineItems, http.StatusUnprocessableEntity},
		{wizard.ErrInvalidField, http.StatusUnprocessableEntity},
		{document.ErrUnsupportedDocument, http.StatusUnsupportedMediaType},
		{document.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
