package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"medgate/internal/access"
	"medgate/internal/access/handler/mocks"
	"medgate/internal/audit"
	"medgate/internal/consent"
	"medgate/internal/patient"
	"medgate/internal/platform/middleware"
	"medgate/internal/storage"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/access-mocks.go -package=mocks Service

const testSigningKey = "test-signing-key"

type HandlerSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	svc    *mocks.MockService
	router chi.Router
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.svc = mocks.NewMockService(s.ctrl)

	h := New(s.svc, middleware.NewJWTValidator(testSigningKey), slog.New(slog.DiscardHandler), nil)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) token(role domain.Role) string {
	claims := jwt.MapClaims{
		"sub":  "actor-1",
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return signed
}

func (s *HandlerSuite) do(method, path string, body io.Reader, role domain.Role) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+s.token(role))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decodeError(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestRequestAccessOK() {
	hcn := "9876543210"
	s.svc.EXPECT().
		RequestAccess(gomock.Any(), "patient-1", domain.PurposeTreatment).
		Return(&access.Result{
			Patient: &patient.Disclosure{ID: "patient-1", HealthCardNumber: &hcn},
			Consent: access.ConsentInfo{ConsentID: "grant-1"},
		}, nil)

	rec := s.do(http.MethodGet, "/patients/patient-1?purpose=treatment", nil, domain.RolePhysician)

	s.Equal(http.StatusOK, rec.Code)
	var body struct {
		Patient patient.Disclosure `json:"patient"`
		Consent access.ConsentInfo `json:"consent"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("patient-1", body.Patient.ID)
	s.Equal("grant-1", body.Consent.ConsentID)
}

func (s *HandlerSuite) TestRequestAccessMissingPurpose() {
	rec := s.do(http.MethodGet, "/patients/patient-1", nil, domain.RolePhysician)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRequestAccessUnknownPurpose() {
	rec := s.do(http.MethodGet, "/patients/patient-1?purpose=marketing", nil, domain.RolePhysician)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRequestAccessDenied() {
	s.svc.EXPECT().
		RequestAccess(gomock.Any(), "patient-1", domain.PurposeTreatment).
		Return(nil, dErrors.New(dErrors.CodeForbidden, "no active consent found for this purpose"))

	rec := s.do(http.MethodGet, "/patients/patient-1?purpose=treatment", nil, domain.RolePhysician)

	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("no active consent found for this purpose", s.decodeError(rec)["error_description"])
}

func (s *HandlerSuite) TestRequestAccessPatientNotFound() {
	s.svc.EXPECT().
		RequestAccess(gomock.Any(), "nobody", domain.PurposeTreatment).
		Return(nil, storage.ErrNotFound)

	rec := s.do(http.MethodGet, "/patients/nobody?purpose=treatment", nil, domain.RolePhysician)
	s.Equal(http.StatusNotFound, rec.Code)
}

// Internal failures never leak detail to the client.
func (s *HandlerSuite) TestRequestAccessInternalError() {
	s.svc.EXPECT().
		RequestAccess(gomock.Any(), "patient-1", domain.PurposeTreatment).
		Return(nil, dErrors.New(dErrors.CodeInternal, "audit trail unavailable"))

	rec := s.do(http.MethodGet, "/patients/patient-1?purpose=treatment", nil, domain.RolePhysician)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(s.decodeError(rec), "error_description")
}

func (s *HandlerSuite) TestRequestAccessWithoutToken() {
	req := httptest.NewRequest(http.MethodGet, "/patients/patient-1?purpose=treatment", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestGetSummary() {
	s.svc.EXPECT().
		GetSummary(gomock.Any(), "patient-1").
		Return(patient.Summary{ID: "patient-1", Initials: "AS", DateOfBirth: "1984-03-15"}, nil)

	rec := s.do(http.MethodGet, "/patients/patient-1/summary", nil, domain.RoleReceptionist)

	s.Equal(http.StatusOK, rec.Code)
	var sum patient.Summary
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &sum))
	s.Equal("AS", sum.Initials)
}

func (s *HandlerSuite) TestGrantConsent() {
	s.svc.EXPECT().
		GrantConsent(gomock.Any(), "patient-1", domain.PurposeBilling, "patient-1", gomock.Nil()).
		Return(&consent.Grant{ID: "grant-1", Purpose: domain.PurposeBilling, Active: true}, nil)

	body := bytes.NewBufferString(`{"purpose":"billing","grantedBy":"patient-1"}`)
	rec := s.do(http.MethodPost, "/patients/patient-1/consents", body, domain.RoleNurse)

	s.Equal(http.StatusCreated, rec.Code)
	var grant consent.Grant
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &grant))
	s.Equal("grant-1", grant.ID)
}

func (s *HandlerSuite) TestGrantConsentInvalidBody() {
	body := bytes.NewBufferString(`{"purpose":`)
	rec := s.do(http.MethodPost, "/patients/patient-1/consents", body, domain.RoleNurse)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGrantConsentUnknownPurpose() {
	body := bytes.NewBufferString(`{"purpose":"marketing","grantedBy":"patient-1"}`)
	rec := s.do(http.MethodPost, "/patients/patient-1/consents", body, domain.RoleNurse)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestWithdrawConsent() {
	s.svc.EXPECT().
		WithdrawConsent(gomock.Any(), "patient-1", "grant-1").
		Return(nil)

	rec := s.do(http.MethodDelete, "/patients/patient-1/consents/grant-1", nil, domain.RolePhysician)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *HandlerSuite) TestWithdrawConsentNotFound() {
	s.svc.EXPECT().
		WithdrawConsent(gomock.Any(), "patient-1", "grant-9").
		Return(storage.ErrNotFound)

	rec := s.do(http.MethodDelete, "/patients/patient-1/consents/grant-9", nil, domain.RolePhysician)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestAuditTrailAdminOnly() {
	rec := s.do(http.MethodGet, "/patients/patient-1/audit", nil, domain.RolePhysician)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestAuditTrail() {
	s.svc.EXPECT().
		AuditTrail(gomock.Any(), "patient-1").
		Return([]audit.Entry{{ID: "entry-1", Action: audit.ActionPatientAccess}}, nil)

	rec := s.do(http.MethodGet, "/patients/patient-1/audit", nil, domain.RoleAdmin)

	s.Equal(http.StatusOK, rec.Code)
	var body struct {
		Entries []audit.Entry `json:"entries"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Len(body.Entries, 1)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
