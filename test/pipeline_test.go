package test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/internal/access"
	accesshandler "medgate/internal/access/handler"
	"medgate/internal/audit"
	"medgate/internal/consent"
	"medgate/internal/patient"
	"medgate/internal/phi"
	"medgate/internal/platform/middleware"
	"medgate/pkg/domain"
	"medgate/pkg/testutil"
)

const signingKey = "pipeline-test-key"

// env is the fully wired application over in-memory stores, as main would
// assemble it without external backends.
type env struct {
	router chi.Router
	trail  *audit.InMemoryStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	patients := patient.NewInMemoryStore()
	patients.Seed(&patient.Record{
		ID:             "patient-1",
		FirstName:      "Ada",
		LastName:       "Singh",
		DateOfBirth:    "1984-03-15",
		MedicalHistory: json.RawMessage(`[{"condition":"asthma"}]`),
		Medications:    json.RawMessage(`[{"name":"X"}]`),
		Allergies:      json.RawMessage(`["penicillin"]`),
	})

	trail := audit.NewInMemoryStore()
	svc := access.NewService(
		phi.NewAuthorizer(phi.DefaultPermissions()),
		phi.NewFilter(phi.DefaultPolicy()),
		patients,
		consent.NewService(consent.NewInMemoryStore()),
		audit.NewService(trail, logger, nil),
		nil,
	)

	router := chi.NewRouter()
	accesshandler.New(svc, middleware.NewJWTValidator(signingKey), logger, nil).Register(router)
	return &env{router: router, trail: trail}
}

func token(t *testing.T, role domain.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "actor-1",
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func TestDisclosurePipeline(t *testing.T) {
	testutil.Given(t, "a seeded patient with no consent on record", func(t *testing.T) {
		e := newEnv(t)

		testutil.When(t, "a physician requests treatment access", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/patients/patient-1?purpose=treatment")
			req.Header.Set("Authorization", "Bearer "+token(t, domain.RolePhysician))
			rr := testutil.DoRequest(e.router, req)

			testutil.Then(t, "access is denied and the denial is audited", func(t *testing.T) {
				assert.Equal(t, http.StatusForbidden, rr.Code)

				var body map[string]string
				testutil.DecodeJSON(t, rr, &body)
				assert.Equal(t, "no active consent found for this purpose", body["error_description"])

				entries := e.trail.All()
				require.Len(t, entries, 1)
				assert.Equal(t, audit.ActionAccessDenied, entries[0].Action)
			})
		})
	})

	testutil.Given(t, "a consent grant recorded through the API", func(t *testing.T) {
		e := newEnv(t)

		grantReq := testutil.NewJSONRequest(t, http.MethodPost, "/patients/patient-1/consents",
			map[string]string{"purpose": "treatment", "grantedBy": "patient-1"})
		grantReq.Header.Set("Authorization", "Bearer "+token(t, domain.RoleNurse))
		rr := testutil.DoRequest(e.router, grantReq)
		require.Equal(t, http.StatusCreated, rr.Code)

		var grant consent.Grant
		testutil.DecodeJSON(t, rr, &grant)

		testutil.When(t, "a physician requests treatment access", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/patients/patient-1?purpose=treatment")
			req.Header.Set("Authorization", "Bearer "+token(t, domain.RolePhysician))
			rr := testutil.DoRequest(e.router, req)

			testutil.Then(t, "the filtered record and consent basis come back", func(t *testing.T) {
				require.Equal(t, http.StatusOK, rr.Code)

				var body struct {
					Patient patient.Disclosure `json:"patient"`
					Consent access.ConsentInfo `json:"consent"`
				}
				testutil.DecodeJSON(t, rr, &body)
				assert.Equal(t, grant.ID, body.Consent.ConsentID)
				require.NotNil(t, body.Patient.FirstName)
				assert.Equal(t, "Ada", *body.Patient.FirstName)
			})
		})

		testutil.When(t, "the grant is withdrawn", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodDelete, "/patients/patient-1/consents/"+grant.ID)
			req.Header.Set("Authorization", "Bearer "+token(t, domain.RolePhysician))
			rr := testutil.DoRequest(e.router, req)
			require.Equal(t, http.StatusNoContent, rr.Code)

			testutil.Then(t, "subsequent access is denied as withdrawn", func(t *testing.T) {
				req := testutil.NewRequest(t, http.MethodGet, "/patients/patient-1?purpose=treatment")
				req.Header.Set("Authorization", "Bearer "+token(t, domain.RolePhysician))
				rr := testutil.DoRequest(e.router, req)

				assert.Equal(t, http.StatusForbidden, rr.Code)
				var body map[string]string
				testutil.DecodeJSON(t, rr, &body)
				assert.Equal(t, "consent has been withdrawn", body["error_description"])
			})
		})
	})

	testutil.Given(t, "no consent at all", func(t *testing.T) {
		e := newEnv(t)

		testutil.When(t, "a nurse invokes the emergency purpose", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/patients/patient-1?purpose=emergency")
			req.Header.Set("Authorization", "Bearer "+token(t, domain.RoleNurse))
			rr := testutil.DoRequest(e.router, req)

			testutil.Then(t, "access succeeds with the statutory justification", func(t *testing.T) {
				require.Equal(t, http.StatusOK, rr.Code)

				var body struct {
					Consent access.ConsentInfo `json:"consent"`
				}
				testutil.DecodeJSON(t, rr, &body)
				assert.Equal(t, "Emergency access permitted under PIPA BC Section 18", body.Consent.Justification)
			})
		})
	})
}
