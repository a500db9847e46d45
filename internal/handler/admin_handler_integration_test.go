package handler_test

import (
	"net/http"
	"testing"

	"github.com/Baaaki/stockroom/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AdminHandlerIntegrationTestSuite struct {
	suite.Suite
	env *testEnv
}

func (s *AdminHandlerIntegrationTestSuite) SetupSuite() {
	s.env = newTestEnv(s.T())
}

func (s *AdminHandlerIntegrationTestSuite) SetupTest() {
	s.env.clean(s.T())
}

func (s *AdminHandlerIntegrationTestSuite) adminCookie() (*models.User, *http.Cookie) {
	admin := s.env.createUser(s.T(), "root", "AdminPass1", models.RoleAdmin)
	return admin, s.env.login(s.T(), "root", "AdminPass1")
}

func (s *AdminHandlerIntegrationTestSuite) TestGetAllUsers() {
	_, cookie := s.adminCookie()
	s.env.createUser(s.T(), "bob", "Pass12345", models.RoleUser)

	w := s.env.doJSON(http.MethodGet, "/api/users", nil, cookie)
	s.Require().Equal(http.StatusOK, w.Code)

	var users []map[string]interface{}
	decodeJSON(s.T(), w, &users)
	s.Require().Len(users, 2)

	names := []string{users[0]["username"].(string), users[1]["username"].(string)}
	assert.Contains(s.T(), names, "root")
	assert.Contains(s.T(), names, "bob")
	for _, u := range users {
		assert.NotContains(s.T(), u, "password_hash", "Hashes must never leave the server")
	}
}

func (s *AdminHandlerIntegrationTestSuite) TestGetAllUsersRequiresAdmin() {
	s.env.createUser(s.T(), "bob", "Pass12345", models.RoleUser)
	cookie := s.env.login(s.T(), "bob", "Pass12345")

	w := s.env.doJSON(http.MethodGet, "/api/users", nil, cookie)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *AdminHandlerIntegrationTestSuite) TestUpdateUserRole() {
	_, cookie := s.adminCookie()
	bob := s.env.createUser(s.T(), "bob", "Pass12345", models.RoleUser)

	w := s.env.doJSON(http.MethodPut, "/api/users/"+bob.ID.String()+"/role", map[string]string{
		"role": "admin",
	}, cookie)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	stored, err := s.env.userRepo.GetUserByID(bob.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	assert.Equal(s.T(), models.RoleAdmin, stored.Role)
}

func (s *AdminHandlerIntegrationTestSuite) TestUpdateUserRoleInvalidRole() {
	_, cookie := s.adminCookie()
	bob := s.env.createUser(s.T(), "bob", "Pass12345", models.RoleUser)

	w := s.env.doJSON(http.MethodPut, "/api/users/"+bob.ID.String()+"/role", map[string]string{
		"role": "superuser",
	}, cookie)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	decodeJSON(s.T(), w, &response)
	assert.Equal(s.T(), "Invalid role", response["error"])

	stored, err := s.env.userRepo.GetUserByID(bob.ID)
	s.Require().NoError(err)
	assert.Equal(s.T(), models.RoleUser, stored.Role, "A rejected role change must leave the account untouched")
}

func (s *AdminHandlerIntegrationTestSuite) TestUpdateUserRoleUnknownUser() {
	_, cookie := s.adminCookie()

	w := s.env.doJSON(http.MethodPut, "/api/users/11111111-2222-3333-4444-555555555555/role", map[string]string{
		"role": "admin",
	}, cookie)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *AdminHandlerIntegrationTestSuite) TestDeleteUser() {
	_, cookie := s.adminCookie()
	bob := s.env.createUser(s.T(), "bob", "Pass12345", models.RoleUser)

	w := s.env.doJSON(http.MethodDelete, "/api/users/"+bob.ID.String(), nil, cookie)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	stored, err := s.env.userRepo.GetUserByID(bob.ID)
	s.Require().NoError(err)
	assert.Nil(s.T(), stored, "Deleted account must be gone")
}

func (s *AdminHandlerIntegrationTestSuite) TestDeleteSelfRefused() {
	admin, cookie := s.adminCookie()

	w := s.env.doJSON(http.MethodDelete, "/api/users/"+admin.ID.String(), nil, cookie)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	decodeJSON(s.T(), w, &response)
	assert.Equal(s.T(), "You cannot delete yourself", response["error"])

	stored, err := s.env.userRepo.GetUserByID(admin.ID)
	s.Require().NoError(err)
	assert.NotNil(s.T(), stored, "The acting admin's account must survive")
}

func (s *AdminHandlerIntegrationTestSuite) TestDeleteUnknownUser() {
	_, cookie := s.adminCookie()

	w := s.env.doJSON(http.MethodDelete, "/api/users/11111111-2222-3333-4444-555555555555", nil, cookie)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *AdminHandlerIntegrationTestSuite) TestDeleteUserInvalidID() {
	_, cookie := s.adminCookie()

	w := s.env.doJSON(http.MethodDelete, "/api/users/not-a-uuid", nil, cookie)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *AdminHandlerIntegrationTestSuite) TestAuditLogRecordsAdminActions() {
	_, cookie := s.adminCookie()
	bob := s.env.createUser(s.T(), "bob", "Pass12345", models.RoleUser)

	w := s.env.doJSON(http.MethodPut, "/api/users/"+bob.ID.String()+"/role", map[string]string{
		"role": "admin",
	}, cookie)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.env.doJSON(http.MethodDelete, "/api/users/"+bob.ID.String(), nil, cookie)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.env.doJSON(http.MethodGet, "/api/admin/audit", nil, cookie)
	s.Require().Equal(http.StatusOK, w.Code)

	var response struct {
		Entries []struct {
			Actor    string `json:"actor"`
			Action   string `json:"action"`
			EntityID string `json:"entity_id"`
		} `json:"entries"`
	}
	decodeJSON(s.T(), w, &response)

	// The trail is append-only across the suite, so only look at the
	// entries touching this account.
	actions := make([]string, 0, 2)
	for _, e := range response.Entries {
		if e.EntityID != bob.ID.String() {
			continue
		}
		assert.Equal(s.T(), "root", e.Actor)
		actions = append(actions, e.Action)
	}
	assert.Contains(s.T(), actions, "user.role_update")
	assert.Contains(s.T(), actions, "user.delete")
}

func (s *AdminHandlerIntegrationTestSuite) TestAuditLogRequiresAdmin() {
	s.env.createUser(s.T(), "bob", "Pass12345", models.RoleUser)
	cookie := s.env.login(s.T(), "bob", "Pass12345")

	w := s.env.doJSON(http.MethodGet, "/api/admin/audit", nil, cookie)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func TestAdminHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerIntegrationTestSuite))
}
