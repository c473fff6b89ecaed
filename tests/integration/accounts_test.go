package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountsRegisterLoginFlow(t *testing.T) {
	env := setupTestEnv(t)

	registered := registerUser(t, env, "frida")
	require.Equal(t, "frida", registered.User.Username)
	require.Equal(t, "frida@example.com", registered.User.Email)

	// The registration token authenticates immediately.
	resp := env.do(t, http.MethodGet, "/accounts/me/", registered.Token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me userPayload
	decodeBody(t, resp, &me)
	require.Equal(t, registered.User.ID, me.ID)

	// Login rotates the token and invalidates the old one.
	resp = env.do(t, http.MethodPost, "/accounts/login/", "",
		`{"username":"frida","password":"sup3rsecret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login authPayload
	decodeBody(t, resp, &login)
	require.NotEmpty(t, login.Token)
	require.NotEqual(t, registered.Token, login.Token)

	resp = env.do(t, http.MethodGet, "/accounts/me/", registered.Token, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/accounts/me/", login.Token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccountsRegisterDuplicates(t *testing.T) {
	env := setupTestEnv(t)

	registerUser(t, env, "frida")

	resp := env.do(t, http.MethodPost, "/accounts/register/", "",
		`{"username":"frida","email":"other@example.com","password":"sup3rsecret","password_confirm":"sup3rsecret"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var p problemPayload
	decodeBody(t, resp, &p)
	require.Contains(t, p.Errors, "username")

	resp = env.do(t, http.MethodPost, "/accounts/register/", "",
		`{"username":"frida2","email":"frida@example.com","password":"sup3rsecret","password_confirm":"sup3rsecret"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	decodeBody(t, resp, &p)
	require.Contains(t, p.Errors, "email")
}

func TestAccountsLoginWrongPassword(t *testing.T) {
	env := setupTestEnv(t)

	registerUser(t, env, "frida")

	resp := env.do(t, http.MethodPost, "/accounts/login/", "",
		`{"username":"frida","password":"wrongwrong"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAccountsLogoutInvalidatesToken(t *testing.T) {
	env := setupTestEnv(t)

	registered := registerUser(t, env, "frida")

	resp := env.do(t, http.MethodPost, "/accounts/logout/", registered.Token, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/accounts/me/", registered.Token, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAccountsProfileAlias(t *testing.T) {
	env := setupTestEnv(t)

	registered := registerUser(t, env, "frida")

	resp := env.do(t, http.MethodGet, "/accounts/profile/", registered.Token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me userPayload
	decodeBody(t, resp, &me)
	require.Equal(t, registered.User.ID, me.ID)
}

func TestAccountsMeRequiresToken(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodGet, "/accounts/me/", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/accounts/me/", "bogus-token", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
