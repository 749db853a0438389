package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"strategyhub/internal/models"
)

func testJWT() JWT {
	return JWT{Secret: []byte("secret"), Issuer: "test", AccessTTL: time.Minute, RefreshTTL: time.Hour}
}

type userMap map[uint64]*models.User

func (m userMap) CreateUser(context.Context, *models.User) error { return nil }

func (m userMap) GetUserByID(_ context.Context, id uint64) (*models.User, error) {
	return m[id], nil
}

func (m userMap) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func TestIssueAndVerify(t *testing.T) {
	j := testJWT()
	pair, err := j.Issue(7, "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := j.VerifyType(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if c.UserID != 7 || c.Subject != "alice" || c.Issuer != "test" {
		t.Fatalf("claims=%+v", c)
	}
	if _, err := j.VerifyType(pair.AccessToken, TokenTypeRefresh); err == nil {
		t.Fatalf("access token accepted as refresh")
	}
	if _, err := j.VerifyType(pair.RefreshToken, TokenTypeRefresh); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
}

func TestVerifyRejectsExpiredAndForeign(t *testing.T) {
	j := testJWT()
	past := time.Now().Add(-time.Hour)
	tok, _, err := j.Sign(Claims{
		UserID:    1,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a",
			ExpiresAt: jwt.NewNumericDate(past),
		},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := j.Verify(tok); err == nil {
		t.Fatalf("expired token accepted")
	}

	other := testJWT()
	other.Secret = []byte("other")
	pair, _ := other.Issue(1, "a")
	if _, err := j.Verify(pair.AccessToken); err == nil {
		t.Fatalf("token from another secret accepted")
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("pw", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(h, "pw") || CheckPassword(h, "nope") {
		t.Fatalf("password check mismatch")
	}
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := testJWT()
	users := userMap{
		1: {ID: 1, Username: "alice", IsActive: true},
		2: {ID: 2, Username: "bob", IsActive: false},
	}
	r := gin.New()
	r.GET("/me", RequireUser(j, users), func(c *gin.Context) {
		id, name, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "name": name})
	})

	alice, _ := j.Issue(1, "alice")
	bob, _ := j.Issue(2, "bob")
	ghost, _ := j.Issue(3, "ghost")

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"ok", "Bearer " + alice.AccessToken, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"refresh token", "Bearer " + alice.RefreshToken, http.StatusUnauthorized},
		{"inactive", "Bearer " + bob.AccessToken, http.StatusUnauthorized},
		{"unknown user", "Bearer " + ghost.AccessToken, http.StatusUnauthorized},
		{"garbage", "Bearer xyz", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: status=%d want=%d", tc.name, w.Code, tc.want)
		}
	}
}
